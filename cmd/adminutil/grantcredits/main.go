package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/workhub-dev/workhub/internal/config"
	"github.com/workhub-dev/workhub/internal/db"
	"github.com/workhub-dev/workhub/internal/model"
	"github.com/workhub-dev/workhub/internal/store"
)

func main() {
	email := flag.String("email", "", "Email of the provider to grant credits to")
	amount := flag.Int64("amount", 0, "Number of credits to grant")
	reason := flag.String("reason", "manual credit grant", "Ledger description")
	flag.Parse()

	if *email == "" || *amount <= 0 {
		log.Fatalf("usage: grantcredits -email user@example.com -amount 10")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DatabaseURL())
	if err != nil {
		log.Fatalf("database connect: %v", err)
	}
	defer pool.Close()
	st := store.NewPostgres(pool)

	u, err := st.UserByEmail(ctx, *email)
	if err != nil {
		log.Fatalf("no user found with email %s: %v", *email, err)
	}

	tx, err := st.Credit(ctx, u.ID, model.BalanceCredit, *amount, model.TxDiscountCredit, *reason)
	if err != nil {
		log.Fatalf("failed to grant credits: %v", err)
	}

	fmt.Printf("Granted %d credits to %s (transaction %s).\n", *amount, *email, tx.ID)
}
