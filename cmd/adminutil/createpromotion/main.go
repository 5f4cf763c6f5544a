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
	code := flag.String("code", "", "Promotion code")
	amount := flag.Int64("amount", 0, "Discount amount credited on use")
	flag.Parse()

	if *code == "" || *amount <= 0 {
		log.Fatalf("usage: createpromotion -code WELCOME10 -amount 1000")
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

	p := &model.Promotion{Code: *code, Amount: *amount, Active: true}
	if err := st.CreatePromotion(ctx, p); err != nil {
		log.Fatalf("failed to create promotion: %v", err)
	}

	fmt.Printf("Promotion %s created (id %s).\n", p.Code, p.ID)
}
