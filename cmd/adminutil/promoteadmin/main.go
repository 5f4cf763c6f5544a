package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/workhub-dev/workhub/internal/config"
	"github.com/workhub-dev/workhub/internal/db"
)

func main() {
	email := flag.String("email", "", "Email of the user to promote to super admin")
	flag.Parse()

	if *email == "" {
		log.Fatalf("usage: promoteadmin -email user@example.com")
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

	ct, err := pool.Exec(ctx, `UPDATE users SET account_type = 'super_admin' WHERE email = $1`, *email)
	if err != nil {
		log.Fatalf("failed to promote user: %v", err)
	}
	if ct.RowsAffected() == 0 {
		log.Fatalf("no user found with email: %s", *email)
	}

	fmt.Printf("User %s promoted to super admin.\n", *email)
}
