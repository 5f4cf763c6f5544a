package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect opens the pgx pool and makes sure the schema exists.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := ensureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	slog.Info("connected to postgres")
	return pool, nil
}

// ensureSchema creates missing tables and indexes. Statements are idempotent
// so restarting the service against an existing database is safe.
func ensureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			account_type TEXT NOT NULL CHECK (account_type IN ('client', 'service_provider', 'super_admin')),
			push_token TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS wallets (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
			balance BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
			credit_balance BIGINT NOT NULL DEFAULT 0 CHECK (credit_balance >= 0),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS wallet_transactions (
			id UUID PRIMARY KEY,
			wallet_id UUID NOT NULL REFERENCES wallets(id) ON DELETE CASCADE,
			user_id UUID NOT NULL,
			kind TEXT NOT NULL CHECK (kind IN ('money', 'credit')),
			amount BIGINT NOT NULL,
			type TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_wallet_tx_user_created ON wallet_transactions(user_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS promotions (
			id UUID PRIMARY KEY,
			code TEXT NOT NULL,
			amount BIGINT NOT NULL,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			used_by TEXT NOT NULL DEFAULT '',
			used_at TIMESTAMPTZ NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS tasks (
			id UUID PRIMARY KEY,
			client_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			title TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			price BIGINT NOT NULL DEFAULT 0,
			category_id TEXT NOT NULL DEFAULT '',
			sub_category_id TEXT NOT NULL DEFAULT '',
			sub_sub_category_id TEXT NOT NULL DEFAULT '',
			service_id TEXT NOT NULL DEFAULT '',
			address_id TEXT NOT NULL DEFAULT '',
			images TEXT[] NOT NULL DEFAULT '{}',
			answers JSONB NULL,
			provider_ids TEXT[] NOT NULL DEFAULT '{}',
			view_state TEXT NOT NULL DEFAULT 'PUBLIC',
			state TEXT NOT NULL DEFAULT 'DRAFT'
				CHECK (state IN ('DRAFT', 'ACTIVE', 'PUBLISHED', 'CLOSED', 'INACTIVE')),
			start_date TIMESTAMPTZ NULL,
			steps JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_client ON tasks(client_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS jobs (
			id UUID PRIMARY KEY,
			task_id UUID NOT NULL REFERENCES tasks(id),
			client_id UUID NOT NULL REFERENCES users(id),
			title TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			price BIGINT NOT NULL DEFAULT 0,
			category_id TEXT NOT NULL DEFAULT '',
			sub_category_id TEXT NOT NULL DEFAULT '',
			sub_sub_category_id TEXT NOT NULL DEFAULT '',
			service_id TEXT NOT NULL DEFAULT '',
			address_id TEXT NOT NULL DEFAULT '',
			images TEXT[] NOT NULL DEFAULT '{}',
			view_state TEXT NOT NULL DEFAULT 'PUBLIC',
			provider_ids TEXT[] NOT NULL DEFAULT '{}',
			state TEXT NOT NULL DEFAULT 'OPEN' CHECK (state IN ('OPEN', 'BOOKED', 'CLOSED')),
			quotation_state TEXT NOT NULL DEFAULT 'OPEN_TO_QUOTE'
				CHECK (quotation_state IN ('OPEN_TO_QUOTE', 'QUOTED')),
			start_date TIMESTAMPTZ NULL,
			cancel_reason_id TEXT NOT NULL DEFAULT '',
			cancel_note TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_open ON jobs(state, category_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS quotations (
			id UUID PRIMARY KEY,
			job_id UUID NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
			service_provider_id UUID NOT NULL REFERENCES users(id),
			budget BIGINT NOT NULL DEFAULT 0,
			proposed_date TIMESTAMPTZ NULL,
			cover_note TEXT NOT NULL DEFAULT '',
			state TEXT NOT NULL DEFAULT 'PENDING' CHECK (state IN ('PENDING', 'ACCEPTED', 'REJECTED')),
			read_by_client BOOLEAN NOT NULL DEFAULT FALSE,
			reject_reason_id TEXT NOT NULL DEFAULT '',
			reject_note TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		// Backs the "at most one PENDING quotation per (job, provider)"
		// invariant against concurrent submissions.
		`CREATE UNIQUE INDEX IF NOT EXISTS quotations_one_pending
			ON quotations(job_id, service_provider_id) WHERE state = 'PENDING'`,
		`CREATE INDEX IF NOT EXISTS idx_quotations_provider ON quotations(service_provider_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS bookings (
			id UUID PRIMARY KEY,
			job_id UUID NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
			quotation_id UUID NOT NULL REFERENCES quotations(id),
			client_id UUID NOT NULL REFERENCES users(id),
			service_provider_id UUID NOT NULL REFERENCES users(id),
			state TEXT NOT NULL DEFAULT 'PENDING'
				CHECK (state IN ('PENDING', 'ACTIVE', 'COMPLETED', 'EXPIRED', 'DISPUTE', 'CANCELLED')),
			start_date TIMESTAMPTZ NOT NULL,
			client_start_req BOOLEAN NOT NULL DEFAULT FALSE,
			sp_start_req BOOLEAN NOT NULL DEFAULT FALSE,
			client_finish_req BOOLEAN NOT NULL DEFAULT FALSE,
			sp_finish_req BOOLEAN NOT NULL DEFAULT FALSE,
			dispute_reason_id TEXT NOT NULL DEFAULT '',
			dispute_note TEXT NOT NULL DEFAULT '',
			reminded_at TIMESTAMPTZ NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_sweep ON bookings(state, start_date)`,
		`CREATE TABLE IF NOT EXISTS sweep_runs (
			name TEXT PRIMARY KEY,
			last_run_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS conversations (
			id UUID PRIMARY KEY,
			job_id UUID NOT NULL UNIQUE REFERENCES jobs(id) ON DELETE CASCADE,
			client_id UUID NOT NULL,
			service_provider_id UUID NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id UUID PRIMARY KEY,
			conversation_id UUID NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
			sender_id UUID NOT NULL,
			body TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, created_at)`,
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
