package store

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/workhub-dev/workhub/internal/model"
)

const taskColumns = `id, client_id, title, description, price, category_id, sub_category_id,
	sub_sub_category_id, service_id, address_id, images, answers, provider_ids,
	view_state, state, start_date, steps, created_at, updated_at`

func scanTask(row pgx.Row) (*model.Task, error) {
	var t model.Task
	err := row.Scan(&t.ID, &t.ClientID, &t.Title, &t.Description, &t.Price,
		&t.CategoryID, &t.SubCategoryID, &t.SubSubCategory, &t.ServiceID, &t.AddressID,
		&t.Images, &t.Answers, &t.ProviderIDs, &t.ViewState, &t.State, &t.StartDate,
		&t.Steps, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, notFoundIfNoRows(err)
	}
	if t.Steps == nil {
		t.Steps = make(map[model.DraftStep]bool)
	}
	return &t, nil
}

func (p *Postgres) CreateTask(ctx context.Context, t *model.Task) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	now := time.Now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	if t.Steps == nil {
		t.Steps = make(map[model.DraftStep]bool)
	}
	_, err := p.pool.Exec(ctx,
		`INSERT INTO tasks (`+taskColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		t.ID, t.ClientID, t.Title, t.Description, t.Price,
		t.CategoryID, t.SubCategoryID, t.SubSubCategory, t.ServiceID, t.AddressID,
		t.Images, t.Answers, t.ProviderIDs, t.ViewState, t.State, t.StartDate,
		t.Steps, t.CreatedAt, t.UpdatedAt)
	return err
}

func (p *Postgres) TaskByID(ctx context.Context, id, clientID string) (*model.Task, error) {
	return scanTask(p.pool.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks
		 WHERE id = $1 AND client_id = $2 AND state <> $3`,
		id, clientID, model.TaskInactive))
}

func (p *Postgres) UpdateTask(ctx context.Context, t *model.Task) error {
	t.UpdatedAt = time.Now()
	res, err := p.pool.Exec(ctx,
		`UPDATE tasks SET title = $1, description = $2, price = $3, category_id = $4,
		 sub_category_id = $5, sub_sub_category_id = $6, service_id = $7, address_id = $8,
		 images = $9, answers = $10, provider_ids = $11, view_state = $12, state = $13,
		 start_date = $14, steps = $15, updated_at = $16
		 WHERE id = $17 AND client_id = $18 AND state <> $19`,
		t.Title, t.Description, t.Price, t.CategoryID,
		t.SubCategoryID, t.SubSubCategory, t.ServiceID, t.AddressID,
		t.Images, t.Answers, t.ProviderIDs, t.ViewState, t.State,
		t.StartDate, t.Steps, t.UpdatedAt,
		t.ID, t.ClientID, model.TaskInactive)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) DeleteTask(ctx context.Context, id, clientID string) error {
	res, err := p.pool.Exec(ctx,
		`UPDATE tasks SET state = $1, updated_at = NOW()
		 WHERE id = $2 AND client_id = $3 AND state IN ($4, $5)`,
		model.TaskInactive, id, clientID, model.TaskDraft, model.TaskActive)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		// Distinguish a bad state from a row the caller cannot see.
		if _, lookupErr := p.TaskByID(ctx, id, clientID); lookupErr == nil {
			return ErrInvalidState
		}
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) ListTasks(ctx context.Context, clientID string, pg Page) ([]model.Task, error) {
	limit := pg.Limit
	if limit <= 0 {
		limit = defaultPageLimit
	}
	query, args, err := p.sb.
		Select("id", "client_id", "title", "description", "price", "category_id",
			"sub_category_id", "sub_sub_category_id", "service_id", "address_id",
			"images", "answers", "provider_ids", "view_state", "state", "start_date",
			"steps", "created_at", "updated_at").
		From("tasks").
		Where(sq.Eq{"client_id": clientID}).
		Where(sq.NotEq{"state": model.TaskInactive}).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		Offset(uint64(pg.Offset)).
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (p *Postgres) PublishTask(ctx context.Context, id, clientID string) (*model.Job, error) {
	var job *model.Job
	err := p.withTx(ctx, func(tx pgx.Tx) error {
		t, err := scanTask(tx.QueryRow(ctx,
			`SELECT `+taskColumns+` FROM tasks
			 WHERE id = $1 AND client_id = $2 AND state <> $3 FOR UPDATE`,
			id, clientID, model.TaskInactive))
		if err != nil {
			return err
		}
		if t.State != model.TaskDraft && t.State != model.TaskActive {
			return ErrInvalidState
		}
		if !t.StepsComplete() {
			return ErrInvalidState
		}
		now := time.Now()
		if _, err := tx.Exec(ctx,
			`UPDATE tasks SET state = $1, updated_at = $2 WHERE id = $3`,
			model.TaskPublished, now, t.ID); err != nil {
			return err
		}
		job = &model.Job{
			ID:             uuid.New().String(),
			TaskID:         t.ID,
			ClientID:       t.ClientID,
			Title:          t.Title,
			Description:    t.Description,
			Price:          t.Price,
			CategoryID:     t.CategoryID,
			SubCategoryID:  t.SubCategoryID,
			SubSubCategory: t.SubSubCategory,
			ServiceID:      t.ServiceID,
			AddressID:      t.AddressID,
			Images:         t.Images,
			ViewState:      t.ViewState,
			ProviderIDs:    t.ProviderIDs,
			State:          model.JobOpen,
			QuotationState: model.JobOpenToQuote,
			StartDate:      t.StartDate,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		return insertJob(ctx, tx, job)
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}
