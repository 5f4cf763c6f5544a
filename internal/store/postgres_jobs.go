package store

import (
	"context"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/workhub-dev/workhub/internal/model"
)

const jobColumns = `id, task_id, client_id, title, description, price, category_id,
	sub_category_id, sub_sub_category_id, service_id, address_id, images, view_state,
	provider_ids, state, quotation_state, start_date, cancel_reason_id, cancel_note,
	created_at, updated_at`

func insertJob(ctx context.Context, tx pgx.Tx, j *model.Job) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO jobs (`+jobColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`,
		j.ID, j.TaskID, j.ClientID, j.Title, j.Description, j.Price, j.CategoryID,
		j.SubCategoryID, j.SubSubCategory, j.ServiceID, j.AddressID, j.Images, j.ViewState,
		j.ProviderIDs, j.State, j.QuotationState, j.StartDate, j.CancelReasonID, j.CancelNote,
		j.CreatedAt, j.UpdatedAt)
	return err
}

func scanJob(row pgx.Row) (*model.Job, error) {
	var j model.Job
	err := row.Scan(&j.ID, &j.TaskID, &j.ClientID, &j.Title, &j.Description, &j.Price,
		&j.CategoryID, &j.SubCategoryID, &j.SubSubCategory, &j.ServiceID, &j.AddressID,
		&j.Images, &j.ViewState, &j.ProviderIDs, &j.State, &j.QuotationState,
		&j.StartDate, &j.CancelReasonID, &j.CancelNote, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, notFoundIfNoRows(err)
	}
	return &j, nil
}

func (p *Postgres) JobByID(ctx context.Context, id string) (*model.Job, error) {
	return scanJob(p.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id))
}

func (p *Postgres) jobSelect(pg Page) sq.SelectBuilder {
	limit := pg.Limit
	if limit <= 0 {
		limit = defaultPageLimit
	}
	return p.sb.
		Select("id", "task_id", "client_id", "title", "description", "price", "category_id",
			"sub_category_id", "sub_sub_category_id", "service_id", "address_id", "images",
			"view_state", "provider_ids", "state", "quotation_state", "start_date",
			"cancel_reason_id", "cancel_note", "created_at", "updated_at").
		From("jobs").
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		Offset(uint64(pg.Offset))
}

func (p *Postgres) listJobs(ctx context.Context, builder sq.SelectBuilder) ([]model.Job, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *j)
	}
	return out, rows.Err()
}

func (p *Postgres) ListOpenJobs(ctx context.Context, f JobFilter) ([]model.Job, error) {
	b := p.jobSelect(f.Page).Where(sq.Eq{"state": model.JobOpen})
	if f.CategoryID != "" {
		b = b.Where(sq.Eq{"category_id": f.CategoryID})
	}
	if f.SubCategoryID != "" {
		b = b.Where(sq.Eq{"sub_category_id": f.SubCategoryID})
	}
	if f.ServiceID != "" {
		b = b.Where(sq.Eq{"service_id": f.ServiceID})
	}
	// PRIVATE jobs are visible only to providers named on the allow-list.
	b = b.Where(sq.Or{
		sq.Eq{"view_state": model.ViewPublic},
		sq.Expr("? = ANY(provider_ids)", f.ProviderID),
	})
	return p.listJobs(ctx, b)
}

func (p *Postgres) ListClientJobs(ctx context.Context, clientID string, pg Page) ([]model.Job, error) {
	return p.listJobs(ctx, p.jobSelect(pg).Where(sq.Eq{"client_id": clientID}))
}

func (p *Postgres) CancelJob(ctx context.Context, jobID, clientID, reasonID, note string) (*CancelJobResult, error) {
	res := &CancelJobResult{}
	err := p.withTx(ctx, func(tx pgx.Tx) error {
		j, err := scanJob(tx.QueryRow(ctx,
			`SELECT `+jobColumns+` FROM jobs WHERE id = $1 AND client_id = $2 FOR UPDATE`,
			jobID, clientID))
		if err != nil {
			return err
		}
		if j.State != model.JobOpen && j.State != model.JobBooked {
			return ErrInvalidState
		}
		now := time.Now()
		if j.State == model.JobBooked {
			// Compensating transition: the live booking must never be
			// left dangling on a closed job.
			b, err := scanBooking(tx.QueryRow(ctx,
				`SELECT `+bookingColumns+` FROM bookings
				 WHERE job_id = $1 AND state IN ($2, $3) FOR UPDATE`,
				jobID, model.BookingPending, model.BookingActive))
			if err == nil {
				if _, err := tx.Exec(ctx,
					`UPDATE bookings SET state = $1, updated_at = $2 WHERE id = $3`,
					model.BookingCancelled, now, b.ID); err != nil {
					return err
				}
				b.State = model.BookingCancelled
				b.UpdatedAt = now
				res.Booking = b
			} else if !errors.Is(err, ErrNotFound) {
				return err
			}
		}
		if _, err := tx.Exec(ctx,
			`UPDATE jobs SET state = $1, cancel_reason_id = $2, cancel_note = $3, updated_at = $4
			 WHERE id = $5`,
			model.JobClosed, reasonID, note, now, jobID); err != nil {
			return err
		}
		j.State = model.JobClosed
		j.CancelReasonID = reasonID
		j.CancelNote = note
		j.UpdatedAt = now
		res.Job = j
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
