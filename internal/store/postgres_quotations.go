package store

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/workhub-dev/workhub/internal/model"
)

const quotationColumns = `id, job_id, service_provider_id, budget, proposed_date, cover_note,
	state, read_by_client, reject_reason_id, reject_note, created_at, updated_at`

func scanQuotation(row pgx.Row) (*model.Quotation, error) {
	var q model.Quotation
	err := row.Scan(&q.ID, &q.JobID, &q.ServiceProviderID, &q.Budget, &q.ProposedDate,
		&q.CoverNote, &q.State, &q.ReadByClient, &q.RejectReasonID, &q.RejectNote,
		&q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return nil, notFoundIfNoRows(err)
	}
	return &q, nil
}

func (p *Postgres) SubmitQuotation(ctx context.Context, q *model.Quotation, creditCost int64) error {
	if q.ID == "" {
		q.ID = uuid.New().String()
	}
	return p.withTx(ctx, func(tx pgx.Tx) error {
		// Lock the job row so submission serializes against acceptance
		// and cancellation on the same job.
		var jobState model.JobState
		var quotationState model.JobQuotationState
		err := tx.QueryRow(ctx,
			`SELECT state, quotation_state FROM jobs WHERE id = $1 FOR UPDATE`,
			q.JobID).Scan(&jobState, &quotationState)
		if err != nil {
			return notFoundIfNoRows(err)
		}
		if jobState != model.JobOpen {
			return ErrJobNotOpen
		}

		if _, err := applyLedger(ctx, tx, q.ServiceProviderID, model.BalanceCredit, -creditCost, model.TxServiceFee, "quotation fee"); err != nil {
			return err
		}

		now := time.Now()
		q.State = model.QuotationPending
		q.CreatedAt = now
		q.UpdatedAt = now
		// The partial unique index quotations_one_pending closes the race
		// two concurrent submissions would otherwise win together.
		_, err = tx.Exec(ctx,
			`INSERT INTO quotations (`+quotationColumns+`)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			q.ID, q.JobID, q.ServiceProviderID, q.Budget, q.ProposedDate, q.CoverNote,
			q.State, q.ReadByClient, q.RejectReasonID, q.RejectNote, q.CreatedAt, q.UpdatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrPendingQuotation
			}
			return err
		}

		if quotationState == model.JobOpenToQuote {
			if _, err := tx.Exec(ctx,
				`UPDATE jobs SET quotation_state = $1, updated_at = $2 WHERE id = $3`,
				model.JobQuoted, now, q.JobID); err != nil {
				return err
			}
		}
		return nil
	})
}

func (p *Postgres) AcceptQuotation(ctx context.Context, jobID, quotationID, clientID, promotionID string) (*AcceptResult, error) {
	res := &AcceptResult{}
	err := p.withTx(ctx, func(tx pgx.Tx) error {
		j, err := scanJob(tx.QueryRow(ctx,
			`SELECT `+jobColumns+` FROM jobs WHERE id = $1 AND client_id = $2 FOR UPDATE`,
			jobID, clientID))
		if err != nil {
			return err
		}
		q, err := scanQuotation(tx.QueryRow(ctx,
			`SELECT `+quotationColumns+` FROM quotations
			 WHERE id = $1 AND job_id = $2 FOR UPDATE`,
			quotationID, jobID))
		if err != nil {
			return err
		}
		if q.State != model.QuotationPending {
			return ErrNotFound
		}
		// The job lock makes this check authoritative: a concurrent accept
		// on the same job observes BOOKED here and fails cleanly.
		if j.State != model.JobOpen {
			return ErrInvalidState
		}
		res.JobTitle = j.Title

		now := time.Now()

		if promotionID != "" {
			var promo model.Promotion
			err := tx.QueryRow(ctx,
				`SELECT id, code, amount, active, used_by, used_at, created_at
				 FROM promotions WHERE id = $1 FOR UPDATE`,
				promotionID).Scan(&promo.ID, &promo.Code, &promo.Amount, &promo.Active,
				&promo.UsedBy, &promo.UsedAt, &promo.CreatedAt)
			if err != nil {
				if notFoundIfNoRows(err) == ErrNotFound {
					return ErrPromotionNotFound
				}
				return err
			}
			if !promo.Active {
				return ErrPromotionNotFound
			}
			if promo.UsedBy != "" {
				return ErrPromotionUsed
			}
			if _, err := tx.Exec(ctx,
				`UPDATE promotions SET used_by = $1, used_at = $2 WHERE id = $3`,
				clientID, now, promo.ID); err != nil {
				return err
			}
			if _, err := applyLedger(ctx, tx, clientID, model.BalanceMoney, promo.Amount, model.TxPromotion, "promotion "+promo.Code); err != nil {
				return err
			}
			promo.UsedBy = clientID
			promo.UsedAt = &now
			res.Promotion = &promo
		}

		if _, err := tx.Exec(ctx,
			`UPDATE quotations SET state = $1, updated_at = $2 WHERE id = $3`,
			model.QuotationAccepted, now, quotationID); err != nil {
			return err
		}
		q.State = model.QuotationAccepted
		q.UpdatedAt = now
		res.Winner = q

		// Every sibling PENDING quotation loses in the same unit.
		rows, err := tx.Query(ctx,
			`UPDATE quotations SET state = $1, updated_at = $2
			 WHERE job_id = $3 AND id <> $4 AND state = $5
			 RETURNING `+quotationColumns,
			model.QuotationRejected, now, jobID, quotationID, model.QuotationPending)
		if err != nil {
			return err
		}
		for rows.Next() {
			loser, err := scanQuotation(rows)
			if err != nil {
				rows.Close()
				return err
			}
			res.Rejected = append(res.Rejected, *loser)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx,
			`UPDATE jobs SET state = $1, updated_at = $2 WHERE id = $3`,
			model.JobBooked, now, jobID); err != nil {
			return err
		}

		start := now
		if q.ProposedDate != nil {
			start = *q.ProposedDate
		} else if j.StartDate != nil {
			start = *j.StartDate
		}
		b := &model.Booking{
			ID:                uuid.New().String(),
			JobID:             jobID,
			QuotationID:       quotationID,
			ClientID:          clientID,
			ServiceProviderID: q.ServiceProviderID,
			State:             model.BookingPending,
			StartDate:         start,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if err := insertBooking(ctx, tx, b); err != nil {
			return err
		}
		res.Booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (p *Postgres) RejectQuotation(ctx context.Context, jobID, quotationID, clientID, reasonID, note string) (*model.Quotation, error) {
	var q *model.Quotation
	err := p.withTx(ctx, func(tx pgx.Tx) error {
		var jobOwner string
		if err := tx.QueryRow(ctx,
			`SELECT client_id FROM jobs WHERE id = $1 AND client_id = $2`,
			jobID, clientID).Scan(&jobOwner); err != nil {
			return notFoundIfNoRows(err)
		}
		var err error
		q, err = scanQuotation(tx.QueryRow(ctx,
			`SELECT `+quotationColumns+` FROM quotations
			 WHERE id = $1 AND job_id = $2 FOR UPDATE`,
			quotationID, jobID))
		if err != nil {
			return err
		}
		if q.State != model.QuotationPending {
			return ErrInvalidState
		}
		now := time.Now()
		if _, err := tx.Exec(ctx,
			`UPDATE quotations SET state = $1, reject_reason_id = $2, reject_note = $3, updated_at = $4
			 WHERE id = $5`,
			model.QuotationRejected, reasonID, note, now, quotationID); err != nil {
			return err
		}
		q.State = model.QuotationRejected
		q.RejectReasonID = reasonID
		q.RejectNote = note
		q.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return q, nil
}

func (p *Postgres) MarkQuotationRead(ctx context.Context, quotationID string) error {
	res, err := p.pool.Exec(ctx,
		`UPDATE quotations SET read_by_client = TRUE WHERE id = $1`, quotationID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) QuotationByID(ctx context.Context, id string) (*model.Quotation, error) {
	return scanQuotation(p.pool.QueryRow(ctx,
		`SELECT `+quotationColumns+` FROM quotations WHERE id = $1`, id))
}

func (p *Postgres) quotationSelect(pg Page) sq.SelectBuilder {
	limit := pg.Limit
	if limit <= 0 {
		limit = defaultPageLimit
	}
	return p.sb.
		Select("id", "job_id", "service_provider_id", "budget", "proposed_date", "cover_note",
			"state", "read_by_client", "reject_reason_id", "reject_note", "created_at", "updated_at").
		From("quotations").
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		Offset(uint64(pg.Offset))
}

func (p *Postgres) listQuotations(ctx context.Context, builder sq.SelectBuilder) ([]model.Quotation, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Quotation
	for rows.Next() {
		q, err := scanQuotation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *q)
	}
	return out, rows.Err()
}

func (p *Postgres) QuotationsForJob(ctx context.Context, jobID, clientID string, pg Page) ([]model.Quotation, error) {
	var owner string
	if err := p.pool.QueryRow(ctx,
		`SELECT client_id FROM jobs WHERE id = $1 AND client_id = $2`,
		jobID, clientID).Scan(&owner); err != nil {
		return nil, notFoundIfNoRows(err)
	}
	return p.listQuotations(ctx, p.quotationSelect(pg).Where(sq.Eq{"job_id": jobID}))
}

func (p *Postgres) ProviderQuotations(ctx context.Context, providerID string, pg Page) ([]model.Quotation, error) {
	return p.listQuotations(ctx, p.quotationSelect(pg).Where(sq.Eq{"service_provider_id": providerID}))
}
