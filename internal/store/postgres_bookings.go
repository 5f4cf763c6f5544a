package store

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/workhub-dev/workhub/internal/model"
)

const bookingColumns = `id, job_id, quotation_id, client_id, service_provider_id, state,
	start_date, client_start_req, sp_start_req, client_finish_req, sp_finish_req,
	dispute_reason_id, dispute_note, reminded_at, created_at, updated_at`

func insertBooking(ctx context.Context, tx pgx.Tx, b *model.Booking) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO bookings (`+bookingColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		b.ID, b.JobID, b.QuotationID, b.ClientID, b.ServiceProviderID, b.State,
		b.StartDate, b.ClientStartReq, b.ProviderStartReq, b.ClientFinishReq, b.ProviderFinishReq,
		b.DisputeReasonID, b.DisputeNote, b.RemindedAt, b.CreatedAt, b.UpdatedAt)
	return err
}

func scanBooking(row pgx.Row) (*model.Booking, error) {
	var b model.Booking
	err := row.Scan(&b.ID, &b.JobID, &b.QuotationID, &b.ClientID, &b.ServiceProviderID,
		&b.State, &b.StartDate, &b.ClientStartReq, &b.ProviderStartReq, &b.ClientFinishReq,
		&b.ProviderFinishReq, &b.DisputeReasonID, &b.DisputeNote, &b.RemindedAt,
		&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, notFoundIfNoRows(err)
	}
	return &b, nil
}

func (p *Postgres) BookingByID(ctx context.Context, id string) (*model.Booking, error) {
	return scanBooking(p.pool.QueryRow(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id))
}

func (p *Postgres) ListBookings(ctx context.Context, userID string, pg Page) ([]model.Booking, error) {
	limit := pg.Limit
	if limit <= 0 {
		limit = defaultPageLimit
	}
	query, args, err := p.sb.
		Select("id", "job_id", "quotation_id", "client_id", "service_provider_id", "state",
			"start_date", "client_start_req", "sp_start_req", "client_finish_req",
			"sp_finish_req", "dispute_reason_id", "dispute_note", "reminded_at",
			"created_at", "updated_at").
		From("bookings").
		Where(sq.Or{sq.Eq{"client_id": userID}, sq.Eq{"service_provider_id": userID}}).
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

	var out []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// lockBookingParty loads and locks the booking row, verifying that actorID is
// a party. A non-party caller sees the same ErrNotFound a missing row gives.
func lockBookingParty(ctx context.Context, tx pgx.Tx, bookingID, actorID string) (*model.Booking, model.AccountType, error) {
	b, err := scanBooking(tx.QueryRow(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`, bookingID))
	if err != nil {
		return nil, "", err
	}
	side, isParty := b.Party(actorID)
	if !isParty {
		return nil, "", ErrNotFound
	}
	return b, side, nil
}

func saveBookingFlags(ctx context.Context, tx pgx.Tx, b *model.Booking) error {
	_, err := tx.Exec(ctx,
		`UPDATE bookings SET state = $1, client_start_req = $2, sp_start_req = $3,
		 client_finish_req = $4, sp_finish_req = $5, updated_at = $6
		 WHERE id = $7`,
		b.State, b.ClientStartReq, b.ProviderStartReq,
		b.ClientFinishReq, b.ProviderFinishReq, b.UpdatedAt, b.ID)
	return err
}

func (p *Postgres) RequestStart(ctx context.Context, bookingID, actorID string) (*model.Booking, bool, error) {
	var b *model.Booking
	transitioned := false
	err := p.withTx(ctx, func(tx pgx.Tx) error {
		var side model.AccountType
		var err error
		b, side, err = lockBookingParty(ctx, tx, bookingID, actorID)
		if err != nil {
			return err
		}
		if b.State != model.BookingPending {
			return ErrInvalidState
		}
		if side == model.AccountClient {
			b.ClientStartReq = true
		} else {
			b.ProviderStartReq = true
		}
		if b.ClientStartReq && b.ProviderStartReq {
			b.State = model.BookingActive
			transitioned = true
		}
		b.UpdatedAt = time.Now()
		return saveBookingFlags(ctx, tx, b)
	})
	if err != nil {
		return nil, false, err
	}
	return b, transitioned, nil
}

func (p *Postgres) DenyStart(ctx context.Context, bookingID, actorID string) (*model.Booking, error) {
	var b *model.Booking
	err := p.withTx(ctx, func(tx pgx.Tx) error {
		var err error
		b, _, err = lockBookingParty(ctx, tx, bookingID, actorID)
		if err != nil {
			return err
		}
		if b.State != model.BookingPending {
			return ErrInvalidState
		}
		b.ClientStartReq = false
		b.ProviderStartReq = false
		b.UpdatedAt = time.Now()
		return saveBookingFlags(ctx, tx, b)
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (p *Postgres) RequestFinish(ctx context.Context, bookingID, actorID string) (*model.Booking, bool, error) {
	var b *model.Booking
	transitioned := false
	err := p.withTx(ctx, func(tx pgx.Tx) error {
		var side model.AccountType
		var err error
		b, side, err = lockBookingParty(ctx, tx, bookingID, actorID)
		if err != nil {
			return err
		}
		if b.State != model.BookingActive {
			return ErrInvalidState
		}
		if side == model.AccountClient {
			b.ClientFinishReq = true
		} else {
			b.ProviderFinishReq = true
		}
		b.UpdatedAt = time.Now()
		if b.ClientFinishReq && b.ProviderFinishReq {
			b.State = model.BookingCompleted
			transitioned = true
			if _, err := tx.Exec(ctx,
				`UPDATE jobs SET state = $1, updated_at = $2 WHERE id = $3`,
				model.JobClosed, b.UpdatedAt, b.JobID); err != nil {
				return err
			}
		}
		return saveBookingFlags(ctx, tx, b)
	})
	if err != nil {
		return nil, false, err
	}
	return b, transitioned, nil
}

func (p *Postgres) DenyFinish(ctx context.Context, bookingID, actorID string) (*model.Booking, error) {
	var b *model.Booking
	err := p.withTx(ctx, func(tx pgx.Tx) error {
		var err error
		b, _, err = lockBookingParty(ctx, tx, bookingID, actorID)
		if err != nil {
			return err
		}
		if b.State != model.BookingActive {
			return ErrInvalidState
		}
		b.ClientFinishReq = false
		b.ProviderFinishReq = false
		b.UpdatedAt = time.Now()
		return saveBookingFlags(ctx, tx, b)
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (p *Postgres) FileDispute(ctx context.Context, bookingID, actorID, reasonID, note string) (*model.Booking, error) {
	var b *model.Booking
	err := p.withTx(ctx, func(tx pgx.Tx) error {
		var err error
		b, _, err = lockBookingParty(ctx, tx, bookingID, actorID)
		if err != nil {
			return err
		}
		if b.State != model.BookingPending && b.State != model.BookingActive {
			return ErrInvalidState
		}
		now := time.Now()
		if _, err := tx.Exec(ctx,
			`UPDATE bookings SET state = $1, dispute_reason_id = $2, dispute_note = $3, updated_at = $4
			 WHERE id = $5`,
			model.BookingDispute, reasonID, note, now, bookingID); err != nil {
			return err
		}
		b.State = model.BookingDispute
		b.DisputeReasonID = reasonID
		b.DisputeNote = note
		b.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// ExpirePendingBefore flips overdue PENDING bookings in one statement; only
// rows changed by this call come back, so a second sweep on the same data
// returns nothing.
func (p *Postgres) ExpirePendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]model.Booking, error) {
	if limit <= 0 {
		limit = defaultPageLimit
	}
	rows, err := p.pool.Query(ctx,
		`UPDATE bookings SET state = $1, updated_at = NOW()
		 WHERE id IN (
		 	SELECT id FROM bookings
		 	WHERE state = $2 AND start_date < $3
		 	ORDER BY start_date
		 	LIMIT $4
		 	FOR UPDATE SKIP LOCKED
		 )
		 RETURNING `+bookingColumns,
		model.BookingExpired, model.BookingPending, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// UpcomingBookings stamps reminded_at as it selects so each booking is
// reminded at most once.
func (p *Postgres) UpcomingBookings(ctx context.Context, from, to time.Time, limit int) ([]model.Booking, error) {
	if limit <= 0 {
		limit = defaultPageLimit
	}
	rows, err := p.pool.Query(ctx,
		`UPDATE bookings SET reminded_at = $1
		 WHERE id IN (
		 	SELECT id FROM bookings
		 	WHERE state IN ($2, $3)
		 	AND start_date >= $1 AND start_date < $4
		 	AND reminded_at IS NULL
		 	ORDER BY start_date
		 	LIMIT $5
		 	FOR UPDATE SKIP LOCKED
		 )
		 RETURNING `+bookingColumns,
		from, model.BookingPending, model.BookingActive, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (p *Postgres) TryBeginSweep(ctx context.Context, name string, now time.Time, minInterval time.Duration) (bool, error) {
	res, err := p.pool.Exec(ctx,
		`INSERT INTO sweep_runs (name, last_run_at) VALUES ($1, $2)
		 ON CONFLICT (name) DO UPDATE SET last_run_at = $2
		 WHERE sweep_runs.last_run_at <= $3`,
		name, now, now.Add(-minInterval))
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

// ----- chat -----

func (p *Postgres) EnsureConversation(ctx context.Context, jobID, clientID, providerID string) (*model.Conversation, error) {
	var c model.Conversation
	err := p.pool.QueryRow(ctx,
		`INSERT INTO conversations (id, job_id, client_id, service_provider_id, created_at)
		 VALUES ($1, $2, $3, $4, NOW())
		 ON CONFLICT (job_id) DO UPDATE SET job_id = EXCLUDED.job_id
		 RETURNING id, job_id, client_id, service_provider_id, created_at`,
		uuid.New().String(), jobID, clientID, providerID).
		Scan(&c.ID, &c.JobID, &c.ClientID, &c.ServiceProviderID, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (p *Postgres) ConversationByID(ctx context.Context, id string) (*model.Conversation, error) {
	var c model.Conversation
	err := p.pool.QueryRow(ctx,
		`SELECT id, job_id, client_id, service_provider_id, created_at
		 FROM conversations WHERE id = $1`, id).
		Scan(&c.ID, &c.JobID, &c.ClientID, &c.ServiceProviderID, &c.CreatedAt)
	if err != nil {
		return nil, notFoundIfNoRows(err)
	}
	return &c, nil
}

func (p *Postgres) SaveMessage(ctx context.Context, m *model.Message) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	_, err := p.pool.Exec(ctx,
		`INSERT INTO messages (id, conversation_id, sender_id, body, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		m.ID, m.ConversationID, m.SenderID, m.Body, m.CreatedAt)
	return err
}

func (p *Postgres) Messages(ctx context.Context, conversationID string, pg Page) ([]model.Message, error) {
	limit := pg.Limit
	if limit <= 0 {
		limit = defaultPageLimit
	}
	query, args, err := p.sb.
		Select("id", "conversation_id", "sender_id", "body", "created_at").
		From("messages").
		Where(sq.Eq{"conversation_id": conversationID}).
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

	var out []model.Message
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Body, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
