package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Parknogyung/ticket-reservation/internal/model"
)

// MySQLStore implements Store on a MySQL database.  All timestamps
// are stored in UTC; the DSN must set parseTime=true and loc=UTC.
type MySQLStore struct {
	db *sql.DB
}

// NewMySQLStore returns a store bound to the provided database.
func NewMySQLStore(db *sql.DB) *MySQLStore { return &MySQLStore{db: db} }

// WithinTx begins a transaction, runs fn and commits unless fn
// failed.  The rollback in the deferred function covers error and
// panic paths alike.
func (s *MySQLStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&mysqlTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

type mysqlTx struct {
	tx *sql.Tx
}

// CreateConcert inserts a concert row and reads back the generated
// id and creation timestamp.
func (t *mysqlTx) CreateConcert(ctx context.Context, c *model.Concert) error {
	const q = `INSERT INTO concerts (title, starts_at) VALUES (?, ?)`
	res, err := t.tx.ExecContext(ctx, q, c.Title, c.StartsAt.UTC().Format("2006-01-02 15:04:05"))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	const sel = `SELECT created_at FROM concerts WHERE id = ?`
	return t.tx.QueryRowContext(ctx, sel, c.ID).Scan(&c.CreatedAt)
}

// ConcertByID loads a single concert.
func (t *mysqlTx) ConcertByID(ctx context.Context, id uint64) (*model.Concert, error) {
	const q = `SELECT id, title, starts_at, created_at FROM concerts WHERE id = ?`
	var c model.Concert
	err := t.tx.QueryRowContext(ctx, q, id).Scan(&c.ID, &c.Title, &c.StartsAt, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrConcertNotFound
		}
		return nil, err
	}
	return &c, nil
}

// ListConcerts returns every concert with its remaining AVAILABLE
// seat count in one grouped query.
func (t *mysqlTx) ListConcerts(ctx context.Context) ([]ConcertAvailability, error) {
	const q = `SELECT c.id, c.title, c.starts_at, c.created_at,
	                  COALESCE(SUM(s.status = 'AVAILABLE'), 0)
	           FROM concerts c
	           LEFT JOIN seats s ON s.concert_id = c.id
	           GROUP BY c.id, c.title, c.starts_at, c.created_at
	           ORDER BY c.starts_at`
	rows, err := t.tx.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ConcertAvailability
	for rows.Next() {
		var ca ConcertAvailability
		if err := rows.Scan(&ca.Concert.ID, &ca.Concert.Title, &ca.Concert.StartsAt,
			&ca.Concert.CreatedAt, &ca.AvailableSeats); err != nil {
			return nil, err
		}
		out = append(out, ca)
	}
	return out, rows.Err()
}

// CreateSeats bulk-inserts seat rows in a single statement.  Passing
// an empty slice has no effect and returns nil.
func (t *mysqlTx) CreateSeats(ctx context.Context, seats []model.Seat) error {
	if len(seats) == 0 {
		return nil
	}
	query := `INSERT INTO seats (concert_id, seat_number, status, version) VALUES `
	args := make([]interface{}, 0, len(seats)*4)
	for i, s := range seats {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?)"
		args = append(args, s.ConcertID, s.SeatNumber, s.Status, s.Version)
	}
	_, err := t.tx.ExecContext(ctx, query, args...)
	return err
}

// AvailableSeats lists a concert's AVAILABLE seats by seat number.
func (t *mysqlTx) AvailableSeats(ctx context.Context, concertID uint64) ([]model.Seat, error) {
	const q = `SELECT id, concert_id, seat_number, status, version, created_at, updated_at
	           FROM seats WHERE concert_id = ? AND status = 'AVAILABLE'
	           ORDER BY seat_number`
	rows, err := t.tx.QueryContext(ctx, q, concertID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSeats(rows)
}

// SeatsByIDs loads the given seats.  The result is checked against
// the requested id count so that a missing seat surfaces as
// ErrSeatNotFound rather than a silently shorter slice.
func (t *mysqlTx) SeatsByIDs(ctx context.Context, ids []uint64) ([]model.Seat, error) {
	if len(ids) == 0 {
		return []model.Seat{}, nil
	}
	query := `SELECT id, concert_id, seat_number, status, version, created_at, updated_at
	          FROM seats WHERE id IN (`
	args := make([]interface{}, 0, len(ids))
	for i, id := range ids {
		if i > 0 {
			query += ","
		}
		query += "?"
		args = append(args, id)
	}
	query += `)`
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	seats, err := scanSeats(rows)
	if err != nil {
		return nil, err
	}
	if len(seats) != len(ids) {
		return nil, ErrSeatNotFound
	}
	return seats, nil
}

// UpdateSeatStatus performs the optimistic status write.  Zero
// affected rows means the version moved underneath us (or the seat
// vanished, which cannot happen since seats are never deleted).
func (t *mysqlTx) UpdateSeatStatus(ctx context.Context, seatID, version uint64, status string) error {
	const q = `UPDATE seats SET status = ?, version = version + 1, updated_at = UTC_TIMESTAMP()
	           WHERE id = ? AND version = ?`
	res, err := t.tx.ExecContext(ctx, q, status, seatID, version)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrVersionConflict
	}
	return nil
}

// CreateReservation inserts a PENDING reservation and reads back
// generated columns.
func (t *mysqlTx) CreateReservation(ctx context.Context, r *model.Reservation) error {
	const q = `INSERT INTO reservations (user_id, seat_id, status) VALUES (?, ?, ?)`
	res, err := t.tx.ExecContext(ctx, q, r.UserID, r.SeatID, r.Status)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	r.ID = uint64(id)
	const sel = `SELECT created_at, updated_at FROM reservations WHERE id = ?`
	return t.tx.QueryRowContext(ctx, sel, r.ID).Scan(&r.CreatedAt, &r.UpdatedAt)
}

// ReservationsByIDs loads reservations FOR UPDATE so the settlement
// status checks and the subsequent writes see a stable row.
func (t *mysqlTx) ReservationsByIDs(ctx context.Context, ids []uint64) ([]model.Reservation, error) {
	if len(ids) == 0 {
		return []model.Reservation{}, nil
	}
	query := `SELECT id, user_id, seat_id, status, payment_ref, created_at, updated_at
	          FROM reservations WHERE id IN (`
	args := make([]interface{}, 0, len(ids))
	for i, id := range ids {
		if i > 0 {
			query += ","
		}
		query += "?"
		args = append(args, id)
	}
	query += `) FOR UPDATE`
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Reservation
	for rows.Next() {
		var r model.Reservation
		var ref sql.NullString
		if err := rows.Scan(&r.ID, &r.UserID, &r.SeatID, &r.Status, &ref, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		if ref.Valid {
			v := ref.String
			r.PaymentRef = &v
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) != len(ids) {
		return nil, ErrReservationNotFound
	}
	return out, nil
}

// UpdateReservationStatus moves a reservation between statuses.  The
// from condition in the WHERE clause makes the transition atomic.
func (t *mysqlTx) UpdateReservationStatus(ctx context.Context, id uint64, from, to string, paymentRef *string) error {
	const q = `UPDATE reservations SET status = ?, payment_ref = COALESCE(?, payment_ref), updated_at = UTC_TIMESTAMP()
	           WHERE id = ? AND status = ?`
	res, err := t.tx.ExecContext(ctx, q, to, paymentRef, id, from)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrStateConflict
	}
	return nil
}

func scanSeats(rows *sql.Rows) ([]model.Seat, error) {
	var out []model.Seat
	for rows.Next() {
		var s model.Seat
		if err := rows.Scan(&s.ID, &s.ConcertID, &s.SeatNumber, &s.Status, &s.Version,
			&s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
