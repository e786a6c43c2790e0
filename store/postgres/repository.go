package postgres

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/aks-o/voxlink-sub005/store"
)

const table = "provisioned_numbers"

var columns = []string{
	"phone_number", "provider", "status", "account_id",
	"reservation_id", "purchase_id", "porting_id", "expires_at", "updated_at",
}

// DB is the subset of *pgxpool.Pool the repository uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Repository is a store.Repository on PostgreSQL.
type Repository struct {
	db  DB
	sb  sq.StatementBuilderType
	now func() time.Time
}

var _ store.Repository = (*Repository)(nil)

// NewRepository creates a Repository over db.
func NewRepository(db DB) *Repository {
	return &Repository{
		db:  db,
		sb:  sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		now: time.Now,
	}
}

func (r *Repository) findQuery(phoneNumber string) (string, []any, error) {
	return r.sb.Select(columns...).
		From(table).
		Where(sq.Eq{"phone_number": phoneNumber}).
		Limit(1).
		ToSql()
}

// FindByPhoneNumber returns the record for phoneNumber, or nil.
func (r *Repository) FindByPhoneNumber(ctx context.Context, phoneNumber string) (*store.NumberRecord, error) {
	query, args, err := r.findQuery(phoneNumber)
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rec store.NumberRecord
	if err := pgxscan.Get(ctx, r.db, &rec, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find %s: %w", phoneNumber, err)
	}
	return &rec, nil
}

func (r *Repository) saveQuery(rec store.NumberRecord) (string, []any, error) {
	return r.sb.Insert(table).
		Columns(columns...).
		Values(
			rec.PhoneNumber, rec.Provider, string(rec.Status), rec.AccountID,
			rec.ReservationID, rec.PurchaseID, rec.PortingID, rec.ExpiresAt, rec.UpdatedAt,
		).
		Suffix(`ON CONFLICT (phone_number) DO UPDATE SET
			provider = EXCLUDED.provider,
			status = EXCLUDED.status,
			account_id = EXCLUDED.account_id,
			reservation_id = EXCLUDED.reservation_id,
			purchase_id = EXCLUDED.purchase_id,
			porting_id = EXCLUDED.porting_id,
			expires_at = EXCLUDED.expires_at,
			updated_at = EXCLUDED.updated_at`).
		ToSql()
}

// Save upserts rec keyed by phone number.
func (r *Repository) Save(ctx context.Context, rec *store.NumberRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	row := *rec
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = r.now().UTC()
	}

	query, args, err := r.saveQuery(row)
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("save %s: %w", rec.PhoneNumber, err)
	}
	return nil
}
