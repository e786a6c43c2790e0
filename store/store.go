package store

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

// ErrInvalidRecord indicates a record is missing its phone number or provider.
var ErrInvalidRecord = errors.New("store: invalid record")

// Status is the provisioning state of a number.
type Status string

// Provisioning states.
const (
	StatusReserved  Status = "reserved"
	StatusPurchased Status = "purchased"
	StatusPorting   Status = "porting"
)

// NumberRecord is the persisted state of one number.
type NumberRecord struct {
	PhoneNumber   string     `db:"phone_number" json:"phone_number"`
	Provider      string     `db:"provider" json:"provider"`
	Status        Status     `db:"status" json:"status"`
	AccountID     string     `db:"account_id" json:"account_id,omitempty"`
	ReservationID string     `db:"reservation_id" json:"reservation_id,omitempty"`
	PurchaseID    string     `db:"purchase_id" json:"purchase_id,omitempty"`
	PortingID     string     `db:"porting_id" json:"porting_id,omitempty"`
	ExpiresAt     *time.Time `db:"expires_at" json:"expires_at,omitempty"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// Validate checks the fields every repository keys on.
func (r *NumberRecord) Validate() error {
	if r == nil || strings.TrimSpace(r.PhoneNumber) == "" || strings.TrimSpace(r.Provider) == "" {
		return ErrInvalidRecord
	}
	return nil
}

// Repository persists number records.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - FindByPhoneNumber returns (nil, nil) when no record exists.
//   - Save inserts or replaces the record keyed by PhoneNumber.
type Repository interface {
	FindByPhoneNumber(ctx context.Context, phoneNumber string) (*NumberRecord, error)
	Save(ctx context.Context, rec *NumberRecord) error
}

// MemoryRepository is an in-process Repository.
type MemoryRepository struct {
	mu      sync.RWMutex
	records map[string]NumberRecord
	now     func() time.Time
}

var _ Repository = (*MemoryRepository)(nil)

// NewMemoryRepository creates an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		records: make(map[string]NumberRecord),
		now:     time.Now,
	}
}

// FindByPhoneNumber returns a copy of the stored record, or nil.
func (m *MemoryRepository) FindByPhoneNumber(ctx context.Context, phoneNumber string) (*NumberRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[phoneNumber]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// Save stores a copy of rec, stamping UpdatedAt when it is zero.
func (m *MemoryRepository) Save(ctx context.Context, rec *NumberRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := rec.Validate(); err != nil {
		return err
	}

	stored := *rec
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = m.now()
	}

	m.mu.Lock()
	m.records[stored.PhoneNumber] = stored
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored records.
func (m *MemoryRepository) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}
