// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the claim ledger used for cooldown
// decisions: an append-only table of confirmed claims with an idempotent
// insert keyed by the distributor's transaction id.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-faucet-backend/internal/domain"
)

// ErrNotFound is returned when no claim matches a lookup.
var ErrNotFound = errors.New("not found")

// ErrInvalidClaim is returned when a record is missing its idempotency key
// or transaction hash.
var ErrInvalidClaim = errors.New("claim requires transaction id and transaction hash")

// RecordConfirmed inserts rec unless a row with the same transaction_id
// already exists, in which case nothing is written. inserted reports whether
// a new row was created. Duplicates are never an error.
//
// CreatedAt defaults to now (UNIX seconds, UTC) when zero.
func RecordConfirmed(ctx context.Context, db *gorm.DB, rec *domain.ClaimRecord) (inserted bool, err error) {
	if err := validateClaim(rec); err != nil {
		return false, err
	}
	if rec.CreatedAt == 0 {
		rec.CreatedAt = time.Now().UTC().Unix()
	}

	res := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "transaction_id"}},
		DoNothing: true,
	}).Create(rec)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// LatestClaimWithin returns the most recent claim for requesterID whose
// created_at is at or after now-window, or ErrNotFound.
func LatestClaimWithin(ctx context.Context, db *gorm.DB, requesterID string, window time.Duration, now time.Time) (*domain.ClaimRecord, error) {
	boundary := now.UTC().Unix() - int64(window/time.Second)
	return latest(db.WithContext(ctx).Where("requester_id = ? AND created_at >= ?", requesterID, boundary))
}

// LatestClaim returns the most recent claim for requesterID regardless of
// age, or ErrNotFound.
func LatestClaim(ctx context.Context, db *gorm.DB, requesterID string) (*domain.ClaimRecord, error) {
	return latest(db.WithContext(ctx).Where("requester_id = ?", requesterID))
}

// GetClaimByTransactionID loads the claim recorded for a distributor
// transaction id, or ErrNotFound.
func GetClaimByTransactionID(ctx context.Context, db *gorm.DB, transactionID string) (*domain.ClaimRecord, error) {
	var rec domain.ClaimRecord
	err := db.WithContext(ctx).Where("transaction_id = ?", transactionID).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// CountClaims returns the number of claims recorded for requesterID.
func CountClaims(ctx context.Context, db *gorm.DB, requesterID string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.ClaimRecord{}).
		Where("requester_id = ?", requesterID).
		Count(&n).Error
	return n, err
}

// latest orders newest first; ties on created_at fall back to insertion order.
func latest(q *gorm.DB) (*domain.ClaimRecord, error) {
	var rec domain.ClaimRecord
	err := q.Order("created_at DESC").Order("id ASC").Limit(1).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func validateClaim(rec *domain.ClaimRecord) error {
	if rec == nil || strings.TrimSpace(rec.TransactionID) == "" || strings.TrimSpace(rec.TxHash) == "" {
		return ErrInvalidClaim
	}
	return nil
}

// ClaimStore adapts the claim repository functions to a store value bound to
// a database handle. Now is the clock used for window boundaries.
type ClaimStore struct {
	DB  *gorm.DB
	Now func() time.Time
}

// NewClaimStore returns a ClaimStore using the wall clock.
func NewClaimStore(db *gorm.DB) *ClaimStore {
	return &ClaimStore{DB: db, Now: time.Now}
}

// RecordConfirmed proxies RecordConfirmed.
func (s *ClaimStore) RecordConfirmed(ctx context.Context, rec *domain.ClaimRecord) (bool, error) {
	return RecordConfirmed(ctx, s.DB, rec)
}

// LatestWithin proxies LatestClaimWithin using the store clock.
func (s *ClaimStore) LatestWithin(ctx context.Context, requesterID string, window time.Duration) (*domain.ClaimRecord, error) {
	return LatestClaimWithin(ctx, s.DB, requesterID, window, s.now())
}

// Latest proxies LatestClaim.
func (s *ClaimStore) Latest(ctx context.Context, requesterID string) (*domain.ClaimRecord, error) {
	return LatestClaim(ctx, s.DB, requesterID)
}

// ByTransactionID proxies GetClaimByTransactionID.
func (s *ClaimStore) ByTransactionID(ctx context.Context, transactionID string) (*domain.ClaimRecord, error) {
	return GetClaimByTransactionID(ctx, s.DB, transactionID)
}

func (s *ClaimStore) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
