// Package repo implements the data persistence layer for domain entities.
// This file provides a BoltDB-backed claim ledger for single-binary
// deployments that do not want a SQL engine. It offers the same operations
// and guarantees as the GORM store:
//   - RecordConfirmed checks for an existing transaction id and inserts in
//     the same write transaction, so duplicates are a silent no-op.
//   - A per-requester index bucket keyed by (created_at, insertion order)
//     makes "latest claim" a single cursor seek.
package repo

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"time"

	bolt "github.com/boltdb/bolt"

	"github.com/tbourn/go-faucet-backend/internal/domain"
)

const boltIndexKeyBytes = 16

var (
	claimsBucket    = []byte("claims")
	requesterBucket = []byte("claims_by_requester")
)

// BoltClaimStore wraps a BoltDB database holding confirmed claims.
type BoltClaimStore struct {
	db  *bolt.DB
	Now func() time.Time
}

// OpenBolt opens (or creates) a BoltDB file at path and ensures the claim
// buckets exist.
func OpenBolt(path string) (*BoltClaimStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(claimsBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(requesterBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltClaimStore{db: db, Now: time.Now}, nil
}

// Close releases the database file lock.
func (s *BoltClaimStore) Close() error {
	return s.db.Close()
}

// RecordConfirmed stores rec unless its transaction id is already present.
// The surrogate id comes from the claims bucket sequence.
func (s *BoltClaimStore) RecordConfirmed(_ context.Context, rec *domain.ClaimRecord) (bool, error) {
	if err := validateClaim(rec); err != nil {
		return false, err
	}
	inserted := false

	err := s.db.Update(func(tx *bolt.Tx) error {
		claims := tx.Bucket(claimsBucket)
		if claims.Get([]byte(rec.TransactionID)) != nil {
			return nil
		}

		id, err := claims.NextSequence()
		if err != nil {
			return err
		}
		row := *rec
		row.ID = id
		if row.CreatedAt == 0 {
			row.CreatedAt = s.now().UTC().Unix()
		}

		data, err := json.Marshal(row)
		if err != nil {
			return err
		}
		if err := claims.Put([]byte(row.TransactionID), data); err != nil {
			return err
		}

		idx, err := tx.Bucket(requesterBucket).CreateBucketIfNotExists([]byte(row.RequesterID))
		if err != nil {
			return err
		}
		if err := idx.Put(indexKey(row.CreatedAt, row.ID), []byte(row.TransactionID)); err != nil {
			return err
		}

		rec.ID, rec.CreatedAt = row.ID, row.CreatedAt
		inserted = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return inserted, nil
}

// LatestWithin returns the newest claim for requesterID created at or after
// now-window, or ErrNotFound.
func (s *BoltClaimStore) LatestWithin(_ context.Context, requesterID string, window time.Duration) (*domain.ClaimRecord, error) {
	boundary := s.now().UTC().Unix() - int64(window/time.Second)
	return s.latest(requesterID, &boundary)
}

// Latest returns the newest claim for requesterID, or ErrNotFound.
func (s *BoltClaimStore) Latest(_ context.Context, requesterID string) (*domain.ClaimRecord, error) {
	return s.latest(requesterID, nil)
}

// ByTransactionID loads the claim recorded under transactionID.
func (s *BoltClaimStore) ByTransactionID(_ context.Context, transactionID string) (*domain.ClaimRecord, error) {
	var rec domain.ClaimRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(claimsBucket).Get([]byte(transactionID))
		if v == nil {
			return ErrNotFound
		}
		return json.Unmarshal(v, &rec)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *BoltClaimStore) latest(requesterID string, boundary *int64) (*domain.ClaimRecord, error) {
	var rec domain.ClaimRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		idx := tx.Bucket(requesterBucket).Bucket([]byte(requesterID))
		if idx == nil {
			return ErrNotFound
		}
		k, txID := idx.Cursor().Last()
		if k == nil || len(k) != boltIndexKeyBytes {
			return ErrNotFound
		}
		if boundary != nil && int64(binary.BigEndian.Uint64(k[:8])) < *boundary {
			return ErrNotFound
		}
		v := tx.Bucket(claimsBucket).Get(txID)
		if v == nil {
			return ErrNotFound
		}
		return json.Unmarshal(v, &rec)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *BoltClaimStore) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// indexKey sorts by created_at ascending, then by inverted id so that the
// last key among equal timestamps is the earliest insertion.
func indexKey(createdAt int64, id uint64) []byte {
	k := make([]byte, boltIndexKeyBytes)
	binary.BigEndian.PutUint64(k[:8], uint64(createdAt))
	binary.BigEndian.PutUint64(k[8:], ^id)
	return k
}
