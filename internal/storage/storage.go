// Package storage provides persistent storage for the prediction API.
// It uses BoltDB as the underlying storage engine to keep an audit trail of
// served predictions, keyed by model and time.
//
// The package provides thread-safe operations for storing and retrieving
// records with efficient range queries and automatic bucket management.
package storage

import (
	"bytes"
	"fmt"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

const (
	predictionsBucket = "predictions" // Bucket name for storing prediction records
	dbFileName        = "ml-api-audit.db"
)

// Store provides persistent storage for prediction records using BoltDB.
type Store struct {
	db *bbolt.DB // BoltDB database instance
}

// New creates a new storage instance with the specified data path.
// It initializes the BoltDB database and creates necessary buckets.
// Returns an error if the database cannot be opened or buckets cannot be created.
func New(dataPath string) (*Store, error) {
	dbPath := filepath.Join(dataPath, dbFileName)

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(predictionsBucket)); err != nil {
			return fmt.Errorf("create predictions bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database connection gracefully. Closing twice is safe.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// timeKey builds "model_timestamp". The timestamp is zero-padded so byte
// order matches time order.
func timeKey(model string, ts time.Time) []byte {
	return []byte(fmt.Sprintf("%s_%020d", model, ts.UnixNano()))
}

// recordKey appends the record id so records sharing a timestamp do not
// overwrite each other.
func recordKey(model string, ts time.Time, id string) []byte {
	return append(timeKey(model, ts), []byte("_"+id)...)
}

// scanRange visits every value in bucketName whose key lies between the keys
// for start and end, inclusive, for the given model.
func (s *Store) scanRange(bucketName, model string, start, end time.Time, visit func(v []byte) error) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return nil
		}
		c := b.Cursor()

		prefix := []byte(model + "_")
		endKey := append(timeKey(model, end), '_', 0xff)

		for k, v := c.Seek(timeKey(model, start)); k != nil && bytes.Compare(k, endKey) <= 0; k, v = c.Next() {
			if !bytes.HasPrefix(k, prefix) {
				continue
			}
			if err := visit(v); err != nil {
				return err
			}
		}
		return nil
	})
}
