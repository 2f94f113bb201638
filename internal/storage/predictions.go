package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"
)

// PredictionRecord is one served prediction.
type PredictionRecord struct {
	ID         string          `json:"id"`
	RequestID  string          `json:"request_id,omitempty"`
	Model      string          `json:"model"`
	Version    string          `json:"model_version,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
	Input      json.RawMessage `json:"input,omitempty"`
	Features   []float64       `json:"features"`
	Prediction int             `json:"prediction"`
	Label      string          `json:"prediction_name"`
	Proba      []float64       `json:"proba"`
}

// StorePrediction stores a prediction record, assigning an ID and timestamp
// when they are unset.
func (s *Store) StorePrediction(record PredictionRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(predictionsBucket))

		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshal prediction record: %w", err)
		}

		return b.Put(recordKey(record.Model, record.Timestamp, record.ID), data)
	})
}

// GetPredictions returns the records for model within [start, end], ordered
// by timestamp. Malformed records are skipped.
func (s *Store) GetPredictions(model string, start, end time.Time) ([]PredictionRecord, error) {
	var records []PredictionRecord
	err := s.scanRange(predictionsBucket, model, start, end, func(v []byte) error {
		var r PredictionRecord
		if err := json.Unmarshal(v, &r); err != nil {
			return nil
		}
		records = append(records, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// CountPredictions returns how many records are stored for model.
func (s *Store) CountPredictions(model string) (int, error) {
	n := 0
	err := s.scanRange(predictionsBucket, model, time.Unix(0, 0), time.Unix(0, 1<<62), func([]byte) error {
		n++
		return nil
	})
	return n, err
}
