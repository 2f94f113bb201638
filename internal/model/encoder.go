package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
)

// ErrUnseenLabel is returned when a value was not present at fit time.
var ErrUnseenLabel = errors.New("previously unseen label")

// LabelEncoder maps string categories to their index in the sorted class
// list observed at training time.
type LabelEncoder struct {
	Classes []string `json:"classes"`
}

// FitLabelEncoder builds an encoder from the distinct values in values.
func FitLabelEncoder(values []string) *LabelEncoder {
	seen := make(map[string]struct{}, len(values))
	classes := make([]string, 0)
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		classes = append(classes, v)
	}
	sort.Strings(classes)
	return &LabelEncoder{Classes: classes}
}

// Transform returns the code of v.
func (e *LabelEncoder) Transform(v string) (int, error) {
	i := sort.SearchStrings(e.Classes, v)
	if i == len(e.Classes) || e.Classes[i] != v {
		return 0, fmt.Errorf("%w: %q", ErrUnseenLabel, v)
	}
	return i, nil
}

// InverseTransform returns the category for code i.
func (e *LabelEncoder) InverseTransform(i int) (string, error) {
	if i < 0 || i >= len(e.Classes) {
		return "", fmt.Errorf("%w: code %d", ErrUnseenLabel, i)
	}
	return e.Classes[i], nil
}

// Mapping returns the encoder as a value -> code table.
func (e *LabelEncoder) Mapping() map[string]int {
	m := make(map[string]int, len(e.Classes))
	for i, c := range e.Classes {
		m[c] = i
	}
	return m
}

func (e *LabelEncoder) validate() error {
	if len(e.Classes) == 0 {
		return fmt.Errorf("%w: encoder has no classes", ErrInvalidModel)
	}
	if !sort.StringsAreSorted(e.Classes) {
		return fmt.Errorf("%w: encoder classes are not sorted", ErrInvalidModel)
	}
	return nil
}

// LoadLabelEncoder reads a single encoder artifact.
func LoadLabelEncoder(path string) (*LabelEncoder, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read encoder %s: %w", path, err)
	}
	var e LabelEncoder
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("parse encoder %s: %w", path, err)
	}
	if err := e.validate(); err != nil {
		return nil, fmt.Errorf("encoder %s: %w", path, err)
	}
	return &e, nil
}

// Save writes the encoder artifact.
func (e *LabelEncoder) Save(path string) error {
	return writeJSON(path, e)
}

// EncoderSet holds one encoder per categorical column, keyed by column name.
type EncoderSet map[string]*LabelEncoder

// LoadEncoderSet reads a per-column encoder artifact.
func LoadEncoderSet(path string) (EncoderSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read encoders %s: %w", path, err)
	}
	var set EncoderSet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("parse encoders %s: %w", path, err)
	}
	for col, e := range set {
		if e == nil {
			return nil, fmt.Errorf("encoders %s: %w: column %s is null", path, ErrInvalidModel, col)
		}
		if err := e.validate(); err != nil {
			return nil, fmt.Errorf("encoders %s: column %s: %w", path, col, err)
		}
	}
	return set, nil
}

// Save writes the encoder set artifact.
func (s EncoderSet) Save(path string) error {
	return writeJSON(path, s)
}
