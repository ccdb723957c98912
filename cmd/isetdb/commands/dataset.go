package commands

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/Sumatoshi-tech/isetdb/pkg/store"
)

//go:embed dataset_schema.json
var datasetSchema []byte

// Dataset validation errors.
var (
	// ErrDatasetInvalid indicates the dataset file failed schema validation.
	ErrDatasetInvalid = errors.New("dataset does not match schema")
	// ErrDatasetInterval indicates an interval with low greater than high.
	ErrDatasetInterval = errors.New("dataset interval has low greater than high")
	// ErrDatasetDuplicate indicates a member repeated within one key.
	ErrDatasetDuplicate = errors.New("dataset repeats a member within one key")
)

// DatasetInterval is one interval triple in a dataset file.
type DatasetInterval struct {
	Low    float64 `json:"low"`
	High   float64 `json:"high"`
	Member string  `json:"member"`
}

// DatasetKey is one interval set in a dataset file.
type DatasetKey struct {
	Key       string            `json:"key"`
	Intervals []DatasetInterval `json:"intervals"`
}

// Dataset is the root of an isetdb JSON dataset file.
type Dataset struct {
	Keys []DatasetKey `json:"keys"`
}

// ReadDataset parses and validates a dataset file. Validation is
// all-or-nothing: any schema or semantic violation rejects the whole file.
func ReadDataset(path string) (*Dataset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}

	err = validateDatasetSchema(raw)
	if err != nil {
		return nil, err
	}

	var ds Dataset

	err = json.Unmarshal(raw, &ds)
	if err != nil {
		return nil, fmt.Errorf("decode dataset: %w", err)
	}

	err = validateDatasetSemantics(&ds)
	if err != nil {
		return nil, err
	}

	return &ds, nil
}

// validateDatasetSchema checks the raw JSON against the embedded schema.
func validateDatasetSchema(raw []byte) error {
	schemaLoader := gojsonschema.NewBytesLoader(datasetSchema)
	inputLoader := gojsonschema.NewBytesLoader(raw)

	result, err := gojsonschema.Validate(schemaLoader, inputLoader)
	if err != nil {
		return fmt.Errorf("validate dataset: %w", err)
	}

	if result.Valid() {
		return nil
	}

	violations := make([]string, 0, len(result.Errors()))
	for _, verr := range result.Errors() {
		violations = append(violations, fmt.Sprintf("%s: %s", verr.Field(), verr.Description()))
	}

	return fmt.Errorf("%w: %s", ErrDatasetInvalid, strings.Join(violations, "; "))
}

// validateDatasetSemantics checks constraints the schema cannot express.
func validateDatasetSemantics(ds *Dataset) error {
	for _, dk := range ds.Keys {
		seen := make(map[string]bool, len(dk.Intervals))

		for _, interval := range dk.Intervals {
			if interval.Low > interval.High {
				return fmt.Errorf("%w: key %q member %q [%g, %g]",
					ErrDatasetInterval, dk.Key, interval.Member, interval.Low, interval.High)
			}

			if seen[interval.Member] {
				return fmt.Errorf("%w: key %q member %q", ErrDatasetDuplicate, dk.Key, interval.Member)
			}

			seen[interval.Member] = true
		}
	}

	return nil
}

// Apply loads every key of the dataset into the DB and returns the total
// number of intervals added.
func (ds *Dataset) Apply(db *store.DB) (int, error) {
	total := 0

	for _, dk := range ds.Keys {
		set, err := db.EnsureIntervalSet(dk.Key)
		if err != nil {
			return total, err
		}

		for _, interval := range dk.Intervals {
			added, err := set.Add(interval.Low, interval.High, interval.Member)
			if err != nil {
				return total, fmt.Errorf("key %q: %w", dk.Key, err)
			}

			if added {
				total++
			}
		}

		db.DropIfEmpty(dk.Key)
	}

	return total, nil
}

// FindKey returns the dataset entry for the named key, or nil.
func (ds *Dataset) FindKey(key string) *DatasetKey {
	for i := range ds.Keys {
		if ds.Keys[i].Key == key {
			return &ds.Keys[i]
		}
	}

	return nil
}
