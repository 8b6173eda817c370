// Package weights persists RuleWeights and serializes their updates.
package weights

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"BiasSentinel/internal/model"
	"BiasSentinel/internal/strategy"
)

// sumTolerance is how far a persisted vector may drift from 1.0.
const sumTolerance = 0.01

// LoadWeights reads weights from a flat JSON object. A missing file yields the
// defaults. A file that does not parse or does not sum to ~1.0 returns an
// error wrapping model.ErrWeightsCorrupt.
func LoadWeights(filePath string) (model.RuleWeights, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return model.DefaultRuleWeights(), nil
		}
		return nil, err
	}

	var w model.RuleWeights
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", model.ErrWeightsCorrupt, filePath, err)
	}
	known := make(model.RuleWeights, len(model.IndicatorKeys))
	for _, k := range model.IndicatorKeys {
		if v, ok := w[k]; ok {
			known[k] = v
		}
	}
	if sum := known.Sum(); math.IsNaN(sum) || math.Abs(sum-1) > sumTolerance {
		return nil, fmt.Errorf("%w: %s: weights sum to %.4f", model.ErrWeightsCorrupt, filePath, sum)
	}
	return strategy.NormalizeWeights(known), nil
}

// SaveWeights writes weights to a temp file in the same directory and renames
// it over filePath, so readers see either the old or the new file.
func SaveWeights(filePath string, w model.RuleWeights) error {
	data, err := json.MarshalIndent(w, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(filePath)+"-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return err
	}
	return os.Rename(tmpName, filePath)
}
