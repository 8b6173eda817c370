package weights

import (
	"errors"
	"sync"
	"time"

	"BiasSentinel/internal/model"
	"BiasSentinel/internal/strategy"

	"github.com/rs/zerolog"
)

// Manager holds the committed weights. Readers take snapshots; writers are
// serialized and persist before the new vector becomes visible.
type Manager struct {
	mu        sync.Mutex // single writer
	snapMu    sync.RWMutex
	current   model.RuleWeights
	updatedAt time.Time
	filePath  string
	logger    zerolog.Logger
}

// NewManager loads weights from filePath. Corrupt files fall back to the
// defaults with a warning and are left on disk until the next commit.
func NewManager(filePath string, logger zerolog.Logger) (*Manager, error) {
	m := &Manager{
		filePath: filePath,
		logger:   logger.With().Str("component", "weights").Logger(),
	}

	w, err := LoadWeights(filePath)
	switch {
	case errors.Is(err, model.ErrWeightsCorrupt):
		m.logger.Warn().Err(err).Msg("weights file unusable, using defaults")
		w = model.DefaultRuleWeights()
	case err != nil:
		return nil, err
	}
	m.current = w
	m.updatedAt = time.Now()
	return m, nil
}

// Snapshot returns a copy of the last committed weights.
func (m *Manager) Snapshot() model.RuleWeights {
	m.snapMu.RLock()
	defer m.snapMu.RUnlock()
	return m.current.Clone()
}

// UpdatedAt returns when the weights were last loaded or committed.
func (m *Manager) UpdatedAt() time.Time {
	m.snapMu.RLock()
	defer m.snapMu.RUnlock()
	return m.updatedAt
}

// Commit normalizes w, persists it and publishes it to readers.
// On a write error the previous weights stay in effect.
func (m *Manager) Commit(w model.RuleWeights) (model.RuleWeights, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.commitLocked(w)
}

// Update runs fn against the current weights under the writer lock and
// commits its result when fn reports a change.
func (m *Manager) Update(fn func(current model.RuleWeights) (model.RuleWeights, bool)) (model.RuleWeights, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next, changed := fn(m.Snapshot())
	if !changed {
		return m.Snapshot(), false, nil
	}
	committed, err := m.commitLocked(next)
	if err != nil {
		return m.Snapshot(), false, err
	}
	return committed, true, nil
}

func (m *Manager) commitLocked(w model.RuleWeights) (model.RuleWeights, error) {
	normalized := strategy.NormalizeWeights(w)
	if err := SaveWeights(m.filePath, normalized); err != nil {
		m.logger.Error().Err(err).Str("path", m.filePath).Msg("failed to save weights")
		return nil, err
	}

	m.snapMu.Lock()
	m.current = normalized
	m.updatedAt = time.Now()
	m.snapMu.Unlock()

	m.logger.Info().Interface("weights", normalized).Msg("weights committed")
	return normalized.Clone(), nil
}
