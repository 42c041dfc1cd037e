package filter

import (
	"fmt"
	"path"
	"slices"
	"sync"

	"github.com/samber/lo"

	"github.com/chmdznr/savannah/pkg/models"
	"github.com/chmdznr/savannah/pkg/notify"
)

// PatternChange is emitted after the pattern list or the enabled flag changed.
type PatternChange struct {
	Patterns []string
	Enabled  bool
}

// PatternModel is an ordered list of wildcard patterns (`*`, `?`, `[a-z]`)
// matched against file names. A disabled or empty model matches everything.
type PatternModel struct {
	mu        sync.Mutex
	patterns  []string
	enabled   bool
	listeners notify.Hub[PatternChange]
}

// NewPatternModel returns an enabled model with the given patterns.
func NewPatternModel(patterns ...string) (*PatternModel, error) {
	for _, p := range patterns {
		if err := validatePattern(p); err != nil {
			return nil, err
		}
	}
	return &PatternModel{patterns: lo.Uniq(patterns), enabled: true}, nil
}

func validatePattern(p string) error {
	if p == "" {
		return fmt.Errorf("%w: empty pattern", models.ErrInvalidArgument)
	}
	if _, err := path.Match(p, ""); err != nil {
		return fmt.Errorf("%w: pattern %q: %v", models.ErrInvalidArgument, p, err)
	}
	return nil
}

func (m *PatternModel) Subscribe(l func(PatternChange)) (unsubscribe func()) {
	return m.listeners.Subscribe(l)
}

// Patterns returns a copy of the pattern list.
func (m *PatternModel) Patterns() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.patterns)
}

func (m *PatternModel) Enabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enabled
}

// AddPattern appends p unless it is already present.
func (m *PatternModel) AddPattern(p string) error {
	if err := validatePattern(p); err != nil {
		return err
	}

	m.mu.Lock()
	if slices.Contains(m.patterns, p) {
		m.mu.Unlock()
		return nil
	}
	m.patterns = append(m.patterns, p)
	change := m.changeLocked()
	m.mu.Unlock()

	m.listeners.Emit(change)
	return nil
}

// RemovePattern reports whether p was present.
func (m *PatternModel) RemovePattern(p string) bool {
	m.mu.Lock()
	idx := slices.Index(m.patterns, p)
	if idx < 0 {
		m.mu.Unlock()
		return false
	}
	m.patterns = slices.Delete(m.patterns, idx, idx+1)
	change := m.changeLocked()
	m.mu.Unlock()

	m.listeners.Emit(change)
	return true
}

// SetPatterns replaces the whole list.
func (m *PatternModel) SetPatterns(patterns []string) error {
	for _, p := range patterns {
		if err := validatePattern(p); err != nil {
			return err
		}
	}
	patterns = lo.Uniq(patterns)

	m.mu.Lock()
	if slices.Equal(m.patterns, patterns) {
		m.mu.Unlock()
		return nil
	}
	m.patterns = patterns
	change := m.changeLocked()
	m.mu.Unlock()

	m.listeners.Emit(change)
	return nil
}

func (m *PatternModel) SetEnabled(enabled bool) {
	m.mu.Lock()
	if m.enabled == enabled {
		m.mu.Unlock()
		return
	}
	m.enabled = enabled
	change := m.changeLocked()
	m.mu.Unlock()

	m.listeners.Emit(change)
}

func (m *PatternModel) changeLocked() PatternChange {
	return PatternChange{Patterns: slices.Clone(m.patterns), Enabled: m.enabled}
}

// Match reports whether name passes the pattern filter.
func (m *PatternModel) Match(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.enabled || len(m.patterns) == 0 {
		return true
	}
	return lo.SomeBy(m.patterns, func(p string) bool {
		ok, _ := path.Match(p, name)
		return ok
	})
}
