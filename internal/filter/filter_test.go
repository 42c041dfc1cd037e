package filter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chmdznr/savannah/pkg/models"
)

func TestDateFilterModel_SetFilter(t *testing.T) {
	m := NewDateFilterModel()
	var changes []DateFilterChange
	m.Subscribe(func(c DateFilterChange) { changes = append(changes, c) })

	m.SetFilter(models.NewDateFilter())
	assert.Empty(t, changes)

	after := models.NewDateFilterAt(models.DateFilterAfter, time.UnixMilli(1000))
	m.SetFilter(after)
	m.SetFilter(models.NewDateFilterAt(models.DateFilterAfter, time.UnixMilli(1000)))

	require.Len(t, changes, 1)
	assert.True(t, changes[0].Old.IsOff())
	assert.True(t, changes[0].New.Equal(after))
	assert.True(t, m.Filter().Equal(after))
}

func TestPatternModel(t *testing.T) {
	m, err := NewPatternModel("*.fits")
	require.NoError(t, err)

	var changes []PatternChange
	m.Subscribe(func(c PatternChange) { changes = append(changes, c) })

	require.NoError(t, m.AddPattern("img_??.png"))
	require.NoError(t, m.AddPattern("*.fits"))
	assert.Equal(t, []string{"*.fits", "img_??.png"}, m.Patterns())
	assert.Len(t, changes, 1)

	assert.True(t, m.Match("sky.fits"))
	assert.True(t, m.Match("img_01.png"))
	assert.False(t, m.Match("img_001.png"))

	m.SetEnabled(false)
	assert.True(t, m.Match("anything.txt"))
	assert.False(t, changes[len(changes)-1].Enabled)

	assert.True(t, m.RemovePattern("*.fits"))
	assert.False(t, m.RemovePattern("*.fits"))
	assert.Len(t, changes, 3)
}

func TestPatternModel_InvalidPattern(t *testing.T) {
	_, err := NewPatternModel("[")
	assert.ErrorIs(t, err, models.ErrInvalidArgument)

	m, err := NewPatternModel()
	require.NoError(t, err)
	assert.ErrorIs(t, m.AddPattern(""), models.ErrInvalidArgument)
	assert.ErrorIs(t, m.SetPatterns([]string{"ok", "[bad"}), models.ErrInvalidArgument)
	assert.True(t, m.Match("x"))
}

func TestPatternModel_SetPatterns(t *testing.T) {
	m, err := NewPatternModel()
	require.NoError(t, err)
	calls := 0
	m.Subscribe(func(PatternChange) { calls++ })

	require.NoError(t, m.SetPatterns([]string{"a*", "a*", "b*"}))
	require.NoError(t, m.SetPatterns([]string{"a*", "b*"}))

	assert.Equal(t, 1, calls)
	assert.Equal(t, []string{"a*", "b*"}, m.Patterns())
}

func TestMatchDate(t *testing.T) {
	now := time.UnixMilli(10_000)
	at := time.UnixMilli(5_000)

	tests := []struct {
		name   string
		filter models.DateFilter
		t      time.Time
		want   bool
	}{
		{"off accepts zero", models.NewDateFilter(), time.Time{}, true},
		{"after zero time", models.NewDateFilterAt(models.DateFilterAfter, at), time.Time{}, false},
		{"after later", models.NewDateFilterAt(models.DateFilterAfter, at), time.UnixMilli(6_000), true},
		{"after equal", models.NewDateFilterAt(models.DateFilterAfter, at), at, false},
		{"before earlier", models.NewDateFilterAt(models.DateFilterBefore, at), time.UnixMilli(4_000), true},
		{"before later", models.NewDateFilterAt(models.DateFilterBefore, at), time.UnixMilli(6_000), false},
		{"between inclusive start", models.NewDateFilterBetween(at, now), at, true},
		{"between inclusive end", models.NewDateFilterBetween(at, now), now, true},
		{"between outside", models.NewDateFilterBetween(at, now), time.UnixMilli(11_000), false},
		{"offset inside", models.NewDateFilterOffset(2 * time.Second), time.UnixMilli(9_000), true},
		{"offset outside", models.NewDateFilterOffset(2 * time.Second), time.UnixMilli(7_000), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchDate(tt.filter, tt.t, now))
		})
	}
}

func TestFilter_Accept(t *testing.T) {
	f := New()
	f.Now = func() time.Time { return time.UnixMilli(10_000) }

	snap := models.RecordSnapshot{
		Filename:  "sky.fits",
		Filetype:  "raw",
		State:     models.StateComplete,
		StartTime: time.UnixMilli(9_500),
	}
	assert.True(t, f.Accept(snap))

	f.Filetype = "processed"
	assert.False(t, f.Accept(snap))
	f.Filetype = "raw"

	require.NoError(t, f.Patterns.AddPattern("*.png"))
	assert.False(t, f.Accept(snap))
	require.NoError(t, f.Patterns.AddPattern("*.fits"))
	assert.True(t, f.Accept(snap))

	f.Dates.SetFilter(models.NewDateFilterOffset(time.Second))
	assert.True(t, f.Accept(snap))

	snap.StartTime = time.Time{}
	snap.EndTime = time.UnixMilli(5_000)
	assert.False(t, f.Accept(snap))
}
