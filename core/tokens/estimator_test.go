package tokens

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/nbdistill/core"
)

// fakeCounter knows a fixed set of names and counts words.
type fakeCounter struct {
	known map[string]bool
	calls []string
}

func (f *fakeCounter) Count(text, name string) (int, error) {
	f.calls = append(f.calls, name)
	if !f.known[name] {
		return 0, errors.New("unknown " + name)
	}
	n := 0
	inWord := false
	for _, r := range text {
		if r == ' ' || r == '\n' {
			inWord = false
			continue
		}
		if !inWord {
			n++
		}
		inWord = true
	}
	return n, nil
}

func TestEstimateUsesModel(t *testing.T) {
	c := &fakeCounter{known: map[string]bool{"gpt-4": true}}
	e := NewEstimator(c, nil)

	assert.Equal(t, 3, e.Estimate("one two three", "gpt-4"))
	assert.Equal(t, FallbackNone, e.Fallback())
	assert.Empty(t, e.Encoding())
	assert.False(t, e.Approximate())
	assert.Empty(t, e.Diagnostics())
}

func TestEstimateFallsBackToDefaultEncoding(t *testing.T) {
	c := &fakeCounter{known: map[string]bool{DefaultEncoding: true}}
	e := NewEstimator(c, nil)

	assert.Equal(t, 2, e.Estimate("hello world", "mystery-model"))
	assert.Equal(t, 1, e.Estimate("again", "mystery-model"))

	assert.Equal(t, FallbackEncoding, e.Fallback())
	assert.Equal(t, DefaultEncoding, e.Encoding())
	require.Len(t, e.Diagnostics(), 1)
	assert.Equal(t, core.ErrEstimation, e.Diagnostics()[0].Code)
	assert.Equal(t, -1, e.Diagnostics()[0].CellIndex)
	assert.Contains(t, e.Diagnostics()[0].Message, "mystery-model")

	// The unknown model is not retried once the fallback is taken.
	assert.Equal(t, []string{"mystery-model", DefaultEncoding, DefaultEncoding}, c.calls)
}

func TestEstimateFallsBackToHeuristic(t *testing.T) {
	c := &fakeCounter{known: map[string]bool{}}
	e := NewEstimator(c, nil)

	assert.Equal(t, 3, e.Estimate("123456789", "mystery-model"))
	assert.Equal(t, FallbackHeuristic, e.Fallback())
	assert.Equal(t, HeuristicEncoding, e.Encoding())
	assert.True(t, e.Approximate())
	assert.Len(t, e.Diagnostics(), 2)
}

func TestEstimateWithoutCounter(t *testing.T) {
	e := NewEstimator(nil, nil)

	assert.Equal(t, 1, e.Estimate("abcd", "gpt-4"))
	assert.True(t, e.Approximate())
	require.Len(t, e.Diagnostics(), 1)
}

func TestEstimateEmptyText(t *testing.T) {
	e := NewEstimator(nil, nil)

	assert.Equal(t, 0, e.Estimate("", "gpt-4"))
	assert.Empty(t, e.Diagnostics())
}

func TestResolveWithoutText(t *testing.T) {
	c := &fakeCounter{known: map[string]bool{DefaultEncoding: true}}
	e := NewEstimator(c, nil)

	assert.Equal(t, FallbackEncoding, e.Resolve("mystery-model"))
	assert.Equal(t, DefaultEncoding, e.Encoding())
	assert.False(t, e.Approximate())
	require.Len(t, e.Diagnostics(), 1)

	// Resolving again records nothing new.
	e.Resolve("mystery-model")
	assert.Len(t, e.Diagnostics(), 1)
}

func TestResolveKnownModel(t *testing.T) {
	e := NewEstimator(&fakeCounter{known: map[string]bool{"gpt-4": true}}, nil)

	assert.Equal(t, FallbackNone, e.Resolve("gpt-4"))
	assert.Empty(t, e.Encoding())
	assert.Empty(t, e.Diagnostics())
}

func TestHeuristic(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"a", 1},
		{"abcd", 1},
		{"abcde", 2},
		{"ééééé", 2},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Heuristic(tt.text), tt.text)
	}
}

func TestTiktokenCounts(t *testing.T) {
	tk, err := NewTiktoken(0)
	require.NoError(t, err)
	defer tk.Close()

	n, err := tk.Count("hello world", "gpt-4")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = tk.Count("hello world", DefaultEncoding)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = tk.Count("hello world", "not-a-model")
	assert.Error(t, err)
}
