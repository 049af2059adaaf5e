// Package tokens adapts a tokenizer to the pipeline. Estimate never fails:
// an unknown model falls back to the default encoding, and a missing or
// broken tokenizer falls back to a character heuristic. Every fallback is
// recorded so results can say how their counts were produced.
package tokens

import (
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/gaurav-prasanna/nbdistill/core"
)

// DefaultEncoding is tried when a model has no known encoding.
const DefaultEncoding = "cl100k_base"

// HeuristicEncoding names the character heuristic in result metadata.
const HeuristicEncoding = "heuristic"

// Counter counts tokens of text under the encoding of a model. A Counter
// may also accept an encoding name in place of a model.
type Counter interface {
	Count(text, model string) (int, error)
}

// Fallback records how far an Estimator had to fall back.
type Fallback int

const (
	FallbackNone      Fallback = iota // model encoding used
	FallbackEncoding                  // DefaultEncoding used
	FallbackHeuristic                 // ceil(runes/4)
)

var errNoCounter = errors.New("no tokenizer configured")

// Estimator counts tokens through a Counter and never fails.
// It is not safe for concurrent use; create one per pipeline run.
type Estimator struct {
	counter     Counter
	log         *slog.Logger
	fallback    Fallback
	model       string
	diagnostics []core.Diagnostic
}

// NewEstimator creates an Estimator. A nil counter means every estimate
// uses the heuristic.
func NewEstimator(counter Counter, log *slog.Logger) *Estimator {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Estimator{counter: counter, log: log}
}

// Estimate returns the token count of text for model.
func (e *Estimator) Estimate(text, model string) int {
	if text == "" {
		return 0
	}
	return e.count(text, model)
}

// Resolve settles which encoding serves model before any text is counted,
// so the fallback is known even when there is nothing to estimate.
func (e *Estimator) Resolve(model string) Fallback {
	e.count("", model)
	return e.fallback
}

func (e *Estimator) count(text, model string) int {
	e.model = model

	if e.counter == nil {
		e.fallBack(FallbackHeuristic, errNoCounter)
		return Heuristic(text)
	}
	if e.fallback == FallbackNone {
		n, err := e.counter.Count(text, model)
		if err == nil {
			return n
		}
		e.fallBack(FallbackEncoding, err)
	}
	if e.fallback == FallbackEncoding {
		n, err := e.counter.Count(text, DefaultEncoding)
		if err == nil {
			return n
		}
		e.fallBack(FallbackHeuristic, err)
	}
	return Heuristic(text)
}

func (e *Estimator) fallBack(level Fallback, cause error) {
	if level <= e.fallback {
		return
	}
	e.fallback = level

	var msg string
	switch level {
	case FallbackEncoding:
		msg = fmt.Sprintf("no encoding for model %q, using %s: %v", e.model, DefaultEncoding, cause)
	default:
		msg = fmt.Sprintf("tokenizer unavailable, using character heuristic: %v", cause)
	}
	e.diagnostics = append(e.diagnostics, core.Diagnostic{
		Code:      core.ErrEstimation,
		CellIndex: -1,
		Message:   msg,
	})
	e.log.Warn("token estimation fallback", "model", e.model, "fallback", level.String(), "error", cause)
}

// Fallback reports the deepest fallback taken so far.
func (e *Estimator) Fallback() Fallback {
	return e.fallback
}

// Encoding names the encoding used when a fallback was taken, or "" when
// the model's own encoding served every estimate.
func (e *Estimator) Encoding() string {
	switch e.fallback {
	case FallbackEncoding:
		return DefaultEncoding
	case FallbackHeuristic:
		return HeuristicEncoding
	default:
		return ""
	}
}

// Approximate reports whether any estimate came from the heuristic.
func (e *Estimator) Approximate() bool {
	return e.fallback == FallbackHeuristic
}

// Diagnostics returns the ESTIMATION diagnostics recorded so far.
func (e *Estimator) Diagnostics() []core.Diagnostic {
	return e.diagnostics
}

// Heuristic estimates tokens as one per four characters, rounded up.
func Heuristic(text string) int {
	return (utf8.RuneCountInString(text) + 3) / 4
}

func (f Fallback) String() string {
	switch f {
	case FallbackNone:
		return "none"
	case FallbackEncoding:
		return "encoding"
	case FallbackHeuristic:
		return "heuristic"
	default:
		return fmt.Sprintf("Fallback(%d)", int(f))
	}
}
