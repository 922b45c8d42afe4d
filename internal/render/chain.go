package render

import (
	"errors"
	"fmt"

	apperrors "github.com/ZanzyTHEbar/sepsis-risk-o-meter/internal/errors"
)

// ErrUnavailable reports that a rendering method cannot run in this process,
// typically because no plotter supporting it was configured.
var ErrUnavailable = errors.New("rendering method unavailable")

// Strategy is one rendering method in a fallback chain.
type Strategy interface {
	Name() string
	Attempt(e Explanation) (Artifact, error)
	// Terminal reports whether the method depends on nothing but the
	// explanation itself and therefore cannot fail.
	Terminal() bool
}

// Observer is told about every attempt a chain makes.
type Observer interface {
	ObserveRender(kind, method string, err error)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(kind, method string, err error)

func (f ObserverFunc) ObserveRender(kind, method string, err error) { f(kind, method, err) }

// Chain tries strategies in order until one produces an artifact.
type Chain struct {
	kind       string
	strategies []Strategy
	observers  []Observer
}

// NewChain validates that the chain ends with a terminal strategy. A chain
// that could run out of methods is a construction bug and is rejected here
// rather than at render time.
func NewChain(kind string, strategies ...Strategy) (*Chain, error) {
	names := make([]string, 0, len(strategies))
	for _, s := range strategies {
		names = append(names, s.Name())
	}
	if len(strategies) == 0 || !strategies[len(strategies)-1].Terminal() {
		return nil, apperrors.NewRenderFallbackExhausted(kind, names)
	}
	return &Chain{kind: kind, strategies: strategies}, nil
}

// Observe registers observers for every attempt.
func (c *Chain) Observe(o ...Observer) { c.observers = append(c.observers, o...) }

func (c *Chain) Kind() string { return c.kind }

// Methods returns the strategy names in attempt order.
func (c *Chain) Methods() []string {
	names := make([]string, len(c.strategies))
	for i, s := range c.strategies {
		names[i] = s.Name()
	}
	return names
}

// Run walks the chain. Errors and panics from a strategy move on to the next
// one; the returned error is non-nil only if every strategy failed.
func (c *Chain) Run(e Explanation) (Artifact, error) {
	var attempts []Attempt
	var names []string

	for _, s := range c.strategies {
		art, err := attempt(s, e)
		c.notify(s.Name(), err)
		if err == nil {
			art.Kind = c.kind
			art.Method = s.Name()
			art.Fallback = len(attempts) > 0
			art.Attempts = attempts
			return art, nil
		}
		attempts = append(attempts, Attempt{Method: s.Name(), Error: err.Error()})
		names = append(names, s.Name())
	}

	return Artifact{}, apperrors.NewRenderFallbackExhausted(c.kind, names)
}

func attempt(s Strategy, e Explanation) (art Artifact, err error) {
	apperrors.SafeExecute(func() {
		art, err = s.Attempt(e)
	}, func(r interface{}) {
		err = fmt.Errorf("%s panicked: %v", s.Name(), r)
	})
	return art, err
}

func (c *Chain) notify(method string, err error) {
	for _, o := range c.observers {
		o.ObserveRender(c.kind, method, err)
	}
}
