// Package scoring turns draw history plus a weight configuration into ranked
// predictions. Several strategy variants coexist behind one Engine.
package scoring

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// ParamSpec declares one tunable weight.
type ParamSpec struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
	Default     float64 `json:"default"`
	// Integer parameters are sampled as reals and floored at use time.
	Integer bool `json:"integer,omitempty"`
}

// Contains reports whether v lies inside [Min, Max].
func (p ParamSpec) Contains(v float64) bool {
	return v >= p.Min && v <= p.Max
}

// Sample draws a uniform value from [Min, Max].
func (p ParamSpec) Sample(rng *rand.Rand) float64 {
	return p.Min + rng.Float64()*(p.Max-p.Min)
}

// Space is an ordered list of parameters. The order defines gene positions
// for crossover.
type Space []ParamSpec

// Names returns parameter names in gene order.
func (s Space) Names() []string {
	out := make([]string, len(s))
	for i, p := range s {
		out[i] = p.Name
	}
	return out
}

// Spec looks a parameter up by name.
func (s Space) Spec(name string) (ParamSpec, bool) {
	for _, p := range s {
		if p.Name == name {
			return p, true
		}
	}
	return ParamSpec{}, false
}

// Defaults returns a configuration holding every default.
func (s Space) Defaults() Weights {
	w := make(Weights, len(s))
	for _, p := range s {
		w[p.Name] = p.Default
	}
	return w
}

// Random returns a configuration sampled uniformly from every range.
func (s Space) Random(rng *rand.Rand) Weights {
	w := make(Weights, len(s))
	for _, p := range s {
		w[p.Name] = p.Sample(rng)
	}
	return w
}

// Clamp returns a copy of w with every known parameter forced into range
// and missing parameters filled with defaults. Unknown keys are kept.
func (s Space) Clamp(w Weights) Weights {
	out := w.Clone()
	for _, p := range s {
		v, ok := out[p.Name]
		if !ok || math.IsNaN(v) {
			out[p.Name] = p.Default
			continue
		}
		out[p.Name] = math.Min(p.Max, math.Max(p.Min, v))
	}
	return out
}

// OutOfRange lists the parameters of w that fall outside their range.
func (s Space) OutOfRange(w Weights) []string {
	var out []string
	for _, p := range s {
		if v, ok := w[p.Name]; ok && !p.Contains(v) {
			out = append(out, p.Name)
		}
	}
	return out
}

// Weights is the external key-value form of a strategy.
type Weights map[string]float64

// Get returns the named weight or def when absent.
func (w Weights) Get(name string, def float64) float64 {
	if v, ok := w[name]; ok {
		return v
	}
	return def
}

// Clone returns a shallow copy.
func (w Weights) Clone() Weights {
	out := make(Weights, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}

// Keys returns the weight names in lexical order.
func (w Weights) Keys() []string {
	keys := make([]string, 0, len(w))
	for k := range w {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ParseWeights decodes a JSON object of weights.
func ParseWeights(data []byte) (Weights, error) {
	var w Weights
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("failed to parse weights: %w", err)
	}
	if w == nil {
		w = Weights{}
	}
	return w, nil
}
