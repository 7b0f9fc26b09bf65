// Package auxiliary synthesizes the helper types a composition's
// implementations request: types the caller never asked for by name but
// that bound behavior needs, such as super-call proxies. Requests are
// deduplicated structurally and assigned stable names up front; the
// synthesizer then expands the request set to a fixed point, since
// generating one helper may request another.
package auxiliary

import (
	"fmt"

	"github.com/forgelabs/typeforge/impl"
	"github.com/forgelabs/typeforge/typedesc"
)

// Member pairs a method of a synthesized type with the implementation
// emitting its body.
type Member struct {
	Method typedesc.MethodDescription
	With   impl.Implementation
}

// Planned is a fully planned auxiliary type, ready for the class writer.
type Planned struct {
	Name        string
	Description *typedesc.TypeDescription
	Members     []Member
}

// Synthesizer collects requests during preparation and materializes them
// after. It implements impl.AuxiliaryRegistrar.
type Synthesizer struct {
	naming     NamingStrategy
	order      []*impl.AuxiliaryRequest // arena, in first-request order
	names      map[string]string        // structural key -> assigned name
	claimed    map[string]string        // assigned name -> structural key
	generating map[string]bool          // keys being planned right now
	chain      []string                 // planning chain, for cycle reporting
}

// NewSynthesizer builds a synthesizer using the given naming strategy.
func NewSynthesizer(naming NamingStrategy) *Synthesizer {
	return &Synthesizer{
		naming:     naming,
		names:      make(map[string]string),
		claimed:    make(map[string]string),
		generating: make(map[string]bool),
	}
}

// Require registers a request and returns the binary name its type will
// carry. Structurally equal requests collapse to one type and one name.
// Re-requiring a type that is currently being planned is a cycle.
func (s *Synthesizer) Require(req *impl.AuxiliaryRequest) (string, error) {
	key := req.StructuralKey()
	if s.generating[key] {
		return "", &CycleError{Requests: append(append([]string(nil), s.chain...), key)}
	}
	if name, ok := s.names[key]; ok {
		return name, nil
	}
	name := s.naming.Name(req)
	if prior, taken := s.claimed[name]; taken {
		return "", fmt.Errorf("auxiliary: name %s assigned to two distinct requests (%s, %s)",
			name, prior, key)
	}
	s.names[key] = name
	s.claimed[name] = key
	s.order = append(s.order, req)
	return name, nil
}

// Names returns the structural-key-to-name table for emission targets.
func (s *Synthesizer) Names() map[string]string {
	return s.names
}

// Materialize plans every registered auxiliary type, expanding to a fixed
// point: planning one type may register further requests, which the loop
// picks up in order. Plans come back in registration order. A plan that
// re-requires a type still being planned surfaces as a CycleError.
func (s *Synthesizer) Materialize() ([]*Planned, error) {
	var out []*Planned
	for i := 0; i < len(s.order); i++ {
		req := s.order[i]
		key := req.StructuralKey()
		s.generating[key] = true
		s.chain = append(s.chain, key)
		p, err := s.plan(req)
		delete(s.generating, key)
		s.chain = s.chain[:len(s.chain)-1]
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *Synthesizer) plan(req *impl.AuxiliaryRequest) (*Planned, error) {
	switch req.Kind {
	case impl.AuxSuperCallProxy:
		return s.planSuperCallProxy(req)
	}
	return nil, fmt.Errorf("auxiliary: unknown request kind %d", req.Kind)
}
