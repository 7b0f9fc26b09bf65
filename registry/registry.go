// Package registry resolves the ordered rule list of a composition against
// the members of a target type. A rule pairs a member matcher with an
// implementation; on a member matched by several rules, the last rule in
// registration order wins. Resolution also merges explicitly defined
// members into the plan and rejects erased-slot collisions.
package registry

import (
	"fmt"

	"github.com/forgelabs/typeforge/impl"
	"github.com/forgelabs/typeforge/match"
	"github.com/forgelabs/typeforge/pkg/classfile"
	"github.com/forgelabs/typeforge/typedesc"
)

// Rule pairs a matcher with the implementation bound to whatever the
// matcher selects.
type Rule struct {
	When match.MethodMatcher
	With impl.Implementation
}

// TypeSource looks up type descriptions by internal name during hierarchy
// traversal. A type the source does not know is an opaque boundary; the
// walk stops there.
type TypeSource interface {
	Find(internalName string) (*typedesc.TypeDescription, bool)
}

// TypeSourceFunc adapts a function to the TypeSource interface.
type TypeSourceFunc func(internalName string) (*typedesc.TypeDescription, bool)

func (f TypeSourceFunc) Find(internalName string) (*typedesc.TypeDescription, bool) {
	return f(internalName)
}

// EmptySource knows no types. Hierarchy walks end at the target itself.
var EmptySource = TypeSourceFunc(func(string) (*typedesc.TypeDescription, bool) {
	return nil, false
})

// Binding is one resolved member: the method to emit and the
// implementation providing its body. RuleIndex records which rule won;
// StubRule marks bindings resolution synthesized for unmatched abstract
// obligations and DefinedRule marks explicitly defined members.
type Binding struct {
	Method    typedesc.MethodDescription
	With      impl.Implementation
	RuleIndex int
}

const (
	// StubRule is the RuleIndex of a synthesized zero-value stub.
	StubRule = -1
	// DefinedRule is the RuleIndex of an explicitly defined member.
	DefinedRule = -2
)

// Resolution is the member plan a composition emits from: overrides of
// visible members in hierarchy order followed by newly declared members in
// definition order.
type Resolution struct {
	Overrides    []Binding
	Declarations []Binding
}

// Bindings returns every member to emit, overrides first.
func (r *Resolution) Bindings() []Binding {
	out := make([]Binding, 0, len(r.Overrides)+len(r.Declarations))
	out = append(out, r.Overrides...)
	out = append(out, r.Declarations...)
	return out
}

// Resolver holds the ordered rule list.
type Resolver struct {
	rules []Rule
}

// NewResolver builds a resolver over the given rules. Order is the
// registration order; later rules take precedence on overlap.
func NewResolver(rules ...Rule) *Resolver {
	return &Resolver{rules: rules}
}

// Rules returns the rule list in registration order.
func (r *Resolver) Rules() []Rule {
	return r.rules
}

// VisibleMethods computes the overridable member surface of a type: its
// declared virtual methods plus inherited virtual methods from the
// superclass chain and transitive interfaces, with declared members
// shadowing inherited ones on the same erased slot. Static, private and
// constructor members are not part of the surface.
func VisibleMethods(target *typedesc.TypeDescription, source TypeSource) []typedesc.MethodDescription {
	var out []typedesc.MethodDescription
	seen := make(map[string]bool)

	collect := func(desc *typedesc.TypeDescription) {
		for i := range desc.Methods {
			m := desc.Methods[i]
			if !m.IsVirtual() || seen[m.ErasedKey()] {
				continue
			}
			seen[m.ErasedKey()] = true
			out = append(out, m)
		}
	}

	collect(target)

	visited := map[string]bool{target.Name: true}
	queue := make([]typedesc.TypeRef, 0, 1+len(target.Interfaces))
	if target.HasSuperClass() {
		queue = append(queue, target.SuperClass)
	}
	queue = append(queue, target.Interfaces...)

	for len(queue) > 0 {
		ref := queue[0]
		queue = queue[1:]
		name := ref.InternalName()
		if visited[name] {
			continue
		}
		visited[name] = true
		desc, ok := source.Find(name)
		if !ok {
			continue
		}
		collect(desc)
		if desc.HasSuperClass() {
			queue = append(queue, desc.SuperClass)
		}
		queue = append(queue, desc.Interfaces...)
	}
	return out
}

// Resolve applies the rule list to the target's visible members and merges
// the explicitly defined members in. For each visible member the last
// matching rule binds; unmatched abstract obligations get a synthetic
// zero-value stub so the composed type is instantiable; unmatched concrete
// members keep their inherited behavior and produce no override. A defined
// member colliding with another definition or with a visible member on the
// same erased slot is a ResolutionConflict.
func (r *Resolver) Resolve(target *typedesc.TypeDescription, source TypeSource, defined []impl.Definition) (*Resolution, error) {
	visible := VisibleMethods(target, source)
	res := &Resolution{}

	definedKeys := make(map[string]string) // erased key -> diagnostic
	for _, d := range defined {
		key := d.Method.ErasedKey()
		if prior, dup := definedKeys[key]; dup {
			return nil, &ResolutionConflict{
				TypeName: target.Name,
				Member:   key,
				First:    prior,
				Second:   "defined member " + d.Method.String(),
			}
		}
		definedKeys[key] = "defined member " + d.Method.String()
	}

	for _, m := range visible {
		if prior, clash := definedKeys[m.ErasedKey()]; clash {
			return nil, &ResolutionConflict{
				TypeName: target.Name,
				Member:   m.ErasedKey(),
				First:    fmt.Sprintf("member inherited from %s", m.DeclaredBy),
				Second:   prior,
			}
		}
		if b, ok := r.bind(m); ok {
			res.Overrides = append(res.Overrides, b)
			continue
		}
		if m.IsAbstract() {
			stub := m
			stub.Modifiers = (stub.Modifiers &^ classfile.AccAbstract) | classfile.AccSynthetic
			res.Overrides = append(res.Overrides, Binding{
				Method:    stub,
				With:      impl.NewStub(),
				RuleIndex: StubRule,
			})
		}
	}

	for _, d := range defined {
		res.Declarations = append(res.Declarations, Binding{
			Method:    d.Method,
			With:      d.With,
			RuleIndex: DefinedRule,
		})
	}
	return res, nil
}

// bind finds the last rule matching the member.
func (r *Resolver) bind(m typedesc.MethodDescription) (Binding, bool) {
	won := -1
	for i, rule := range r.rules {
		if rule.When.Matches(&m) {
			won = i
		}
	}
	if won < 0 {
		return Binding{}, false
	}
	override := m
	override.Modifiers &^= classfile.AccAbstract
	return Binding{Method: override, With: r.rules[won].With, RuleIndex: won}, true
}
