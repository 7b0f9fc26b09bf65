package compose

import (
	"fmt"

	"github.com/forgelabs/typeforge/auxiliary"
	"github.com/forgelabs/typeforge/impl"
	"github.com/forgelabs/typeforge/pkg/classfile"
	"github.com/forgelabs/typeforge/registry"
	"github.com/forgelabs/typeforge/typedesc"
	"github.com/forgelabs/typeforge/writer"
)

// Stage is a phase of the composition pipeline. Transitions are strictly
// forward; a backward transition is an engine defect.
type Stage uint8

const (
	StageConfiguring Stage = iota
	StageResolving
	StageSynthesizingAuxiliaries
	StageWriting
	StageDone
)

var stageNames = map[Stage]string{
	StageConfiguring:             "configuring",
	StageResolving:               "resolving",
	StageSynthesizingAuxiliaries: "synthesizing-auxiliaries",
	StageWriting:                 "writing",
	StageDone:                    "done",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return fmt.Sprintf("stage(%d)", uint8(s))
}

// Result is the atomic output of one pass: the primary artifact, every
// auxiliary artifact, and the reference edges between them so a consumer
// can sequence class loading.
type Result struct {
	Primary     *writer.ClassArtifact
	Auxiliaries []*writer.ClassArtifact
	References  map[string][]string // artifact name -> referenced artifact names
}

// Artifacts returns every produced artifact, primary first.
func (r *Result) Artifacts() []*writer.ClassArtifact {
	out := make([]*writer.ClassArtifact, 0, 1+len(r.Auxiliaries))
	out = append(out, r.Primary)
	return append(out, r.Auxiliaries...)
}

// runner tracks the pipeline stage of one pass.
type runner struct {
	c     Composition
	stage Stage
}

func (r *runner) advance(to Stage) {
	if to != r.stage+1 {
		panic(fmt.Sprintf("compose: stage %s cannot follow %s", to, r.stage))
	}
	r.stage = to
	r.c.log.Debugf("composing %s: %s", r.c.name, to)
}

// Run executes the pass. Any failure aborts the whole pass; no partial
// artifact set is ever returned.
func (c Composition) Run() (*Result, error) {
	if c.base == nil {
		return nil, fmt.Errorf("compose: composition of %s has no base type", c.name)
	}
	r := &runner{c: c}

	r.advance(StageResolving)
	view := &typedesc.TypeDescription{
		Name:       c.name,
		Modifiers:  c.modifiers,
		SuperClass: typedesc.Class(c.base.Name),
		Interfaces: c.interfaces,
	}
	source := withBase(c.base, c.source)
	resolution, err := registry.NewResolver(c.rules...).Resolve(view, source, c.defined)
	if err != nil {
		return nil, err
	}

	in := typedesc.NewInstrumented(c.name, c.modifiers, typedesc.Class(c.base.Name))
	for _, iface := range c.interfaces {
		in.AddInterface(iface)
	}
	in.SetSignature(c.signature)
	for _, a := range c.annotations {
		in.AddAnnotation(a)
	}
	for _, f := range c.fields {
		if err := in.AddField(f); err != nil {
			return nil, err
		}
	}

	bindings := resolution.Bindings()
	bindings = ensureConstructor(bindings)
	for _, b := range bindings {
		if err := in.AddMethod(b.Method); err != nil {
			return nil, err
		}
	}

	synth := auxiliary.NewSynthesizer(c.naming)
	ctx := &impl.Context{Instrumented: in, Auxiliaries: synth}
	if bindings, err = prepare(ctx, bindings); err != nil {
		return nil, err
	}
	desc := in.Description()

	r.advance(StageSynthesizingAuxiliaries)
	plans, err := synth.Materialize()
	if err != nil {
		return nil, err
	}

	r.advance(StageWriting)
	primary, err := writer.Write(desc, toBound(bindings), synth.Names(), c.version)
	if err != nil {
		return nil, err
	}
	c.log.Debugf("wrote %s (%d bytes)", primary.Name, len(primary.Bytes))
	result := &Result{Primary: primary, References: make(map[string][]string)}
	for _, p := range plans {
		art, err := writer.Write(p.Description, memberBounds(p), synth.Names(), c.version)
		if err != nil {
			return nil, err
		}
		c.log.Debugf("wrote auxiliary %s (%d bytes)", art.Name, len(art.Bytes))
		result.Auxiliaries = append(result.Auxiliaries, art)
	}

	produced := make(map[string]bool, 1+len(result.Auxiliaries))
	for _, art := range result.Artifacts() {
		produced[art.Name] = true
	}
	for _, art := range result.Artifacts() {
		for _, ref := range art.References {
			if produced[ref] {
				result.References[art.Name] = append(result.References[art.Name], ref)
			}
		}
	}

	r.advance(StageDone)
	return result, nil
}

// prepare runs every implementation's preparation step, then the steps of
// whatever further members preparation defined, until no new definitions
// appear.
func prepare(ctx *impl.Context, bindings []registry.Binding) ([]registry.Binding, error) {
	work := bindings
	consumed := 0
	for len(work) > 0 {
		for _, b := range work {
			if err := b.With.Prepare(ctx); err != nil {
				return nil, err
			}
		}
		fresh := ctx.Definitions()[consumed:]
		consumed += len(fresh)
		work = work[:0:0]
		for _, d := range fresh {
			b := registry.Binding{Method: d.Method, With: d.With, RuleIndex: registry.DefinedRule}
			work = append(work, b)
			bindings = append(bindings, b)
		}
	}
	return bindings, nil
}

// ensureConstructor adds a default constructor chaining to the superclass
// when no binding provides one.
func ensureConstructor(bindings []registry.Binding) []registry.Binding {
	for _, b := range bindings {
		if b.Method.IsConstructor() {
			return bindings
		}
	}
	return append(bindings, registry.Binding{
		Method: typedesc.MethodDescription{
			Name:      "<init>",
			Modifiers: classfile.AccPublic,
			Returns:   typedesc.Void,
		},
		With:      impl.NewSuperMethodCall(),
		RuleIndex: registry.DefinedRule,
	})
}

func toBound(bindings []registry.Binding) []writer.Bound {
	out := make([]writer.Bound, len(bindings))
	for i, b := range bindings {
		out[i] = writer.Bound{Method: b.Method, With: b.With}
	}
	return out
}

func memberBounds(p *auxiliary.Planned) []writer.Bound {
	out := make([]writer.Bound, len(p.Members))
	for i, m := range p.Members {
		out[i] = writer.Bound{Method: m.Method, With: m.With}
	}
	return out
}

// withBase exposes the base type through the configured source so the
// hierarchy walk starts from it.
func withBase(base *typedesc.TypeDescription, source registry.TypeSource) registry.TypeSource {
	return registry.TypeSourceFunc(func(name string) (*typedesc.TypeDescription, bool) {
		if name == base.Name {
			return base, true
		}
		return source.Find(name)
	})
}
