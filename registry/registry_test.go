package registry

import (
	"errors"
	"testing"

	"github.com/forgelabs/typeforge/impl"
	"github.com/forgelabs/typeforge/match"
	"github.com/forgelabs/typeforge/pkg/classfile"
	"github.com/forgelabs/typeforge/typedesc"
)

func virtual(name, declaredBy string, returns typedesc.TypeRef, params ...typedesc.TypeRef) typedesc.MethodDescription {
	return typedesc.MethodDescription{
		Name:       name,
		Modifiers:  classfile.AccPublic,
		Returns:    returns,
		Parameters: params,
		DeclaredBy: declaredBy,
	}
}

func sourceOf(types ...*typedesc.TypeDescription) TypeSource {
	byName := make(map[string]*typedesc.TypeDescription, len(types))
	for _, d := range types {
		byName[d.Name] = d
	}
	return TypeSourceFunc(func(name string) (*typedesc.TypeDescription, bool) {
		d, ok := byName[name]
		return d, ok
	})
}

func TestVisibleMethodsShadowing(t *testing.T) {
	base := &typedesc.TypeDescription{
		Name:       "demo/Base",
		SuperClass: typedesc.Class("java/lang/Object"),
		Methods: []typedesc.MethodDescription{
			virtual("name", "demo/Base", typedesc.String),
			virtual("size", "demo/Base", typedesc.Int),
		},
	}
	target := &typedesc.TypeDescription{
		Name:       "demo/Derived",
		SuperClass: typedesc.Class("demo/Base"),
		Methods: []typedesc.MethodDescription{
			virtual("name", "demo/Derived", typedesc.String),
		},
	}

	visible := VisibleMethods(target, sourceOf(base))
	if len(visible) != 2 {
		t.Fatalf("len(visible) = %d, want 2", len(visible))
	}
	if visible[0].Name != "name" || visible[0].DeclaredBy != "demo/Derived" {
		t.Errorf("visible[0] = %s from %s, want name from demo/Derived", visible[0].Name, visible[0].DeclaredBy)
	}
	if visible[1].Name != "size" || visible[1].DeclaredBy != "demo/Base" {
		t.Errorf("visible[1] = %s from %s, want size from demo/Base", visible[1].Name, visible[1].DeclaredBy)
	}
}

func TestVisibleMethodsExcludesNonVirtual(t *testing.T) {
	target := &typedesc.TypeDescription{
		Name:       "demo/Widget",
		SuperClass: typedesc.Class("java/lang/Object"),
		Methods: []typedesc.MethodDescription{
			{Name: "<init>", Modifiers: classfile.AccPublic, Returns: typedesc.Void, DeclaredBy: "demo/Widget"},
			{Name: "helper", Modifiers: classfile.AccPrivate, Returns: typedesc.Void, DeclaredBy: "demo/Widget"},
			{Name: "of", Modifiers: classfile.AccPublic | classfile.AccStatic, Returns: typedesc.Object, DeclaredBy: "demo/Widget"},
			virtual("run", "demo/Widget", typedesc.Void),
		},
	}
	visible := VisibleMethods(target, EmptySource)
	if len(visible) != 1 || visible[0].Name != "run" {
		t.Fatalf("visible = %v, want just run", visible)
	}
}

func TestVisibleMethodsIncludesInterfaces(t *testing.T) {
	iface := &typedesc.TypeDescription{
		Name:      "demo/Closeable",
		Modifiers: classfile.AccPublic | classfile.AccInterface | classfile.AccAbstract,
		Methods: []typedesc.MethodDescription{
			{Name: "close", Modifiers: classfile.AccPublic | classfile.AccAbstract, Returns: typedesc.Void, DeclaredBy: "demo/Closeable"},
		},
	}
	target := &typedesc.TypeDescription{
		Name:       "demo/Widget",
		SuperClass: typedesc.Class("java/lang/Object"),
		Interfaces: []typedesc.TypeRef{typedesc.Class("demo/Closeable")},
	}
	visible := VisibleMethods(target, sourceOf(iface))
	if len(visible) != 1 || visible[0].Name != "close" {
		t.Fatalf("visible = %v, want just close", visible)
	}
}

func TestResolveLastRuleWins(t *testing.T) {
	target := &typedesc.TypeDescription{
		Name:       "demo/Widget",
		SuperClass: typedesc.Class("java/lang/Object"),
		Methods: []typedesc.MethodDescription{
			virtual("name", "demo/Widget", typedesc.String),
		},
	}
	first, _ := impl.NewFixedValue("first")
	second, _ := impl.NewFixedValue("second")
	r := NewResolver(
		Rule{When: match.Named("name"), With: first},
		Rule{When: match.Returns(typedesc.String), With: second},
	)

	res, err := r.Resolve(target, EmptySource, nil)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(res.Overrides) != 1 {
		t.Fatalf("len(Overrides) = %d, want 1", len(res.Overrides))
	}
	if res.Overrides[0].RuleIndex != 1 {
		t.Errorf("RuleIndex = %d, want 1 (last matching rule)", res.Overrides[0].RuleIndex)
	}
	if res.Overrides[0].With != impl.Implementation(second) {
		t.Error("binding did not take the last matching rule's implementation")
	}
}

func TestResolveUnmatchedConcreteKeepsInherited(t *testing.T) {
	target := &typedesc.TypeDescription{
		Name:       "demo/Widget",
		SuperClass: typedesc.Class("java/lang/Object"),
		Methods: []typedesc.MethodDescription{
			virtual("run", "demo/Widget", typedesc.Void),
		},
	}
	r := NewResolver(Rule{When: match.Named("other"), With: impl.NewStub()})
	res, err := r.Resolve(target, EmptySource, nil)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(res.Overrides) != 0 {
		t.Errorf("len(Overrides) = %d, want 0 (concrete member keeps its behavior)", len(res.Overrides))
	}
}

func TestResolveStubsUnmatchedAbstract(t *testing.T) {
	iface := &typedesc.TypeDescription{
		Name:      "demo/Named",
		Modifiers: classfile.AccPublic | classfile.AccInterface | classfile.AccAbstract,
		Methods: []typedesc.MethodDescription{
			{Name: "name", Modifiers: classfile.AccPublic | classfile.AccAbstract, Returns: typedesc.String, DeclaredBy: "demo/Named"},
		},
	}
	target := &typedesc.TypeDescription{
		Name:       "demo/Widget",
		SuperClass: typedesc.Class("java/lang/Object"),
		Interfaces: []typedesc.TypeRef{typedesc.Class("demo/Named")},
	}
	res, err := NewResolver().Resolve(target, sourceOf(iface), nil)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(res.Overrides) != 1 {
		t.Fatalf("len(Overrides) = %d, want 1 stub", len(res.Overrides))
	}
	b := res.Overrides[0]
	if b.RuleIndex != StubRule {
		t.Errorf("RuleIndex = %d, want StubRule", b.RuleIndex)
	}
	if b.Method.Modifiers&classfile.AccAbstract != 0 {
		t.Error("stub override still marked abstract")
	}
	if b.Method.Modifiers&classfile.AccSynthetic == 0 {
		t.Error("stub override not marked synthetic")
	}
}

func TestResolveClearsAbstractOnMatchedOverride(t *testing.T) {
	iface := &typedesc.TypeDescription{
		Name:      "demo/Named",
		Modifiers: classfile.AccPublic | classfile.AccInterface | classfile.AccAbstract,
		Methods: []typedesc.MethodDescription{
			{Name: "name", Modifiers: classfile.AccPublic | classfile.AccAbstract, Returns: typedesc.String, DeclaredBy: "demo/Named"},
		},
	}
	target := &typedesc.TypeDescription{
		Name:       "demo/Widget",
		SuperClass: typedesc.Class("java/lang/Object"),
		Interfaces: []typedesc.TypeRef{typedesc.Class("demo/Named")},
	}
	v, _ := impl.NewFixedValue("widget")
	res, err := NewResolver(Rule{When: match.Named("name"), With: v}).Resolve(target, sourceOf(iface), nil)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if res.Overrides[0].Method.Modifiers&classfile.AccAbstract != 0 {
		t.Error("matched override still marked abstract")
	}
	if res.Overrides[0].RuleIndex != 0 {
		t.Errorf("RuleIndex = %d, want 0", res.Overrides[0].RuleIndex)
	}
}

func TestResolveConflictOnDuplicateDefinitions(t *testing.T) {
	target := &typedesc.TypeDescription{
		Name:       "demo/Widget",
		SuperClass: typedesc.Class("java/lang/Object"),
	}
	m := virtual("extra", "demo/Widget", typedesc.Int)
	defined := []impl.Definition{
		{Method: m, With: impl.NewStub()},
		{Method: m, With: impl.NewStub()},
	}
	_, err := NewResolver().Resolve(target, EmptySource, defined)
	var conflict *ResolutionConflict
	if !errors.As(err, &conflict) {
		t.Fatalf("Resolve() error = %v, want ResolutionConflict", err)
	}
	if conflict.Member != m.ErasedKey() {
		t.Errorf("conflict.Member = %q, want %q", conflict.Member, m.ErasedKey())
	}
}

func TestResolveConflictOnDefinedVersusVisible(t *testing.T) {
	target := &typedesc.TypeDescription{
		Name:       "demo/Widget",
		SuperClass: typedesc.Class("java/lang/Object"),
		Methods: []typedesc.MethodDescription{
			virtual("name", "demo/Widget", typedesc.String),
		},
	}
	defined := []impl.Definition{
		{Method: virtual("name", "demo/Widget", typedesc.String), With: impl.NewStub()},
	}
	_, err := NewResolver().Resolve(target, EmptySource, defined)
	var conflict *ResolutionConflict
	if !errors.As(err, &conflict) {
		t.Fatalf("Resolve() error = %v, want ResolutionConflict", err)
	}
}

func TestResolveDeclarationsKeepOrder(t *testing.T) {
	target := &typedesc.TypeDescription{
		Name:       "demo/Widget",
		SuperClass: typedesc.Class("java/lang/Object"),
	}
	defined := []impl.Definition{
		{Method: virtual("a", "demo/Widget", typedesc.Void), With: impl.NewStub()},
		{Method: virtual("b", "demo/Widget", typedesc.Void), With: impl.NewStub()},
	}
	res, err := NewResolver().Resolve(target, EmptySource, defined)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(res.Declarations) != 2 || res.Declarations[0].Method.Name != "a" || res.Declarations[1].Method.Name != "b" {
		t.Fatalf("Declarations out of order: %v", res.Declarations)
	}
	for _, d := range res.Declarations {
		if d.RuleIndex != DefinedRule {
			t.Errorf("RuleIndex = %d, want DefinedRule", d.RuleIndex)
		}
	}
}
