// Package impl provides the closed set of behavior implementations a
// composition can bind to members: delegation, fixed values, super calls,
// field access, exception throwing, stubs and custom bytecode. Every
// variant follows the same two-phase contract: a preparation step that may
// extend the type under construction or request auxiliary types, then an
// appender step that emits the member's body. The set is sealed; adding a
// variant is a deliberate change to this package, not a subclassing point.
package impl

import (
	"fmt"
	"sort"
	"strings"

	"github.com/forgelabs/typeforge/pkg/classfile"
	"github.com/forgelabs/typeforge/typedesc"
)

// AuxiliaryKind discriminates auxiliary type requests.
type AuxiliaryKind uint8

const (
	// AuxSuperCallProxy requests a helper type that subclasses the proxied
	// type and forwards each capability method to a super-call accessor on
	// the host type, preserving access to overridden behavior.
	AuxSuperCallProxy AuxiliaryKind = 1
)

// AuxiliaryRequest asks the synthesizer for a helper type. The requesting
// implementation owns the request; the synthesizer owns whatever type it
// generates for it.
type AuxiliaryRequest struct {
	Kind        AuxiliaryKind
	ProxiedType typedesc.TypeRef // type whose super behavior is exposed
	HostType    string           // internal name of the composed type carrying accessors
	Methods     []typedesc.MethodDescription
}

// StructuralKey identifies the request up to structural equality: requests
// for the same target with the same capability set collapse to one
// auxiliary type.
func (r *AuxiliaryRequest) StructuralKey() string {
	keys := make([]string, len(r.Methods))
	for i := range r.Methods {
		keys[i] = r.Methods[i].ErasedKey()
	}
	sort.Strings(keys)
	return fmt.Sprintf("%d|%s|%s|%s", r.Kind, r.ProxiedType.Descriptor(), r.HostType,
		strings.Join(keys, ","))
}

// AuxiliaryRegistrar records auxiliary requests during preparation and
// assigns each distinct request its binary name up front, so appenders can
// reference the type before it is materialized.
type AuxiliaryRegistrar interface {
	Require(req *AuxiliaryRequest) (assignedName string, err error)
}

// Definition pairs a method declaration introduced during preparation with
// the implementation that will provide its body.
type Definition struct {
	Method typedesc.MethodDescription
	With   Implementation
}

// Context is what an implementation sees during its preparation step.
type Context struct {
	Instrumented *typedesc.Instrumented
	Auxiliaries  AuxiliaryRegistrar
	definitions  []Definition
}

// DefineMethod declares an additional method on the type under construction
// together with its implementation. The declaration is added to the
// instrumented state immediately; the body is emitted with all others.
func (c *Context) DefineMethod(m typedesc.MethodDescription, with Implementation) error {
	if err := c.Instrumented.AddMethod(m); err != nil {
		return err
	}
	c.definitions = append(c.definitions, Definition{Method: m, With: with})
	return nil
}

// Definitions returns the method definitions accumulated by preparation.
func (c *Context) Definitions() []Definition {
	return c.definitions
}

// Target is the byte-emission context handed to an appender: the frozen
// description of the composed type, the member being implemented, and the
// assembler for its body.
type Target struct {
	Type   *typedesc.TypeDescription
	Method *typedesc.MethodDescription
	Asm    *classfile.CodeAssembler

	auxNames map[string]string // structural key -> assigned internal name
}

// NewTarget builds an emission target. The auxiliary name table maps
// structural request keys to the names the registrar assigned.
func NewTarget(desc *typedesc.TypeDescription, m *typedesc.MethodDescription, asm *classfile.CodeAssembler, auxNames map[string]string) *Target {
	return &Target{Type: desc, Method: m, Asm: asm, auxNames: auxNames}
}

// AuxiliaryName resolves a previously required request to its assigned
// internal name.
func (t *Target) AuxiliaryName(req *AuxiliaryRequest) (string, bool) {
	name, ok := t.auxNames[req.StructuralKey()]
	return name, ok
}

// Implementation is the uniform behavior contract. The set of variants is
// closed: only this package can satisfy the interface.
type Implementation interface {
	// Prepare runs before any appender and may extend the instrumented
	// type or request auxiliary types.
	Prepare(ctx *Context) error
	// Append emits the member's body, finishing with a return or throw.
	Append(t *Target) error
	// Name identifies the variant in diagnostics.
	Name() string

	sealed()
}

// base gives each variant the sealing marker.
type base struct{}

func (base) sealed() {}

// loadArguments pushes every parameter of the implemented method, starting
// at slot 1 (slot 0 is the receiver; composed bodies are never static).
func loadArguments(t *Target) {
	slot := 1
	for _, p := range t.Method.Parameters {
		t.Asm.LoadLocal(slot)
		slot += p.StackSlots()
	}
}
