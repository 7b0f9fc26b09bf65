// Package compose is the top-level driver: it accumulates a composition's
// configuration as an immutable value, then runs the strictly sequential
// pipeline that resolves behavior, synthesizes auxiliary types and writes
// every class artifact as one atomic result.
package compose

import (
	"github.com/tliron/commonlog"

	"github.com/forgelabs/typeforge/auxiliary"
	"github.com/forgelabs/typeforge/impl"
	"github.com/forgelabs/typeforge/match"
	"github.com/forgelabs/typeforge/pkg/classfile"
	"github.com/forgelabs/typeforge/registry"
	"github.com/forgelabs/typeforge/typedesc"
	"github.com/forgelabs/typeforge/writer"
)

var log = commonlog.GetLogger("typeforge.compose")

// Composition is the configuration of one composition pass. It is a value:
// every With step returns a new Composition, leaving the receiver usable
// for further, diverging configurations.
type Composition struct {
	base        *typedesc.TypeDescription
	name        string
	modifiers   uint16
	source      registry.TypeSource
	rules       []registry.Rule
	interfaces  []typedesc.TypeRef
	annotations []typedesc.Annotation
	fields      []typedesc.FieldDescription
	defined     []impl.Definition
	signature   string
	naming      auxiliary.NamingStrategy
	version     writer.Config
	log         commonlog.Logger
}

// Subclass starts a composition deriving a new subclass of the given base
// type under the given internal name.
func Subclass(base *typedesc.TypeDescription, name string) Composition {
	return Composition{
		base:      base,
		name:      name,
		modifiers: classfile.AccPublic,
		source:    registry.EmptySource,
		naming:    auxiliary.HashNaming{},
		version:   writer.DefaultConfig(),
		log:       log,
	}
}

// Matching appends a behavior rule. Rules are evaluated in the order they
// were appended; on overlap the last matching rule wins.
func (c Composition) Matching(when match.MethodMatcher, with impl.Implementation) Composition {
	c.rules = append(copySlice(c.rules), registry.Rule{When: when, With: with})
	return c
}

// Define declares a new member on the composed type with its
// implementation. Two definitions claiming the same erased slot surface as
// a ResolutionConflict when the composition runs.
func (c Composition) Define(m typedesc.MethodDescription, with impl.Implementation) Composition {
	c.defined = append(copySlice(c.defined), impl.Definition{Method: m, With: with})
	return c
}

// Implementing adds implemented interfaces to the composed type.
func (c Composition) Implementing(ifaces ...typedesc.TypeRef) Composition {
	c.interfaces = append(copySlice(c.interfaces), ifaces...)
	return c
}

// Annotated attaches a type-level annotation.
func (c Composition) Annotated(a typedesc.Annotation) Composition {
	c.annotations = append(copySlice(c.annotations), a)
	return c
}

// WithField declares an additional field on the composed type.
func (c Composition) WithField(f typedesc.FieldDescription) Composition {
	c.fields = append(copySlice(c.fields), f)
	return c
}

// WithSignature attaches a generic signature to the composed type.
func (c Composition) WithSignature(signature string) Composition {
	c.signature = signature
	return c
}

// WithModifiers replaces the composed type's access flags.
func (c Composition) WithModifiers(modifiers uint16) Composition {
	c.modifiers = modifiers
	return c
}

// WithSource supplies the type source used to walk the base type's
// hierarchy beyond the base itself.
func (c Composition) WithSource(source registry.TypeSource) Composition {
	c.source = source
	return c
}

// WithNaming replaces the auxiliary naming strategy.
func (c Composition) WithNaming(naming auxiliary.NamingStrategy) Composition {
	c.naming = naming
	return c
}

// WithVersion targets a specific class-file version.
func (c Composition) WithVersion(version writer.Config) Composition {
	c.version = version
	return c
}

// WithLogger routes the pass's stage logging through the given logger.
func (c Composition) WithLogger(logger commonlog.Logger) Composition {
	c.log = logger
	return c
}

// copySlice detaches the backing array so diverging configurations never
// see each other's appends.
func copySlice[T any](in []T) []T {
	out := make([]T, len(in), len(in)+1)
	copy(out, in)
	return out
}
