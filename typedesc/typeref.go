// Package typedesc is the uniform type metadata model: read-only snapshots
// of a type's members usable whether the type was parsed from class bytes or
// is still being composed. Later stages never care which origin a
// description came from.
package typedesc

import (
	"fmt"
	"strings"
)

// TypeRef is a canonical, erased reference to a type: a primitive, a class,
// or an array of either. The zero value is the void type. TypeRefs are
// values and compare with ==.
type TypeRef struct {
	kind byte   // descriptor character; 0 or 'V' means void
	name string // internal name, only for kind 'L'
	dims int    // array dimensions
}

// Void is the void pseudo-type.
var Void = TypeRef{kind: 'V'}

// Primitive types.
var (
	Boolean = TypeRef{kind: 'Z'}
	Byte    = TypeRef{kind: 'B'}
	Char    = TypeRef{kind: 'C'}
	Short   = TypeRef{kind: 'S'}
	Int     = TypeRef{kind: 'I'}
	Long    = TypeRef{kind: 'J'}
	Float   = TypeRef{kind: 'F'}
	Double  = TypeRef{kind: 'D'}
)

// Frequently referenced classes.
var (
	Object    = Class("java/lang/Object")
	String    = Class("java/lang/String")
	Throwable = Class("java/lang/Throwable")
)

// Class returns a reference to the class with the given internal name
// ("java/lang/String"). Dotted binary names are normalized.
func Class(name string) TypeRef {
	return TypeRef{kind: 'L', name: strings.ReplaceAll(name, ".", "/")}
}

// ArrayOf returns a reference to an array of the component type.
func ArrayOf(component TypeRef) TypeRef {
	c := component
	c.dims++
	return c
}

// ParseDescriptor converts a field descriptor to its canonical reference.
func ParseDescriptor(desc string) (TypeRef, error) {
	dims := 0
	for dims < len(desc) && desc[dims] == '[' {
		dims++
	}
	rest := desc[dims:]
	if rest == "" {
		return Void, fmt.Errorf("typedesc: empty descriptor %q", desc)
	}
	switch rest[0] {
	case 'V', 'Z', 'B', 'C', 'S', 'I', 'J', 'F', 'D':
		if len(rest) != 1 {
			return Void, fmt.Errorf("typedesc: malformed descriptor %q", desc)
		}
		return TypeRef{kind: rest[0], dims: dims}, nil
	case 'L':
		if !strings.HasSuffix(rest, ";") || len(rest) < 3 {
			return Void, fmt.Errorf("typedesc: malformed descriptor %q", desc)
		}
		return TypeRef{kind: 'L', name: rest[1 : len(rest)-1], dims: dims}, nil
	}
	return Void, fmt.Errorf("typedesc: malformed descriptor %q", desc)
}

// Descriptor returns the erased field descriptor. Generic parameters never
// appear here; they live in signatures only.
func (t TypeRef) Descriptor() string {
	base := ""
	switch {
	case t.kind == 0 || t.kind == 'V':
		base = "V"
	case t.kind == 'L':
		base = "L" + t.name + ";"
	default:
		base = string(t.kind)
	}
	return strings.Repeat("[", t.dims) + base
}

// InternalName returns the name CONSTANT_Class entries use: the plain
// internal name for classes, the full descriptor for arrays.
func (t TypeRef) InternalName() string {
	if t.dims > 0 {
		return t.Descriptor()
	}
	return t.name
}

// BinaryName returns the dotted name used at the class-loading boundary.
func (t TypeRef) BinaryName() string {
	if t.dims > 0 || t.kind != 'L' {
		return t.Descriptor()
	}
	return strings.ReplaceAll(t.name, "/", ".")
}

// IsVoid reports whether the reference is the void pseudo-type.
func (t TypeRef) IsVoid() bool {
	return (t.kind == 0 || t.kind == 'V') && t.dims == 0
}

// IsPrimitive reports whether the reference is a non-array primitive.
func (t TypeRef) IsPrimitive() bool {
	return t.dims == 0 && t.kind != 'L' && !t.IsVoid()
}

// IsArray reports whether the reference has at least one array dimension.
func (t TypeRef) IsArray() bool {
	return t.dims > 0
}

// IsReference reports whether values of this type live on the heap.
func (t TypeRef) IsReference() bool {
	return t.dims > 0 || t.kind == 'L'
}

// Wide reports whether values occupy two stack/local slots.
func (t TypeRef) Wide() bool {
	return t.dims == 0 && (t.kind == 'J' || t.kind == 'D')
}

// StackSlots returns the slot count of a value: 0 for void, 2 for wide
// primitives, 1 otherwise.
func (t TypeRef) StackSlots() int {
	switch {
	case t.IsVoid():
		return 0
	case t.Wide():
		return 2
	}
	return 1
}

func (t TypeRef) String() string {
	return t.Descriptor()
}
