package typedesc

import (
	"fmt"
	"strings"

	"github.com/forgelabs/typeforge/pkg/classfile"
)

// Annotation re-exports the class-file annotation model: descriptions carry
// annotations in exactly the form the writer emits and the parser reads.
type Annotation = classfile.Annotation

// MethodDescription describes one method. Descriptions are immutable
// snapshots; DeclaredBy is a back-reference by name only, never ownership.
type MethodDescription struct {
	Name        string
	Modifiers   uint16
	Returns     TypeRef
	Parameters  []TypeRef
	Exceptions  []TypeRef
	Signature   string // generic signature, "" when non-generic
	Annotations []Annotation
	DeclaredBy  string // internal name of the declaring type
}

// Descriptor returns the erased method descriptor.
func (m *MethodDescription) Descriptor() string {
	var sb strings.Builder
	sb.WriteByte('(')
	for _, p := range m.Parameters {
		sb.WriteString(p.Descriptor())
	}
	sb.WriteByte(')')
	sb.WriteString(m.Returns.Descriptor())
	return sb.String()
}

// ErasedKey identifies the method slot the description occupies: generic
// information never participates in slot identity.
func (m *MethodDescription) ErasedKey() string {
	return m.Name + m.Descriptor()
}

// IsConstructor reports whether the method is an instance initializer.
func (m *MethodDescription) IsConstructor() bool {
	return m.Name == "<init>"
}

// IsStatic reports whether the method is static.
func (m *MethodDescription) IsStatic() bool {
	return m.Modifiers&classfile.AccStatic != 0
}

// IsAbstract reports whether the method has no body.
func (m *MethodDescription) IsAbstract() bool {
	return m.Modifiers&classfile.AccAbstract != 0
}

// IsFinal reports whether the method cannot be overridden.
func (m *MethodDescription) IsFinal() bool {
	return m.Modifiers&classfile.AccFinal != 0
}

// IsPrivate reports whether the method is private.
func (m *MethodDescription) IsPrivate() bool {
	return m.Modifiers&classfile.AccPrivate != 0
}

// IsVirtual reports whether the method participates in dynamic dispatch and
// is therefore overridable in a subclass.
func (m *MethodDescription) IsVirtual() bool {
	return !m.IsStatic() && !m.IsPrivate() && !m.IsConstructor()
}

// IsAnnotatedWith reports whether the method carries an annotation of the
// given type descriptor.
func (m *MethodDescription) IsAnnotatedWith(typeDescriptor string) bool {
	for _, a := range m.Annotations {
		if a.TypeDescriptor == typeDescriptor {
			return true
		}
	}
	return false
}

func (m *MethodDescription) String() string {
	return m.DeclaredBy + "." + m.Name + m.Descriptor()
}

// FieldDescription describes one field.
type FieldDescription struct {
	Name        string
	Modifiers   uint16
	Type        TypeRef
	Signature   string
	Annotations []Annotation
	DeclaredBy  string
}

// IsStatic reports whether the field is static.
func (f *FieldDescription) IsStatic() bool {
	return f.Modifiers&classfile.AccStatic != 0
}

func (f *FieldDescription) String() string {
	return f.DeclaredBy + "." + f.Name + " " + f.Type.Descriptor()
}

// TypeDescription is the uniform read-only description of a type. Both
// variants of the model produce it: resolved descriptions come from parsed
// class bytes, latent ones from a composition in progress. Consumers cannot
// tell the difference.
type TypeDescription struct {
	Name        string  // internal name
	Modifiers   uint16
	SuperClass  TypeRef // Void when the type is java/lang/Object
	Interfaces  []TypeRef
	Signature   string
	Annotations []Annotation
	Fields      []FieldDescription
	Methods     []MethodDescription
}

// Ref returns the canonical reference to the described type.
func (t *TypeDescription) Ref() TypeRef {
	return Class(t.Name)
}

// BinaryName returns the dotted name the class-loading boundary uses.
func (t *TypeDescription) BinaryName() string {
	return strings.ReplaceAll(t.Name, "/", ".")
}

// IsInterface reports whether the description is an interface type.
func (t *TypeDescription) IsInterface() bool {
	return t.Modifiers&classfile.AccInterface != 0
}

// HasSuperClass reports whether a superclass reference exists.
func (t *TypeDescription) HasSuperClass() bool {
	return !t.SuperClass.IsVoid()
}

// Method returns the declared method with the given name and descriptor.
func (t *TypeDescription) Method(name, descriptor string) (*MethodDescription, bool) {
	for i := range t.Methods {
		if t.Methods[i].Name == name && t.Methods[i].Descriptor() == descriptor {
			return &t.Methods[i], true
		}
	}
	return nil, false
}

// Field returns the declared field with the given name.
func (t *TypeDescription) Field(name string) (*FieldDescription, bool) {
	for i := range t.Fields {
		if t.Fields[i].Name == name {
			return &t.Fields[i], true
		}
	}
	return nil, false
}

// Validate checks the structural invariant every description must satisfy:
// member name+descriptor pairs are unique within the type.
func (t *TypeDescription) Validate() error {
	seen := make(map[string]bool, len(t.Fields)+len(t.Methods))
	for i := range t.Fields {
		key := "f " + t.Fields[i].Name + " " + t.Fields[i].Type.Descriptor()
		if seen[key] {
			return &MetadataError{
				TypeName: t.Name,
				Reason:   fmt.Sprintf("duplicate field %s", t.Fields[i].Name),
			}
		}
		seen[key] = true
	}
	for i := range t.Methods {
		key := "m " + t.Methods[i].ErasedKey()
		if seen[key] {
			return &MetadataError{
				TypeName: t.Name,
				Reason:   fmt.Sprintf("duplicate method %s", t.Methods[i].ErasedKey()),
			}
		}
		seen[key] = true
	}
	return nil
}
