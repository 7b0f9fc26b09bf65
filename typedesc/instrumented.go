package typedesc

import "fmt"

// Instrumented is the accumulating builder state behind an in-progress
// type: the latent variant of the model. Implementations extend it during
// their preparation step; Description freezes it into the same read-only
// snapshot a resolved type produces.
type Instrumented struct {
	name        string
	modifiers   uint16
	superClass  TypeRef
	interfaces  []TypeRef
	signature   string
	annotations []Annotation
	fields      []FieldDescription
	methods     []MethodDescription
	frozen      bool
}

// NewInstrumented starts an in-progress type with the given internal name
// extending the given superclass.
func NewInstrumented(name string, modifiers uint16, superClass TypeRef) *Instrumented {
	return &Instrumented{
		name:       name,
		modifiers:  modifiers,
		superClass: superClass,
	}
}

// Name returns the internal name of the type under construction.
func (in *Instrumented) Name() string {
	return in.name
}

// SuperClass returns the superclass reference.
func (in *Instrumented) SuperClass() TypeRef {
	return in.superClass
}

func (in *Instrumented) checkFrozen() {
	if in.frozen {
		panic("typedesc: instrumented type modified after preparation completed")
	}
}

// AddInterface records an additional implemented interface. Repeated
// additions of the same interface collapse.
func (in *Instrumented) AddInterface(iface TypeRef) {
	in.checkFrozen()
	for _, existing := range in.interfaces {
		if existing == iface {
			return
		}
	}
	in.interfaces = append(in.interfaces, iface)
}

// SetSignature attaches a generic signature to the type.
func (in *Instrumented) SetSignature(signature string) {
	in.checkFrozen()
	in.signature = signature
}

// AddAnnotation attaches a type-level annotation.
func (in *Instrumented) AddAnnotation(a Annotation) {
	in.checkFrozen()
	in.annotations = append(in.annotations, a)
}

// AddField appends a field, rejecting duplicates. Implementations use this
// from their preparation step to request instrumentation state.
func (in *Instrumented) AddField(f FieldDescription) error {
	in.checkFrozen()
	for _, existing := range in.fields {
		if existing.Name == f.Name && existing.Type == f.Type {
			return &MetadataError{
				TypeName: in.name,
				Reason:   fmt.Sprintf("duplicate field %s requested during preparation", f.Name),
			}
		}
	}
	f.DeclaredBy = in.name
	in.fields = append(in.fields, f)
	return nil
}

// AddMethod appends a declared method, rejecting duplicate erased slots.
func (in *Instrumented) AddMethod(m MethodDescription) error {
	in.checkFrozen()
	m.DeclaredBy = in.name
	for _, existing := range in.methods {
		if existing.ErasedKey() == m.ErasedKey() {
			return &MetadataError{
				TypeName: in.name,
				Reason:   fmt.Sprintf("duplicate method %s requested during preparation", m.ErasedKey()),
			}
		}
	}
	in.methods = append(in.methods, m)
	return nil
}

// Description freezes the accumulated state into an immutable snapshot.
// Further mutation attempts are defects and panic.
func (in *Instrumented) Description() *TypeDescription {
	in.frozen = true
	t := &TypeDescription{
		Name:        in.name,
		Modifiers:   in.modifiers,
		SuperClass:  in.superClass,
		Interfaces:  append([]TypeRef(nil), in.interfaces...),
		Signature:   in.signature,
		Annotations: append([]Annotation(nil), in.annotations...),
		Fields:      append([]FieldDescription(nil), in.fields...),
		Methods:     append([]MethodDescription(nil), in.methods...),
	}
	return t
}
