// Package writer turns a resolved type description and its bound member
// implementations into class-file bytes. It owns nothing about resolution;
// it drives pkg/classfile with whatever the composition decided and
// reports which other classes the produced artifact references.
package writer

import (
	"fmt"

	"github.com/forgelabs/typeforge/impl"
	"github.com/forgelabs/typeforge/pkg/classfile"
	"github.com/forgelabs/typeforge/typedesc"
)

// Config carries the emission inputs that are not part of the type itself.
type Config struct {
	Major uint16
	Minor uint16
}

// DefaultConfig targets Java 8 class files.
func DefaultConfig() Config {
	return Config{Major: classfile.Java8}
}

// Bound pairs a method to emit with the implementation providing its body.
type Bound struct {
	Method typedesc.MethodDescription
	With   impl.Implementation
}

// ClassArtifact is one produced class: its binary name, its bytes, and the
// internal names of other classes its constant pool references.
type ClassArtifact struct {
	Name       string
	Bytes      []byte
	References []string
}

// Write emits the described type with the given bound members. Members of
// the description that carry no binding must be abstract; they are emitted
// without code. Bound members not declared on the description are
// overrides of inherited members and are emitted after the declared ones.
// The auxiliary name table resolves auxiliary references inside appenders.
func Write(desc *typedesc.TypeDescription, bound []Bound, auxNames map[string]string, cfg Config) (*ClassArtifact, error) {
	if cfg.Major == 0 {
		cfg = DefaultConfig()
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}

	super := ""
	if desc.HasSuperClass() {
		super = desc.SuperClass.InternalName()
	}
	b := classfile.NewClassBuilder(desc.Name, super, desc.Modifiers, cfg.Major, cfg.Minor)
	for _, iface := range desc.Interfaces {
		b.AddInterface(iface.InternalName())
	}
	b.SetSignature(desc.Signature)
	b.SetAnnotations(desc.Annotations)
	for i := range desc.Fields {
		f := &desc.Fields[i]
		b.AddField(f.Modifiers, f.Name, f.Type.Descriptor(), f.Signature, f.Annotations)
	}

	byKey := make(map[string]int, len(bound))
	for i := range bound {
		byKey[bound[i].Method.ErasedKey()] = i
	}

	emitted := make(map[string]bool, len(bound))
	for i := range desc.Methods {
		m := &desc.Methods[i]
		idx, ok := byKey[m.ErasedKey()]
		if !ok {
			if !m.IsAbstract() {
				return nil, fmt.Errorf("writer: concrete method %s on %s has no implementation bound",
					m.ErasedKey(), desc.Name)
			}
			b.AddMethod(m.Modifiers, m.Name, m.Descriptor(), m.Signature, exceptionNames(m), nil, m.Annotations)
			continue
		}
		if err := emitMethod(b, desc, &bound[idx], auxNames); err != nil {
			return nil, err
		}
		emitted[m.ErasedKey()] = true
	}
	for i := range bound {
		if emitted[bound[i].Method.ErasedKey()] {
			continue
		}
		if err := emitMethod(b, desc, &bound[i], auxNames); err != nil {
			return nil, err
		}
	}

	data, err := b.Build()
	if err != nil {
		return nil, err
	}
	return &ClassArtifact{
		Name:       desc.Name,
		Bytes:      data,
		References: references(b.Pool(), desc.Name),
	}, nil
}

func emitMethod(b *classfile.ClassBuilder, desc *typedesc.TypeDescription, bd *Bound, auxNames map[string]string) error {
	m := bd.Method
	asm, err := classfile.NewCodeAssembler(b.Pool(), desc.Name, m.Name, m.Descriptor(), m.Modifiers)
	if err != nil {
		return err
	}
	target := impl.NewTarget(desc, &m, asm, auxNames)
	if err := bd.With.Append(target); err != nil {
		return fmt.Errorf("writer: %s on %s via %s: %w", m.ErasedKey(), desc.Name, bd.With.Name(), err)
	}
	body, err := asm.Finish()
	if err != nil {
		return fmt.Errorf("writer: %s on %s via %s: %w", m.ErasedKey(), desc.Name, bd.With.Name(), err)
	}
	b.AddMethod(m.Modifiers, m.Name, m.Descriptor(), m.Signature, exceptionNames(&m), body, m.Annotations)
	return nil
}

func exceptionNames(m *typedesc.MethodDescription) []string {
	if len(m.Exceptions) == 0 {
		return nil
	}
	out := make([]string, len(m.Exceptions))
	for i, e := range m.Exceptions {
		out[i] = e.InternalName()
	}
	return out
}

// references lists the pool's class entries except the artifact itself.
func references(pool *classfile.ConstPool, self string) []string {
	var out []string
	for _, name := range pool.Classes() {
		if name != self {
			out = append(out, name)
		}
	}
	return out
}
