package typedesc

import (
	"github.com/forgelabs/typeforge/pkg/classfile"
)

// FromBytes parses class bytes into a resolved description. Everything the
// model needs survives a round trip through the writer, so a composed type
// read back here matches the description it was built from.
func FromBytes(data []byte) (*TypeDescription, error) {
	f, err := classfile.Parse(data)
	if err != nil {
		return nil, &MetadataError{TypeName: "<unparsed>", Reason: "cannot parse class bytes", Err: err}
	}
	return FromFile(f)
}

// FromFile converts a parsed class file into a resolved description.
func FromFile(f *classfile.File) (*TypeDescription, error) {
	t := &TypeDescription{
		Name:        f.Name,
		Modifiers:   f.AccessFlags &^ classfile.AccSuper,
		Signature:   f.Signature,
		Annotations: f.Annotations,
	}
	if f.SuperName != "" {
		t.SuperClass = Class(f.SuperName)
	}
	for _, iface := range f.Interfaces {
		t.Interfaces = append(t.Interfaces, Class(iface))
	}
	for _, fd := range f.Fields {
		ft, err := ParseDescriptor(fd.Descriptor)
		if err != nil {
			return nil, &MetadataError{TypeName: f.Name, Reason: "bad field descriptor", Err: err}
		}
		t.Fields = append(t.Fields, FieldDescription{
			Name:        fd.Name,
			Modifiers:   fd.AccessFlags,
			Type:        ft,
			Signature:   fd.Signature,
			Annotations: fd.Annotations,
			DeclaredBy:  f.Name,
		})
	}
	for _, md := range f.Methods {
		params, ret, err := classfile.SplitMethodDescriptor(md.Descriptor)
		if err != nil {
			return nil, &MetadataError{TypeName: f.Name, Reason: "bad method descriptor", Err: err}
		}
		m := MethodDescription{
			Name:        md.Name,
			Modifiers:   md.AccessFlags,
			Signature:   md.Signature,
			Annotations: md.Annotations,
			DeclaredBy:  f.Name,
		}
		if m.Returns, err = ParseDescriptor(ret); err != nil {
			return nil, &MetadataError{TypeName: f.Name, Reason: "bad return descriptor", Err: err}
		}
		for _, p := range params {
			pt, err := ParseDescriptor(p)
			if err != nil {
				return nil, &MetadataError{TypeName: f.Name, Reason: "bad parameter descriptor", Err: err}
			}
			m.Parameters = append(m.Parameters, pt)
		}
		for _, ex := range md.Exceptions {
			m.Exceptions = append(m.Exceptions, Class(ex))
		}
		t.Methods = append(t.Methods, m)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}
