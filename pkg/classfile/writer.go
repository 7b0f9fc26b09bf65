package classfile

import (
	"encoding/binary"
)

// attribute is an encoded attribute ready for serialization.
type attribute struct {
	nameIndex uint16
	data      []byte
}

type memberInfo struct {
	access     uint16
	name       string
	descriptor string
	attrs      []attribute
}

// ClassBuilder assembles one complete class file. Members are added in
// order; Build validates structural invariants and produces the final bytes
// in one shot, so a failed build never leaves partial output behind.
type ClassBuilder struct {
	pool       *ConstPool
	minor      uint16
	major      uint16
	access     uint16
	name       string
	superName  string
	interfaces []string
	fields     []memberInfo
	methods    []memberInfo
	attrs      []attribute
	members    map[string]bool // "name descriptor" duplicates guard
	err        *WriteError
}

// NewClassBuilder starts a class file for the given internal name. The
// major/minor version pair is a configuration input, never inferred.
func NewClassBuilder(name, superName string, access uint16, major, minor uint16) *ClassBuilder {
	if access&AccInterface == 0 {
		access |= AccSuper
	}
	return &ClassBuilder{
		pool:      NewConstPool(),
		minor:     minor,
		major:     major,
		access:    access,
		name:      name,
		superName: superName,
		members:   make(map[string]bool),
	}
}

// Pool exposes the builder's constant pool so code assemblers share it.
func (b *ClassBuilder) Pool() *ConstPool {
	return b.pool
}

// Name returns the internal name of the class under construction.
func (b *ClassBuilder) Name() string {
	return b.name
}

// Major returns the configured major version.
func (b *ClassBuilder) Major() uint16 {
	return b.major
}

func (b *ClassBuilder) fail(member, desc, format string, args ...any) {
	if b.err == nil {
		b.err = writeErrf(b.name, member, desc, format, args...)
	}
}

// AddInterface records an implemented interface by internal name.
func (b *ClassBuilder) AddInterface(name string) {
	b.interfaces = append(b.interfaces, name)
}

// SetSignature attaches a class-level generic signature. The empty string is
// the non-generic sentinel and attaches nothing.
func (b *ClassBuilder) SetSignature(signature string) {
	if signature == "" {
		return
	}
	b.attrs = append(b.attrs, b.signatureAttr(signature))
}

// SetAnnotations attaches class-level runtime-visible annotations.
func (b *ClassBuilder) SetAnnotations(annotations []Annotation) {
	if attr, ok := b.annotationsAttr(annotations); ok {
		b.attrs = append(b.attrs, attr)
	}
}

func (b *ClassBuilder) signatureAttr(signature string) attribute {
	data := make([]byte, 2)
	binary.BigEndian.PutUint16(data, b.pool.Utf8(signature))
	return attribute{nameIndex: b.pool.Utf8("Signature"), data: data}
}

// AddField appends a field. Duplicate (name, descriptor) pairs and invalid
// modifier combinations are structural errors surfaced by Build.
func (b *ClassBuilder) AddField(access uint16, name, descriptor, signature string, annotations []Annotation) {
	key := name + " " + descriptor
	if b.members[key] {
		b.fail(name, descriptor, "duplicate field")
		return
	}
	b.members[key] = true
	if access&AccFinal != 0 && access&AccVolatile != 0 {
		b.fail(name, descriptor, "field is both final and volatile")
		return
	}
	m := memberInfo{access: access, name: name, descriptor: descriptor}
	if signature != "" {
		m.attrs = append(m.attrs, b.signatureAttr(signature))
	}
	if attr, ok := b.annotationsAttr(annotations); ok {
		m.attrs = append(m.attrs, attr)
	}
	b.fields = append(b.fields, m)
}

// AddMethod appends a method. A nil body marks the method abstract or
// native; anything else must carry assembled code.
func (b *ClassBuilder) AddMethod(access uint16, name, descriptor, signature string, exceptions []string, body *Code, annotations []Annotation) {
	key := name + " " + descriptor
	if b.members[key] {
		b.fail(name, descriptor, "duplicate method")
		return
	}
	b.members[key] = true
	abstract := access&AccAbstract != 0
	native := access&AccNative != 0
	switch {
	case abstract && access&(AccFinal|AccStatic|AccPrivate) != 0:
		b.fail(name, descriptor, "abstract method carries final, static or private")
		return
	case abstract && body != nil:
		b.fail(name, descriptor, "abstract method with a code attribute")
		return
	case !abstract && !native && body == nil:
		b.fail(name, descriptor, "concrete method without a code attribute")
		return
	}

	m := memberInfo{access: access, name: name, descriptor: descriptor}
	if body != nil {
		m.attrs = append(m.attrs, b.codeAttr(body))
	}
	if len(exceptions) > 0 {
		data := make([]byte, 2+2*len(exceptions))
		binary.BigEndian.PutUint16(data, uint16(len(exceptions)))
		for i, ex := range exceptions {
			binary.BigEndian.PutUint16(data[2+2*i:], b.pool.Class(ex))
		}
		m.attrs = append(m.attrs, attribute{nameIndex: b.pool.Utf8("Exceptions"), data: data})
	}
	if signature != "" {
		m.attrs = append(m.attrs, b.signatureAttr(signature))
	}
	if attr, ok := b.annotationsAttr(annotations); ok {
		m.attrs = append(m.attrs, attr)
	}
	b.methods = append(b.methods, m)
}

func (b *ClassBuilder) codeAttr(body *Code) attribute {
	data := make([]byte, 0, 12+len(body.Bytes)+len(body.StackMap))
	data = binary.BigEndian.AppendUint16(data, uint16(body.MaxStack))
	data = binary.BigEndian.AppendUint16(data, uint16(body.MaxLocals))
	data = binary.BigEndian.AppendUint32(data, uint32(len(body.Bytes)))
	data = append(data, body.Bytes...)
	data = binary.BigEndian.AppendUint16(data, 0) // exception_table_length

	// StackMapTable is version-gated: before major 50 the verifier does not
	// read it and it must not appear.
	if body.StackMap != nil && b.major >= Java6 {
		data = binary.BigEndian.AppendUint16(data, 1)
		data = binary.BigEndian.AppendUint16(data, b.pool.Utf8("StackMapTable"))
		data = binary.BigEndian.AppendUint32(data, uint32(len(body.StackMap)))
		data = append(data, body.StackMap...)
	} else {
		data = binary.BigEndian.AppendUint16(data, 0)
	}
	return attribute{nameIndex: b.pool.Utf8("Code"), data: data}
}

// Build serializes the class file. All validation errors collected during
// construction surface here; on error no bytes are returned.
func (b *ClassBuilder) Build() ([]byte, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.access&AccInterface != 0 && b.access&AccAbstract == 0 {
		return nil, writeErrf(b.name, "", "", "interface without abstract flag")
	}
	if len(b.fields) > MaxMembers || len(b.methods) > MaxMembers {
		return nil, writeErrf(b.name, "", "", "too many members")
	}

	// Resolve all pool indices before encoding the pool itself: attribute
	// payloads already interned everything they reference, this pins the
	// class hierarchy entries.
	thisClass := b.pool.Class(b.name)
	superClass := uint16(0)
	if b.superName != "" {
		superClass = b.pool.Class(b.superName)
	}
	ifaces := make([]uint16, len(b.interfaces))
	for i, name := range b.interfaces {
		ifaces[i] = b.pool.Class(name)
	}
	fields, err := b.encodeMembers(b.fields)
	if err != nil {
		return nil, err
	}
	methods, err := b.encodeMembers(b.methods)
	if err != nil {
		return nil, err
	}
	classAttrs := encodeAttrs(b.attrs)

	if b.pool.Full() {
		return nil, writeErrf(b.name, "", "", "constant pool exceeds %d entries", MaxPoolEntries)
	}
	if err := b.pool.Err(); err != nil {
		return nil, writeErrf(b.name, "", "", "%v", err)
	}

	buf := make([]byte, 0, 256)
	buf = append(buf, Magic...)
	buf = binary.BigEndian.AppendUint16(buf, b.minor)
	buf = binary.BigEndian.AppendUint16(buf, b.major)
	buf = append(buf, b.pool.Encode()...)
	buf = binary.BigEndian.AppendUint16(buf, b.access)
	buf = binary.BigEndian.AppendUint16(buf, thisClass)
	buf = binary.BigEndian.AppendUint16(buf, superClass)
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(ifaces)))
	for _, idx := range ifaces {
		buf = binary.BigEndian.AppendUint16(buf, idx)
	}
	buf = append(buf, fields...)
	buf = append(buf, methods...)
	buf = append(buf, classAttrs...)
	return buf, nil
}

func (b *ClassBuilder) encodeMembers(members []memberInfo) ([]byte, error) {
	buf := make([]byte, 0, 64)
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(members)))
	for _, m := range members {
		buf = binary.BigEndian.AppendUint16(buf, m.access)
		buf = binary.BigEndian.AppendUint16(buf, b.pool.Utf8(m.name))
		buf = binary.BigEndian.AppendUint16(buf, b.pool.Utf8(m.descriptor))
		buf = append(buf, encodeAttrs(m.attrs)...)
	}
	return buf, nil
}

func encodeAttrs(attrs []attribute) []byte {
	buf := make([]byte, 0, 8)
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(attrs)))
	for _, a := range attrs {
		buf = binary.BigEndian.AppendUint16(buf, a.nameIndex)
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(a.data)))
		buf = append(buf, a.data...)
	}
	return buf
}
