package classfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// File is a parsed class file, with constant pool references already
// resolved to strings. It carries everything the metadata model needs to
// rebuild a type description from produced bytes.
type File struct {
	MinorVersion uint16
	MajorVersion uint16
	AccessFlags  uint16
	Name         string
	SuperName    string // "" for java/lang/Object
	Interfaces   []string
	Signature    string
	Annotations  []Annotation
	Fields       []Member
	Methods      []Member
}

// Member is a parsed field or method.
type Member struct {
	AccessFlags uint16
	Name        string
	Descriptor  string
	Signature   string
	Exceptions  []string
	Annotations []Annotation
	Code        *ParsedCode
}

// ParsedCode is the decoded Code attribute of a method.
type ParsedCode struct {
	MaxStack  uint16
	MaxLocals uint16
	Bytes     []byte
	StackMap  []byte // raw StackMapTable payload, nil when absent
}

// resolved constant pool entry
type parsedConst struct {
	tag  uint8
	text string
	num  uint64
	ref1 uint16
	ref2 uint16
}

type parser struct {
	data []byte
	pos  int
	pool []parsedConst
	err  error
}

// Parse decodes a class file. The parse is strict: truncated sections,
// unknown pool tags and dangling indices are errors, never defaults.
func Parse(data []byte) (*File, error) {
	p := &parser{data: data}
	if len(data) < 10 || !bytes.Equal(data[:4], Magic) {
		return nil, fmt.Errorf("classfile: bad magic")
	}
	p.pos = 4
	minor := p.u16()
	major := p.u16()
	if err := p.parsePool(); err != nil {
		return nil, err
	}

	f := &File{MinorVersion: minor, MajorVersion: major}
	f.AccessFlags = p.u16()
	var err error
	if f.Name, err = p.className(p.u16()); err != nil {
		return nil, err
	}
	superIdx := p.u16()
	if superIdx != 0 {
		if f.SuperName, err = p.className(superIdx); err != nil {
			return nil, err
		}
	}
	ifaceCount := p.u16()
	for i := 0; i < int(ifaceCount); i++ {
		name, err := p.className(p.u16())
		if err != nil {
			return nil, err
		}
		f.Interfaces = append(f.Interfaces, name)
	}

	if f.Fields, err = p.parseMembers(); err != nil {
		return nil, err
	}
	if f.Methods, err = p.parseMembers(); err != nil {
		return nil, err
	}

	attrCount := p.u16()
	for i := 0; i < int(attrCount); i++ {
		name, data, err := p.parseAttr()
		if err != nil {
			return nil, err
		}
		switch name {
		case "Signature":
			f.Signature, err = p.utf8(binary.BigEndian.Uint16(data))
		case "RuntimeVisibleAnnotations":
			f.Annotations, err = p.parseAnnotations(data)
		}
		if err != nil {
			return nil, err
		}
	}
	if p.err != nil {
		return nil, p.err
	}
	return f, nil
}

func (p *parser) parsePool() error {
	count := p.u16()
	p.pool = make([]parsedConst, count)
	for i := uint16(1); i < count; i++ {
		tag := p.u8()
		e := parsedConst{tag: tag}
		switch tag {
		case TagUtf8:
			length := p.u16()
			if p.pos+int(length) > len(p.data) {
				return fmt.Errorf("classfile: truncated Utf8 at pool index %d", i)
			}
			e.text = string(p.data[p.pos : p.pos+int(length)])
			p.pos += int(length)
		case TagInteger, TagFloat:
			e.num = uint64(p.u32())
		case TagLong, TagDouble:
			e.num = uint64(p.u32())<<32 | uint64(p.u32())
		case TagClass, TagString:
			e.ref1 = p.u16()
		case TagFieldref, TagMethodref, TagInterfaceMethodref, TagNameAndType:
			e.ref1 = p.u16()
			e.ref2 = p.u16()
		default:
			return fmt.Errorf("classfile: unsupported constant pool tag %d at index %d", tag, i)
		}
		p.pool[i] = e
		if tag == TagLong || tag == TagDouble {
			i++ // wide constants take two slots
		}
	}
	return p.err
}

func (p *parser) parseMembers() ([]Member, error) {
	count := p.u16()
	members := make([]Member, 0, count)
	for i := 0; i < int(count); i++ {
		var m Member
		m.AccessFlags = p.u16()
		var err error
		if m.Name, err = p.utf8(p.u16()); err != nil {
			return nil, err
		}
		if m.Descriptor, err = p.utf8(p.u16()); err != nil {
			return nil, err
		}
		attrCount := p.u16()
		for j := 0; j < int(attrCount); j++ {
			name, data, err := p.parseAttr()
			if err != nil {
				return nil, err
			}
			switch name {
			case "Signature":
				m.Signature, err = p.utf8(binary.BigEndian.Uint16(data))
			case "Exceptions":
				m.Exceptions, err = p.parseExceptions(data)
			case "RuntimeVisibleAnnotations":
				m.Annotations, err = p.parseAnnotations(data)
			case "Code":
				m.Code, err = p.parseCode(data)
			}
			if err != nil {
				return nil, err
			}
		}
		members = append(members, m)
	}
	return members, p.err
}

func (p *parser) parseAttr() (string, []byte, error) {
	name, err := p.utf8(p.u16())
	if err != nil {
		return "", nil, err
	}
	length := p.u32()
	if p.pos+int(length) > len(p.data) {
		return "", nil, fmt.Errorf("classfile: truncated attribute %q", name)
	}
	data := p.data[p.pos : p.pos+int(length)]
	p.pos += int(length)
	return name, data, nil
}

func (p *parser) parseExceptions(data []byte) ([]string, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("classfile: truncated Exceptions attribute")
	}
	count := binary.BigEndian.Uint16(data)
	out := make([]string, 0, count)
	for i := 0; i < int(count); i++ {
		if 2+2*i+2 > len(data) {
			return nil, fmt.Errorf("classfile: truncated Exceptions attribute")
		}
		name, err := p.className(binary.BigEndian.Uint16(data[2+2*i:]))
		if err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, nil
}

func (p *parser) parseCode(data []byte) (*ParsedCode, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("classfile: truncated Code attribute")
	}
	c := &ParsedCode{
		MaxStack:  binary.BigEndian.Uint16(data),
		MaxLocals: binary.BigEndian.Uint16(data[2:]),
	}
	codeLen := binary.BigEndian.Uint32(data[4:])
	if 8+int(codeLen) > len(data) {
		return nil, fmt.Errorf("classfile: truncated code section")
	}
	c.Bytes = data[8 : 8+codeLen]
	pos := 8 + int(codeLen)
	if pos+2 > len(data) {
		return nil, fmt.Errorf("classfile: truncated exception table")
	}
	exCount := binary.BigEndian.Uint16(data[pos:])
	pos += 2 + 8*int(exCount)
	if pos+2 > len(data) {
		return nil, fmt.Errorf("classfile: truncated code attributes")
	}
	attrCount := binary.BigEndian.Uint16(data[pos:])
	pos += 2
	for i := 0; i < int(attrCount); i++ {
		if pos+6 > len(data) {
			return nil, fmt.Errorf("classfile: truncated code attribute header")
		}
		name, err := p.utf8(binary.BigEndian.Uint16(data[pos:]))
		if err != nil {
			return nil, err
		}
		length := binary.BigEndian.Uint32(data[pos+2:])
		pos += 6
		if pos+int(length) > len(data) {
			return nil, fmt.Errorf("classfile: truncated code attribute %q", name)
		}
		if name == "StackMapTable" {
			c.StackMap = data[pos : pos+int(length)]
		}
		pos += int(length)
	}
	return c, nil
}

func (p *parser) parseAnnotations(data []byte) ([]Annotation, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("classfile: truncated annotations attribute")
	}
	count := binary.BigEndian.Uint16(data)
	pos := 2
	out := make([]Annotation, 0, count)
	for i := 0; i < int(count); i++ {
		an, next, err := p.parseAnnotation(data, pos)
		if err != nil {
			return nil, err
		}
		out = append(out, an)
		pos = next
	}
	return out, nil
}

func (p *parser) parseAnnotation(data []byte, pos int) (Annotation, int, error) {
	var an Annotation
	if pos+4 > len(data) {
		return an, 0, fmt.Errorf("classfile: truncated annotation")
	}
	typeDesc, err := p.utf8(binary.BigEndian.Uint16(data[pos:]))
	if err != nil {
		return an, 0, err
	}
	an.TypeDescriptor = typeDesc
	pairs := binary.BigEndian.Uint16(data[pos+2:])
	pos += 4
	for j := 0; j < int(pairs); j++ {
		if pos+3 > len(data) {
			return an, 0, fmt.Errorf("classfile: truncated annotation element")
		}
		var el AnnotationElement
		if el.Name, err = p.utf8(binary.BigEndian.Uint16(data[pos:])); err != nil {
			return an, 0, err
		}
		el.Kind = data[pos+2]
		pos += 3
		switch el.Kind {
		case 's':
			if el.Text, err = p.utf8(binary.BigEndian.Uint16(data[pos:])); err != nil {
				return an, 0, err
			}
			pos += 2
		case 'I', 'Z':
			idx := binary.BigEndian.Uint16(data[pos:])
			if int(idx) >= len(p.pool) {
				return an, 0, fmt.Errorf("classfile: dangling pool index %d", idx)
			}
			el.Number = int64(int32(uint32(p.pool[idx].num)))
			pos += 2
		case 'J':
			idx := binary.BigEndian.Uint16(data[pos:])
			if int(idx) >= len(p.pool) {
				return an, 0, fmt.Errorf("classfile: dangling pool index %d", idx)
			}
			el.Number = int64(p.pool[idx].num)
			pos += 2
		case 'e':
			if el.Enum, err = p.utf8(binary.BigEndian.Uint16(data[pos:])); err != nil {
				return an, 0, err
			}
			if el.Text, err = p.utf8(binary.BigEndian.Uint16(data[pos+2:])); err != nil {
				return an, 0, err
			}
			pos += 4
		default:
			return an, 0, fmt.Errorf("classfile: unsupported element_value tag %q", el.Kind)
		}
		an.Elements = append(an.Elements, el)
	}
	return an, pos, nil
}

func (p *parser) utf8(index uint16) (string, error) {
	if int(index) >= len(p.pool) || p.pool[index].tag != TagUtf8 {
		return "", fmt.Errorf("classfile: pool index %d is not a Utf8 entry", index)
	}
	return p.pool[index].text, nil
}

func (p *parser) className(index uint16) (string, error) {
	if int(index) >= len(p.pool) || p.pool[index].tag != TagClass {
		return "", fmt.Errorf("classfile: pool index %d is not a Class entry", index)
	}
	return p.utf8(p.pool[index].ref1)
}

// CountPoolDuplicates parses a class file and reports how many constant
// pool entries are structural duplicates of an earlier entry. A writer with
// working deduplication always yields zero.
func CountPoolDuplicates(data []byte) (int, error) {
	p := &parser{data: data}
	if len(data) < 10 || !bytes.Equal(data[:4], Magic) {
		return 0, fmt.Errorf("classfile: bad magic")
	}
	p.pos = 8
	if err := p.parsePool(); err != nil {
		return 0, err
	}
	seen := make(map[parsedConst]bool)
	duplicates := 0
	for i := 1; i < len(p.pool); i++ {
		e := p.pool[i]
		if e.tag == 0 {
			continue // second slot of a wide constant
		}
		if seen[e] {
			duplicates++
		}
		seen[e] = true
	}
	return duplicates, nil
}

func (p *parser) u8() uint8 {
	if p.pos >= len(p.data) {
		p.failTruncated()
		return 0
	}
	v := p.data[p.pos]
	p.pos++
	return v
}

func (p *parser) u16() uint16 {
	if p.pos+2 > len(p.data) {
		p.failTruncated()
		return 0
	}
	v := binary.BigEndian.Uint16(p.data[p.pos:])
	p.pos += 2
	return v
}

func (p *parser) u32() uint32 {
	if p.pos+4 > len(p.data) {
		p.failTruncated()
		return 0
	}
	v := binary.BigEndian.Uint32(p.data[p.pos:])
	p.pos += 4
	return v
}

var errTruncated = fmt.Errorf("classfile: unexpected end of class file")

func (p *parser) failTruncated() {
	if p.err == nil {
		p.err = errTruncated
	}
}
