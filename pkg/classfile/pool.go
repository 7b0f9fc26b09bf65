package classfile

import (
	"encoding/binary"
	"fmt"
	"math"
)

// poolKey is the structural identity of a constant pool entry. Two requests
// with the same key always resolve to the same index.
type poolKey struct {
	tag uint8
	s   string // utf8 text, class name, or "owner\x00name\x00desc" composites
	num uint64 // numeric payload bits
}

// ConstPool builds a class file constant pool with structural deduplication.
// Entries are append-only: an index, once assigned, is stable for the
// lifetime of the pool. The pool is 1-indexed; long and double entries
// occupy two slots, as the format requires.
type ConstPool struct {
	entries []poolEntry
	index   map[poolKey]uint16
	next    uint16 // next index to assign
	err     error  // first structural violation seen while interning
}

type poolEntry struct {
	tag      uint8
	text     string // Utf8 payload
	num      uint64 // numeric payload
	ref1     uint16 // first index operand
	ref2     uint16 // second index operand
}

// NewConstPool creates an empty constant pool.
func NewConstPool() *ConstPool {
	return &ConstPool{
		index: make(map[poolKey]uint16),
		next:  1,
	}
}

// Count returns the constant_pool_count value: number of slots plus one.
func (p *ConstPool) Count() uint16 {
	return p.next
}

// Full reports whether the pool cannot accept further entries.
func (p *ConstPool) Full() bool {
	return int(p.next) > MaxPoolEntries
}

// Err returns the first structural violation recorded while interning, or
// nil. Callers that encode the pool must check it before trusting Encode's
// output.
func (p *ConstPool) Err() error {
	return p.err
}

// Classes returns the internal names of every CONSTANT_Class entry, in
// pool order.
func (p *ConstPool) Classes() []string {
	var out []string
	for _, e := range p.entries {
		if e.tag == TagClass {
			out = append(out, e.text)
		}
	}
	return out
}

func (p *ConstPool) add(key poolKey, e poolEntry, slots uint16) uint16 {
	if idx, ok := p.index[key]; ok {
		return idx
	}
	idx := p.next
	p.entries = append(p.entries, e)
	p.index[key] = idx
	p.next += slots
	return idx
}

// Utf8 interns a string entry. The length prefix is u16, so text longer
// than MaxUtf8Bytes cannot be represented; it latches an error that Err
// reports instead of truncating. Bytes are written as Go UTF-8, not the
// JVM's modified form: NUL bytes and supplementary characters are not
// remapped to the two-byte / surrogate-pair encodings.
func (p *ConstPool) Utf8(s string) uint16 {
	if len(s) > MaxUtf8Bytes && p.err == nil {
		p.err = fmt.Errorf("string constant of %d bytes exceeds %d", len(s), MaxUtf8Bytes)
	}
	return p.add(poolKey{tag: TagUtf8, s: s}, poolEntry{tag: TagUtf8, text: s}, 1)
}

// Class interns a CONSTANT_Class entry for an internal binary name
// (e.g. "java/lang/Object" or "[Ljava/lang/String;").
func (p *ConstPool) Class(internalName string) uint16 {
	name := p.Utf8(internalName)
	return p.add(poolKey{tag: TagClass, s: internalName},
		poolEntry{tag: TagClass, text: internalName, ref1: name}, 1)
}

// String interns a CONSTANT_String entry.
func (p *ConstPool) String(s string) uint16 {
	utf8 := p.Utf8(s)
	return p.add(poolKey{tag: TagString, s: s},
		poolEntry{tag: TagString, ref1: utf8}, 1)
}

// Int interns a CONSTANT_Integer entry.
func (p *ConstPool) Int(v int32) uint16 {
	bits := uint64(uint32(v))
	return p.add(poolKey{tag: TagInteger, num: bits},
		poolEntry{tag: TagInteger, num: bits}, 1)
}

// Float interns a CONSTANT_Float entry. NaNs are canonicalized by their bit
// pattern so structurally identical values share one slot.
func (p *ConstPool) Float(v float32) uint16 {
	bits := uint64(math.Float32bits(v))
	return p.add(poolKey{tag: TagFloat, num: bits},
		poolEntry{tag: TagFloat, num: bits}, 1)
}

// Long interns a CONSTANT_Long entry. Takes two pool slots.
func (p *ConstPool) Long(v int64) uint16 {
	bits := uint64(v)
	return p.add(poolKey{tag: TagLong, num: bits},
		poolEntry{tag: TagLong, num: bits}, 2)
}

// Double interns a CONSTANT_Double entry. Takes two pool slots.
func (p *ConstPool) Double(v float64) uint16 {
	bits := math.Float64bits(v)
	return p.add(poolKey{tag: TagDouble, num: bits},
		poolEntry{tag: TagDouble, num: bits}, 2)
}

func composite(parts ...string) string {
	out := parts[0]
	for _, s := range parts[1:] {
		out += "\x00" + s
	}
	return out
}

// NameAndType interns a CONSTANT_NameAndType entry.
func (p *ConstPool) NameAndType(name, descriptor string) uint16 {
	n := p.Utf8(name)
	d := p.Utf8(descriptor)
	return p.add(poolKey{tag: TagNameAndType, s: composite(name, descriptor)},
		poolEntry{tag: TagNameAndType, ref1: n, ref2: d}, 1)
}

// Fieldref interns a CONSTANT_Fieldref entry.
func (p *ConstPool) Fieldref(owner, name, descriptor string) uint16 {
	c := p.Class(owner)
	nat := p.NameAndType(name, descriptor)
	return p.add(poolKey{tag: TagFieldref, s: composite(owner, name, descriptor)},
		poolEntry{tag: TagFieldref, ref1: c, ref2: nat}, 1)
}

// Methodref interns a CONSTANT_Methodref entry.
func (p *ConstPool) Methodref(owner, name, descriptor string) uint16 {
	c := p.Class(owner)
	nat := p.NameAndType(name, descriptor)
	return p.add(poolKey{tag: TagMethodref, s: composite(owner, name, descriptor)},
		poolEntry{tag: TagMethodref, ref1: c, ref2: nat}, 1)
}

// InterfaceMethodref interns a CONSTANT_InterfaceMethodref entry.
func (p *ConstPool) InterfaceMethodref(owner, name, descriptor string) uint16 {
	c := p.Class(owner)
	nat := p.NameAndType(name, descriptor)
	return p.add(poolKey{tag: TagInterfaceMethodref, s: composite(owner, name, descriptor)},
		poolEntry{tag: TagInterfaceMethodref, ref1: c, ref2: nat}, 1)
}

// Encode serializes the pool, count prefix included.
func (p *ConstPool) Encode() []byte {
	buf := make([]byte, 0, 64+len(p.entries)*8)
	buf = binary.BigEndian.AppendUint16(buf, p.next)
	for _, e := range p.entries {
		buf = append(buf, e.tag)
		switch e.tag {
		case TagUtf8:
			buf = binary.BigEndian.AppendUint16(buf, uint16(len(e.text)))
			buf = append(buf, e.text...)
		case TagInteger, TagFloat:
			buf = binary.BigEndian.AppendUint32(buf, uint32(e.num))
		case TagLong, TagDouble:
			buf = binary.BigEndian.AppendUint64(buf, e.num)
		case TagClass, TagString:
			buf = binary.BigEndian.AppendUint16(buf, e.ref1)
		case TagFieldref, TagMethodref, TagInterfaceMethodref, TagNameAndType:
			buf = binary.BigEndian.AppendUint16(buf, e.ref1)
			buf = binary.BigEndian.AppendUint16(buf, e.ref2)
		}
	}
	return buf
}
