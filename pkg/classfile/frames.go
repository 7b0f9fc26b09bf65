package classfile

import (
	"encoding/binary"
	"fmt"
)

// VerifTag is a verification type tag as encoded in StackMapTable entries.
type VerifTag uint8

const (
	VTTop       VerifTag = 0
	VTInt       VerifTag = 1
	VTFloat     VerifTag = 2
	VTDouble    VerifTag = 3
	VTLong      VerifTag = 4
	VTNull      VerifTag = 5
	VTUninitThis VerifTag = 6
	VTObject    VerifTag = 7
	VTUninit    VerifTag = 8
)

// VerifType is one verification type: the unit of stack map frame content.
type VerifType struct {
	Tag    VerifTag
	Class  string // internal name, only for VTObject
	Offset uint16 // new-instruction offset, only for VTUninit
}

// Convenience constructors for the common verification types.
var (
	vtTop    = VerifType{Tag: VTTop}
	vtInt    = VerifType{Tag: VTInt}
	vtFloat  = VerifType{Tag: VTFloat}
	vtLong   = VerifType{Tag: VTLong}
	vtDouble = VerifType{Tag: VTDouble}
	vtNull   = VerifType{Tag: VTNull}
)

func vtObject(internalName string) VerifType {
	return VerifType{Tag: VTObject, Class: internalName}
}

// verifTypeOf maps a field descriptor to its verification type.
func verifTypeOf(fieldDesc string) VerifType {
	switch fieldDesc[0] {
	case 'B', 'C', 'I', 'S', 'Z':
		return vtInt
	case 'F':
		return vtFloat
	case 'J':
		return vtLong
	case 'D':
		return vtDouble
	default:
		return vtObject(descriptorClassName(fieldDesc))
	}
}

// wide reports whether the type occupies two slots.
func (v VerifType) wide() bool {
	return v.Tag == VTLong || v.Tag == VTDouble
}

func (v VerifType) String() string {
	switch v.Tag {
	case VTTop:
		return "top"
	case VTInt:
		return "int"
	case VTFloat:
		return "float"
	case VTDouble:
		return "double"
	case VTLong:
		return "long"
	case VTNull:
		return "null"
	case VTUninitThis:
		return "uninitializedThis"
	case VTObject:
		return v.Class
	case VTUninit:
		return fmt.Sprintf("uninitialized(%d)", v.Offset)
	}
	return fmt.Sprintf("VerifType(%d)", v.Tag)
}

// frame is the symbolic verification state at one code position. Locals are
// slot-based: a long or double occupies its slot plus a following top slot.
type frame struct {
	locals []VerifType
	stack  []VerifType
}

func (f *frame) clone() *frame {
	c := &frame{
		locals: make([]VerifType, len(f.locals)),
		stack:  make([]VerifType, len(f.stack)),
	}
	copy(c.locals, f.locals)
	copy(c.stack, f.stack)
	return c
}

func (f *frame) push(v VerifType) {
	f.stack = append(f.stack, v)
	if v.wide() {
		f.stack = append(f.stack, vtTop)
	}
}

func (f *frame) pop() (VerifType, error) {
	if len(f.stack) == 0 {
		return vtTop, fmt.Errorf("operand stack underflow")
	}
	v := f.stack[len(f.stack)-1]
	f.stack = f.stack[:len(f.stack)-1]
	if v.Tag == VTTop && len(f.stack) > 0 && f.stack[len(f.stack)-1].wide() {
		v = f.stack[len(f.stack)-1]
		f.stack = f.stack[:len(f.stack)-1]
	}
	return v, nil
}

func (f *frame) setLocal(slot int, v VerifType) {
	need := slot + 1
	if v.wide() {
		need = slot + 2
	}
	for len(f.locals) < need {
		f.locals = append(f.locals, vtTop)
	}
	f.locals[slot] = v
	if v.wide() {
		f.locals[slot+1] = vtTop
	}
}

func (f *frame) local(slot int) (VerifType, error) {
	if slot >= len(f.locals) {
		return vtTop, fmt.Errorf("read of undefined local %d", slot)
	}
	v := f.locals[slot]
	if v.Tag == VTTop {
		return vtTop, fmt.Errorf("read of undefined local %d", slot)
	}
	return v, nil
}

// mergeTypes computes the least common verification type of two values.
// Reference types merge toward java/lang/Object without hierarchy knowledge;
// a primitive mismatch is unmergeable and reported by ok=false.
func mergeTypes(a, b VerifType) (VerifType, bool) {
	if a == b {
		return a, true
	}
	aRef := a.Tag == VTObject || a.Tag == VTNull
	bRef := b.Tag == VTObject || b.Tag == VTNull
	if aRef && bRef {
		if a.Tag == VTNull {
			return b, true
		}
		if b.Tag == VTNull {
			return a, true
		}
		return vtObject("java/lang/Object"), true
	}
	return vtTop, false
}

// merge folds other into f. Local mismatches degrade to top, which is always
// sound; stack mismatches cannot be represented and are an error.
func (f *frame) merge(other *frame) error {
	if len(f.stack) != len(other.stack) {
		return fmt.Errorf("stack height mismatch at merge point: %d vs %d",
			len(f.stack), len(other.stack))
	}
	for i := range f.stack {
		merged, ok := mergeTypes(f.stack[i], other.stack[i])
		if !ok {
			return fmt.Errorf("unmergeable stack types %s and %s at depth %d",
				f.stack[i], other.stack[i], i)
		}
		f.stack[i] = merged
	}
	if len(other.locals) < len(f.locals) {
		f.locals = f.locals[:len(other.locals)]
	}
	for i := range f.locals {
		merged, ok := mergeTypes(f.locals[i], other.locals[i])
		if !ok {
			merged = vtTop
		}
		f.locals[i] = merged
	}
	return nil
}

// compress converts slot-based types to the per-variable form frames are
// encoded in: a wide type swallows its top slot, trailing tops are dropped.
func compress(slots []VerifType) []VerifType {
	var out []VerifType
	for i := 0; i < len(slots); i++ {
		v := slots[i]
		out = append(out, v)
		if v.wide() {
			i++ // skip the implicit top half
		}
	}
	for len(out) > 0 && out[len(out)-1].Tag == VTTop {
		out = out[:len(out)-1]
	}
	return out
}

func typesEqual(a, b []VerifType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func encodeVerifType(buf []byte, v VerifType, pool *ConstPool) []byte {
	buf = append(buf, byte(v.Tag))
	switch v.Tag {
	case VTObject:
		buf = binary.BigEndian.AppendUint16(buf, pool.Class(v.Class))
	case VTUninit:
		buf = binary.BigEndian.AppendUint16(buf, v.Offset)
	}
	return buf
}

// stackFrame is a computed frame pinned to a bytecode offset.
type stackFrame struct {
	offset int
	locals []VerifType // per-variable form
	stack  []VerifType // per-value form
}

// encodeStackMapTable produces the StackMapTable attribute payload (without
// the attribute header) for the given frames, which must be sorted by
// offset. entryLocals is the implicit frame at method entry in per-variable
// form; it is the baseline for the first frame's compression.
func encodeStackMapTable(frames []stackFrame, entryLocals []VerifType, pool *ConstPool) []byte {
	buf := make([]byte, 0, 16+len(frames)*4)
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(frames)))

	prevLocals := entryLocals
	prevOffset := -1
	for _, fr := range frames {
		delta := fr.offset - prevOffset - 1
		sameLocals := typesEqual(fr.locals, prevLocals)

		switch {
		case sameLocals && len(fr.stack) == 0 && delta <= 63:
			buf = append(buf, byte(delta)) // same_frame
		case sameLocals && len(fr.stack) == 1 && delta <= 63:
			buf = append(buf, byte(64+delta)) // same_locals_1_stack_item
			buf = encodeVerifType(buf, fr.stack[0], pool)
		case sameLocals && len(fr.stack) == 1:
			buf = append(buf, 247) // same_locals_1_stack_item_extended
			buf = binary.BigEndian.AppendUint16(buf, uint16(delta))
			buf = encodeVerifType(buf, fr.stack[0], pool)
		case sameLocals && len(fr.stack) == 0:
			buf = append(buf, 251) // same_frame_extended
			buf = binary.BigEndian.AppendUint16(buf, uint16(delta))
		case len(fr.stack) == 0 && isChop(prevLocals, fr.locals):
			buf = append(buf, byte(251-(len(prevLocals)-len(fr.locals)))) // chop_frame
			buf = binary.BigEndian.AppendUint16(buf, uint16(delta))
		case len(fr.stack) == 0 && isAppend(prevLocals, fr.locals):
			buf = append(buf, byte(251+(len(fr.locals)-len(prevLocals)))) // append_frame
			buf = binary.BigEndian.AppendUint16(buf, uint16(delta))
			for _, v := range fr.locals[len(prevLocals):] {
				buf = encodeVerifType(buf, v, pool)
			}
		default:
			buf = append(buf, 255) // full_frame
			buf = binary.BigEndian.AppendUint16(buf, uint16(delta))
			buf = binary.BigEndian.AppendUint16(buf, uint16(len(fr.locals)))
			for _, v := range fr.locals {
				buf = encodeVerifType(buf, v, pool)
			}
			buf = binary.BigEndian.AppendUint16(buf, uint16(len(fr.stack)))
			for _, v := range fr.stack {
				buf = encodeVerifType(buf, v, pool)
			}
		}

		prevLocals = fr.locals
		prevOffset = fr.offset
	}
	return buf
}

func isChop(prev, cur []VerifType) bool {
	n := len(prev) - len(cur)
	return n >= 1 && n <= 3 && typesEqual(prev[:len(cur)], cur)
}

func isAppend(prev, cur []VerifType) bool {
	n := len(cur) - len(prev)
	return n >= 1 && n <= 3 && typesEqual(cur[:len(prev)], prev)
}
