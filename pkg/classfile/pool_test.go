package classfile

import (
	"encoding/binary"
	"strings"
	"testing"
)

func TestConstPoolDeduplicates(t *testing.T) {
	p := NewConstPool()

	a := p.Utf8("hello")
	b := p.Utf8("world")
	c := p.Utf8("hello")

	if a == b {
		t.Errorf("distinct strings share index %d", a)
	}
	if a != c {
		t.Errorf("duplicate Utf8 = %d, want %d", c, a)
	}
}

func TestConstPoolCompositeEntries(t *testing.T) {
	p := NewConstPool()

	m1 := p.Methodref("java/lang/Object", "toString", "()Ljava/lang/String;")
	m2 := p.Methodref("java/lang/Object", "toString", "()Ljava/lang/String;")
	if m1 != m2 {
		t.Errorf("duplicate Methodref = %d, want %d", m2, m1)
	}

	// Same name/descriptor under a different owner is a distinct entry,
	// but the shared NameAndType must be reused.
	before := p.Count()
	p.Methodref("java/lang/String", "toString", "()Ljava/lang/String;")
	after := p.Count()
	// Only owner Utf8 + Class + Methodref are new; NameAndType is shared.
	if after-before != 3 {
		t.Errorf("new entries for second owner = %d, want 3", after-before)
	}
}

func TestConstPoolWideConstantsTakeTwoSlots(t *testing.T) {
	p := NewConstPool()

	l := p.Long(1234567890123)
	next := p.Utf8("after")
	if next != l+2 {
		t.Errorf("index after long = %d, want %d", next, l+2)
	}

	if again := p.Long(1234567890123); again != l {
		t.Errorf("duplicate long = %d, want %d", again, l)
	}
}

func TestConstPoolRejectsOversizedUtf8(t *testing.T) {
	p := NewConstPool()

	p.Utf8(strings.Repeat("x", MaxUtf8Bytes+1))
	if err := p.Err(); err == nil {
		t.Fatal("Err() = nil for a string constant beyond the u16 length prefix")
	} else if !strings.Contains(err.Error(), "exceeds") {
		t.Errorf("Err() = %v, want length complaint", err)
	}

	// The longest representable string is still fine.
	q := NewConstPool()
	q.Utf8(strings.Repeat("x", MaxUtf8Bytes))
	if err := q.Err(); err != nil {
		t.Errorf("Err() = %v for a string of exactly %d bytes", err, MaxUtf8Bytes)
	}
}

func TestConstPoolEncode(t *testing.T) {
	p := NewConstPool()
	p.Utf8("Hi")
	p.Int(-1)

	data := p.Encode()
	if count := binary.BigEndian.Uint16(data); count != 3 {
		t.Fatalf("constant_pool_count = %d, want 3", count)
	}
	// entry 1: tag 1, length 2, "Hi"
	if data[2] != TagUtf8 || binary.BigEndian.Uint16(data[3:]) != 2 ||
		string(data[5:7]) != "Hi" {
		t.Errorf("Utf8 entry encoded as % X", data[2:7])
	}
	// entry 2: tag 3, value -1
	if data[7] != TagInteger || int32(binary.BigEndian.Uint32(data[8:])) != -1 {
		t.Errorf("Integer entry encoded as % X", data[7:12])
	}
}

func TestConstPoolNumericIdentity(t *testing.T) {
	p := NewConstPool()

	// 1 as int, long, float and double are four distinct entries.
	p.Int(1)
	p.Long(1)
	p.Float(1)
	p.Double(1)
	// 1 slot + 2 + 1 + 2 = 6 slots used.
	if p.Count() != 7 {
		t.Errorf("Count() = %d, want 7", p.Count())
	}
}
