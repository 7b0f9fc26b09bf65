package classfile

import "fmt"

// Magic is the class-file magic number, 0xCAFEBABE.
var Magic = []byte{0xCA, 0xFE, 0xBA, 0xBE}

// Class-file major versions for the Java releases this writer targets.
// Stack map frames are mandatory from Java6 (major 50) onward.
const (
	Java5  uint16 = 49
	Java6  uint16 = 50
	Java7  uint16 = 51
	Java8  uint16 = 52
	Java11 uint16 = 55
	Java17 uint16 = 61
	Java21 uint16 = 65
)

// Access flags for classes, fields and methods.
const (
	AccPublic       uint16 = 0x0001
	AccPrivate      uint16 = 0x0002
	AccProtected    uint16 = 0x0004
	AccStatic       uint16 = 0x0008
	AccFinal        uint16 = 0x0010
	AccSuper        uint16 = 0x0020 // classes
	AccSynchronized uint16 = 0x0020 // methods
	AccVolatile     uint16 = 0x0040 // fields
	AccBridge       uint16 = 0x0040 // methods
	AccTransient    uint16 = 0x0080 // fields
	AccVarargs      uint16 = 0x0080 // methods
	AccNative       uint16 = 0x0100
	AccInterface    uint16 = 0x0200
	AccAbstract     uint16 = 0x0400
	AccStrict       uint16 = 0x0800
	AccSynthetic    uint16 = 0x1000
	AccAnnotation   uint16 = 0x2000
	AccEnum         uint16 = 0x4000
)

// Constant pool tags.
const (
	TagUtf8               uint8 = 1
	TagInteger            uint8 = 3
	TagFloat              uint8 = 4
	TagLong               uint8 = 5
	TagDouble             uint8 = 6
	TagClass              uint8 = 7
	TagString             uint8 = 8
	TagFieldref           uint8 = 9
	TagMethodref          uint8 = 10
	TagInterfaceMethodref uint8 = 11
	TagNameAndType        uint8 = 12
)

// Hard structural limits of the format.
const (
	MaxPoolEntries = 0xFFFE  // constant_pool_count is u16 and 1-indexed
	MaxCodeLength  = 0xFFFF  // u16 offsets in exception table and frames
	MaxMembers     = 0xFFFF
	MaxUtf8Bytes   = 0xFFFF  // Utf8 entry length prefix is u16
)

// WriteError reports a structural violation detected while producing a class
// file. Emission is all-or-nothing: once a WriteError is reported no bytes
// from the failed artifact are usable.
type WriteError struct {
	ClassName  string // binary name of the class being written
	Member     string // offending member name, if any
	Descriptor string // offending member descriptor, if any
	Reason     string
}

func (e *WriteError) Error() string {
	if e.Member != "" {
		return fmt.Sprintf("classfile: %s.%s%s: %s", e.ClassName, e.Member, e.Descriptor, e.Reason)
	}
	return fmt.Sprintf("classfile: %s: %s", e.ClassName, e.Reason)
}

func writeErrf(class, member, desc, format string, args ...any) *WriteError {
	return &WriteError{
		ClassName:  class,
		Member:     member,
		Descriptor: desc,
		Reason:     fmt.Sprintf(format, args...),
	}
}
