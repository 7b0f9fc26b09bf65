package classfile

import (
	"encoding/binary"
)

// Annotation is one runtime-visible annotation. Element values cover the
// constant kinds the composition engine attaches; nested annotations and
// class literals ride through richer encoders upstream.
type Annotation struct {
	TypeDescriptor string // e.g. "Lcom/example/Marker;"
	Elements       []AnnotationElement
}

// AnnotationElement is a single name/value pair of an annotation.
type AnnotationElement struct {
	Name string
	// Kind is the element_value tag: 's' string, 'I' int, 'Z' boolean,
	// 'J' long, 'e' enum.
	Kind   byte
	Text   string // string payload, or enum constant name
	Number int64  // numeric payload
	Enum   string // enum type descriptor for Kind 'e'
}

// annotationsAttr encodes a RuntimeVisibleAnnotations attribute. The second
// return is false when there is nothing to attach.
func (b *ClassBuilder) annotationsAttr(annotations []Annotation) (attribute, bool) {
	if len(annotations) == 0 {
		return attribute{}, false
	}
	data := make([]byte, 0, 8*len(annotations))
	data = binary.BigEndian.AppendUint16(data, uint16(len(annotations)))
	for _, an := range annotations {
		data = b.encodeAnnotation(data, an)
	}
	return attribute{nameIndex: b.pool.Utf8("RuntimeVisibleAnnotations"), data: data}, true
}

func (b *ClassBuilder) encodeAnnotation(data []byte, an Annotation) []byte {
	data = binary.BigEndian.AppendUint16(data, b.pool.Utf8(an.TypeDescriptor))
	data = binary.BigEndian.AppendUint16(data, uint16(len(an.Elements)))
	for _, el := range an.Elements {
		data = binary.BigEndian.AppendUint16(data, b.pool.Utf8(el.Name))
		data = append(data, el.Kind)
		switch el.Kind {
		case 's':
			data = binary.BigEndian.AppendUint16(data, b.pool.Utf8(el.Text))
		case 'I', 'Z':
			data = binary.BigEndian.AppendUint16(data, b.pool.Int(int32(el.Number)))
		case 'J':
			data = binary.BigEndian.AppendUint16(data, b.pool.Long(el.Number))
		case 'e':
			data = binary.BigEndian.AppendUint16(data, b.pool.Utf8(el.Enum))
			data = binary.BigEndian.AppendUint16(data, b.pool.Utf8(el.Text))
		}
	}
	return data
}
