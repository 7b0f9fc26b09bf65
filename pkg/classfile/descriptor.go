package classfile

import "fmt"

// SplitMethodDescriptor splits a method descriptor like "(ILjava/lang/String;)V"
// into its parameter field descriptors and return descriptor.
func SplitMethodDescriptor(desc string) (params []string, ret string, err error) {
	if len(desc) < 3 || desc[0] != '(' {
		return nil, "", fmt.Errorf("classfile: malformed method descriptor %q", desc)
	}
	i := 1
	for i < len(desc) && desc[i] != ')' {
		start := i
		for i < len(desc) && desc[i] == '[' {
			i++
		}
		if i >= len(desc) {
			return nil, "", fmt.Errorf("classfile: malformed method descriptor %q", desc)
		}
		switch desc[i] {
		case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z':
			i++
		case 'L':
			for i < len(desc) && desc[i] != ';' {
				i++
			}
			if i >= len(desc) {
				return nil, "", fmt.Errorf("classfile: unterminated object type in %q", desc)
			}
			i++
		default:
			return nil, "", fmt.Errorf("classfile: bad type char %q in descriptor %q", desc[i], desc)
		}
		params = append(params, desc[start:i])
	}
	if i >= len(desc) || desc[i] != ')' || i+1 >= len(desc) {
		return nil, "", fmt.Errorf("classfile: malformed method descriptor %q", desc)
	}
	return params, desc[i+1:], nil
}

// SlotSize returns the number of local/stack slots a value of the given
// field descriptor occupies: 2 for long and double, 1 otherwise, 0 for void.
func SlotSize(fieldDesc string) int {
	switch fieldDesc {
	case "V":
		return 0
	case "J", "D":
		return 2
	}
	return 1
}

// ArgSlots returns the total local-variable slots consumed by a method's
// parameters, excluding the receiver.
func ArgSlots(methodDesc string) (int, error) {
	params, _, err := SplitMethodDescriptor(methodDesc)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, p := range params {
		n += SlotSize(p)
	}
	return n, nil
}

// descriptorClassName converts a field descriptor to the internal name used
// by CONSTANT_Class entries: "Ljava/lang/String;" becomes "java/lang/String",
// array descriptors are used verbatim.
func descriptorClassName(fieldDesc string) string {
	if len(fieldDesc) > 2 && fieldDesc[0] == 'L' && fieldDesc[len(fieldDesc)-1] == ';' {
		return fieldDesc[1 : len(fieldDesc)-1]
	}
	return fieldDesc
}
