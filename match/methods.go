package match

import (
	"fmt"
	"strings"

	"github.com/forgelabs/typeforge/typedesc"
)

// MethodMatcher is the matcher kind behavior rules are declared with.
type MethodMatcher = Matcher[*typedesc.MethodDescription]

// Named matches methods by exact name.
func Named(name string) MethodMatcher {
	return New(fmt.Sprintf("named(%q)", name), func(m *typedesc.MethodDescription) bool {
		return m.Name == name
	})
}

// NameStartsWith matches methods whose name has the given prefix.
func NameStartsWith(prefix string) MethodMatcher {
	return New(fmt.Sprintf("nameStartsWith(%q)", prefix), func(m *typedesc.MethodDescription) bool {
		return strings.HasPrefix(m.Name, prefix)
	})
}

// NameEndsWith matches methods whose name has the given suffix.
func NameEndsWith(suffix string) MethodMatcher {
	return New(fmt.Sprintf("nameEndsWith(%q)", suffix), func(m *typedesc.MethodDescription) bool {
		return strings.HasSuffix(m.Name, suffix)
	})
}

// Returns matches methods by exact erased return type.
func Returns(ref typedesc.TypeRef) MethodMatcher {
	return New(fmt.Sprintf("returns(%s)", ref), func(m *typedesc.MethodDescription) bool {
		return m.Returns == ref
	})
}

// TakesArguments matches methods whose erased parameter list is exactly the
// given sequence.
func TakesArguments(refs ...typedesc.TypeRef) MethodMatcher {
	repr := make([]string, len(refs))
	for i, r := range refs {
		repr[i] = r.String()
	}
	return New(fmt.Sprintf("takesArguments(%s)", strings.Join(repr, ", ")),
		func(m *typedesc.MethodDescription) bool {
			if len(m.Parameters) != len(refs) {
				return false
			}
			for i, r := range refs {
				if m.Parameters[i] != r {
					return false
				}
			}
			return true
		})
}

// TakesNoArguments matches zero-parameter methods.
func TakesNoArguments() MethodMatcher {
	return New("takesArguments(0)", func(m *typedesc.MethodDescription) bool {
		return len(m.Parameters) == 0
	})
}

// IsAnnotatedWith matches methods annotated with the given type descriptor,
// e.g. "Lcom/example/Traced;".
func IsAnnotatedWith(typeDescriptor string) MethodMatcher {
	return New(fmt.Sprintf("isAnnotatedWith(%s)", typeDescriptor),
		func(m *typedesc.MethodDescription) bool {
			return m.IsAnnotatedWith(typeDescriptor)
		})
}

// IsAbstract matches methods without a body.
func IsAbstract() MethodMatcher {
	return New("isAbstract()", (*typedesc.MethodDescription).IsAbstract)
}

// IsStatic matches static methods.
func IsStatic() MethodMatcher {
	return New("isStatic()", (*typedesc.MethodDescription).IsStatic)
}

// IsConstructor matches instance initializers.
func IsConstructor() MethodMatcher {
	return New("isConstructor()", (*typedesc.MethodDescription).IsConstructor)
}

// IsVirtual matches methods that participate in dynamic dispatch.
func IsVirtual() MethodMatcher {
	return New("isVirtual()", (*typedesc.MethodDescription).IsVirtual)
}

// IsDeclaredBy matches methods declared by the type with the given internal
// name.
func IsDeclaredBy(internalName string) MethodMatcher {
	return New(fmt.Sprintf("isDeclaredBy(%s)", internalName),
		func(m *typedesc.MethodDescription) bool {
			return m.DeclaredBy == internalName
		})
}

// AnyMethod matches every method.
func AnyMethod() MethodMatcher {
	return Any[*typedesc.MethodDescription]()
}
