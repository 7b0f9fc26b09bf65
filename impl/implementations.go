package impl

import (
	"fmt"

	"github.com/forgelabs/typeforge/pkg/classfile"
	"github.com/forgelabs/typeforge/typedesc"
)

// Stub implements a member as a no-op returning the zero value of its
// return type.
type Stub struct {
	base
}

// NewStub returns the no-op stub implementation.
func NewStub() *Stub {
	return &Stub{}
}

func (*Stub) Name() string { return "stub" }

func (*Stub) Prepare(*Context) error { return nil }

func (*Stub) Append(t *Target) error {
	ret := t.Method.Returns
	switch {
	case ret.IsVoid():
	case ret.IsReference():
		t.Asm.LoadNull()
	case ret == typedesc.Long:
		t.Asm.LoadLong(0)
	case ret == typedesc.Float:
		t.Asm.LoadFloat(0)
	case ret == typedesc.Double:
		t.Asm.LoadDouble(0)
	default:
		t.Asm.LoadInt(0)
	}
	t.Asm.Return(ret.Descriptor())
	return nil
}

// FixedValue implements a member by returning one constant.
type FixedValue struct {
	base
	value any
}

// NewFixedValue wraps a constant. Supported kinds: nil, bool, int32, int64,
// float32, float64 and string; anything else is a construction error.
func NewFixedValue(value any) (*FixedValue, error) {
	switch value.(type) {
	case nil, bool, int32, int64, float32, float64, string:
		return &FixedValue{value: value}, nil
	}
	return nil, fmt.Errorf("impl: unsupported fixed value of type %T", value)
}

func (v *FixedValue) Name() string { return fmt.Sprintf("fixedValue(%v)", v.value) }

func (*FixedValue) Prepare(*Context) error { return nil }

func (v *FixedValue) Append(t *Target) error {
	ret := t.Method.Returns
	switch val := v.value.(type) {
	case nil:
		if !ret.IsReference() {
			return fmt.Errorf("impl: null constant for %s returning %s", t.Method, ret)
		}
		t.Asm.LoadNull()
	case string:
		if ret != typedesc.String && ret != typedesc.Object {
			return fmt.Errorf("impl: string constant for %s returning %s", t.Method, ret)
		}
		t.Asm.LoadString(val)
	case bool:
		if ret != typedesc.Boolean {
			return fmt.Errorf("impl: boolean constant for %s returning %s", t.Method, ret)
		}
		if val {
			t.Asm.LoadInt(1)
		} else {
			t.Asm.LoadInt(0)
		}
	case int32:
		switch ret {
		case typedesc.Int, typedesc.Short, typedesc.Byte, typedesc.Char:
		default:
			return fmt.Errorf("impl: int constant for %s returning %s", t.Method, ret)
		}
		t.Asm.LoadInt(val)
	case int64:
		if ret != typedesc.Long {
			return fmt.Errorf("impl: long constant for %s returning %s", t.Method, ret)
		}
		t.Asm.LoadLong(val)
	case float32:
		if ret != typedesc.Float {
			return fmt.Errorf("impl: float constant for %s returning %s", t.Method, ret)
		}
		t.Asm.LoadFloat(val)
	case float64:
		if ret != typedesc.Double {
			return fmt.Errorf("impl: double constant for %s returning %s", t.Method, ret)
		}
		t.Asm.LoadDouble(val)
	}
	t.Asm.Return(ret.Descriptor())
	return nil
}

// SuperMethodCall implements a member by invoking the overridden super
// behavior directly, forwarding all arguments. On a constructor it chains
// to the superclass constructor.
type SuperMethodCall struct {
	base
}

// NewSuperMethodCall returns the direct super-call implementation.
func NewSuperMethodCall() *SuperMethodCall {
	return &SuperMethodCall{}
}

func (*SuperMethodCall) Name() string { return "superMethodCall" }

func (*SuperMethodCall) Prepare(*Context) error { return nil }

func (*SuperMethodCall) Append(t *Target) error {
	super := t.Type.SuperClass
	if super.IsVoid() {
		return fmt.Errorf("impl: %s has no superclass to call", t.Type.Name)
	}
	t.Asm.LoadLocal(0)
	loadArguments(t)
	t.Asm.Invoke(classfile.OpInvokespecial, super.InternalName(), t.Method.Name, t.Method.Descriptor())
	t.Asm.Return(t.Method.Returns.Descriptor())
	return nil
}

// Throw implements a member by raising one exception type.
type Throw struct {
	base
	exception typedesc.TypeRef
	message   string
}

// NewThrow builds an exception-throwing implementation. An empty message
// uses the exception's no-argument constructor.
func NewThrow(exception typedesc.TypeRef, message string) *Throw {
	return &Throw{exception: exception, message: message}
}

func (i *Throw) Name() string { return fmt.Sprintf("throw(%s)", i.exception) }

func (*Throw) Prepare(*Context) error { return nil }

func (i *Throw) Append(t *Target) error {
	name := i.exception.InternalName()
	t.Asm.New(name)
	t.Asm.Dup()
	if i.message == "" {
		t.Asm.Invoke(classfile.OpInvokespecial, name, "<init>", "()V")
	} else {
		t.Asm.LoadString(i.message)
		t.Asm.Invoke(classfile.OpInvokespecial, name, "<init>", "(Ljava/lang/String;)V")
	}
	t.Asm.Athrow()
	return nil
}

// FieldAccessor implements bean-style access to a field of the composed
// type: a no-argument non-void method reads it, a single-argument void
// method writes it.
type FieldAccessor struct {
	base
	field string
}

// NewFieldAccessor builds an accessor for the named field.
func NewFieldAccessor(field string) *FieldAccessor {
	return &FieldAccessor{field: field}
}

func (i *FieldAccessor) Name() string { return fmt.Sprintf("fieldAccessor(%s)", i.field) }

func (*FieldAccessor) Prepare(*Context) error { return nil }

func (i *FieldAccessor) Append(t *Target) error {
	f, ok := t.Type.Field(i.field)
	if !ok {
		return fmt.Errorf("impl: field %s not defined on %s", i.field, t.Type.Name)
	}
	m := t.Method
	switch {
	case len(m.Parameters) == 0 && !m.Returns.IsVoid():
		if m.Returns != f.Type {
			return fmt.Errorf("impl: getter %s returns %s but field %s is %s",
				m, m.Returns, i.field, f.Type)
		}
		t.Asm.LoadLocal(0)
		t.Asm.GetField(t.Type.Name, f.Name, f.Type.Descriptor())
		t.Asm.Return(m.Returns.Descriptor())
	case len(m.Parameters) == 1 && m.Returns.IsVoid():
		if m.Parameters[0] != f.Type {
			return fmt.Errorf("impl: setter %s takes %s but field %s is %s",
				m, m.Parameters[0], i.field, f.Type)
		}
		t.Asm.LoadLocal(0)
		t.Asm.LoadLocal(1)
		t.Asm.PutField(t.Type.Name, f.Name, f.Type.Descriptor())
		t.Asm.Return("V")
	default:
		return fmt.Errorf("impl: %s has neither getter nor setter shape", m)
	}
	return nil
}

// Delegation implements a member by forwarding to an identically named
// public static method on a delegate type with the exact same erased
// signature.
type Delegation struct {
	base
	delegate *typedesc.TypeDescription
}

// NewDelegation builds a static delegation to the given type.
func NewDelegation(delegate *typedesc.TypeDescription) *Delegation {
	return &Delegation{delegate: delegate}
}

func (i *Delegation) Name() string { return fmt.Sprintf("delegateTo(%s)", i.delegate.Name) }

func (*Delegation) Prepare(*Context) error { return nil }

func (i *Delegation) Append(t *Target) error {
	m := t.Method
	candidate, ok := i.delegate.Method(m.Name, m.Descriptor())
	if !ok || !candidate.IsStatic() {
		return fmt.Errorf("impl: %s has no static method %s%s to delegate %s to",
			i.delegate.Name, m.Name, m.Descriptor(), m)
	}
	loadArguments(t)
	t.Asm.Invoke(classfile.OpInvokestatic, i.delegate.Name, m.Name, m.Descriptor())
	t.Asm.Return(m.Returns.Descriptor())
	return nil
}

// Custom wraps a caller-supplied appender, the escape hatch for bytecode
// the fixed variants cannot express. It still runs inside the same frame
// computation as everything else.
type Custom struct {
	base
	name     string
	appender func(*Target) error
}

// NewCustom wraps an appender function under a diagnostic name.
func NewCustom(name string, appender func(*Target) error) *Custom {
	return &Custom{name: name, appender: appender}
}

func (i *Custom) Name() string { return "custom(" + i.name + ")" }

func (*Custom) Prepare(*Context) error { return nil }

func (i *Custom) Append(t *Target) error {
	return i.appender(t)
}
