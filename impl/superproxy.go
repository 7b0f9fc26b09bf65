package impl

import (
	"fmt"

	"github.com/forgelabs/typeforge/pkg/classfile"
	"github.com/forgelabs/typeforge/typedesc"
)

// SuperAccessorPrefix prefixes the synthetic accessor methods a super-call
// proxy routes through.
const SuperAccessorPrefix = "super$"

// SuperProxyDelegation forwards a member to a public static method on a
// delegate type whose first parameter receives a proxy exposing the
// composed type's overridden super behavior. Preparation defines one
// synthetic super-call accessor per proxied method on the composed type and
// requests the proxy as an auxiliary type.
type SuperProxyDelegation struct {
	base
	delegate *typedesc.TypeDescription
	proxied  []typedesc.MethodDescription
}

// NewSuperProxyDelegation builds the proxy-passing delegation. The proxied
// methods are the capability set the auxiliary type will expose.
func NewSuperProxyDelegation(delegate *typedesc.TypeDescription, proxied ...typedesc.MethodDescription) *SuperProxyDelegation {
	return &SuperProxyDelegation{delegate: delegate, proxied: proxied}
}

func (i *SuperProxyDelegation) Name() string {
	return fmt.Sprintf("superProxyDelegateTo(%s)", i.delegate.Name)
}

// request rebuilds the structural request; Prepare and Append derive it
// from the same inputs so their keys agree.
func (i *SuperProxyDelegation) request(host string, super typedesc.TypeRef) *AuxiliaryRequest {
	return &AuxiliaryRequest{
		Kind:        AuxSuperCallProxy,
		ProxiedType: super,
		HostType:    host,
		Methods:     i.proxied,
	}
}

func (i *SuperProxyDelegation) Prepare(ctx *Context) error {
	for _, m := range i.proxied {
		accessor := m
		accessor.Name = SuperAccessorPrefix + m.Name
		accessor.Modifiers = classfile.AccPublic | classfile.AccSynthetic
		accessor.Annotations = nil
		accessor.Signature = ""
		if err := ctx.DefineMethod(accessor, &namedSuperCall{original: m}); err != nil {
			return err
		}
	}
	_, err := ctx.Auxiliaries.Require(i.request(ctx.Instrumented.Name(), ctx.Instrumented.SuperClass()))
	return err
}

func (i *SuperProxyDelegation) Append(t *Target) error {
	m := t.Method
	super := t.Type.SuperClass
	proxyName, ok := t.AuxiliaryName(i.request(t.Type.Name, super))
	if !ok {
		return fmt.Errorf("impl: auxiliary proxy for %s was never registered", t.Type.Name)
	}

	wantParams := append([]typedesc.TypeRef{super}, m.Parameters...)
	candidate := findStatic(i.delegate, m.Name, wantParams, m.Returns)
	if candidate == nil {
		return fmt.Errorf("impl: %s has no static method %s accepting (%s, ...) to delegate %s to",
			i.delegate.Name, m.Name, super, m)
	}

	t.Asm.New(proxyName)
	t.Asm.Dup()
	t.Asm.LoadLocal(0)
	t.Asm.Invoke(classfile.OpInvokespecial, proxyName, "<init>",
		"(L"+t.Type.Name+";)V")
	loadArguments(t)
	t.Asm.Invoke(classfile.OpInvokestatic, i.delegate.Name, candidate.Name, candidate.Descriptor())
	t.Asm.Return(m.Returns.Descriptor())
	return nil
}

func findStatic(desc *typedesc.TypeDescription, name string, params []typedesc.TypeRef, returns typedesc.TypeRef) *typedesc.MethodDescription {
	for idx := range desc.Methods {
		c := &desc.Methods[idx]
		if c.Name != name || !c.IsStatic() || c.Returns != returns || len(c.Parameters) != len(params) {
			continue
		}
		match := true
		for j := range params {
			if c.Parameters[j] != params[j] {
				match = false
				break
			}
		}
		if match {
			return c
		}
	}
	return nil
}

// namedSuperCall backs a synthetic accessor: invoke the original method on
// the superclass regardless of the accessor's own name.
type namedSuperCall struct {
	base
	original typedesc.MethodDescription
}

func (i *namedSuperCall) Name() string {
	return fmt.Sprintf("superCallAccessor(%s)", i.original.Name)
}

func (*namedSuperCall) Prepare(*Context) error { return nil }

func (i *namedSuperCall) Append(t *Target) error {
	super := t.Type.SuperClass
	if super.IsVoid() {
		return fmt.Errorf("impl: %s has no superclass to call", t.Type.Name)
	}
	t.Asm.LoadLocal(0)
	loadArguments(t)
	t.Asm.Invoke(classfile.OpInvokespecial, super.InternalName(), i.original.Name, i.original.Descriptor())
	t.Asm.Return(i.original.Returns.Descriptor())
	return nil
}
