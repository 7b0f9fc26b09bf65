package auxiliary

import (
	"github.com/forgelabs/typeforge/impl"
	"github.com/forgelabs/typeforge/pkg/classfile"
	"github.com/forgelabs/typeforge/typedesc"
)

// proxyTargetField holds the composed instance a proxy forwards through.
const proxyTargetField = "target"

// planSuperCallProxy lays out a super-call proxy: a final subclass of the
// proxied type holding one instance of the host type. Each capability
// method forwards to the host's synthetic super-call accessor, so callers
// holding the proxy reach the behavior the composition overrode.
func (s *Synthesizer) planSuperCallProxy(req *impl.AuxiliaryRequest) (*Planned, error) {
	name := s.names[req.StructuralKey()]
	hostRef := typedesc.Class(req.HostType)

	desc := typedesc.NewInstrumented(name,
		classfile.AccPublic|classfile.AccFinal|classfile.AccSynthetic, req.ProxiedType)
	if err := desc.AddField(typedesc.FieldDescription{
		Name:      proxyTargetField,
		Modifiers: classfile.AccPrivate | classfile.AccFinal,
		Type:      hostRef,
	}); err != nil {
		return nil, err
	}

	members := []Member{{
		Method: typedesc.MethodDescription{
			Name:       "<init>",
			Modifiers:  classfile.AccPublic,
			Returns:    typedesc.Void,
			Parameters: []typedesc.TypeRef{hostRef},
		},
		With: proxyConstructor(name, req.ProxiedType, hostRef),
	}}
	for _, m := range req.Methods {
		forwarded := m
		forwarded.Modifiers = classfile.AccPublic | classfile.AccSynthetic
		forwarded.Annotations = nil
		forwarded.Signature = ""
		members = append(members, Member{
			Method: forwarded,
			With:   proxyForwarder(name, hostRef, m),
		})
	}

	for i := range members {
		if err := desc.AddMethod(members[i].Method); err != nil {
			return nil, err
		}
	}
	return &Planned{Name: name, Description: desc.Description(), Members: members}, nil
}

// proxyConstructor chains to the proxied type's no-argument constructor
// and stores the host instance.
func proxyConstructor(proxy string, proxied typedesc.TypeRef, host typedesc.TypeRef) impl.Implementation {
	return impl.NewCustom("superProxyInit", func(t *impl.Target) error {
		t.Asm.LoadLocal(0)
		t.Asm.Invoke(classfile.OpInvokespecial, proxied.InternalName(), "<init>", "()V")
		t.Asm.LoadLocal(0)
		t.Asm.LoadLocal(1)
		t.Asm.PutField(proxy, proxyTargetField, host.Descriptor())
		t.Asm.Return("V")
		return nil
	})
}

// proxyForwarder loads the held host instance and calls its super-call
// accessor for the original method.
func proxyForwarder(proxy string, host typedesc.TypeRef, original typedesc.MethodDescription) impl.Implementation {
	return impl.NewCustom("superProxyForward", func(t *impl.Target) error {
		t.Asm.LoadLocal(0)
		t.Asm.GetField(proxy, proxyTargetField, host.Descriptor())
		slot := 1
		for _, p := range original.Parameters {
			t.Asm.LoadLocal(slot)
			slot += p.StackSlots()
		}
		t.Asm.Invoke(classfile.OpInvokevirtual, host.InternalName(),
			impl.SuperAccessorPrefix+original.Name, original.Descriptor())
		t.Asm.Return(original.Returns.Descriptor())
		return nil
	})
}
