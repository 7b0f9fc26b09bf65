package impl

import (
	"strings"
	"testing"

	"github.com/forgelabs/typeforge/pkg/classfile"
	"github.com/forgelabs/typeforge/typedesc"
)

func emitBody(t *testing.T, desc *typedesc.TypeDescription, m *typedesc.MethodDescription, with Implementation, aux map[string]string) (*classfile.Code, error) {
	t.Helper()
	pool := classfile.NewConstPool()
	asm, err := classfile.NewCodeAssembler(pool, desc.Name, m.Name, m.Descriptor(), m.Modifiers)
	if err != nil {
		t.Fatalf("NewCodeAssembler() error = %v", err)
	}
	target := NewTarget(desc, m, asm, aux)
	if err := with.Append(target); err != nil {
		return nil, err
	}
	return asm.Finish()
}

func widgetType() *typedesc.TypeDescription {
	return &typedesc.TypeDescription{
		Name:       "demo/Widget",
		Modifiers:  classfile.AccPublic,
		SuperClass: typedesc.Class("java/lang/Object"),
		Fields: []typedesc.FieldDescription{
			{Name: "count", Modifiers: classfile.AccPrivate, Type: typedesc.Int, DeclaredBy: "demo/Widget"},
		},
	}
}

func method(name string, returns typedesc.TypeRef, params ...typedesc.TypeRef) *typedesc.MethodDescription {
	return &typedesc.MethodDescription{
		Name:       name,
		Modifiers:  classfile.AccPublic,
		Returns:    returns,
		Parameters: params,
		DeclaredBy: "demo/Widget",
	}
}

func opcodes(code *classfile.Code) []classfile.Opcode {
	var ops []classfile.Opcode
	for i := 0; i < len(code.Bytes); {
		op := classfile.Opcode(code.Bytes[i])
		ops = append(ops, op)
		switch op {
		case classfile.OpBipush, classfile.OpLdc:
			i += 2
		case classfile.OpSipush, classfile.OpLdcW, classfile.OpLdc2W,
			classfile.OpGetfield, classfile.OpPutfield,
			classfile.OpGetstatic, classfile.OpPutstatic,
			classfile.OpInvokevirtual, classfile.OpInvokespecial,
			classfile.OpInvokestatic, classfile.OpNew,
			classfile.OpCheckcast, classfile.OpInstanceof:
			i += 3
		default:
			i++
		}
	}
	return ops
}

func wantOpcodes(t *testing.T, code *classfile.Code, want ...classfile.Opcode) {
	t.Helper()
	got := opcodes(code)
	if len(got) != len(want) {
		t.Fatalf("opcodes = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("opcodes = %v, want %v", got, want)
		}
	}
}

func TestStubZeroValues(t *testing.T) {
	desc := widgetType()
	tests := []struct {
		returns typedesc.TypeRef
		want    []classfile.Opcode
	}{
		{typedesc.Void, []classfile.Opcode{classfile.OpReturn}},
		{typedesc.Int, []classfile.Opcode{classfile.OpIconst0, classfile.OpIreturn}},
		{typedesc.Boolean, []classfile.Opcode{classfile.OpIconst0, classfile.OpIreturn}},
		{typedesc.Long, []classfile.Opcode{classfile.OpLconst0, classfile.OpLreturn}},
		{typedesc.Float, []classfile.Opcode{classfile.OpFconst0, classfile.OpFreturn}},
		{typedesc.Double, []classfile.Opcode{classfile.OpDconst0, classfile.OpDreturn}},
		{typedesc.String, []classfile.Opcode{classfile.OpAconstNull, classfile.OpAreturn}},
	}
	for _, tt := range tests {
		code, err := emitBody(t, desc, method("run", tt.returns), NewStub(), nil)
		if err != nil {
			t.Fatalf("stub for %s: %v", tt.returns, err)
		}
		wantOpcodes(t, code, tt.want...)
	}
}

func TestFixedValueInt(t *testing.T) {
	v, err := NewFixedValue(int32(40))
	if err != nil {
		t.Fatalf("NewFixedValue() error = %v", err)
	}
	code, err := emitBody(t, widgetType(), method("size", typedesc.Int), v, nil)
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	wantOpcodes(t, code, classfile.OpBipush, classfile.OpIreturn)
	if code.Bytes[1] != 40 {
		t.Errorf("bipush operand = %d, want 40", code.Bytes[1])
	}
}

func TestFixedValueString(t *testing.T) {
	v, err := NewFixedValue("hello")
	if err != nil {
		t.Fatalf("NewFixedValue() error = %v", err)
	}
	code, err := emitBody(t, widgetType(), method("greet", typedesc.String), v, nil)
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	wantOpcodes(t, code, classfile.OpLdc, classfile.OpAreturn)
}

func TestFixedValueRejectsUnsupportedKind(t *testing.T) {
	if _, err := NewFixedValue(uint(1)); err == nil {
		t.Error("NewFixedValue(uint) error = nil, want error")
	}
}

func TestFixedValueTypeMismatch(t *testing.T) {
	v, err := NewFixedValue("hello")
	if err != nil {
		t.Fatalf("NewFixedValue() error = %v", err)
	}
	if _, err := emitBody(t, widgetType(), method("size", typedesc.Int), v, nil); err == nil {
		t.Error("string constant on int method: error = nil, want error")
	}
}

func TestSuperMethodCallForwardsArguments(t *testing.T) {
	m := method("combine", typedesc.Int, typedesc.Int, typedesc.Long)
	code, err := emitBody(t, widgetType(), m, NewSuperMethodCall(), nil)
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	wantOpcodes(t, code,
		classfile.OpAload0, classfile.OpIload0+1, classfile.OpLload0+2,
		classfile.OpInvokespecial, classfile.OpIreturn)
	if code.MaxStack != 4 {
		t.Errorf("MaxStack = %d, want 4", code.MaxStack)
	}
}

func TestSuperMethodCallWithoutSuperclass(t *testing.T) {
	desc := widgetType()
	desc.SuperClass = typedesc.Void
	_, err := emitBody(t, desc, method("run", typedesc.Void), NewSuperMethodCall(), nil)
	if err == nil {
		t.Fatal("super call without superclass: error = nil, want error")
	}
	if !strings.Contains(err.Error(), "no superclass") {
		t.Errorf("error = %q, want mention of missing superclass", err)
	}
}

func TestThrowWithMessage(t *testing.T) {
	th := NewThrow(typedesc.Class("java.lang.IllegalStateException"), "not ready")
	code, err := emitBody(t, widgetType(), method("run", typedesc.Void), th, nil)
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	wantOpcodes(t, code,
		classfile.OpNew, classfile.OpDup, classfile.OpLdc,
		classfile.OpInvokespecial, classfile.OpAthrow)
}

func TestThrowWithoutMessage(t *testing.T) {
	th := NewThrow(typedesc.Class("java.lang.UnsupportedOperationException"), "")
	code, err := emitBody(t, widgetType(), method("run", typedesc.Int), th, nil)
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	// The body never returns; athrow alone satisfies the int signature.
	wantOpcodes(t, code,
		classfile.OpNew, classfile.OpDup,
		classfile.OpInvokespecial, classfile.OpAthrow)
}

func TestFieldAccessorGetter(t *testing.T) {
	code, err := emitBody(t, widgetType(), method("getCount", typedesc.Int), NewFieldAccessor("count"), nil)
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	wantOpcodes(t, code, classfile.OpAload0, classfile.OpGetfield, classfile.OpIreturn)
}

func TestFieldAccessorSetter(t *testing.T) {
	code, err := emitBody(t, widgetType(), method("setCount", typedesc.Void, typedesc.Int), NewFieldAccessor("count"), nil)
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	wantOpcodes(t, code, classfile.OpAload0, classfile.OpIload0+1, classfile.OpPutfield, classfile.OpReturn)
}

func TestFieldAccessorUnknownField(t *testing.T) {
	_, err := emitBody(t, widgetType(), method("getCount", typedesc.Int), NewFieldAccessor("missing"), nil)
	if err == nil || !strings.Contains(err.Error(), "missing") {
		t.Errorf("unknown field: error = %v, want mention of field name", err)
	}
}

func TestFieldAccessorShapeMismatch(t *testing.T) {
	m := method("confuse", typedesc.Int, typedesc.Int)
	if _, err := emitBody(t, widgetType(), m, NewFieldAccessor("count"), nil); err == nil {
		t.Error("non-accessor shape: error = nil, want error")
	}
}

func TestDelegationCallsStaticMatch(t *testing.T) {
	delegate := &typedesc.TypeDescription{
		Name: "demo/Helpers",
		Methods: []typedesc.MethodDescription{
			{
				Name:       "size",
				Modifiers:  classfile.AccPublic | classfile.AccStatic,
				Returns:    typedesc.Int,
				DeclaredBy: "demo/Helpers",
			},
		},
	}
	code, err := emitBody(t, widgetType(), method("size", typedesc.Int), NewDelegation(delegate), nil)
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	wantOpcodes(t, code, classfile.OpInvokestatic, classfile.OpIreturn)
}

func TestDelegationRejectsInstanceMethod(t *testing.T) {
	delegate := &typedesc.TypeDescription{
		Name: "demo/Helpers",
		Methods: []typedesc.MethodDescription{
			{Name: "size", Modifiers: classfile.AccPublic, Returns: typedesc.Int, DeclaredBy: "demo/Helpers"},
		},
	}
	if _, err := emitBody(t, widgetType(), method("size", typedesc.Int), NewDelegation(delegate), nil); err == nil {
		t.Error("instance delegate: error = nil, want error")
	}
}

func TestCustomRunsAppender(t *testing.T) {
	custom := NewCustom("answer", func(tg *Target) error {
		tg.Asm.LoadInt(42)
		tg.Asm.Return("I")
		return nil
	})
	code, err := emitBody(t, widgetType(), method("answer", typedesc.Int), custom, nil)
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	wantOpcodes(t, code, classfile.OpBipush, classfile.OpIreturn)
	if custom.Name() != "custom(answer)" {
		t.Errorf("Name() = %q, want custom(answer)", custom.Name())
	}
}

type recordingRegistrar struct {
	requests []*AuxiliaryRequest
}

func (r *recordingRegistrar) Require(req *AuxiliaryRequest) (string, error) {
	r.requests = append(r.requests, req)
	return "demo/Widget$Proxy$0", nil
}

func TestSuperProxyDelegationPrepare(t *testing.T) {
	proxied := *method("combine", typedesc.Int, typedesc.Int)
	delegate := &typedesc.TypeDescription{Name: "demo/Interceptor"}
	reg := &recordingRegistrar{}
	ctx := &Context{
		Instrumented: typedesc.NewInstrumented("demo/Widget", classfile.AccPublic, typedesc.Class("demo/Base")),
		Auxiliaries:  reg,
	}

	if err := NewSuperProxyDelegation(delegate, proxied).Prepare(ctx); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if len(reg.requests) != 1 {
		t.Fatalf("registered %d auxiliary requests, want 1", len(reg.requests))
	}
	req := reg.requests[0]
	if req.Kind != AuxSuperCallProxy || req.ProxiedType != typedesc.Class("demo/Base") {
		t.Errorf("request = %+v, want super-call proxy of demo/Base", req)
	}
	defs := ctx.Definitions()
	if len(defs) != 1 {
		t.Fatalf("defined %d accessor methods, want 1", len(defs))
	}
	if got := defs[0].Method.Name; got != "super$combine" {
		t.Errorf("accessor name = %q, want super$combine", got)
	}
	if defs[0].Method.Modifiers&classfile.AccSynthetic == 0 {
		t.Error("accessor is not marked synthetic")
	}
}

func TestSuperProxyDelegationAppend(t *testing.T) {
	proxied := *method("combine", typedesc.Int, typedesc.Int)
	delegate := &typedesc.TypeDescription{
		Name: "demo/Interceptor",
		Methods: []typedesc.MethodDescription{
			{
				Name:       "combine",
				Modifiers:  classfile.AccPublic | classfile.AccStatic,
				Returns:    typedesc.Int,
				Parameters: []typedesc.TypeRef{typedesc.Class("demo/Base"), typedesc.Int},
				DeclaredBy: "demo/Interceptor",
			},
		},
	}
	desc := widgetType()
	desc.SuperClass = typedesc.Class("demo/Base")
	with := NewSuperProxyDelegation(delegate, proxied)
	key := with.request(desc.Name, desc.SuperClass).StructuralKey()
	aux := map[string]string{key: "demo/Widget$Proxy$0"}

	m := method("combine", typedesc.Int, typedesc.Int)
	code, err := emitBody(t, desc, m, with, aux)
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	wantOpcodes(t, code,
		classfile.OpNew, classfile.OpDup, classfile.OpAload0,
		classfile.OpInvokespecial, classfile.OpIload0+1,
		classfile.OpInvokestatic, classfile.OpIreturn)
}

func TestSuperProxyDelegationAppendWithoutRegistration(t *testing.T) {
	proxied := *method("combine", typedesc.Int, typedesc.Int)
	delegate := &typedesc.TypeDescription{Name: "demo/Interceptor"}
	m := method("combine", typedesc.Int, typedesc.Int)
	_, err := emitBody(t, widgetType(), m, NewSuperProxyDelegation(delegate, proxied), nil)
	if err == nil || !strings.Contains(err.Error(), "never registered") {
		t.Errorf("append without registration: error = %v, want registration error", err)
	}
}

func TestAuxiliaryRequestKeyIgnoresMethodOrder(t *testing.T) {
	a := *method("a", typedesc.Void)
	b := *method("b", typedesc.Void)
	r1 := &AuxiliaryRequest{Kind: AuxSuperCallProxy, ProxiedType: typedesc.Class("demo/Base"), HostType: "demo/Widget", Methods: []typedesc.MethodDescription{a, b}}
	r2 := &AuxiliaryRequest{Kind: AuxSuperCallProxy, ProxiedType: typedesc.Class("demo/Base"), HostType: "demo/Widget", Methods: []typedesc.MethodDescription{b, a}}
	if r1.StructuralKey() != r2.StructuralKey() {
		t.Errorf("keys differ: %q vs %q", r1.StructuralKey(), r2.StructuralKey())
	}
}

func TestContextDefineMethodRejectsDuplicate(t *testing.T) {
	ctx := &Context{Instrumented: typedesc.NewInstrumented("demo/Widget", classfile.AccPublic, typedesc.Object)}
	m := *method("run", typedesc.Void)
	if err := ctx.DefineMethod(m, NewStub()); err != nil {
		t.Fatalf("first DefineMethod() error = %v", err)
	}
	if err := ctx.DefineMethod(m, NewStub()); err == nil {
		t.Error("duplicate DefineMethod() error = nil, want error")
	}
}
