package typedesc

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/forgelabs/typeforge/pkg/classfile"
)

func method(name string, returns TypeRef, params ...TypeRef) MethodDescription {
	return MethodDescription{
		Name:       name,
		Modifiers:  classfile.AccPublic,
		Returns:    returns,
		Parameters: params,
		DeclaredBy: "com/example/Sample",
	}
}

func TestMethodDescriptor(t *testing.T) {
	tests := []struct {
		m    MethodDescription
		want string
	}{
		{method("run", Void), "()V"},
		{method("sum", Int, Int, Int), "(II)I"},
		{method("find", Class("java/util/List"), String, Long), "(Ljava/lang/String;J)Ljava/util/List;"},
	}
	for _, tt := range tests {
		if got := tt.m.Descriptor(); got != tt.want {
			t.Errorf("%s Descriptor() = %q, want %q", tt.m.Name, got, tt.want)
		}
	}
}

func TestErasedKeyIgnoresGenerics(t *testing.T) {
	a := method("get", Object)
	a.Signature = "()TT;"
	b := method("get", Object)
	if a.ErasedKey() != b.ErasedKey() {
		t.Errorf("keys differ: %q vs %q", a.ErasedKey(), b.ErasedKey())
	}
}

func TestValidateRejectsDuplicateMembers(t *testing.T) {
	desc := &TypeDescription{
		Name:       "com/example/Dup",
		SuperClass: Object,
		Methods: []MethodDescription{
			method("f", Void),
			method("f", Void),
		},
	}
	err := desc.Validate()
	var merr *MetadataError
	if !errors.As(err, &merr) {
		t.Fatalf("Validate() = %v, want *MetadataError", err)
	}
	if merr.TypeName != "com/example/Dup" {
		t.Errorf("TypeName = %q", merr.TypeName)
	}
}

func TestVirtualDetection(t *testing.T) {
	m := method("f", Void)
	if !m.IsVirtual() {
		t.Error("public instance method not virtual")
	}
	m.Modifiers |= classfile.AccStatic
	if m.IsVirtual() {
		t.Error("static method reported virtual")
	}
	ctor := method("<init>", Void)
	if ctor.IsVirtual() {
		t.Error("constructor reported virtual")
	}
}

func TestInstrumentedSnapshot(t *testing.T) {
	in := NewInstrumented("com/example/Gen", classfile.AccPublic, Class("com/example/Base"))
	in.AddInterface(Class("java/io/Serializable"))
	in.AddInterface(Class("java/io/Serializable")) // collapses
	if err := in.AddField(FieldDescription{Name: "state", Type: Int}); err != nil {
		t.Fatalf("AddField: %v", err)
	}
	if err := in.AddMethod(method("run", Void)); err != nil {
		t.Fatalf("AddMethod: %v", err)
	}
	if err := in.AddMethod(method("run", Void)); err == nil {
		t.Fatal("AddMethod accepted a duplicate slot")
	}

	desc := in.Description()
	if desc.Name != "com/example/Gen" {
		t.Errorf("Name = %q", desc.Name)
	}
	if len(desc.Interfaces) != 1 {
		t.Errorf("len(Interfaces) = %d, want 1", len(desc.Interfaces))
	}
	if desc.Fields[0].DeclaredBy != "com/example/Gen" {
		t.Errorf("field DeclaredBy = %q", desc.Fields[0].DeclaredBy)
	}
	if err := desc.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestFromBytesRoundTrip(t *testing.T) {
	b := classfile.NewClassBuilder("com/example/Round", "java/lang/Object",
		classfile.AccPublic|classfile.AccAbstract, classfile.Java8, 0)
	b.AddInterface("java/lang/Runnable")
	b.AddField(classfile.AccPrivate, "count", "J", "", nil)
	b.AddMethod(classfile.AccPublic|classfile.AccAbstract, "work",
		"(Ljava/lang/String;)I", "", []string{"java/io/IOException"},
		nil, []classfile.Annotation{{TypeDescriptor: "Lcom/example/Marker;"}})
	data, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	desc, err := FromBytes(data)
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	want := &TypeDescription{
		Name:       "com/example/Round",
		Modifiers:  classfile.AccPublic | classfile.AccAbstract,
		SuperClass: Object,
		Interfaces: []TypeRef{Class("java/lang/Runnable")},
		Fields: []FieldDescription{{
			Name:       "count",
			Modifiers:  classfile.AccPrivate,
			Type:       Long,
			DeclaredBy: "com/example/Round",
		}},
		Methods: []MethodDescription{{
			Name:        "work",
			Modifiers:   classfile.AccPublic | classfile.AccAbstract,
			Returns:     Int,
			Parameters:  []TypeRef{String},
			Exceptions:  []TypeRef{Class("java/io/IOException")},
			Annotations: []Annotation{{TypeDescriptor: "Lcom/example/Marker;"}},
			DeclaredBy:  "com/example/Round",
		}},
	}
	if diff := cmp.Diff(want, desc, cmp.AllowUnexported(TypeRef{})); diff != "" {
		t.Errorf("description mismatch (-want +got):\n%s", diff)
	}
}
