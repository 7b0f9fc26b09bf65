package dist

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/forgelabs/typeforge/compose"
	"github.com/forgelabs/typeforge/writer"
)

func sampleResult() *compose.Result {
	return &compose.Result{
		Primary: &writer.ClassArtifact{Name: "demo/Composed", Bytes: []byte{0xCA, 0xFE}},
		Auxiliaries: []*writer.ClassArtifact{
			{Name: "demo/Composed$Auxiliary$01", Bytes: []byte{0xBA, 0xBE}},
		},
		References: map[string][]string{
			"demo/Composed":              {"demo/Composed$Auxiliary$01"},
			"demo/Composed$Auxiliary$01": {"demo/Composed"},
		},
	}
}

func TestBundleRoundTrip(t *testing.T) {
	b := FromResult(sampleResult())
	data, err := MarshalBundle(b)
	if err != nil {
		t.Fatalf("MarshalBundle() error = %v", err)
	}
	back, err := UnmarshalBundle(data)
	if err != nil {
		t.Fatalf("UnmarshalBundle() error = %v", err)
	}
	if diff := cmp.Diff(b, back); diff != "" {
		t.Errorf("bundle round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestMarshalBundleIsCanonical(t *testing.T) {
	a, err := MarshalBundle(FromResult(sampleResult()))
	if err != nil {
		t.Fatalf("MarshalBundle() error = %v", err)
	}
	b, err := MarshalBundle(FromResult(sampleResult()))
	if err != nil {
		t.Fatalf("MarshalBundle() error = %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Error("equal bundles encoded to different bytes")
	}
}

func TestLoadOrderPrefersReferencedFirst(t *testing.T) {
	res := &compose.Result{
		Primary: &writer.ClassArtifact{Name: "demo/Composed"},
		Auxiliaries: []*writer.ClassArtifact{
			{Name: "demo/Helper"},
		},
		References: map[string][]string{
			"demo/Composed": {"demo/Helper"},
		},
	}
	order, err := FromResult(res).LoadOrder()
	if err != nil {
		t.Fatalf("LoadOrder() error = %v", err)
	}
	want := []string{"demo/Helper", "demo/Composed"}
	if diff := cmp.Diff(want, order); diff != "" {
		t.Errorf("LoadOrder() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadOrderHandlesCycles(t *testing.T) {
	order, err := FromResult(sampleResult()).LoadOrder()
	if err != nil {
		t.Fatalf("LoadOrder() error = %v", err)
	}
	if len(order) != 2 {
		t.Fatalf("len(order) = %d, want every entry once", len(order))
	}
	seen := map[string]bool{}
	for _, name := range order {
		if seen[name] {
			t.Errorf("entry %s listed twice", name)
		}
		seen[name] = true
	}
}

func TestLoadOrderMissingPrimary(t *testing.T) {
	b := &Bundle{Primary: "demo/Ghost"}
	if _, err := b.LoadOrder(); err == nil {
		t.Error("LoadOrder() error = nil, want missing primary error")
	}
}
