// Package dist packages a composition's artifact set for a consumer: every
// class artifact plus the reference edges between them, CBOR-encoded
// canonically so equal compositions bundle to equal bytes.
package dist

import (
	"fmt"
	"sort"

	"github.com/forgelabs/typeforge/compose"
)

// Entry is one class artifact inside a bundle.
type Entry struct {
	Name       string   `cbor:"1,keyasint"`
	Bytes      []byte   `cbor:"2,keyasint"`
	References []string `cbor:"3,keyasint,omitempty"` // other bundle entries only
}

// Bundle is the complete output of one composition pass.
type Bundle struct {
	Primary string  `cbor:"1,keyasint"`
	Entries []Entry `cbor:"2,keyasint"`
}

// FromResult bundles a composition result. Entry order is primary first,
// auxiliaries in synthesis order.
func FromResult(res *compose.Result) *Bundle {
	b := &Bundle{Primary: res.Primary.Name}
	for _, art := range res.Artifacts() {
		b.Entries = append(b.Entries, Entry{
			Name:       art.Name,
			Bytes:      art.Bytes,
			References: res.References[art.Name],
		})
	}
	return b
}

// Entry returns the named entry.
func (b *Bundle) Entry(name string) (*Entry, bool) {
	for i := range b.Entries {
		if b.Entries[i].Name == name {
			return &b.Entries[i], true
		}
	}
	return nil, false
}

// LoadOrder suggests a definition order for consumers that prefer
// referenced types first: a depth-first walk from the primary type,
// emitting dependencies before dependents. Reference cycles are legal in
// the artifact set; a back edge is simply skipped, so the order is a
// preference, not a topological guarantee. The result is deterministic and
// always contains every entry exactly once.
func (b *Bundle) LoadOrder() ([]string, error) {
	if _, ok := b.Entry(b.Primary); !ok {
		return nil, fmt.Errorf("dist: bundle primary %s has no entry", b.Primary)
	}
	var out []string
	visited := make(map[string]bool, len(b.Entries))
	var walk func(name string)
	walk = func(name string) {
		if visited[name] {
			return
		}
		visited[name] = true
		entry, ok := b.Entry(name)
		if !ok {
			return
		}
		refs := append([]string(nil), entry.References...)
		sort.Strings(refs)
		for _, ref := range refs {
			walk(ref)
		}
		out = append(out, name)
	}
	walk(b.Primary)
	for _, e := range b.Entries {
		walk(e.Name)
	}
	return out, nil
}
