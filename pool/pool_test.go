package pool

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/forgelabs/typeforge/pkg/classfile"
	"github.com/forgelabs/typeforge/typedesc"
)

func TestResolveCaches(t *testing.T) {
	var calls int32
	p := New(func(name string) (*typedesc.TypeDescription, error) {
		atomic.AddInt32(&calls, 1)
		return &typedesc.TypeDescription{Name: name}, nil
	})
	for i := 0; i < 3; i++ {
		if _, err := p.Resolve("demo/Widget"); err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("resolver calls = %d, want 1", got)
	}
	if p.Len() != 1 {
		t.Errorf("Len() = %d, want 1", p.Len())
	}
}

func TestResolveSingleFlight(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	p := New(func(name string) (*typedesc.TypeDescription, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return &typedesc.TypeDescription{Name: name}, nil
	})

	const workers = 8
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			if _, err := p.Resolve("demo/Widget"); err != nil {
				t.Errorf("Resolve() error = %v", err)
			}
		}()
	}
	close(release)
	wg.Wait()
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("resolver calls = %d, want 1 for concurrent lookups of one key", got)
	}
}

func TestResolveDoesNotCacheFailures(t *testing.T) {
	var calls int32
	p := New(func(name string) (*typedesc.TypeDescription, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return nil, errors.New("transiently absent")
		}
		return &typedesc.TypeDescription{Name: name}, nil
	})
	if _, err := p.Resolve("demo/Widget"); err == nil {
		t.Fatal("first Resolve() error = nil, want error")
	}
	if _, err := p.Resolve("demo/Widget"); err != nil {
		t.Fatalf("second Resolve() error = %v", err)
	}
}

func TestSeedAndFind(t *testing.T) {
	p := New(func(name string) (*typedesc.TypeDescription, error) {
		return nil, errors.New("unreachable source")
	})
	p.Seed(&typedesc.TypeDescription{Name: "demo/Seeded"})

	desc, ok := p.Find("demo/Seeded")
	if !ok || desc.Name != "demo/Seeded" {
		t.Errorf("Find(seeded) = %v, %v; want the seeded description", desc, ok)
	}
	if _, ok := p.Find("demo/Absent"); ok {
		t.Error("Find(absent) = true, want boundary miss")
	}
}

func TestDirResolver(t *testing.T) {
	dir := t.TempDir()
	b := classfile.NewClassBuilder("demo/Disk", "java/lang/Object", classfile.AccPublic, classfile.Java8, 0)
	data, err := b.Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	path := filepath.Join(dir, "demo", "Disk.class")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	p := New(DirResolver(dir))
	desc, err := p.Resolve("demo/Disk")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if desc.Name != "demo/Disk" {
		t.Errorf("Name = %q, want demo/Disk", desc.Name)
	}
	if _, err := p.Resolve("demo/Missing"); err == nil {
		t.Error("Resolve(missing) error = nil, want error")
	}
}
