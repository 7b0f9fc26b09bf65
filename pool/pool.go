// Package pool is the shared, concurrency-safe cache of resolved type
// descriptions. Composition passes for different types run in parallel and
// consult the same pool; for any given name at most one underlying
// resolution is in flight, with concurrent callers reusing its result.
// Pools are constructed explicitly and injected, never process-global.
package pool

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/forgelabs/typeforge/typedesc"
)

// Resolver loads the description of an external type by internal name.
type Resolver func(internalName string) (*typedesc.TypeDescription, error)

// Pool caches resolutions by internal name.
type Pool struct {
	resolve Resolver
	group   singleflight.Group

	mu    sync.RWMutex
	cache map[string]*typedesc.TypeDescription
}

// New builds an empty pool over the given resolver.
func New(resolve Resolver) *Pool {
	return &Pool{
		resolve: resolve,
		cache:   make(map[string]*typedesc.TypeDescription),
	}
}

// Resolve returns the description for the given internal name, consulting
// the cache first. Failed resolutions are not cached; every miss retries
// the underlying resolver.
func (p *Pool) Resolve(internalName string) (*typedesc.TypeDescription, error) {
	p.mu.RLock()
	desc, ok := p.cache[internalName]
	p.mu.RUnlock()
	if ok {
		return desc, nil
	}

	v, err, _ := p.group.Do(internalName, func() (any, error) {
		d, err := p.resolve(internalName)
		if err != nil {
			return nil, err
		}
		p.mu.Lock()
		p.cache[internalName] = d
		p.mu.Unlock()
		return d, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*typedesc.TypeDescription), nil
}

// Find adapts the pool to hierarchy traversal: a name the resolver cannot
// produce is an opaque boundary, not an error.
func (p *Pool) Find(internalName string) (*typedesc.TypeDescription, bool) {
	desc, err := p.Resolve(internalName)
	if err != nil {
		return nil, false
	}
	return desc, true
}

// Seed inserts an already resolved description, typically a previously
// produced artifact's.
func (p *Pool) Seed(desc *typedesc.TypeDescription) {
	p.mu.Lock()
	p.cache[desc.Name] = desc
	p.mu.Unlock()
}

// Len returns the number of cached descriptions.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.cache)
}

// DirResolver resolves internal names against .class files under the given
// roots, first match wins.
func DirResolver(roots ...string) Resolver {
	return func(internalName string) (*typedesc.TypeDescription, error) {
		for _, root := range roots {
			path := filepath.Join(root, filepath.FromSlash(internalName)+".class")
			data, err := os.ReadFile(path)
			if err != nil {
				continue
			}
			return typedesc.FromBytes(data)
		}
		return nil, fmt.Errorf("pool: no class file for %s", internalName)
	}
}
