package assetgraph

import (
	"context"
	"sort"
	"sync"

	"github.com/RoaringBitmap/roaring"
)

// Oracle answers transitive dependency queries.
// The result contains the inputs themselves plus their full dependency
// closure, deduplicated. Implementations must be deterministic.
type Oracle interface {
	Dependencies(ctx context.Context, paths []string) ([]string, error)
}

// OracleFunc adapts a plain function to Oracle.
type OracleFunc func(ctx context.Context, paths []string) ([]string, error)

// Dependencies implements Oracle.
func (f OracleFunc) Dependencies(ctx context.Context, paths []string) ([]string, error) {
	return f(ctx, paths)
}

// -----------------------------------------------------------------------------
// In-memory asset graph
// -----------------------------------------------------------------------------

// MemoryGraph is an adjacency-list asset graph.
// Asset paths are interned to uint32 IDs so closures can use roaring bitmaps
// for the visited set.
type MemoryGraph struct {
	mu    sync.RWMutex
	ids   map[string]uint32 // path → internal ID
	paths []string          // reverse: internal ID → path
	edges map[uint32]*roaring.Bitmap
}

// NewMemoryGraph returns an empty graph.
func NewMemoryGraph() *MemoryGraph {
	return &MemoryGraph{
		ids:   make(map[string]uint32),
		edges: make(map[uint32]*roaring.Bitmap),
	}
}

// AddAsset registers a path with no dependencies.
func (g *MemoryGraph) AddAsset(path string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.intern(path)
}

// AddDependency records that from directly references to.
func (g *MemoryGraph) AddDependency(from, to string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	src := g.intern(from)
	dst := g.intern(to)
	bm, ok := g.edges[src]
	if !ok {
		bm = roaring.New()
		g.edges[src] = bm
	}
	bm.Add(dst)
}

// intern must be called with g.mu held.
func (g *MemoryGraph) intern(path string) uint32 {
	if id, ok := g.ids[path]; ok {
		return id
	}
	id := uint32(len(g.paths))
	g.ids[path] = id
	g.paths = append(g.paths, path)
	return id
}

// Len returns the number of known assets.
func (g *MemoryGraph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.paths)
}

// Dependencies implements Oracle. Unknown inputs are returned as-is with
// no further dependencies, matching how an asset database treats loose files.
func (g *MemoryGraph) Dependencies(ctx context.Context, paths []string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	visited := roaring.New()
	var unknown []string
	var stack []uint32
	for _, p := range paths {
		id, ok := g.ids[p]
		if !ok {
			unknown = append(unknown, p)
			continue
		}
		if visited.CheckedAdd(id) {
			stack = append(stack, id)
		}
	}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		bm, ok := g.edges[id]
		if !ok {
			continue
		}
		it := bm.Iterator()
		for it.HasNext() {
			next := it.Next()
			if visited.CheckedAdd(next) {
				stack = append(stack, next)
			}
		}
	}

	seen := make(map[string]struct{}, len(unknown))
	out := make([]string, 0, int(visited.GetCardinality())+len(unknown))
	it := visited.Iterator()
	for it.HasNext() {
		out = append(out, g.paths[it.Next()])
	}
	for _, p := range unknown {
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}

var _ Oracle = (*MemoryGraph)(nil)
