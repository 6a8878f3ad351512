package assetgraph

import (
	"encoding/json"
	"fmt"
	"sort"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

// Edges maps an asset path to the paths it directly references.
// On disk it is a JSON object: {"Assets/a.prefab": ["Assets/b.mat"]}.
type Edges map[string][]string

// ReadEdges parses an edge-list JSON file from fsys.
func ReadEdges(fsys billy.Filesystem, path string) (Edges, error) {
	data, err := util.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("read edges %s: %w", path, err)
	}
	var edges Edges
	if err := json.Unmarshal(data, &edges); err != nil {
		return nil, fmt.Errorf("failed to parse edges %s: %w", path, err)
	}
	return edges, nil
}

// sortedAssets returns the edge sources in ascending order so imports are
// deterministic.
func (e Edges) sortedAssets() []string {
	out := make([]string, 0, len(e))
	for k := range e {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Load builds a MemoryGraph from edges.
func (e Edges) Load(g *MemoryGraph) {
	for _, from := range e.sortedAssets() {
		g.AddAsset(from)
		for _, to := range e[from] {
			g.AddDependency(from, to)
		}
	}
}

// Write copies edges into a SQLite asset graph.
// Assets without references are not representable in asset_deps and are
// skipped; they still resolve to themselves at query time.
func (e Edges) Write(w *SQLiteGraphWriter) (int, error) {
	n := 0
	for _, from := range e.sortedAssets() {
		for _, to := range e[from] {
			if err := w.AddDependency(from, to); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}

// LoadJSON reads an edge-list file into a new MemoryGraph.
func LoadJSON(fsys billy.Filesystem, path string) (*MemoryGraph, error) {
	edges, err := ReadEdges(fsys, path)
	if err != nil {
		return nil, err
	}
	g := NewMemoryGraph()
	edges.Load(g)
	return g, nil
}
