package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/bundledeps/internal/groupstore"
	"github.com/agentic-research/bundledeps/internal/manifest"
)

const testGroups = `
group "UI" {
  schema "bundled" {
    packing = "pack_together"
  }
  entry {
    path = "Assets/UI/a.png"
  }
  entry {
    path = "Assets/UI/b.png"
  }
}

group "VFX" {
  schema "bundled" {
    packing = "pack_separately"
  }
  entry {
    path    = "Assets/VFX/fire.prefab"
    address = "Fire"
  }
}
`

const testEdges = `{
  "Assets/UI/a.png": ["Assets/Shared/x.mat"],
  "Assets/UI/b.png": ["Assets/Resources/y.png"],
  "Assets/VFX/fire.prefab": ["Assets/Scripts/Fire.cs"]
}`

// resetFlags restores package-level flag state between tests.
func resetFlags(t *testing.T) {
	t.Helper()
	reset := func() {
		groupsPath, graphPath = "", ""
		selector = groupstore.DefaultSelector
		staticFolders, staticSuffixes = nil, nil
		buildOut, buildJSON, depsRaw = "", false, false
	}
	reset()
	t.Cleanup(reset)
}

func writeFixtures(t *testing.T) (groups, edges string) {
	t.Helper()
	dir := t.TempDir()
	groups = filepath.Join(dir, "groups.hcl")
	edges = filepath.Join(dir, "edges.json")
	require.NoError(t, os.WriteFile(groups, []byte(testGroups), 0o644))
	require.NoError(t, os.WriteFile(edges, []byte(testEdges), 0o644))
	return groups, edges
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestTrimAll(t *testing.T) {
	assert.Equal(t, []string{"Resources", "Art/Shared"}, trimAll([]string{"/Resources/", " Art/Shared ", "", "/"}, "/"))
	assert.Equal(t, []string{"cs"}, trimAll([]string{".cs"}, "."))
}

func TestOpenSession_MemFS(t *testing.T) {
	resetFlags(t)
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, "groups.hcl", []byte(testGroups), 0o644))
	require.NoError(t, util.WriteFile(fs, "edges.json", []byte(testEdges), 0o644))
	staticFolders = []string{"Resources"}

	s, err := openSession(fs, "groups.hcl", "edges.json")
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	deps, err := s.engine.Dependencies(context.Background(), "ui_assets_all")
	require.NoError(t, err)
	assert.Equal(t, []string{"Assets/Shared/x.mat", "Assets/UI/a.png", "Assets/UI/b.png"}, deps)
}

func TestOpenSession_RequiresPaths(t *testing.T) {
	resetFlags(t)
	fs := memfs.New()
	_, err := openSession(fs, "", "edges.json")
	assert.Error(t, err)
	_, err = openSession(fs, "groups.hcl", "")
	assert.Error(t, err)
}

func TestClassifyCommand(t *testing.T) {
	resetFlags(t)
	out, err := run(t, "classify", "--static-folder", "Resources", "--static-suffix", ".cs",
		"Assets/Resources/y.png", "Assets/UI/a.png", "Assets/Scripts/Fire.cs")
	require.NoError(t, err)
	assert.Equal(t, "static\tAssets/Resources/y.png\ndynamic\tAssets/UI/a.png\nstatic\tAssets/Scripts/Fire.cs\n", out)
}

func TestDepsCommand(t *testing.T) {
	resetFlags(t)
	groups, edges := writeFixtures(t)

	out, err := run(t, "deps", "--groups", groups, "--graph", edges, "--static-folder", "Resources", "vfx_assets_fire")
	require.NoError(t, err)
	assert.Equal(t, "Assets/Scripts/Fire.cs\nAssets/VFX/fire.prefab\n", out)

	_, err = run(t, "deps", "--groups", groups, "--graph", edges, "nonexistent_assets_all")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown bundle")
}

func TestBuildCommand_ManifestAndJSON(t *testing.T) {
	resetFlags(t)
	groups, edges := writeFixtures(t)
	dir := t.TempDir()
	graphDB := filepath.Join(dir, "graph.db")
	manifestDB := filepath.Join(dir, "manifest.db")

	_, err := run(t, "import-graph", edges, graphDB)
	require.NoError(t, err)

	out, err := run(t, "build", "--groups", groups, "--graph", graphDB,
		"--static-folder", "Resources", "--static-suffix", "cs", "--out", manifestDB, "--json")
	require.NoError(t, err)

	var lists map[string][]string
	require.NoError(t, json.Unmarshal([]byte(out), &lists))
	assert.Equal(t, map[string][]string{
		"ui_assets_all":   {"Assets/Shared/x.mat", "Assets/UI/a.png", "Assets/UI/b.png"},
		"vfx_assets_fire": {"Assets/VFX/fire.prefab"},
	}, lists)

	stored, err := manifest.Read(manifestDB)
	require.NoError(t, err)
	assert.Equal(t, lists, stored)
}

func TestBundlesCommand(t *testing.T) {
	resetFlags(t)
	groups, edges := writeFixtures(t)

	out, err := run(t, "bundles", "--groups", groups, "--graph", edges)
	require.NoError(t, err)
	assert.Equal(t, "ui_assets_all\nvfx_assets_fire\n", out)
}

func TestMCPHandlers(t *testing.T) {
	resetFlags(t)
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, "groups.hcl", []byte(testGroups), 0o644))
	require.NoError(t, util.WriteFile(fs, "edges.json", []byte(testEdges), 0o644))
	staticFolders = []string{"Resources"}

	s, err := openSession(fs, "groups.hcl", "edges.json")
	require.NoError(t, err)
	require.NotNil(t, newMCPServer(s.engine, s.store))

	ctx := context.Background()
	call := func(args map[string]any) mcp.CallToolRequest {
		var req mcp.CallToolRequest
		req.Params.Arguments = args
		return req
	}
	text := func(t *testing.T, res *mcp.CallToolResult) string {
		t.Helper()
		require.NotEmpty(t, res.Content)
		tc, ok := res.Content[0].(mcp.TextContent)
		require.True(t, ok)
		return tc.Text
	}

	res, err := dependenciesHandler(s.engine)(ctx, call(map[string]any{"bundle": "ui_assets_all"}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, "Assets/Shared/x.mat\nAssets/UI/a.png\nAssets/UI/b.png", text(t, res))

	res, err = dependenciesHandler(s.engine)(ctx, call(map[string]any{"bundle": "nope_assets_all"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = dependenciesHandler(s.engine)(ctx, call(map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = classifyHandler(s.engine)(ctx, call(map[string]any{"path": "Assets/Resources/y.png"}))
	require.NoError(t, err)
	assert.Equal(t, "static", text(t, res))

	res, err = listBundlesHandler(s.engine, s.store)(ctx, call(nil))
	require.NoError(t, err)
	assert.Equal(t, "ui_assets_all\nvfx_assets_fire", text(t, res))

	res, err = addStaticRulesHandler(s.engine)(ctx, call(map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = addStaticRulesHandler(s.engine)(ctx, call(map[string]any{"folders": "Shared/, ", "suffixes": ".cs"}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	assert.Equal(t, "folders: Resources,Shared\nsuffixes: cs", text(t, res))

	// Cached lists are re-derived without another build.
	res, err = dependenciesHandler(s.engine)(ctx, call(map[string]any{"bundle": "ui_assets_all"}))
	require.NoError(t, err)
	assert.Equal(t, "Assets/UI/a.png\nAssets/UI/b.png", text(t, res))

	res, err = dependenciesHandler(s.engine)(ctx, call(map[string]any{"bundle": "vfx_assets_fire"}))
	require.NoError(t, err)
	assert.Equal(t, "Assets/VFX/fire.prefab", text(t, res))
}
