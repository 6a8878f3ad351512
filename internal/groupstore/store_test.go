package groupstore

import (
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/bundledeps/api"
)

const testHCL = `
group "UI" {
  schema "bundled" {
    packing = "pack_together"
  }
  entry {
    path = "Assets/UI/a.png"
  }
  entry {
    path    = "Assets/UI/b.png"
    address = "b"
  }
}

group "VFX" {
  schema "content_update" {}
  schema "bundled" {
    packing = "pack_separately"
  }
  entry {
    path    = "Assets/VFX/fire.prefab"
    address = "Fire"
  }
}

group "Loose" {}
`

const testJSON = `{
  "version": "1",
  "groups": [
    {
      "name": "UI",
      "schemas": [{"kind": "bundled", "packing": "pack_together"}],
      "entries": [{"path": "Assets/UI/a.png"}, {"path": "Assets/UI/b.png", "address": "b"}]
    },
    {
      "name": "VFX",
      "schemas": [{"kind": "bundled", "packing": "pack_separately"}],
      "entries": [{"path": "Assets/VFX/fire.prefab", "address": "Fire"}]
    }
  ]
}`

func TestSettings_FindGroupIgnoresCase(t *testing.T) {
	s := NewSettings()
	require.NoError(t, s.AddGroup(&api.Group{Name: "UI"}))

	g, err := s.FindGroup("ui")
	require.NoError(t, err)
	assert.Equal(t, "UI", g.Name)

	_, err = s.FindGroup("nonexistent")
	assert.ErrorIs(t, err, ErrGroupNotFound)
}

func TestSettings_RejectsDuplicatesAndEmptyNames(t *testing.T) {
	s := NewSettings()
	require.NoError(t, s.AddGroup(&api.Group{Name: "UI"}))
	assert.Error(t, s.AddGroup(&api.Group{Name: "ui"}))
	assert.Error(t, s.AddGroup(&api.Group{}))
	assert.Error(t, s.AddGroup(nil))
	assert.Len(t, s.Groups(), 1)
}

func TestLoadHCL(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, "groups.hcl", []byte(testHCL), 0o644))

	s, err := LoadHCL(fs, "groups.hcl")
	require.NoError(t, err)

	groups := s.Groups()
	require.Len(t, groups, 3)
	assert.Equal(t, "UI", groups[0].Name)
	assert.Equal(t, "VFX", groups[1].Name)
	assert.Equal(t, "Loose", groups[2].Name)

	ui := groups[0]
	require.Len(t, ui.Schemas, 1)
	mode, ok := ui.Schemas[0].BundleMode()
	require.True(t, ok)
	assert.Equal(t, api.PackTogether, mode)
	assert.Equal(t, []api.Entry{
		{Path: "Assets/UI/a.png", Address: "Assets/UI/a.png"},
		{Path: "Assets/UI/b.png", Address: "b"},
	}, ui.Entries)

	vfx := groups[1]
	require.Len(t, vfx.Schemas, 2)
	_, ok = vfx.Schemas[0].BundleMode()
	assert.False(t, ok, "content_update schema declares no packing")
	mode, ok = vfx.Schemas[1].BundleMode()
	require.True(t, ok)
	assert.Equal(t, api.PackSeparately, mode)

	assert.Empty(t, groups[2].Schemas)
}

func TestLoadHCL_Errors(t *testing.T) {
	fs := memfs.New()

	_, err := LoadHCL(fs, "missing.hcl")
	require.Error(t, err)

	require.NoError(t, util.WriteFile(fs, "syntax.hcl", []byte(`group "UI" {`), 0o644))
	_, err = LoadHCL(fs, "syntax.hcl")
	require.Error(t, err)

	require.NoError(t, util.WriteFile(fs, "mode.hcl", []byte(`
group "UI" {
  schema "bundled" {
    packing = "sideways"
  }
}`), 0o644))
	_, err = LoadHCL(fs, "mode.hcl")
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "mode.hcl", cfgErr.File)

	require.NoError(t, util.WriteFile(fs, "dup.hcl", []byte(`
group "UI" {}
group "ui" {}
`), 0o644))
	_, err = LoadHCL(fs, "dup.hcl")
	require.ErrorAs(t, err, &cfgErr)
}

func TestLoadJSON(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, "groups.json", []byte(testJSON), 0o644))

	s, err := LoadJSON(fs, "groups.json", "")
	require.NoError(t, err)
	groups := s.Groups()
	require.Len(t, groups, 2)
	assert.Equal(t, "Assets/UI/a.png", groups[0].Entries[0].Address, "address defaults to path")
	assert.Equal(t, "Fire", groups[1].Entries[0].Address)

	mode, ok := groups[1].Schemas[0].BundleMode()
	require.True(t, ok)
	assert.Equal(t, api.PackSeparately, mode)
}

func TestLoadJSON_CustomSelector(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, "groups.json", []byte(testJSON), 0o644))

	s, err := LoadJSON(fs, "groups.json", `$.groups[?(@.name == 'VFX')]`)
	require.NoError(t, err)
	require.Len(t, s.Groups(), 1)
	assert.Equal(t, "VFX", s.Groups()[0].Name)

	_, err = LoadJSON(fs, "groups.json", "$[")
	require.Error(t, err)
}

func TestLoadJSON_Errors(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, "bad.json", []byte(`{"groups": [`), 0o644))
	_, err := LoadJSON(fs, "bad.json", "")
	require.Error(t, err)

	require.NoError(t, util.WriteFile(fs, "scalar.json", []byte(`{"groups": [1]}`), 0o644))
	_, err = LoadJSON(fs, "scalar.json", "")
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)

	require.NoError(t, util.WriteFile(fs, "mode.json", []byte(`{"groups": [{"name": "A", "schemas": [{"kind": "bundled", "packing": "nope"}]}]}`), 0o644))
	_, err = LoadJSON(fs, "mode.json", "")
	require.ErrorAs(t, err, &cfgErr)
}

func TestLoad_DispatchesOnExtension(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, "groups.HCL", []byte(testHCL), 0o644))
	require.NoError(t, util.WriteFile(fs, "groups.json", []byte(testJSON), 0o644))

	s, err := Load(fs, "groups.HCL", "")
	require.NoError(t, err)
	assert.Len(t, s.Groups(), 3)

	s, err = Load(fs, "groups.json", "")
	require.NoError(t, err)
	assert.Len(t, s.Groups(), 2)
}
