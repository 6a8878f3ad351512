package groupstore

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/ohler55/ojg/jp"

	"github.com/agentic-research/bundledeps/api"
)

// DefaultSelector picks groups out of {"groups": [...]} documents.
const DefaultSelector = "$.groups[*]"

// LoadJSON reads a JSON document from fsys and decodes every object matched
// by the JSONPath selector as a group.
func LoadJSON(fsys billy.Filesystem, path, selector string) (*Settings, error) {
	if selector == "" {
		selector = DefaultSelector
	}
	x, err := jp.ParseString(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid jsonpath '%s': %w", selector, err)
	}

	content, err := util.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("read groups %s: %w", path, err)
	}
	var data any
	if err := json.Unmarshal(content, &data); err != nil {
		return nil, fmt.Errorf("failed to parse json %s: %w", path, err)
	}

	settings := NewSettings()
	for i, match := range x.Get(data) {
		g, err := decodeGroup(match)
		if err != nil {
			return nil, &ConfigError{File: path, Message: fmt.Sprintf("group #%d: %v", i, err)}
		}
		if err := settings.AddGroup(g); err != nil {
			return nil, &ConfigError{File: path, Message: err.Error()}
		}
	}
	return settings, nil
}

func decodeGroup(v any) (*api.Group, error) {
	if _, ok := v.(map[string]any); !ok {
		return nil, fmt.Errorf("expected object, got %T", v)
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var g api.Group
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, err
	}
	for i := range g.Entries {
		if g.Entries[i].Address == "" {
			g.Entries[i].Address = g.Entries[i].Path
		}
	}
	return &g, nil
}

// Load picks a loader by file extension: .hcl for HCL, anything else is JSON.
func Load(fsys billy.Filesystem, path, selector string) (*Settings, error) {
	if strings.EqualFold(filepath.Ext(path), ".hcl") {
		return LoadHCL(fsys, path)
	}
	return LoadJSON(fsys, path, selector)
}
