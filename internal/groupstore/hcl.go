package groupstore

import (
	"fmt"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/agentic-research/bundledeps/api"
)

// hclRoot is the top-level structure of a group file.
//
//	group "UI" {
//	  schema "bundled" { packing = "pack_together" }
//	  entry { path = "Assets/UI/a.png" }
//	}
type hclRoot struct {
	Groups []*hclGroup `hcl:"group,block"`
}

type hclGroup struct {
	Name    string       `hcl:"name,label"`
	Schemas []*hclSchema `hcl:"schema,block"`
	Entries []*hclEntry  `hcl:"entry,block"`
}

type hclSchema struct {
	Kind    string  `hcl:"kind,label"`
	Packing *string `hcl:"packing,optional"`
}

type hclEntry struct {
	Path    string  `hcl:"path"`
	Address *string `hcl:"address,optional"`
}

// LoadHCL reads an HCL group file from fsys.
func LoadHCL(fsys billy.Filesystem, path string) (*Settings, error) {
	src, err := util.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("read groups %s: %w", path, err)
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
	}

	var root hclRoot
	if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", path, diags)
	}

	settings := NewSettings()
	for _, hg := range root.Groups {
		g, err := hg.translate(path)
		if err != nil {
			return nil, err
		}
		if err := settings.AddGroup(g); err != nil {
			return nil, &ConfigError{File: path, Message: err.Error()}
		}
	}
	return settings, nil
}

func (hg *hclGroup) translate(file string) (*api.Group, error) {
	g := &api.Group{Name: hg.Name}
	for _, hs := range hg.Schemas {
		s := api.Schema{Kind: hs.Kind}
		if hs.Packing != nil {
			mode, err := api.ParsePackingMode(*hs.Packing)
			if err != nil {
				return nil, &ConfigError{File: file, Message: fmt.Sprintf("group %q: %v", hg.Name, err)}
			}
			s.Packing = mode
		}
		g.Schemas = append(g.Schemas, s)
	}
	for _, he := range hg.Entries {
		g.Entries = append(g.Entries, newEntry(he.Path, he.Address))
	}
	return g, nil
}

// newEntry defaults the address to the asset path.
func newEntry(path string, address *string) api.Entry {
	e := api.Entry{Path: path, Address: path}
	if address != nil && *address != "" {
		e.Address = *address
	}
	return e
}
