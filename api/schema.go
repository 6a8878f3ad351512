package api

import (
	"fmt"
	"strings"
)

// BundleSeparator joins a group name to the member part of a bundle name.
// Group names must not contain "assets", otherwise resolution is ambiguous.
const BundleSeparator = "_assets_"

// AllMember is the member part of a pack-together bundle name.
const AllMember = "all"

// SchemaKindBundled is the schema kind that declares a packing mode.
const SchemaKindBundled = "bundled"

// PackingMode controls how a group's entries are split into bundles.
type PackingMode int

const (
	// PackTogether produces one bundle for the whole group.
	PackTogether PackingMode = iota + 1
	// PackSeparately produces one bundle per entry.
	PackSeparately
)

func (m PackingMode) String() string {
	switch m {
	case PackTogether:
		return "pack_together"
	case PackSeparately:
		return "pack_separately"
	default:
		return fmt.Sprintf("PackingMode(%d)", int(m))
	}
}

// ParsePackingMode accepts the snake_case names used in group files.
func ParsePackingMode(s string) (PackingMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pack_together", "together":
		return PackTogether, nil
	case "pack_separately", "separately":
		return PackSeparately, nil
	default:
		return 0, fmt.Errorf("unknown packing mode %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m PackingMode) MarshalText() ([]byte, error) {
	if m != PackTogether && m != PackSeparately {
		return nil, fmt.Errorf("invalid packing mode %d", int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *PackingMode) UnmarshalText(b []byte) error {
	parsed, err := ParsePackingMode(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Schema is a piece of configuration attached to a group.
// Only schemas of kind "bundled" carry a packing mode; other kinds are
// preserved but ignored by the dependency engine.
type Schema struct {
	// Kind names the schema (e.g. "bundled", "content_update").
	Kind string `json:"kind"`
	// Packing is meaningful only for bundled schemas.
	Packing PackingMode `json:"packing,omitempty"`
}

// BundleMode reports the packing mode declared by this schema, if any.
func (s Schema) BundleMode() (PackingMode, bool) {
	if s.Kind != SchemaKindBundled {
		return 0, false
	}
	if s.Packing != PackTogether && s.Packing != PackSeparately {
		return 0, false
	}
	return s.Packing, true
}

// Entry is a single addressable asset inside a group.
type Entry struct {
	// Path of the asset, e.g. "Assets/UI/a.png".
	Path string `json:"path"`
	// Address is used to derive per-entry bundle names.
	Address string `json:"address,omitempty"`
}

// Group is a named collection of entries sharing a packing strategy.
type Group struct {
	Name    string   `json:"name"`
	Schemas []Schema `json:"schemas,omitempty"`
	Entries []Entry  `json:"entries,omitempty"`
}

// PackTogetherBundleName returns "<group>_assets_all", lowercased.
func PackTogetherBundleName(group string) string {
	return strings.ToLower(group) + BundleSeparator + AllMember
}

// PackSeparatelyBundleName returns "<group>_assets_<address>", lowercased.
func PackSeparatelyBundleName(group, address string) string {
	return strings.ToLower(group) + BundleSeparator + strings.ToLower(address)
}
