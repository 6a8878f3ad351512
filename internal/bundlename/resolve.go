// Package bundlename recovers the owning group of a generated bundle name.
//
// Bundle names have two shapes:
//
//	<group>_assets_all       pack-together groups
//	<group>_assets_<member>  pack-separately groups
//
// The pack-together shape is always tried first, so a name matching both
// resolves as pack-together.
package bundlename

import (
	"strings"

	"github.com/agentic-research/bundledeps/api"
)

const packTogetherSuffix = api.BundleSeparator + api.AllMember

// Match is a successful resolution.
type Match struct {
	Group   string
	Member  string // address part; "all" for pack-together bundles
	Packing api.PackingMode
}

// Resolve splits bundleName into its group and member parts.
func Resolve(bundleName string) (Match, bool) {
	if group, ok := strings.CutSuffix(bundleName, packTogetherSuffix); ok {
		return Match{Group: group, Member: api.AllMember, Packing: api.PackTogether}, true
	}
	// Greedy group capture: split at the last separator.
	i := strings.LastIndex(bundleName, api.BundleSeparator)
	if i < 0 {
		return Match{}, false
	}
	return Match{
		Group:   bundleName[:i],
		Member:  bundleName[i+len(api.BundleSeparator):],
		Packing: api.PackSeparately,
	}, true
}

// ResolveGroupName returns only the group part of bundleName.
func ResolveGroupName(bundleName string) (string, bool) {
	m, ok := Resolve(bundleName)
	if !ok {
		return "", false
	}
	return m.Group, true
}
