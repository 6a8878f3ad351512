// Package classify decides whether an asset path is static (always bundled)
// or dynamic (tracked and resolved at load time).
package classify

import (
	"sort"
	"strings"
	"sync"
)

// AssetsRoot is the prefix every project asset path starts with.
const AssetsRoot = "Assets/"

// Rules holds the static folder and suffix rule sets.
// Both sets only grow; there is no removal.
//
// A path is static when it starts with "Assets/<folder>/" for a registered
// folder, or ends with ".<suffix>" for a registered suffix. With no rules
// registered at all, every path under "Assets/" is static.
type Rules struct {
	mu       sync.RWMutex
	folders  map[string]struct{}
	suffixes map[string]struct{}

	// gen increments on every mutation; m is rebuilt when it lags.
	gen uint64
	m   *matcher
}

// matcher is the compiled form of a rule snapshot.
type matcher struct {
	gen      uint64
	prefixes []string // "Assets/<folder>/"
	suffixes []string // ".<suffix>"
}

func (m *matcher) static(path string) bool {
	if len(m.prefixes) == 0 && len(m.suffixes) == 0 {
		return strings.HasPrefix(path, AssetsRoot)
	}
	for _, p := range m.prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	for _, s := range m.suffixes {
		if strings.HasSuffix(path, s) {
			return true
		}
	}
	return false
}

// New returns an empty rule set.
func New() *Rules {
	return &Rules{
		folders:  make(map[string]struct{}),
		suffixes: make(map[string]struct{}),
	}
}

// AddStaticFolders registers folders relative to Assets/, without leading
// or trailing slashes (e.g. "Resources", "Art/Shared").
func (r *Rules) AddStaticFolders(folders ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range folders {
		if _, ok := r.folders[f]; !ok {
			r.folders[f] = struct{}{}
			r.gen++
		}
	}
}

// AddStaticSuffixes registers file suffixes without the leading dot (e.g. "cs").
func (r *Rules) AddStaticSuffixes(suffixes ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range suffixes {
		if _, ok := r.suffixes[s]; !ok {
			r.suffixes[s] = struct{}{}
			r.gen++
		}
	}
}

// Folders returns the registered folder rules in ascending order.
func (r *Rules) Folders() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.folders)
}

// Suffixes returns the registered suffix rules in ascending order.
func (r *Rules) Suffixes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.suffixes)
}

// IsStatic reports whether path is always co-resident with its bundle.
func (r *Rules) IsStatic(path string) bool {
	return r.compiled().static(path)
}

// IsDynamic is the negation of IsStatic.
func (r *Rules) IsDynamic(path string) bool {
	return !r.IsStatic(path)
}

// Filter returns the dynamic paths of deps, sorted ascending and deduplicated.
// The result is never nil.
func (r *Rules) Filter(deps []string) []string {
	m := r.compiled()
	seen := make(map[string]struct{}, len(deps))
	out := make([]string, 0, len(deps))
	for _, d := range deps {
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		if !m.static(d) {
			out = append(out, d)
		}
	}
	sort.Strings(out)
	return out
}

// compiled returns a matcher reflecting the current rule sets.
func (r *Rules) compiled() *matcher {
	r.mu.RLock()
	m := r.m
	gen := r.gen
	r.mu.RUnlock()
	if m != nil && m.gen == gen {
		return m
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.m != nil && r.m.gen == r.gen {
		return r.m
	}
	m = &matcher{gen: r.gen}
	for _, f := range sortedKeys(r.folders) {
		m.prefixes = append(m.prefixes, AssetsRoot+f+"/")
	}
	for _, s := range sortedKeys(r.suffixes) {
		m.suffixes = append(m.suffixes, "."+s)
	}
	r.m = m
	return m
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
