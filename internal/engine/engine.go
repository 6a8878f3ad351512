// Package engine computes and caches, per bundle, the sorted list of dynamic
// assets the bundle transitively depends on.
//
// Every bundle entry has two levels: the raw dependency set returned by the
// asset graph, and the dynamic list derived from it by the classifier. Both
// are written together by updateBundle, so they never disagree. Entries are
// created by a full pass (BuildAllGroups) or lazily, one group at a time,
// when Dependencies misses the cache.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/agentic-research/bundledeps/api"
	"github.com/agentic-research/bundledeps/internal/assetgraph"
	"github.com/agentic-research/bundledeps/internal/bundlename"
	"github.com/agentic-research/bundledeps/internal/classify"
	"github.com/agentic-research/bundledeps/internal/groupstore"
)

var (
	// ErrBundleNotFound means the bundle is unknown and could not be built.
	ErrBundleNotFound = errors.New("bundle not found")
	// ErrNoSettings means no group configuration is available.
	ErrNoSettings = errors.New("no group settings")
)

// BundleDeps is one cache entry.
type BundleDeps struct {
	Name    string
	Raw     []string // sorted, distinct
	Dynamic []string // sorted, distinct, subset of Raw
}

// Engine owns the classification rules and the two-level bundle cache.
// It is safe for concurrent use. Builds of different groups proceed in
// parallel; concurrent on-demand builds of the same group are collapsed.
type Engine struct {
	oracle assetgraph.Oracle
	rules  *classify.Rules

	mu      sync.RWMutex
	store   groupstore.Store
	raw     map[string][]string
	dynamic map[string][]string

	groupLocks sync.Map // lowercased group name → *sync.Mutex
}

// New creates an engine querying oracle. A nil rules gets an empty rule set.
func New(oracle assetgraph.Oracle, rules *classify.Rules) *Engine {
	if rules == nil {
		rules = classify.New()
	}
	return &Engine{
		oracle:  oracle,
		rules:   rules,
		raw:     make(map[string][]string),
		dynamic: make(map[string][]string),
	}
}

// Rules returns the engine's rule set.
func (e *Engine) Rules() *classify.Rules {
	return e.rules
}

// SetStore sets the configuration used for on-demand builds.
func (e *Engine) SetStore(store groupstore.Store) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.store = store
}

// AddStaticFolders registers static folder rules.
// Cached lists are not re-derived; call Reclassify or rebuild.
func (e *Engine) AddStaticFolders(folders ...string) {
	e.rules.AddStaticFolders(folders...)
}

// AddStaticSuffixes registers static suffix rules.
// Cached lists are not re-derived; call Reclassify or rebuild.
func (e *Engine) AddStaticSuffixes(suffixes ...string) {
	e.rules.AddStaticSuffixes(suffixes...)
}

// IsDynamic classifies a single path under the current rules.
func (e *Engine) IsDynamic(path string) bool {
	return e.rules.IsDynamic(path)
}

// BuildAllGroups builds every group in store, overwriting previous entries
// for the bundles they produce. store also becomes the configuration used
// for later on-demand builds.
func (e *Engine) BuildAllGroups(ctx context.Context, store groupstore.Store) error {
	if store == nil {
		log.Printf("engine: %v", ErrNoSettings)
		return ErrNoSettings
	}
	e.SetStore(store)

	for _, g := range store.Groups() {
		if err := e.BuildGroup(ctx, g); err != nil {
			return err
		}
	}
	return nil
}

// BuildGroup builds the bundles of a single group. A group without a bundled
// schema produces nothing.
func (e *Engine) BuildGroup(ctx context.Context, g *api.Group) error {
	lock := e.groupLock(g.Name)
	lock.Lock()
	defer lock.Unlock()
	return e.buildGroupLocked(ctx, g)
}

func (e *Engine) buildGroupLocked(ctx context.Context, g *api.Group) error {
	for _, schema := range g.Schemas {
		mode, ok := schema.BundleMode()
		if !ok {
			continue
		}
		switch mode {
		case api.PackTogether:
			paths := make([]string, 0, len(g.Entries))
			for _, entry := range g.Entries {
				paths = append(paths, entry.Path)
			}
			name := api.PackTogetherBundleName(g.Name)
			if err := e.buildBundle(ctx, g.Name, name, paths); err != nil {
				return err
			}
		case api.PackSeparately:
			for _, entry := range g.Entries {
				name := api.PackSeparatelyBundleName(g.Name, entry.Address)
				if err := e.buildBundle(ctx, g.Name, name, []string{entry.Path}); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (e *Engine) buildBundle(ctx context.Context, group, name string, paths []string) error {
	deps, err := e.oracle.Dependencies(ctx, paths)
	if err != nil {
		return fmt.Errorf("dependencies of bundle %s (group %s): %w", name, group, err)
	}
	if m, ok := bundlename.Resolve(name); !ok || m.Group != strings.ToLower(group) {
		log.Printf("engine: bundle %q does not resolve back to group %q; on-demand lookups will miss it", name, group)
	}
	e.updateBundle(name, deps)
	return nil
}

// updateBundle replaces both cache levels for name in one step.
func (e *Engine) updateBundle(name string, deps []string) {
	raw := dedupSorted(deps)
	dynamic := e.rules.Filter(raw)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.raw[name] = raw
	e.dynamic[name] = dynamic
}

// Dependencies returns the sorted dynamic dependencies of bundleName.
//
// On a cache miss the owning group is resolved from the name and built on
// demand. ErrBundleNotFound is returned when the name does not follow the
// bundle naming scheme, the group is unknown, or the group does not produce
// this bundle. ErrNoSettings is returned on a miss when no store has been
// set, since the group cannot be looked up at all. A known bundle without
// dynamic dependencies yields an empty, non-nil slice.
func (e *Engine) Dependencies(ctx context.Context, bundleName string) ([]string, error) {
	if deps, ok := e.cached(bundleName); ok {
		return deps, nil
	}

	groupName, ok := bundlename.ResolveGroupName(bundleName)
	if !ok {
		return nil, ErrBundleNotFound
	}

	e.mu.RLock()
	store := e.store
	e.mu.RUnlock()
	if store == nil {
		log.Printf("engine: %v", ErrNoSettings)
		return nil, ErrNoSettings
	}

	g, err := store.FindGroup(groupName)
	if errors.Is(err, groupstore.ErrGroupNotFound) {
		return nil, ErrBundleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find group %s: %w", groupName, err)
	}

	lock := e.groupLock(g.Name)
	lock.Lock()
	defer lock.Unlock()

	// Another caller may have built the group while we waited.
	if deps, ok := e.cached(bundleName); ok {
		return deps, nil
	}
	if err := e.buildGroupLocked(ctx, g); err != nil {
		return nil, err
	}
	if deps, ok := e.cached(bundleName); ok {
		return deps, nil
	}
	return nil, ErrBundleNotFound
}

func (e *Engine) cached(bundleName string) ([]string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	deps, ok := e.dynamic[bundleName]
	if !ok {
		return nil, false
	}
	return slices.Clone(deps), true
}

// RawDependencies returns the cached raw dependency set of bundleName.
// It never triggers a build.
func (e *Engine) RawDependencies(bundleName string) ([]string, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	raw, ok := e.raw[bundleName]
	if !ok {
		return nil, ErrBundleNotFound
	}
	return slices.Clone(raw), nil
}

// Bundles returns the names of all cached bundles in ascending order.
func (e *Engine) Bundles() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.raw))
	for name := range e.raw {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Snapshot returns a copy of every cache entry, ordered by bundle name.
func (e *Engine) Snapshot() []BundleDeps {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]BundleDeps, 0, len(e.raw))
	for name, raw := range e.raw {
		out = append(out, BundleDeps{
			Name:    name,
			Raw:     slices.Clone(raw),
			Dynamic: slices.Clone(e.dynamic[name]),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Reclassify re-derives every dynamic list from its raw set under the
// current rules, without querying the asset graph.
func (e *Engine) Reclassify() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for name, raw := range e.raw {
		e.dynamic[name] = e.rules.Filter(raw)
	}
}

func (e *Engine) groupLock(name string) *sync.Mutex {
	v, _ := e.groupLocks.LoadOrStore(strings.ToLower(name), &sync.Mutex{})
	return v.(*sync.Mutex)
}

func dedupSorted(paths []string) []string {
	out := slices.Clone(paths)
	if out == nil {
		out = []string{}
	}
	sort.Strings(out)
	return slices.Compact(out)
}
