// Package groupstore provides the content-group configuration consumed by
// the dependency engine.
package groupstore

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/agentic-research/bundledeps/api"
)

// ErrGroupNotFound is returned by FindGroup for an unknown group name.
var ErrGroupNotFound = errors.New("group not found")

// Store exposes the configured groups.
type Store interface {
	// Groups returns every group in declaration order.
	Groups() []*api.Group
	// FindGroup looks a group up by name, ignoring case, since bundle names
	// only carry the lowercased group name.
	FindGroup(name string) (*api.Group, error)
}

// ConfigError reports a malformed group configuration file.
type ConfigError struct {
	File    string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s", e.File, e.Message)
}

// Settings is an in-memory Store.
type Settings struct {
	mu     sync.RWMutex
	groups []*api.Group
	byName map[string]*api.Group // lowercased name → group
}

// NewSettings returns an empty in-memory store.
func NewSettings() *Settings {
	return &Settings{byName: make(map[string]*api.Group)}
}

// AddGroup appends g. Names must be non-empty and unique ignoring case.
func (s *Settings) AddGroup(g *api.Group) error {
	if g == nil || g.Name == "" {
		return errors.New("group name is required")
	}
	key := strings.ToLower(g.Name)

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.byName[key]; ok {
		return fmt.Errorf("duplicate group %q (already defined as %q)", g.Name, existing.Name)
	}
	s.byName[key] = g
	s.groups = append(s.groups, g)
	return nil
}

// Groups implements Store.
func (s *Settings) Groups() []*api.Group {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*api.Group, len(s.groups))
	copy(out, s.groups)
	return out
}

// FindGroup implements Store.
func (s *Settings) FindGroup(name string) (*api.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.byName[strings.ToLower(name)]
	if !ok {
		return nil, ErrGroupNotFound
	}
	return g, nil
}

var _ Store = (*Settings)(nil)
