package cmd

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"

	"github.com/agentic-research/bundledeps/internal/assetgraph"
	"github.com/agentic-research/bundledeps/internal/classify"
	"github.com/agentic-research/bundledeps/internal/engine"
	"github.com/agentic-research/bundledeps/internal/groupstore"
)

var (
	groupsPath     string
	graphPath      string
	selector       string
	staticFolders  []string
	staticSuffixes []string
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&groupsPath, "groups", "g", "", "Path to group configuration (.hcl or .json)")
	pf.StringVar(&graphPath, "graph", "", "Path to asset graph (SQLite .db or JSON edge list)")
	pf.StringVar(&selector, "selector", groupstore.DefaultSelector, "JSONPath selecting groups in a JSON group file")
	pf.StringSliceVar(&staticFolders, "static-folder", nil, "Static folder under Assets/ (repeatable, comma separated)")
	pf.StringSliceVar(&staticSuffixes, "static-suffix", nil, "Static file suffix without the dot (repeatable, comma separated)")
}

var rootCmd = &cobra.Command{
	Use:           "bundledeps",
	Short:         "Compute the dynamic asset dependencies of content bundles",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// session bundles everything a command needs and releases it on Close.
type session struct {
	engine *engine.Engine
	store  *groupstore.Settings
	closer func() error
}

func (s *session) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}

// newRules builds the rule set from --static-folder/--static-suffix.
func newRules() *classify.Rules {
	rules := classify.New()
	rules.AddStaticFolders(trimAll(staticFolders, "/")...)
	rules.AddStaticSuffixes(trimAll(staticSuffixes, ".")...)
	return rules
}

// openSession loads the group configuration and asset graph and wires them
// into a fresh engine.
func openSession(fsys billy.Filesystem, groups, graph string) (*session, error) {
	if groups == "" {
		return nil, fmt.Errorf("--groups is required")
	}
	if graph == "" {
		return nil, fmt.Errorf("--graph is required")
	}

	store, err := groupstore.Load(fsys, groups, selector)
	if err != nil {
		return nil, err
	}

	oracle, closer, err := openOracle(fsys, graph)
	if err != nil {
		return nil, err
	}

	e := engine.New(oracle, newRules())
	e.SetStore(store)
	return &session{engine: e, store: store, closer: closer}, nil
}

// openOracle opens a SQLite asset graph, or loads a JSON edge list into memory.
func openOracle(fsys billy.Filesystem, path string) (assetgraph.Oracle, func() error, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		g, err := assetgraph.LoadJSON(fsys, path)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("graph: loaded %d assets from %s", g.Len(), path)
		return g, nil, nil
	}
	g, err := assetgraph.OpenSQLiteGraph(path)
	if err != nil {
		return nil, nil, err
	}
	return g, g.Close, nil
}

// openHostSession opens a session from the persistent flags on the host filesystem.
func openHostSession() (*session, error) {
	return openSession(osfs.New("/"), absPath(groupsPath), absPath(graphPath))
}

// absPath makes path absolute so it can be read through a root-based osfs.
func absPath(path string) string {
	if path == "" {
		return ""
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

func trimAll(in []string, cutset string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.Trim(strings.TrimSpace(s), cutset)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
