package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/agentic-research/bundledeps/internal/engine"
	"github.com/agentic-research/bundledeps/internal/groupstore"
)

const serverVersion = "0.1.0"

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve dependency queries over MCP (stdio)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openHostSession()
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()
		return server.ServeStdio(newMCPServer(s.engine, s.store))
	},
}

// newMCPServer exposes the engine as MCP tools. Bundles are built lazily on
// first lookup; list_bundles forces a full pass.
func newMCPServer(e *engine.Engine, store groupstore.Store) *server.MCPServer {
	s := server.NewMCPServer("bundledeps", serverVersion, server.WithToolCapabilities(false))

	s.AddTool(mcp.NewTool("dynamic_dependencies",
		mcp.WithDescription("Sorted dynamic asset dependencies of a bundle"),
		mcp.WithString("bundle", mcp.Required(), mcp.Description("Bundle name, e.g. ui_assets_all")),
	), dependenciesHandler(e))

	s.AddTool(mcp.NewTool("classify_asset",
		mcp.WithDescription("Report whether an asset path is static or dynamic"),
		mcp.WithString("path", mcp.Required(), mcp.Description("Asset path, e.g. Assets/UI/a.png")),
	), classifyHandler(e))

	s.AddTool(mcp.NewTool("list_bundles",
		mcp.WithDescription("Build every group and list the resulting bundle names"),
	), listBundlesHandler(e, store))

	s.AddTool(mcp.NewTool("add_static_rules",
		mcp.WithDescription("Register static folder/suffix rules and re-derive every cached dynamic list"),
		mcp.WithString("folders", mcp.Description("Comma separated folders under Assets/, e.g. Resources,Editor")),
		mcp.WithString("suffixes", mcp.Description("Comma separated suffixes without the dot, e.g. cs,shader")),
	), addStaticRulesHandler(e))

	return s
}

func dependenciesHandler(e *engine.Engine) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		bundle, err := req.RequireString("bundle")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		deps, err := e.Dependencies(ctx, bundle)
		if errors.Is(err, engine.ErrBundleNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("unknown bundle %q", bundle)), nil
		}
		if err != nil {
			return nil, err
		}
		return mcp.NewToolResultText(strings.Join(deps, "\n")), nil
	}
}

func classifyHandler(e *engine.Engine) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path, err := req.RequireString("path")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if e.IsDynamic(path) {
			return mcp.NewToolResultText("dynamic"), nil
		}
		return mcp.NewToolResultText("static"), nil
	}
}

func listBundlesHandler(e *engine.Engine, store groupstore.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if err := e.BuildAllGroups(ctx, store); err != nil {
			return nil, err
		}
		return mcp.NewToolResultText(strings.Join(e.Bundles(), "\n")), nil
	}
}

func addStaticRulesHandler(e *engine.Engine) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		folders := trimAll(strings.Split(req.GetString("folders", ""), ","), "/")
		suffixes := trimAll(strings.Split(req.GetString("suffixes", ""), ","), ".")
		if len(folders) == 0 && len(suffixes) == 0 {
			return mcp.NewToolResultError("at least one of folders or suffixes is required"), nil
		}
		e.AddStaticFolders(folders...)
		e.AddStaticSuffixes(suffixes...)
		e.Reclassify()

		rules := e.Rules()
		return mcp.NewToolResultText(fmt.Sprintf("folders: %s\nsuffixes: %s",
			strings.Join(rules.Folders(), ","), strings.Join(rules.Suffixes(), ","))), nil
	}
}
