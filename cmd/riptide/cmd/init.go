package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/riptide-search/riptide/configs"
	"github.com/riptide-search/riptide/internal/config"
	"github.com/riptide-search/riptide/internal/output"
)

// MCPServerConfig is one server entry in .mcp.json.
type MCPServerConfig struct {
	Type    string            `json:"type,omitempty"`
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// MCPConfig is the root .mcp.json structure.
type MCPConfig struct {
	MCPServers map[string]MCPServerConfig `json:"mcpServers"`
}

func newInitCmd() *cobra.Command {
	var (
		force bool
		noMCP bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize Riptide for a project",
		Long: `Initialize Riptide in the current project.

This command:
1. Generates a .riptide.yaml configuration template at the project root
2. Registers the MCP server in .mcp.json (unless --no-mcp)
3. Creates the data directory

After running, load a corpus with 'riptide index <tenant> <corpus>'
and restart your MCP client to pick up the server.`,
		Example: `  # Initialize in current project
  riptide init

  # Overwrite an existing .riptide.yaml
  riptide init --force

  # Skip the .mcp.json registration
  riptide init --no-mcp`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd, force, noMCP)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")
	cmd.Flags().BoolVar(&noMCP, "no-mcp", false, "Skip .mcp.json registration")

	return cmd
}

func runInit(cmd *cobra.Command, force, noMCP bool) error {
	out := output.New(cmd.OutOrStdout())

	root := findRoot()
	configPath := filepath.Join(root, ".riptide.yaml")

	if _, err := os.Stat(configPath); err == nil && !force {
		out.Warning("Project already initialized")
		out.Statusf("📁", "Config: %s", configPath)
		out.Status("💡", "Use --force to overwrite")
		return nil
	}

	if err := os.WriteFile(configPath, []byte(configs.ProjectConfigTemplate), 0644); err != nil {
		return fmt.Errorf("write project config: %w", err)
	}
	out.Successf("Created %s", configPath)

	cfg, err := config.Load(root)
	if err != nil {
		return err
	}
	dataDir := cfg.ResolveDataDir(root)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	out.Statusf("📁", "Data directory: %s", dataDir)

	if !noMCP {
		if err := writeMCPConfig(root, force); err != nil {
			return err
		}
		out.Success("Registered MCP server in .mcp.json")
	}

	out.Newline()
	out.Status("📋", "Next steps:")
	out.Status("", "  1. Load a corpus: riptide index <tenant> <corpus.jsonl>")
	out.Status("", "  2. Try a search:  riptide search <tenant> \"your query\"")
	if !noMCP {
		out.Status("", "  3. Restart your MCP client to pick up the server")
	}

	return nil
}

// writeMCPConfig adds (or replaces, with force) the riptide entry in the
// project's .mcp.json, preserving entries for other servers.
func writeMCPConfig(root string, force bool) error {
	mcpPath := filepath.Join(root, ".mcp.json")

	mcpCfg := MCPConfig{MCPServers: map[string]MCPServerConfig{}}
	if data, err := os.ReadFile(mcpPath); err == nil {
		if err := json.Unmarshal(data, &mcpCfg); err != nil {
			return fmt.Errorf("parse existing %s: %w", mcpPath, err)
		}
		if mcpCfg.MCPServers == nil {
			mcpCfg.MCPServers = map[string]MCPServerConfig{}
		}
		if _, exists := mcpCfg.MCPServers["riptide"]; exists && !force {
			return nil
		}
	}

	mcpCfg.MCPServers["riptide"] = MCPServerConfig{
		Type:    "stdio",
		Command: "riptide",
		Args:    []string{"serve"},
	}

	data, err := json.MarshalIndent(mcpCfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", mcpPath, err)
	}
	return os.WriteFile(mcpPath, append(data, '\n'), 0644)
}
