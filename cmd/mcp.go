package cmd

import (
	"github.com/huangsam/monoscope/internal/iocache"
	"github.com/huangsam/monoscope/internal/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the monoscope MCP server",
	Long: `Launch an MCP server on stdio that lets AI agents analyze modules and
read the run history through standard tools.

Flags, environment variables and the config file provide the defaults of
every tool call; the tool arguments override them.`,
	Args: cobra.NoArgs,
	// The run flags are not required here: each tool call validates its own input.
	PreRunE: historySetup,
	RunE: func(_ *cobra.Command, _ []string) error {
		return mcp.StartMCPServer(rootCtx, *input, iocache.Manager, version)
	},
}
