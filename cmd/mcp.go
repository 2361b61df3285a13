package cmd

import (
	"github.com/huangsam/worktally/internal/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the Worktally MCP server",
	Long: `Launch an MCP server over stdio that lets AI agents compute target hours and
performance, browse the reporting calendar and trigger worklog syncs.`,
	// Setup logs go to stderr, so stdout stays reserved for the protocol.
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		return mcp.StartMCPServer(rootCtx, cfg, storeManager)
	},
}
