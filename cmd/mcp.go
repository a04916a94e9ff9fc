package cmd

import (
	"github.com/joeshirey/JSRepoAnalysis/internal/iocache"
	"github.com/joeshirey/JSRepoAnalysis/internal/mcp"
	"github.com/joeshirey/JSRepoAnalysis/schema"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the sample analysis MCP server",
	Long:  `Launch an MCP server over stdio that lets AI agents extract region tags, resolve provenance, categorize, evaluate and look up samples.`,
	PreRunE: func(_ *cobra.Command, _ []string) error {
		// stdout carries the protocol, so nothing else may print there.
		return samplesSetup()
	},
	RunE: func(_ *cobra.Command, _ []string) error {
		defer iocache.CloseStores()
		p, err := newPipeline(cfg.APIURL != "" || cfg.Evaluator == schema.LLMEvaluator)
		if err != nil {
			return err
		}
		return mcp.StartMCPServer(rootCtx, mcp.Deps{
			Git:       p.resolver,
			Tags:      p.tags,
			Processor: p.processor,
			Store:     p.store,
		}, version)
	},
}
