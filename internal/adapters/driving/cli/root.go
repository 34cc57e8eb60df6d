// Package cli implements the quorum command-line interface.
// It is a driving adapter: commands translate flags and arguments into
// calls on the core services.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/quorum-cli/internal/core/ports/driven"
	"github.com/custodia-labs/quorum-cli/internal/core/ports/driving"
	"github.com/custodia-labs/quorum-cli/internal/logger"
)

// version is the application version, set at build time via ldflags.
var version = "dev"

// Services injected by main before Execute runs. Commands check for nil
// so partial wiring (e.g. no LLM configured yet) degrades gracefully.
var (
	chatService       driving.ChatService
	sourceRegistry    driving.SourceRegistry
	configStore       driven.ConfigStore
	sourceConfigStore driven.SourceConfigStore
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "quorum",
	Short: "Ask questions across your team's knowledge sources",
	Long: `Quorum answers questions by planning queries across your configured
knowledge sources (Jira, Confluence, GitHub, Google Drive, local docs),
collecting citations, and synthesizing a cited answer with an LLM.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Services aggregates everything the CLI needs from main.
type Services struct {
	Chat          driving.ChatService
	Registry      driving.SourceRegistry
	Config        driven.ConfigStore
	SourceConfigs driven.SourceConfigStore
}

// SetServices injects the core services into the command tree.
func SetServices(s *Services) {
	if s == nil {
		return
	}
	chatService = s.Chat
	sourceRegistry = s.Registry
	configStore = s.Config
	sourceConfigStore = s.SourceConfigs
}

// SetVersion overrides the reported version.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command with the given context.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
