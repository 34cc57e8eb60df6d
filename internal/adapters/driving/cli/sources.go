package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/quorum-cli/internal/core/domain"
	"github.com/custodia-labs/quorum-cli/internal/sources"
)

var (
	sourceType     string
	sourceName     string
	sourcePriority int
	sourceSettings []string
	sourceNoProbe  bool
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Manage knowledge sources",
	Long:  `List, add, and remove the knowledge sources quorum queries.`,
	RunE:  runSourcesList,
}

var sourcesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured sources",
	RunE:  runSourcesList,
}

var sourcesAddCmd = &cobra.Command{
	Use:   "add [id]",
	Short: "Add or update a source",
	Long: `Add a knowledge source, or update an existing one with the same id.

Type-specific settings are passed with repeated --set key=value flags.
Credentials (api_token, token) are prompted for when omitted.

Examples:
  quorum sources add jira --type jira \
    --set base_url=https://acme.atlassian.net --set email=dev@acme.com

  quorum sources add handbook --type docs --set root=~/notes --set watch=true`,
	Args: cobra.ExactArgs(1),
	RunE: runSourcesAdd,
}

var sourcesRemoveCmd = &cobra.Command{
	Use:   "remove [id]",
	Short: "Remove a source",
	Args:  cobra.ExactArgs(1),
	RunE:  runSourcesRemove,
}

func init() {
	sourcesAddCmd.Flags().StringVar(&sourceType, "type", "",
		"source type ("+strings.Join(sources.Types(), ", ")+")")
	sourcesAddCmd.Flags().StringVar(&sourceName, "name", "", "display name")
	sourcesAddCmd.Flags().IntVar(&sourcePriority, "priority", 0, "plan ordering, lower runs earlier")
	sourcesAddCmd.Flags().StringArrayVar(&sourceSettings, "set", nil, "type-specific setting key=value")
	sourcesAddCmd.Flags().BoolVar(&sourceNoProbe, "no-probe", false, "skip the availability probe")

	sourcesCmd.AddCommand(sourcesListCmd)
	sourcesCmd.AddCommand(sourcesAddCmd)
	sourcesCmd.AddCommand(sourcesRemoveCmd)
	rootCmd.AddCommand(sourcesCmd)
}

func runSourcesList(cmd *cobra.Command, _ []string) error {
	if sourceConfigStore == nil {
		return errors.New("source store not configured")
	}

	configs, err := sourceConfigStore.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing sources: %w", err)
	}

	if len(configs) == 0 {
		cmd.Println("No sources configured. Run 'quorum sources add' to add one.")
		return nil
	}

	cmd.Println("Configured sources:")
	cmd.Println()
	for _, cfg := range configs {
		name := cfg.Name
		if name == "" {
			name = cfg.Type
		}
		cmd.Printf("  %-16s %-12s priority %d  %s\n", cfg.ID, cfg.Type, cfg.Priority, name)
	}
	return nil
}

func runSourcesAdd(cmd *cobra.Command, args []string) error {
	if sourceConfigStore == nil {
		return errors.New("source store not configured")
	}
	if sourceType == "" {
		return fmt.Errorf("--type is required (one of: %s)", strings.Join(sources.Types(), ", "))
	}

	settings, err := parseSettings(sourceSettings)
	if err != nil {
		return err
	}
	if err := promptSecrets(cmd, sourceType, settings); err != nil {
		return err
	}

	now := time.Now().UTC()
	cfg := domain.SourceConfig{
		ID:        args[0],
		Type:      sourceType,
		Name:      sourceName,
		Priority:  sourcePriority,
		Settings:  settings,
		CreatedAt: now,
		UpdatedAt: now,
	}

	// Building validates the settings before anything is persisted.
	src, err := sources.Build(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("invalid source configuration: %w", err)
	}
	if closer, ok := src.(io.Closer); ok {
		defer closer.Close()
	}

	if !sourceNoProbe {
		cmd.Print("Probing source... ")
		if !src.IsAvailable(cmd.Context()) {
			cmd.Println("UNAVAILABLE")
			return errors.New("source probe failed; check credentials or pass --no-probe")
		}
		cmd.Println("OK")
	}

	if err := sourceConfigStore.Save(cmd.Context(), cfg); err != nil {
		return fmt.Errorf("saving source: %w", err)
	}

	cmd.Printf("Source %q (%s) saved.\n", cfg.ID, cfg.Type)
	return nil
}

func runSourcesRemove(cmd *cobra.Command, args []string) error {
	if sourceConfigStore == nil {
		return errors.New("source store not configured")
	}

	if _, err := sourceConfigStore.Get(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("source %q: %w", args[0], err)
	}
	if err := sourceConfigStore.Delete(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("removing source: %w", err)
	}

	cmd.Printf("Source %q removed.\n", args[0])
	return nil
}

// parseSettings converts repeated key=value flags into a settings map.
func parseSettings(pairs []string) (map[string]string, error) {
	settings := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --set %q, expected key=value", pair)
		}
		settings[key] = value
	}
	return settings, nil
}

// secretKeys maps source types to the settings prompted without echo.
var secretKeys = map[string]string{
	sources.TypeJira:       "api_token",
	sources.TypeConfluence: "api_token",
	sources.TypeGitHub:     "token",
	sources.TypeDrive:      "token",
}

// promptSecrets asks for the type's credential when not given via --set.
func promptSecrets(cmd *cobra.Command, srcType string, settings map[string]string) error {
	key, ok := secretKeys[srcType]
	if !ok || settings[key] != "" {
		return nil
	}

	cmd.Printf("Enter %s: ", key)
	secret := readPassword()
	cmd.Println()
	if secret == "" {
		return fmt.Errorf("%s is required for %s sources", key, srcType)
	}
	settings[key] = secret
	return nil
}

//nolint:errcheck // CLI helper, error ignored for UX
func readPassword() string {
	// Read without echo when attached to a terminal.
	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return string(password)
		}
	}
	// Fallback to regular input.
	reader := bufio.NewReader(os.Stdin)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}
