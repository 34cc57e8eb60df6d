package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/quorum-cli/internal/adapters/driven/ai"
	"github.com/custodia-labs/quorum-cli/internal/adapters/driven/config/file"
	"github.com/custodia-labs/quorum-cli/internal/core/domain"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage application configuration",
	Long:  `View and configure the LLM provider and other options.`,
	RunE:  runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Configure the LLM provider",
	Long: `Configure the LLM provider used for query planning and answer
synthesis. Supported providers: ollama (local), openai, anthropic.`,
	RunE: runConfigLLM,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configLLMCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}

	settings := file.LLMSettings(configStore)

	cmd.Println("Current Configuration")
	cmd.Println("=====================")
	cmd.Println()
	cmd.Println("[LLM]")
	if !settings.IsConfigured() {
		cmd.Println("  Not configured. Run 'quorum config llm' to set up.")
		return nil
	}
	cmd.Printf("  Provider: %s\n", settings.Provider.Description())
	cmd.Printf("  Model:    %s\n", settings.Model)
	if settings.BaseURL != "" {
		cmd.Printf("  Base URL: %s\n", settings.BaseURL)
	}
	if settings.APIKey != "" {
		cmd.Printf("  API key:  %s\n", maskAPIKey(settings.APIKey))
	}
	return nil
}

func runConfigLLM(cmd *cobra.Command, _ []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}

	reader := bufio.NewReader(os.Stdin)

	cmd.Println("Select LLM Provider")
	providers := domain.AllAIProviders()
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	idx := parseChoice(readLine(reader), len(providers), 1)
	provider := providers[idx-1]

	defaults := domain.DefaultLLMModels()
	defaultModel := defaults[provider]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	var apiKey string
	if provider.RequiresAPIKey() {
		cmd.Print("Enter API key: ")
		apiKey = readPassword()
		cmd.Println()
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	settings := &domain.LLMSettings{
		Provider: provider,
		Model:    model,
		APIKey:   apiKey,
	}

	cmd.Print("Validating configuration... ")
	if err := ai.ValidateLLMConfig(settings); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("LLM configuration validation failed: %w", err)
	}
	cmd.Println("OK")

	if err := file.SaveLLMSettings(configStore, settings); err != nil {
		return fmt.Errorf("saving LLM settings: %w", err)
	}

	cmd.Printf("LLM provider configured: %s (%s)\n", provider.Description(), model)
	return nil
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
