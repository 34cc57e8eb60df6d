package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/quorum-cli/internal/core/domain"
)

var (
	askSession string
	askStream  bool
	askJSON    bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question across your knowledge sources",
	Long: `Plans queries across the configured knowledge sources, collects
citations, and synthesizes a cited answer.

Pass --session to continue a previous conversation, and --stream to watch
the pipeline progress while the answer is generated.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askSession, "session", "", "session id to continue a conversation")
	askCmd.Flags().BoolVar(&askStream, "stream", false, "stream pipeline progress and answer deltas")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the response as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if chatService == nil {
		return errors.New("chat service not configured; run 'quorum config llm' first")
	}

	if askStream {
		return runAskStream(cmd, args[0])
	}

	resp, err := chatService.Chat(cmd.Context(), args[0], askSession)
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if askJSON {
		data, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal response: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	printAnswer(cmd, resp.Message, resp.Sources)
	return nil
}

func runAskStream(cmd *cobra.Command, question string) error {
	events, err := chatService.ChatStream(cmd.Context(), question, askSession)
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	var final *domain.ChatMessage
	for ev := range events {
		switch ev.Type {
		case domain.EventPlanning:
			if ev.Status == domain.StatusStarted {
				cmd.PrintErrln("Planning...")
			} else if ev.Plan != nil {
				cmd.PrintErrf("Plan: %d phase(s)\n", len(ev.Plan.Phases))
			}
		case domain.EventQuerying:
			if ev.Status == domain.StatusStarted {
				cmd.PrintErrf("Querying %s...\n", ev.SourceID)
			}
		case domain.EventSynthesizing:
			cmd.PrintErrln("Synthesizing...")
		case domain.EventContent:
			cmd.Print(ev.Delta)
		case domain.EventDone:
			final = ev.Message
		case domain.EventError:
			cmd.Println()
			return fmt.Errorf("ask failed: %s", ev.Error)
		}
	}
	cmd.Println()

	if final != nil && len(final.Citations) > 0 {
		cmd.Println()
		printCitations(cmd, final.Citations)
	}
	return nil
}

// printAnswer renders the assistant message with its citation list.
func printAnswer(cmd *cobra.Command, msg domain.ChatMessage, sources []string) {
	cmd.Println(msg.Content)
	if len(msg.Citations) > 0 {
		cmd.Println()
		printCitations(cmd, msg.Citations)
	}
	if len(sources) > 0 {
		cmd.Println()
		cmd.Printf("Sources consulted: %v\n", sources)
	}
}

func printCitations(cmd *cobra.Command, citations []domain.Citation) {
	cmd.Println("Citations:")
	for i, c := range citations {
		cmd.Printf("  [%d] %s", i+1, c.Title)
		if c.URL != "" {
			cmd.Printf(" (%s)", c.URL)
		}
		cmd.Println()
	}
}
