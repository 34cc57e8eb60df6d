package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/quorum-cli/internal/adapters/driving/httpapi"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start the HTTP API server exposing the chat pipeline.

Endpoints:
  POST   /api/chat           - One-shot question answering
  POST   /api/chat/stream    - Streaming answers over SSE
  GET    /api/sources        - Registered sources with availability
  GET    /api/sessions/{id}  - Retrieve a chat session
  DELETE /api/sessions/{id}  - Delete a chat session`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", httpapi.DefaultAddr, "listen address")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if chatService == nil {
		return errors.New("chat service not configured; run 'quorum config llm' first")
	}

	server := httpapi.NewServer(chatService, sourceRegistry, serveAddr)
	cmd.Printf("Listening on http://%s\n", serveAddr)
	return server.Run(cmd.Context())
}
