package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question  string `json:"question" jsonschema:"the question to answer from the configured knowledge sources"`
	SessionID string `json:"session_id,omitempty" jsonschema:"optional session id to continue a conversation"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer    string           `json:"answer"`
	Sources   []string         `json:"sources"`
	Citations []CitationOutput `json:"citations,omitempty"`
}

// CitationOutput represents a single cited entity.
type CitationOutput struct {
	Index int    `json:"index"`
	Type  string `json:"type"`
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question using the configured knowledge sources, with citations",
	}, s.handleAsk)
}

// handleAsk handles the ask tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	resp, err := s.ports.Chat.Chat(ctx, input.Question, input.SessionID)
	if err != nil {
		return nil, AskOutput{}, err
	}

	output := AskOutput{
		Answer:  resp.Message.Content,
		Sources: resp.Sources,
	}
	for i, c := range resp.Message.Citations {
		output.Citations = append(output.Citations, CitationOutput{
			Index: i + 1,
			Type:  c.Type,
			ID:    c.ID,
			Title: c.Title,
			URL:   c.URL,
		})
	}

	return nil, output, nil
}
