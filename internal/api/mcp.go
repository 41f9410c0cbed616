package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/eduforge/eduforge/internal/storage"
)

// MCPStore abstracts lookup operations for the MCP layer.
type MCPStore interface {
	GetContent(hash string) (storage.ContentRecord, error)
	ListContent(limit, offset int) ([]storage.ContentRecord, error)
	ContentExists(sel storage.Selector) (bool, error)
}

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Store MCPStore
}

// NewMCPServer creates an MCP server exposing the content catalog to
// agent clients.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"eduforge",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("eduforge — generated learning content, addressed by content hash and searchable by topic, language, framework, level, and learning style."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("lookup_content",
			mcp.WithDescription("Check whether learning content exists for a combination of topic, programming language, framework, level, and learning style."),
			mcp.WithString("topic", mcp.Description("Topic, e.g. Web Development"), mcp.Required()),
			mcp.WithString("language", mcp.Description("Programming language"), mcp.Required()),
			mcp.WithString("framework", mcp.Description("Framework"), mcp.Required()),
			mcp.WithString("level", mcp.Description("Skill level (default beginner)")),
			mcp.WithString("learning_style", mcp.Description("Learning style (default visual)")),
		),
		mcpLookupContent(deps),
	)

	s.AddTool(
		mcp.NewTool("get_content",
			mcp.WithDescription("Fetch a stored piece of learning content by its content hash."),
			mcp.WithString("hash", mcp.Description("64-character content hash"), mcp.Required()),
		),
		mcpGetContent(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"content://recent",
			"Recent Content",
			mcp.WithResourceDescription("Last 10 generated content records (metadata only)"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceRecent(deps),
	)

	return s
}

func mcpLookupContent(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		topic, err := req.RequireString("topic")
		if err != nil {
			return mcpError("topic is required"), nil
		}
		language, err := req.RequireString("language")
		if err != nil {
			return mcpError("language is required"), nil
		}
		framework, err := req.RequireString("framework")
		if err != nil {
			return mcpError("framework is required"), nil
		}

		sel := storage.Selector{
			Topic:         topic,
			Language:      language,
			Framework:     framework,
			Level:         req.GetString("level", "beginner"),
			LearningStyle: req.GetString("learning_style", "visual"),
		}

		exists, err := deps.Store.ContentExists(sel)
		if err != nil {
			return mcpError(fmt.Sprintf("lookup failed: %v", err)), nil
		}

		b, err := json.Marshal(map[string]any{"exists": exists, "selector": map[string]string{
			"topic":          sel.Topic,
			"language":       sel.Language,
			"framework":      sel.Framework,
			"level":          sel.Level,
			"learning_style": sel.LearningStyle,
		}})
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpGetContent(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		hash, err := req.RequireString("hash")
		if err != nil {
			return mcpError("hash is required"), nil
		}

		rec, err := deps.Store.GetContent(hash)
		if err != nil {
			return mcpError(fmt.Sprintf("content %s not available: %v", hash, err)), nil
		}
		return mcpText(rec.Content), nil
	}
}

func mcpResourceRecent(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		records, err := deps.Store.ListContent(10, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to list content: %w", err)
		}

		type contentSummary struct {
			ContentHash string `json:"content_hash"`
			UserMessage string `json:"user_message"`
			Level       string `json:"level"`
			Style       string `json:"learning_style"`
			CreatedAt   string `json:"created_at"`
		}

		summaries := make([]contentSummary, len(records))
		for i, rec := range records {
			msg := rec.UserMessage
			if utf8.RuneCountInString(msg) > 200 {
				runes := []rune(msg)
				msg = string(runes[:200]) + "..."
			}
			summaries[i] = contentSummary{
				ContentHash: rec.ContentHash,
				UserMessage: msg,
				Level:       rec.Level,
				Style:       rec.LearningStyle,
				CreatedAt:   rec.CreatedAt.Format(time.RFC3339),
			}
		}

		b, err := json.Marshal(summaries)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal summaries: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
