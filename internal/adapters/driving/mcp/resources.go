package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const uriScheme = "docqa://"

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "status",
		Name:        "status",
		Description: "Whether the index is loaded and how many chunks it holds",
		MIMEType:    "application/json",
	}, s.handleStatusResource)

	if s.ports.Settings != nil {
		s.server.AddResource(&mcp.Resource{
			URI:         uriScheme + "settings",
			Name:        "settings",
			Description: "Models and retrieval settings in use (credentials omitted)",
			MIMEType:    "application/json",
		}, s.handleSettingsResource)
	}
}

type statusInfo struct {
	Ready   bool `json:"ready"`
	Entries int  `json:"entries"`
}

// handleStatusResource reports on the opened index.
func (s *Server) handleStatusResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	info := statusInfo{}
	if s.ports.Status != nil {
		info.Ready = s.ports.Status.Ready()
		info.Entries = s.ports.Status.Entries()
	}
	return jsonResource(req.Params.URI, info)
}

type settingsInfo struct {
	EmbeddingProvider string  `json:"embedding_provider"`
	EmbeddingModel    string  `json:"embedding_model"`
	LLMProvider       string  `json:"llm_provider"`
	LLMModel          string  `json:"llm_model"`
	TopK              int     `json:"top_k"`
	MinScore          float64 `json:"min_score"`
	ChunkSize         int     `json:"chunk_size"`
	ChunkOverlap      int     `json:"chunk_overlap"`
}

// handleSettingsResource returns the active settings without credentials.
func (s *Server) handleSettingsResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	settings, err := s.ports.Settings.Get()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}

	return jsonResource(req.Params.URI, settingsInfo{
		EmbeddingProvider: settings.Embedding.Provider.String(),
		EmbeddingModel:    settings.Embedding.Model,
		LLMProvider:       settings.LLM.Provider.String(),
		LLMModel:          settings.LLM.Model,
		TopK:              settings.Retrieval.TopK,
		MinScore:          settings.Retrieval.MinScore,
		ChunkSize:         settings.Ingest.ChunkSize,
		ChunkOverlap:      settings.Ingest.ChunkOverlap,
	})
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
