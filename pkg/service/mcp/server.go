package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/newssaga/sagaengine/pkg/model"
	"github.com/newssaga/sagaengine/pkg/repository"
	"github.com/newssaga/sagaengine/pkg/usecase/saga"
	"github.com/newssaga/sagaengine/pkg/utils/logging"
)

// SagaReader is the read side of the saga use case. *saga.UseCase implements it.
type SagaReader interface {
	List(ctx context.Context, opts saga.ListOptions) ([]*model.Saga, error)
	Show(ctx context.Context, id model.SagaID) (*model.Saga, error)
}

// Server exposes the saga set to MCP clients
type Server struct {
	reader SagaReader
	server *mcp.Server
}

type listSagasParams struct {
	Status   string `json:"status,omitempty" jsonschema:"Filter by status: active, dormant or archived"`
	Category string `json:"category,omitempty" jsonschema:"Filter by category, e.g. Politics or Economy"`
	Limit    int    `json:"limit,omitempty" jsonschema:"Maximum number of sagas to return"`
}

type getSagaParams struct {
	ID string `json:"id" jsonschema:"Saga ID such as saga_1a2b3c4d"`
}

type findSourceParams struct {
	URL string `json:"url" jsonschema:"Source URL (or fragment id) of an ingested item"`
}

type sagaDigest struct {
	ID             model.SagaID     `json:"id"`
	Title          string           `json:"title"`
	Category       model.Category   `json:"category"`
	Status         model.SagaStatus `json:"status"`
	ContextSummary string           `json:"context_summary"`
	Events         int              `json:"events"`
	LastUpdated    string           `json:"last_updated"`
}

// NewServer creates an MCP server with the list_sagas, get_saga and find_source tools
func NewServer(reader SagaReader, version string) *Server {
	s := &Server{
		reader: reader,
		server: mcp.NewServer(&mcp.Implementation{
			Name:    "sagaengine",
			Version: version,
		}, nil),
	}

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_sagas",
		Description: "List storylines (sagas), most recently updated first",
	}, s.listSagas)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_saga",
		Description: "Get one saga with its full event timeline",
	}, s.getSaga)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "find_source",
		Description: "Find the saga and event that absorbed a source URL",
	}, s.findSource)

	return s
}

// Handler returns a streamable HTTP handler serving this server
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		return s.server
	}, nil)
}

// RunStdio serves a single client over stdin/stdout until ctx is done
func (s *Server) RunStdio(ctx context.Context) error {
	if err := s.server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return goerr.Wrap(err, "mcp stdio server failed")
	}
	return nil
}

// RunHTTP serves the streamable HTTP transport on addr until ctx is done
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.From(ctx).Info("mcp server listening", "addr", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return goerr.Wrap(err, "mcp http server failed", goerr.V("addr", addr))
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return goerr.Wrap(err, "failed to shutdown mcp http server")
		}
		return nil
	}
}

func (s *Server) listSagas(ctx context.Context, req *mcp.CallToolRequest, params *listSagasParams) (*mcp.CallToolResult, any, error) {
	opts := saga.ListOptions{Limit: params.Limit}
	if params.Status != "" {
		status := model.SagaStatus(params.Status)
		if err := status.Validate(); err != nil {
			return errorResult("invalid status: " + params.Status), nil, nil
		}
		opts.Status = status
	}
	if params.Category != "" {
		opts.Category = model.ParseCategory(params.Category)
	}

	sagas, err := s.reader.List(ctx, opts)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to list sagas")
	}

	digests := make([]sagaDigest, 0, len(sagas))
	for _, sg := range sagas {
		digests = append(digests, sagaDigest{
			ID:             sg.ID,
			Title:          sg.Title,
			Category:       sg.Category,
			Status:         sg.Status,
			ContextSummary: sg.ContextSummary,
			Events:         len(sg.Events),
			LastUpdated:    sg.LastUpdated,
		})
	}
	return jsonResult(digests)
}

func (s *Server) getSaga(ctx context.Context, req *mcp.CallToolRequest, params *getSagaParams) (*mcp.CallToolResult, any, error) {
	if params.ID == "" {
		return errorResult("id is required"), nil, nil
	}

	sg, err := s.reader.Show(ctx, model.SagaID(params.ID))
	if err != nil {
		if errors.Is(err, repository.ErrSagaNotFound) {
			return errorResult("saga not found: " + params.ID), nil, nil
		}
		return nil, nil, goerr.Wrap(err, "failed to get saga", goerr.V("id", params.ID))
	}
	return jsonResult(sg)
}

func (s *Server) findSource(ctx context.Context, req *mcp.CallToolRequest, params *findSourceParams) (*mcp.CallToolResult, any, error) {
	if params.URL == "" {
		return errorResult("url is required"), nil, nil
	}

	sagas, err := s.reader.List(ctx, saga.ListOptions{})
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to list sagas")
	}

	for _, sg := range sagas {
		for i, ev := range sg.Events {
			if ev.SourceID == params.URL {
				return jsonResult(map[string]any{
					"saga_id":    sg.ID,
					"saga_title": sg.Title,
					"seq":        i,
					"event":      ev,
				})
			}
		}
	}
	return errorResult("source not found: " + params.URL), nil, nil
}

func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to marshal tool result")
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(raw)},
		},
	}, nil, nil
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
	}
}
