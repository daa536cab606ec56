package mcp

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/cassettes/internal/catalog"
	"github.com/hpungsan/cassettes/internal/config"
	"github.com/hpungsan/cassettes/internal/errors"
	"github.com/hpungsan/cassettes/internal/tape"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	catalog *catalog.Catalog
	cfg     *config.Config
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(cat *catalog.Catalog, cfg *config.Config) *Handlers {
	return &Handlers{catalog: cat, cfg: cfg}
}

// Request types for each tool

// ListRequest represents the arguments for tape_list.
type ListRequest struct {
	Search string `json:"search,omitempty"`
}

// IDRequest represents the arguments for tape_get and tape_delete.
type IDRequest struct {
	ID int64 `json:"id"`
}

// AddRequest represents the arguments for tape_add.
type AddRequest struct {
	Title string `json:"title"`
	Tape  string `json:"tape"`
}

// EditRequest represents the arguments for tape_edit.
// Nil fields keep the current value.
type EditRequest struct {
	ID    int64   `json:"id"`
	Title *string `json:"title,omitempty"`
	Tape  *string `json:"tape,omitempty"`
}

// ExportRequest represents the arguments for tape_export.
type ExportRequest struct {
	Path string `json:"path,omitempty"`
}

// ImportRequest represents the arguments for tape_import.
type ImportRequest struct {
	Path string `json:"path"`
	Mode string `json:"mode,omitempty"`
}

// Response types

// ListResponse is returned by tape_list.
type ListResponse struct {
	Items  []tape.Tape `json:"items"`
	Search string      `json:"search,omitempty"`
	Count  int         `json:"count"`
	Status string      `json:"status"`
}

// StatusResponse is returned by tape_status and by every mutation.
type StatusResponse struct {
	Count  int    `json:"count"`
	Status string `json:"status"`
}

// Handler implementations

// HandleList handles the tape_list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListRequest](req)
	if err != nil {
		return errorResult(errors.NewValidation(err.Error())), nil
	}

	f := catalog.NewFilter(h.catalog)
	f.SetTerm(input.Search)
	count := h.catalog.Count()

	return successResult(ListResponse{
		Items:  f.View(),
		Search: f.Term(),
		Count:  count,
		Status: catalog.StatusText(count),
	})
}

// HandleGet handles the tape_get tool call.
func (h *Handlers) HandleGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decodeID(req)
	if err != nil {
		return errorResult(err), nil
	}

	t, ok := h.catalog.CurrentRecord(input.ID)
	if !ok {
		return errorResult(errors.NewNotFound(input.ID)), nil
	}
	return successResult(t)
}

// HandleAdd handles the tape_add tool call.
func (h *Handlers) HandleAdd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[AddRequest](req)
	if err != nil {
		return errorResult(errors.NewValidation(err.Error())), nil
	}

	if err := h.catalog.Add(ctx, input.Title, input.Tape); err != nil {
		return errorResult(err), nil
	}
	return h.statusResult()
}

// HandleEdit handles the tape_edit tool call.
func (h *Handlers) HandleEdit(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[EditRequest](req)
	if err != nil {
		return errorResult(errors.NewValidation(err.Error())), nil
	}
	if input.ID <= 0 {
		return errorResult(errors.NewValidation("id must be a positive integer")), nil
	}

	current, ok := h.catalog.CurrentRecord(input.ID)
	if !ok {
		return errorResult(errors.NewNotFound(input.ID)), nil
	}
	title, label := current.Title, current.Tape
	if input.Title != nil {
		title = *input.Title
	}
	if input.Tape != nil {
		label = *input.Tape
	}

	if err := h.catalog.Edit(ctx, input.ID, title, label); err != nil {
		return errorResult(err), nil
	}
	return h.statusResult()
}

// HandleDelete handles the tape_delete tool call.
func (h *Handlers) HandleDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decodeID(req)
	if err != nil {
		return errorResult(err), nil
	}

	if err := h.catalog.Delete(ctx, input.ID); err != nil {
		return errorResult(err), nil
	}
	return h.statusResult()
}

// HandleStatus handles the tape_status tool call.
func (h *Handlers) HandleStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.statusResult()
}

// HandleExport handles the tape_export tool call.
func (h *Handlers) HandleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ExportRequest](req)
	if err != nil {
		return errorResult(errors.NewValidation(err.Error())), nil
	}

	result, err := h.catalog.Export(ctx, h.cfg, catalog.ExportInput{Path: input.Path})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleImport handles the tape_import tool call.
func (h *Handlers) HandleImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ImportRequest](req)
	if err != nil {
		return errorResult(errors.NewValidation(err.Error())), nil
	}

	result, err := h.catalog.Import(ctx, h.cfg, catalog.ImportInput{
		Path: input.Path,
		Mode: catalog.ImportMode(input.Mode),
	})
	if err != nil {
		return errorResult(err), nil
	}
	if result.Aborted() {
		e := errors.NewValidation(fmt.Sprintf("import aborted: %d invalid line(s)", len(result.Errors)))
		e.Details = map[string]any{"errors": result.Errors}
		return errorResult(e), nil
	}
	return successResult(result)
}

func (h *Handlers) statusResult() (*mcp.CallToolResult, error) {
	count := h.catalog.Count()
	return successResult(StatusResponse{Count: count, Status: catalog.StatusText(count)})
}

func decodeID(req mcp.CallToolRequest) (IDRequest, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return input, errors.NewValidation(err.Error())
	}
	if input.ID <= 0 {
		return input, errors.NewValidation("id must be a positive integer")
	}
	return input, nil
}

// Result helpers

// errorResult creates an MCP error result from any error, with IsError set
// so clients recognize the failure. Server-side failures keep their code but
// not their message or details, which may carry file paths or SQL text.
func errorResult(err error) *mcp.CallToolResult {
	errorObj := map[string]any{
		"code":    string(errors.ErrInternal),
		"message": "an internal error occurred",
		"status":  500,
	}

	var cErr *errors.CatalogError
	if stderrors.As(err, &cErr) {
		errorObj["code"] = string(cErr.Code)
		errorObj["status"] = cErr.Status
		if cErr.Status < 500 {
			errorObj["message"] = cErr.Message
			if cErr.Details != nil {
				errorObj["details"] = cErr.Details
			}
		} else {
			errorObj["message"] = "the catalog could not be read or written"
		}
	}

	content, _ := json.Marshal(map[string]any{"error": errorObj})
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
