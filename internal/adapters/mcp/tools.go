package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/nobelvoices/laureate-rag/internal/core/domain"
)

// MCP error codes.
const (
	ErrorCodeInvalidParams = -32602 // Invalid method parameters
	ErrorCodeInternalError = -32603 // Internal JSON-RPC error
	ErrorCodeEmptyQuestion = -32001 // Question parameter is empty
	ErrorCodeBackendDown   = -32002 // Retrieval backend unavailable
)

// handleClassifyQuery handles the classify_query tool invocation.
func (s *Server) handleClassifyQuery(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, mcpErr := requireQuestion(request)
	if mcpErr != nil {
		return nil, mcpErr
	}

	result := s.queryUC.Classify(question)

	response := map[string]interface{}{
		"intent":          string(result.Intent),
		"confidence":      result.Confidence,
		"matched_terms":   result.MatchedTerms,
		"scoped_entities": result.ScopedEntities,
		"decision_trace":  result.Trace,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleQueryLaureates handles the query_laureates tool invocation.
func (s *Server) handleQueryLaureates(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, mcpErr := requireQuestion(request)
	if mcpErr != nil {
		return nil, mcpErr
	}
	args, _ := request.Params.Arguments.(map[string]interface{})
	retrieveOnly := getBoolDefault(args, "retrieve_only", false)

	if retrieveOnly {
		routed, err := s.queryUC.Route(ctx, question)
		if err != nil {
			return nil, routeError("retrieval failed", err)
		}
		response := map[string]interface{}{
			"intent":     string(routed.Intent.Intent),
			"confidence": routed.Intent.Confidence,
			"expansion":  routed.Expansion,
			"chunks":     routed.Chunks,
		}
		return mcp.NewToolResultText(formatJSON(response)), nil
	}

	answer, err := s.queryUC.Answer(ctx, question)
	if err != nil {
		return nil, routeError("answer generation failed", err)
	}
	response := map[string]interface{}{
		"answer":  answer.Text,
		"sources": answer.Sources,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleListLaureates handles the list_laureates tool invocation.
func (s *Server) handleListLaureates(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	year := getIntDefault(args, "year_awarded", 0)

	laureates, err := s.laureates.List(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to list laureates", map[string]interface{}{
			"error": err.Error(),
		})
	}

	out := make([]domain.Laureate, 0, len(laureates))
	for _, l := range laureates {
		if year > 0 && l.YearAwarded != year {
			continue
		}
		out = append(out, l)
	}

	response := map[string]interface{}{
		"count":     len(out),
		"laureates": out,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

func requireQuestion(request mcp.CallToolRequest) (string, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return "", newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	question, ok := args["question"].(string)
	if !ok || question == "" {
		return "", newMCPError(ErrorCodeEmptyQuestion, "question parameter is required and cannot be empty", map[string]interface{}{
			"param":  "question",
			"reason": "missing or empty",
		})
	}
	return question, nil
}

func routeError(message string, err error) error {
	code := ErrorCodeInternalError
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		code = ErrorCodeInvalidParams
	case domain.IsKind(err, domain.ErrBackendUnavailable),
		domain.IsKind(err, domain.ErrEmbeddingFailure),
		domain.IsKind(err, domain.ErrTemporary):
		code = ErrorCodeBackendDown
	}
	return newMCPError(code, message, map[string]interface{}{
		"error": err.Error(),
	})
}

// newMCPError creates a properly formatted MCP error.
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error.
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// formatJSON formats a response map as indented JSON.
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value.
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value.
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}
