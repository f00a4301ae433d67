package mcpadapter

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// classifyQueryTool returns the tool definition for classify_query.
func classifyQueryTool() mcp.Tool {
	return mcp.Tool{
		Name:        "classify_query",
		Description: "Classify a question about Nobel Literature laureates into factual, thematic or generative intent, with a full decision trace",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"question": map[string]interface{}{
					"type":        "string",
					"description": "The user question to classify",
				},
			},
			Required: []string{"question"},
		},
	}
}

// queryLaureatesTool returns the tool definition for query_laureates.
func queryLaureatesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "query_laureates",
		Description: "Answer a question about Nobel Literature laureates using retrieval over lecture and ceremony speech passages",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"question": map[string]interface{}{
					"type":        "string",
					"description": "The question to answer",
				},
				"retrieve_only": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, return the retrieved passages without synthesizing an answer",
					"default":     false,
				},
			},
			Required: []string{"question"},
		},
	}
}

// listLaureatesTool returns the tool definition for list_laureates.
func listLaureatesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_laureates",
		Description: "List the known Nobel Literature laureates with their award year, country and language",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"year_awarded": map[string]interface{}{
					"type":        "integer",
					"description": "Restrict the list to laureates awarded in this year",
				},
			},
		},
	}
}
