package mcp

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// GetMCPServer returns the underlying MCP server for mounting on HTTP or
// stdio transports.
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Drawparty Coordination Server",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Drawparty - MCP Interface

This is a thin client that proxies all requests to the REST API server.

Drawparty coordinates realtime drawing-and-guessing rooms. Gameplay happens
over the WebSocket endpoint; these tools cover the request/response surface:

AVAILABLE TOOLS:
- new_room: Allocate a fresh room id (the room is created on first join)
- room_details: Get the serialized state of a room
- player_details: Get one player's entry in a room`),
	)

	// Register all tools
	c.registerTools()
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "new_room",
		Description: "Allocate a fresh random room id",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleNewRoom)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "room_details",
		Description: "Get the current state of a room: status, players, scores, round counters",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"room_id": map[string]interface{}{
					"type":        "string",
					"description": "Room id (UUID) to look up",
				},
			},
			Required: []string{"room_id"},
		},
	}, c.handleRoomDetails)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "player_details",
		Description: "Get one player's entry (username, score, active flag) in a room",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"room_id": map[string]interface{}{
					"type":        "string",
					"description": "Room id (UUID)",
				},
				"user_id": map[string]interface{}{
					"type":        "string",
					"description": "Player id (UUID)",
				},
			},
			Required: []string{"room_id", "user_id"},
		},
	}, c.handlePlayerDetails)
}

// post issues a POST against the REST API and returns the raw body.
func (c *Client) post(ctx context.Context, path string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API returned %d: %s", resp.StatusCode, string(body))
	}

	return string(body), nil
}

func (c *Client) handleNewRoom(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := c.post(ctx, "/room/new")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleRoomDetails(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("arguments must be an object"), nil
	}
	roomID, ok := args["room_id"].(string)
	if !ok {
		return mcp.NewToolResultError("room_id is required"), nil
	}

	result, err := c.post(ctx, "/details/"+roomID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if result == "" {
		return mcp.NewToolResultText("room not found"), nil
	}
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handlePlayerDetails(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("arguments must be an object"), nil
	}
	roomID, ok := args["room_id"].(string)
	if !ok {
		return mcp.NewToolResultError("room_id is required"), nil
	}
	userID, ok := args["user_id"].(string)
	if !ok {
		return mcp.NewToolResultError("user_id is required"), nil
	}

	result, err := c.post(ctx, fmt.Sprintf("/room/%s/player/%s", roomID, userID))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if result == "" {
		return mcp.NewToolResultText("player not found"), nil
	}
	return mcp.NewToolResultText(result), nil
}
