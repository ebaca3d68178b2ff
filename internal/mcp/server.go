package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/brandon/mailsync/internal/email"
	"github.com/brandon/mailsync/internal/tools"
	"github.com/brandon/mailsync/pkg/types"
)

const (
	protocolVersion = "2024-11-05"
	serverName      = "mailsync"
	serverVersion   = "1.0.0"
)

// JSON-RPC error codes
const (
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternal       = -32603
	codeNotFound       = -32004
	codeConflict       = -32009
	codeAuth           = -32001
	codeRemote         = -32002
)

// Server represents the MCP server
type Server struct {
	logger *logrus.Logger
	tools  *tools.Registry
	in     io.Reader
	out    io.Writer
}

// NewServer creates a new MCP server reading stdin and writing stdout
func NewServer(registry *tools.Registry, logger *logrus.Logger) *Server {
	return &Server{
		logger: logger,
		tools:  registry,
		in:     os.Stdin,
		out:    os.Stdout,
	}
}

// WithIO replaces the transport streams
func (s *Server) WithIO(in io.Reader, out io.Writer) *Server {
	s.in = in
	s.out = out
	return s
}

// Run serves newline-delimited JSON-RPC requests until EOF or ctx is done
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("Starting MCP server with stdio transport")

	decoder := json.NewDecoder(s.in)
	encoder := json.NewEncoder(s.out)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
			var req map[string]interface{}
			if err := decoder.Decode(&req); err != nil {
				if errors.Is(err, io.EOF) {
					return nil
				}
				s.logger.WithError(err).Error("Failed to decode request")
				// The decoder cannot resync after malformed JSON.
				var syntaxErr *json.SyntaxError
				if errors.As(err, &syntaxErr) {
					return fmt.Errorf("failed to decode request: %w", err)
				}
				continue
			}

			resp := s.handleRequest(ctx, req)
			if resp == nil {
				continue
			}
			if err := encoder.Encode(resp); err != nil {
				s.logger.WithError(err).Error("Failed to encode response")
				continue
			}
		}
	}
}

// handleRequest processes an MCP request. Notifications get no response.
func (s *Server) handleRequest(ctx context.Context, req map[string]interface{}) map[string]interface{} {
	method, _ := req["method"].(string)
	id, hasID := req["id"]

	if !hasID && strings.HasPrefix(method, "notifications/") {
		return nil
	}

	switch method {
	case "initialize":
		return result(id, map[string]interface{}{
			"protocolVersion": protocolVersion,
			"capabilities": map[string]interface{}{
				"tools": map[string]interface{}{},
			},
			"serverInfo": map[string]interface{}{
				"name":    serverName,
				"version": serverVersion,
			},
		})

	case "ping":
		return result(id, map[string]interface{}{})

	case "tools/list":
		return result(id, map[string]interface{}{
			"tools": s.tools.GetToolDefinitions(),
		})

	case "tools/call":
		return s.callTool(ctx, id, req)
	}

	return rpcError(id, codeMethodNotFound, fmt.Sprintf("Method not found: %s", method))
}

func (s *Server) callTool(ctx context.Context, id interface{}, req map[string]interface{}) map[string]interface{} {
	params, _ := req["params"].(map[string]interface{})
	toolName, _ := params["name"].(string)
	arguments, _ := params["arguments"].(map[string]interface{})
	if arguments == nil {
		arguments = map[string]interface{}{}
	}

	tool, exists := s.tools.GetTool(toolName)
	if !exists {
		return rpcError(id, codeMethodNotFound, fmt.Sprintf("Tool not found: %s", toolName))
	}

	log := s.logger.WithField("tool", toolName)
	out, err := tool.Execute(ctx, arguments)
	if err != nil {
		log.WithError(err).Warn("Tool call failed")
		return rpcError(id, errorCode(err), err.Error())
	}
	log.Debug("Tool call succeeded")

	// Serialize result to JSON string for text content
	resultJSON, err := json.Marshal(out)
	if err != nil {
		return rpcError(id, codeInternal, fmt.Sprintf("failed to encode result: %v", err))
	}

	return result(id, map[string]interface{}{
		"content": []map[string]interface{}{
			{
				"type": "text",
				"text": string(resultJSON),
			},
		},
	})
}

// errorCode maps the error taxonomy onto JSON-RPC codes
func errorCode(err error) int {
	switch {
	case errors.Is(err, tools.ErrInvalidParams), errors.Is(err, types.ErrInvalidQuery):
		return codeInvalidParams
	case errors.Is(err, types.ErrNotFound):
		return codeNotFound
	case errors.Is(err, types.ErrConflict):
		return codeConflict
	case errors.Is(err, types.ErrAuthFailed), errors.Is(err, types.ErrAuthExpired):
		return codeAuth
	case errors.Is(err, types.ErrRemoteUnavailable), email.IsSyncError(err):
		return codeRemote
	}
	return codeInternal
}

func result(id interface{}, payload interface{}) map[string]interface{} {
	return map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      id,
		"result":  payload,
	}
}

func rpcError(id interface{}, code int, message string) map[string]interface{} {
	return map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      id,
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
	}
}
