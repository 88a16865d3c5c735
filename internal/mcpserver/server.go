package mcpserver

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/b0ase/path402/apps/poeminter/internal/session"
)

// DaemonInfo provides read-only access to daemon state for MCP tools.
type DaemonInfo interface {
	NodeID() string
	Uptime() time.Duration
	AttestorAddress() string
	LedgerDriver() string
}

// MCPServer wraps the MCP protocol server with the pipeline tools.
type MCPServer struct {
	server  *mcp.Server
	daemon  DaemonInfo
	session *session.Session
}

// New creates an MCP server with all poeminter tools registered.
func New(version, instructions string, daemon DaemonInfo, sess *session.Session) *MCPServer {
	s := &MCPServer{
		daemon:  daemon,
		session: sess,
		server: mcp.NewServer(
			&mcp.Implementation{
				Name:    "poeminter",
				Version: version,
			},
			&mcp.ServerOptions{
				Instructions: instructions,
			},
		),
	}
	s.registerTools()
	return s
}

// Run starts the MCP server on stdio, blocking until the client disconnects.
func (s *MCPServer) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}
