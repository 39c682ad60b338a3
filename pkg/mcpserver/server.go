// Package mcpserver exposes document selection, assembly and agent memory
// as MCP tools so a host agent platform can route requests through
// skillroute over stdio.
package mcpserver

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/pkg/errors"

	"github.com/jingkaihe/skillroute/pkg/memory"
	"github.com/jingkaihe/skillroute/pkg/router"
	"github.com/jingkaihe/skillroute/pkg/version"
)

const serverName = "skillroute"

const instructions = `skillroute selects persona and skill documents for a request.
Call select_documents to see which documents match, or assemble_context to get
their bodies as one payload ready to place in your context. Use memory_read and
memory_append to keep notes for a persona across conversations.`

type options struct {
	memory     memory.Store
	routerOpts []router.Option
}

// Option configures the server
type Option func(*options)

// WithMemory enables the memory_read and memory_append tools and attaches
// remembered notes to assembled payloads
func WithMemory(store memory.Store) Option {
	return func(o *options) {
		o.memory = store
	}
}

// WithRouterOptions passes selection and budget settings to the router
func WithRouterOptions(opts ...router.Option) Option {
	return func(o *options) {
		o.routerOpts = append(o.routerOpts, opts...)
	}
}

// New builds an MCP server over source. Serve it with server.ServeStdio.
func New(source router.Source, opts ...Option) (*server.MCPServer, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	ts, err := newToolset(source, o)
	if err != nil {
		return nil, err
	}

	s := server.NewMCPServer(
		serverName,
		version.Get().Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)
	for _, t := range ts.tools() {
		s.AddTool(t.Tool, t.Handler)
	}

	return s, nil
}

func newToolset(source router.Source, o *options) (*toolset, error) {
	routerOpts := o.routerOpts
	if o.memory != nil {
		routerOpts = append(routerOpts, router.WithMemory(o.memory))
	}

	r, err := router.New(source, routerOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create router")
	}

	return &toolset{router: r, memory: o.memory}, nil
}
