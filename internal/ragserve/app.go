package ragserve

import (
	"github.com/kart-io/ragserve/pkg/app"
)

const (
	// Name is the name of the application.
	Name = "ragserve"

	description = `RAG question answering service

ragserve answers questions over a local knowledge base with optional
web search augmentation.

This server provides:
  - Document indexing with vector embeddings
  - Instruction-framed semantic similarity search
  - RAG-based question answering with cited sources`
)

// NewApp creates a new application instance.
func NewApp() *app.App {
	opts := NewOptions()

	return app.NewApp(
		app.WithName(Name),
		app.WithShortDescription("RAG question answering service"),
		app.WithDescription(description),
		app.WithOptions(opts),
		app.WithRunFunc(func() error {
			return Run(opts)
		}),
	)
}

// Run builds the server from options and runs it until shutdown.
func Run(opts *Options) error {
	srv, err := NewServer(opts)
	if err != nil {
		return err
	}
	return srv.Run()
}
