// Package rag provides RAG (Retrieval-Augmented Generation) configuration options.
package rag

import (
	"fmt"

	"github.com/kart-io/ragserve/pkg/options"
	"github.com/spf13/pflag"
)

var _ options.IOptions = (*Options)(nil)

// Options contains RAG-specific configuration.
type Options struct {
	// ChunkSize is the size of text chunks.
	ChunkSize int `json:"chunk-size" mapstructure:"chunk-size"`

	// ChunkOverlap is the overlap between chunks.
	ChunkOverlap int `json:"chunk-overlap" mapstructure:"chunk-overlap"`

	// TopK is the number of results to return from similarity search.
	TopK int `json:"top-k" mapstructure:"top-k"`

	// Collection is the name of the Milvus collection.
	Collection string `json:"collection" mapstructure:"collection"`

	// EmbeddingDim is the dimension of embedding vectors.
	EmbeddingDim int `json:"embedding-dim" mapstructure:"embedding-dim"`

	// DataDir is the directory containing documents to index.
	DataDir string `json:"data-dir" mapstructure:"data-dir"`

	// IndexWorkers is the number of concurrent indexing workers.
	IndexWorkers int `json:"index-workers" mapstructure:"index-workers"`

	// TaskDescription is the default retrieval task description used to
	// frame query embeddings.
	TaskDescription string `json:"task-description" mapstructure:"task-description"`

	// SystemPrompt is the system prompt for RAG queries.
	SystemPrompt string `json:"system-prompt" mapstructure:"system-prompt"`
}

// DefaultSystemPrompt is the default system prompt for RAG queries.
const DefaultSystemPrompt = `You are a helpful assistant that answers questions based on the provided context.
Use the following context to answer the question. If you cannot find the answer in the context, say so.
Always cite the source documents when providing information.

Context:
{{context}}

Question: {{question}}

Answer:`

// DefaultTaskDescription is the default retrieval task description.
const DefaultTaskDescription = "Given a search query, retrieve relevant passages that answer the query"

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		ChunkSize:       1000,
		ChunkOverlap:    200,
		TopK:            5,
		Collection:      "ragserve_docs",
		EmbeddingDim:    768, // nomic-embed-text dimension
		DataDir:         "_output/rag-data",
		IndexWorkers:    4,
		TaskDescription: DefaultTaskDescription,
		SystemPrompt:    DefaultSystemPrompt,
	}
}

// AddFlags adds flags for RAG options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.IntVar(&o.ChunkSize, options.Join(prefixes...)+"rag.chunk-size", o.ChunkSize, "Size of text chunks.")
	fs.IntVar(&o.ChunkOverlap, options.Join(prefixes...)+"rag.chunk-overlap", o.ChunkOverlap, "Overlap between chunks.")
	fs.IntVar(&o.TopK, options.Join(prefixes...)+"rag.top-k", o.TopK, "Number of results from similarity search.")
	fs.StringVar(&o.Collection, options.Join(prefixes...)+"rag.collection", o.Collection, "Milvus collection name.")
	fs.IntVar(&o.EmbeddingDim, options.Join(prefixes...)+"rag.embedding-dim", o.EmbeddingDim, "Embedding vector dimension.")
	fs.StringVar(&o.DataDir, options.Join(prefixes...)+"rag.data-dir", o.DataDir, "Directory containing documents to index.")
	fs.IntVar(&o.IndexWorkers, options.Join(prefixes...)+"rag.index-workers", o.IndexWorkers, "Number of concurrent indexing workers.")
	fs.StringVar(&o.TaskDescription, options.Join(prefixes...)+"rag.task-description", o.TaskDescription, "Default retrieval task description.")
}

// Validate validates the RAG options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("chunk-size must be positive"))
	}
	if o.ChunkOverlap < 0 {
		errs = append(errs, fmt.Errorf("chunk-overlap must not be negative"))
	}
	if o.ChunkOverlap >= o.ChunkSize {
		errs = append(errs, fmt.Errorf("chunk-overlap must be smaller than chunk-size"))
	}
	if o.TopK <= 0 {
		errs = append(errs, fmt.Errorf("top-k must be positive"))
	}
	if o.EmbeddingDim <= 0 {
		errs = append(errs, fmt.Errorf("embedding-dim must be positive"))
	}
	return errs
}

// Complete completes the RAG options with defaults.
func (o *Options) Complete() error {
	if o.SystemPrompt == "" {
		o.SystemPrompt = DefaultSystemPrompt
	}
	if o.TaskDescription == "" {
		o.TaskDescription = DefaultTaskDescription
	}
	if o.IndexWorkers <= 0 {
		o.IndexWorkers = 4
	}
	return nil
}
