// Package ragserve provides the RAG question answering service application.
package ragserve

import (
	"errors"

	"github.com/spf13/pflag"

	"github.com/kart-io/ragserve/pkg/app"
	cacheopts "github.com/kart-io/ragserve/pkg/options/cache"
	llmopts "github.com/kart-io/ragserve/pkg/options/llm"
	logopts "github.com/kart-io/ragserve/pkg/options/logger"
	milvusopts "github.com/kart-io/ragserve/pkg/options/milvus"
	ragopts "github.com/kart-io/ragserve/pkg/options/rag"
	httpopts "github.com/kart-io/ragserve/pkg/options/server/http"
	websearchopts "github.com/kart-io/ragserve/pkg/options/websearch"
)

var _ app.CliOptions = (*Options)(nil)

// Options contains all RAG service options.
type Options struct {
	// HTTP contains HTTP server configuration.
	HTTP *httpopts.Options `json:"http" mapstructure:"http"`

	// Log contains logger configuration.
	Log *logopts.Options `json:"log" mapstructure:"log"`

	// Milvus contains Milvus database configuration.
	Milvus *milvusopts.Options `json:"milvus" mapstructure:"milvus"`

	// Embedding contains embedding provider configuration.
	Embedding *llmopts.ProviderOptions `json:"embedding" mapstructure:"embedding"`

	// Chat contains chat provider configuration.
	Chat *llmopts.ProviderOptions `json:"chat" mapstructure:"chat"`

	// RAG contains RAG-specific configuration.
	RAG *ragopts.Options `json:"rag" mapstructure:"rag"`

	// Cache contains query cache configuration.
	Cache *cacheopts.Options `json:"cache" mapstructure:"cache"`

	// WebSearch contains web search configuration.
	WebSearch *websearchopts.Options `json:"websearch" mapstructure:"websearch"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		HTTP:      httpopts.NewOptions(),
		Log:       logopts.NewOptions(),
		Milvus:    milvusopts.NewOptions(),
		Embedding: llmopts.NewEmbeddingOptions(),
		Chat:      llmopts.NewChatOptions(),
		RAG:       ragopts.NewOptions(),
		Cache:     cacheopts.NewOptions(),
		WebSearch: websearchopts.NewOptions(),
	}
}

// AddFlags adds all service flags to the flagset.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	o.HTTP.AddFlags(fs)
	o.Log.AddFlags(fs)
	o.Milvus.AddFlags(fs)
	o.Embedding.AddFlags(fs, "embedding")
	o.Chat.AddFlags(fs, "chat")
	o.RAG.AddFlags(fs)
	o.Cache.AddFlags(fs)
	o.WebSearch.AddFlags(fs)
}

// Validate validates all service options.
func (o *Options) Validate() error {
	var errs []error

	if err := o.Log.Validate(); err != nil {
		errs = append(errs, err)
	}
	errs = append(errs, o.HTTP.Validate()...)
	errs = append(errs, o.Milvus.Validate()...)
	errs = append(errs, o.Embedding.Validate()...)
	errs = append(errs, o.Chat.Validate()...)
	errs = append(errs, o.RAG.Validate()...)
	errs = append(errs, o.Cache.Validate()...)
	errs = append(errs, o.WebSearch.Validate()...)

	return errors.Join(errs...)
}

// Complete completes all service options with defaults.
func (o *Options) Complete() error {
	if o.HTTP == nil {
		o.HTTP = httpopts.NewOptions()
	}
	if o.Log == nil {
		o.Log = logopts.NewOptions()
	}
	if o.Milvus == nil {
		o.Milvus = milvusopts.NewOptions()
	}
	if o.Embedding == nil {
		o.Embedding = llmopts.NewEmbeddingOptions()
	}
	if o.Chat == nil {
		o.Chat = llmopts.NewChatOptions()
	}
	if o.RAG == nil {
		o.RAG = ragopts.NewOptions()
	}
	if o.Cache == nil {
		o.Cache = cacheopts.NewOptions()
	}
	if o.WebSearch == nil {
		o.WebSearch = websearchopts.NewOptions()
	}

	for _, complete := range []func() error{
		o.Log.Complete,
		o.Embedding.Complete,
		o.Chat.Complete,
		o.RAG.Complete,
		o.Cache.Complete,
		o.WebSearch.Complete,
	} {
		if err := complete(); err != nil {
			return err
		}
	}
	return nil
}
