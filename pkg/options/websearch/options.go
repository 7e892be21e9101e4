// Package websearch provides web search client configuration options.
package websearch

import (
	"fmt"
	"net/url"
	"time"

	"github.com/kart-io/ragserve/pkg/options"
	"github.com/spf13/pflag"
)

var _ options.IOptions = (*Options)(nil)

// Options 联网搜索配置。
type Options struct {
	// Enabled 是否启用联网搜索。
	Enabled bool `json:"enabled" mapstructure:"enabled"`

	// Endpoint 搜索服务地址。
	Endpoint string `json:"endpoint" mapstructure:"endpoint"`

	// APIKey 搜索服务密钥。
	APIKey string `json:"-" mapstructure:"api-key"`

	// Count 返回的搜索结果数量。
	Count int `json:"count" mapstructure:"count"`

	// Timeout 请求超时时间。
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
}

// NewOptions 创建默认联网搜索配置。
func NewOptions() *Options {
	return &Options{
		Enabled: false,
		Count:   1,
		Timeout: 10 * time.Second,
	}
}

// AddFlags adds flags for web search options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.BoolVar(&o.Enabled, options.Join(prefixes...)+"websearch.enabled", o.Enabled, "Enable web search augmentation.")
	fs.StringVar(&o.Endpoint, options.Join(prefixes...)+"websearch.endpoint", o.Endpoint, "Web search service endpoint.")
	fs.StringVar(&o.APIKey, options.Join(prefixes...)+"websearch.api-key", o.APIKey, "Web search service API key.")
	fs.IntVar(&o.Count, options.Join(prefixes...)+"websearch.count", o.Count, "Number of search results to request.")
	fs.DurationVar(&o.Timeout, options.Join(prefixes...)+"websearch.timeout", o.Timeout, "Web search request timeout.")
}

// Validate validates the web search options.
func (o *Options) Validate() []error {
	if o == nil || !o.Enabled {
		return nil
	}

	var errs []error
	if o.Endpoint == "" {
		errs = append(errs, fmt.Errorf("websearch.endpoint is required when web search is enabled"))
	} else if _, err := url.Parse(o.Endpoint); err != nil {
		errs = append(errs, fmt.Errorf("invalid websearch.endpoint: %w", err))
	}
	if o.Count <= 0 {
		errs = append(errs, fmt.Errorf("websearch.count must be positive"))
	}
	if o.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("websearch.timeout must be positive"))
	}
	return errs
}

// Complete completes the web search options with defaults.
func (o *Options) Complete() error {
	if o.Count <= 0 {
		o.Count = 1
	}
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	return nil
}
