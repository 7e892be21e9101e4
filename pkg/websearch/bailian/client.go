// Package bailian 提供阿里云百炼联网搜索服务的客户端实现。
package bailian

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kart-io/ragserve/pkg/utils/json"
	"github.com/kart-io/ragserve/pkg/websearch"
)

// ClientName 搜索服务名称标识符。
const ClientName = "bailian"

// Config 百炼搜索客户端配置。
type Config struct {
	// Endpoint 搜索服务地址。
	Endpoint string `json:"endpoint" mapstructure:"endpoint"`

	// APIKey DashScope API 密钥。
	APIKey string `json:"api_key" mapstructure:"api_key"`

	// Count 检索结果条数。
	Count int `json:"count" mapstructure:"count"`

	// Timeout 单次搜索超时时间。
	// 应当明显小于端到端请求预算，搜索不能无限阻塞主链路。
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
}

// DefaultConfig 返回默认配置。
func DefaultConfig() *Config {
	return &Config{
		Count:   1,
		Timeout: 10 * time.Second,
	}
}

// Client 百炼搜索客户端。
type Client struct {
	config     *Config
	httpClient *http.Client
}

var _ websearch.Searcher = (*Client)(nil)

// New 创建百炼搜索客户端。
func New(cfg *Config) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("bailian: endpoint 是必需的")
	}
	if cfg.Count <= 0 {
		cfg.Count = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}, nil
}

// Name 返回搜索服务名称。
func (c *Client) Name() string {
	return ClientName
}

// searchRequest 搜索 API 请求体。
type searchRequest struct {
	Query string `json:"query"`
	Count int    `json:"count"`
}

// searchResponse 搜索 API 响应体。
type searchResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Snippet string `json:"snippet"`
		Content string `json:"content"`
	} `json:"results"`
}

// Search 执行联网搜索并返回拼接后的结果文本。
func (c *Client) Search(ctx context.Context, query string) (string, error) {
	reqBody := searchRequest{
		Query: query,
		Count: c.config.Count,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("序列化请求失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("搜索请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("搜索请求失败，状态码 %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var searchResp searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return "", fmt.Errorf("解析响应失败: %w", err)
	}

	if len(searchResp.Results) == 0 {
		return "", websearch.ErrNoResult
	}

	var sb strings.Builder
	for i, r := range searchResp.Results {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		if r.Title != "" {
			sb.WriteString(r.Title)
			sb.WriteString("\n")
		}
		if r.Content != "" {
			sb.WriteString(r.Content)
		} else {
			sb.WriteString(r.Snippet)
		}
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", websearch.ErrNoResult
	}

	return text, nil
}
