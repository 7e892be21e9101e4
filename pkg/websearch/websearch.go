// Package websearch 定义联网搜索能力的抽象接口。
// 搜索失败（网络错误、超时）与"无结果"是两类不同的情况，调用方据此决定降级策略。
package websearch

import (
	"context"
	"errors"
)

// ErrNoResult 表示搜索服务正常返回但没有任何结果。
// 与传输层错误区分开：空结果不是故障。
var ErrNoResult = errors.New("websearch: no result")

// Searcher 定义联网搜索接口。
type Searcher interface {
	// Search 执行搜索并返回拼接后的结果文本。
	// 无结果时返回 ErrNoResult；其他错误表示搜索服务不可用。
	Search(ctx context.Context, query string) (string, error)

	// Name 返回搜索服务名称。
	Name() string
}
