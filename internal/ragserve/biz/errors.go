package biz

import "errors"

// 管道错误分类。嵌入、索引检索和生成失败对请求是致命的，
// 必须传播给调用方；联网搜索失败在编排器内部吸收，不会外露。
var (
	// ErrEmbedding 嵌入能力不可达或出错。
	ErrEmbedding = errors.New("embedding failure")

	// ErrIndexSearch 向量索引检索出错。
	ErrIndexSearch = errors.New("index search failure")

	// ErrGeneration 生成能力不可达或出错。
	ErrGeneration = errors.New("generation failure")

	// ErrWebSearch 联网搜索出错或超时。非致命，仅用于日志和指标。
	ErrWebSearch = errors.New("web search failure")
)
