// Package store 提供知识库的数据存储层。
//
// 该包定义了向量存储的接口抽象和基于 Milvus 的实现，
// 支持文档块的写入、相似度检索和统计。
package store
