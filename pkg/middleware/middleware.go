// Package middleware provides common gin middleware for ragserve.
//
// This package includes:
//   - Recovery: Panic recovery with JSON error response
//   - RequestID: Adds unique request ID to each request
//   - Logger: Request logging middleware
//   - CORS: Cross-Origin Resource Sharing support
//   - Timeout: Request deadline propagation
package middleware
