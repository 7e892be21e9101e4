// Package main is the entry point for the ragserve RAG service.
package main

import (
	_ "go.uber.org/automaxprocs/maxprocs"

	"github.com/kart-io/ragserve/internal/ragserve"
)

func main() {
	ragserve.NewApp().Run()
}
