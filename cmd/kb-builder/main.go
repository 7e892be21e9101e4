// Package main is the entry point for the ragserve knowledge base builder.
//
// kb-builder indexes a directory of documents into the Milvus collection
// used by ragserve, then exits. Already indexed files are skipped.
package main

import (
	"github.com/spf13/cobra"
	_ "go.uber.org/automaxprocs/maxprocs"

	"github.com/kart-io/ragserve/internal/ragserve"
	"github.com/kart-io/ragserve/pkg/app"
)

func main() {
	opts := ragserve.NewOptions()

	var dir string

	a := app.NewApp(
		app.WithName("kb-builder"),
		app.WithShortDescription("ragserve knowledge base builder"),
		app.WithDescription("Index a directory of documents into the ragserve knowledge base."),
		app.WithOptions(opts),
		app.WithArgs(cobra.MaximumNArgs(1)),
		app.WithRunFunc(func() error {
			return ragserve.RunIndex(opts, dir)
		}),
	)

	a.Command().Flags().StringVar(&dir, "dir", "", "Directory of documents to index (defaults to rag.data-dir)")

	a.Run()
}
