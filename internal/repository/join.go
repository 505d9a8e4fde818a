// Package repository assembles screen-sized bundles from several cached
// tables. Each bundle is delivered whole or not at all.
package repository

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/dukerupert/grocysync/internal/lifecycle"
)

type readFunc func(ctx context.Context) error

// join runs every read concurrently and waits for all of them. The first
// error cancels the rest and is returned.
func join(ctx context.Context, reads ...readFunc) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, read := range reads {
		g.Go(func() error { return read(gctx) })
	}
	return g.Wait()
}

// into adapts a table read so its result lands in dst only on success.
func into[T any](dst *[]T, list func(context.Context) ([]T, error)) readFunc {
	return func(ctx context.Context) error {
		rows, err := list(ctx)
		if err != nil {
			return err
		}
		*dst = rows
		return nil
	}
}

// load runs read in the background and hands the result to cb exactly once
// on the scope's delivery side. Nothing is delivered after scope.Close.
func load[D any](scope *lifecycle.Scope, read func(context.Context) (D, error), cb func(D, error)) {
	scope.Go(func(ctx context.Context) {
		data, err := read(ctx)
		scope.Post(func() { cb(data, err) })
	})
}
