// Package concurrent holds small fan-out helpers shared by the bundler
// and the export pipeline.
package concurrent

import (
	"sync"

	"golang.org/x/sync/errgroup"
)

// ForEach runs action for every element on its own goroutine and waits
// for all of them. The first error encountered is returned.
func ForEach[T any](items []T, action func(T) error) error {
	var g errgroup.Group
	for _, item := range items {
		item := item
		g.Go(func() error {
			return action(item)
		})
	}
	return g.Wait()
}

// ForEachLimit is ForEach with at most limit goroutines in flight. A
// limit below one runs unbounded.
func ForEachLimit[T any](items []T, limit int, action func(T) error) error {
	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for _, item := range items {
		item := item
		g.Go(func() error {
			return action(item)
		})
	}
	return g.Wait()
}

// Map applies fn to every element concurrently, preserving order. On
// error the partial results are discarded.
func Map[T, R any](items []T, fn func(T) (R, error)) ([]R, error) {
	out := make([]R, len(items))
	var g errgroup.Group
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			r, err := fn(item)
			if err != nil {
				return err
			}
			out[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// ForEachMute runs action for every element and waits, ignoring errors.
func ForEachMute[T any](items []T, action func(T) error) {
	var wg sync.WaitGroup
	for _, item := range items {
		wg.Add(1)
		go func(item T) {
			defer wg.Done()
			_ = action(item)
		}(item)
	}
	wg.Wait()
}
