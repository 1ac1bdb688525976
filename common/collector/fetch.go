package collector

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/samber/mo"
)

// FetchStrategy is one way of pulling a payload out of a source: a date
// window against the bulk export, a shrunken window, an alternate HTML or
// JSON endpoint. Strategies run in declaration order and the first Ok
// result wins.
type FetchStrategy[T any] struct {
	Name string
	Fn   func(ctx context.Context) mo.Result[T]
}

// TryStrategy wraps a plain (value, error) fetch function into a strategy
func TryStrategy[T any](name string, fn func(ctx context.Context) (T, error)) FetchStrategy[T] {
	return FetchStrategy[T]{
		Name: name,
		Fn: func(ctx context.Context) mo.Result[T] {
			return mo.TupleToResult(fn(ctx))
		},
	}
}

// FirstSuccess runs strategies in order until one yields a result. Each
// failure is logged and absorbed; the error surfaces only when every
// strategy is exhausted.
func FirstSuccess[T any](ctx context.Context, source string, strategies []FetchStrategy[T]) (T, error) {
	var zero T
	var lastErr error
	for _, strategy := range strategies {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result := strategy.Fn(ctx)
		if result.IsOk() {
			log.Info().Str("source", source).Str("strategy", strategy.Name).Msg("Fetch strategy succeeded")
			return result.MustGet(), nil
		}

		lastErr = result.Error()
		log.Warn().Err(lastErr).Str("source", source).Str("strategy", strategy.Name).Msg("Fetch strategy failed, trying next")
	}

	if lastErr != nil {
		return zero, fmt.Errorf("%w: %v", ErrAllEndpointsFailed, lastErr)
	}
	return zero, ErrAllEndpointsFailed
}
