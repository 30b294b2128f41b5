package fn

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

const tracerName = "github.com/sanjuz-cas/llm-kg-project/pkg/fn"

// Stage transforms In to Out under a context.
type Stage[In, Out any] func(context.Context, In) Result[Out]

// Lift adapts an ordinary (value, error) function to a Stage.
func Lift[In, Out any](f func(context.Context, In) (Out, error)) Stage[In, Out] {
	return func(ctx context.Context, in In) Result[Out] {
		return FromPair(f(ctx, in))
	}
}

// Then runs first and feeds its value to second. A failure in first skips
// second.
func Then[A, B, C any](first Stage[A, B], second Stage[B, C]) Stage[A, C] {
	return func(ctx context.Context, a A) Result[C] {
		b, err := first(ctx, a).Unwrap()
		if err != nil {
			return Err[C](err)
		}
		return second(ctx, b)
	}
}

// Guard fails with the error check returns, otherwise passes the value on.
func Guard[T any](check func(T) error) Stage[T, T] {
	return func(_ context.Context, t T) Result[T] {
		if err := check(t); err != nil {
			return Err[T](err)
		}
		return Ok(t)
	}
}

// Tap runs a side effect and passes the value through unchanged.
func Tap[T any](f func(context.Context, T)) Stage[T, T] {
	return func(ctx context.Context, t T) Result[T] {
		f(ctx, t)
		return Ok(t)
	}
}

// Traced runs stage inside a span named name and marks the span failed when
// the stage fails.
func Traced[In, Out any](name string, stage Stage[In, Out]) Stage[In, Out] {
	return func(ctx context.Context, in In) Result[Out] {
		ctx, span := otel.Tracer(tracerName).Start(ctx, name)
		defer span.End()
		r := stage(ctx, in)
		if err := r.Error(); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return r
	}
}
