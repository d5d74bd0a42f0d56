package apiservice

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChainInterceptors(t *testing.T) {
	assert.Nil(t, chainInterceptors(nil))

	var order []string
	mk := func(name string) UnaryInterceptor {
		return func(ctx *Context, args []string, next HandlerFunc) (any, error) {
			order = append(order, name)
			return next(ctx, append(args, name))
		}
	}
	final := func(_ context.Context, args []string) (any, error) {
		return args, nil
	}

	chain := chainInterceptors([]UnaryInterceptor{mk("a"), mk("b"), mk("c")})
	require.NotNil(t, chain)

	res, err := chain(NewContext(context.Background(), nil, weatherDescriptor(), "Today"), nil, final)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.Equal(t, []string{"a", "b", "c"}, res)
}

func TestChainInterceptors_Single(t *testing.T) {
	calls := 0
	only := UnaryInterceptor(func(ctx *Context, args []string, next HandlerFunc) (any, error) {
		calls++
		return next(ctx, args)
	})

	chain := chainInterceptors([]UnaryInterceptor{only})
	_, err := chain(NewContext(context.Background(), nil, nil, "Today"), nil, func(context.Context, []string) (any, error) {
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestChainInterceptors_ContextHandoff(t *testing.T) {
	outer := NewContext(context.Background(), nil, weatherDescriptor(), "Today")
	replacement := NewContext(context.Background(), nil, weatherDescriptor(), "Forecast")

	var seen []string
	observe := func(ctx *Context, args []string, next HandlerFunc) (any, error) {
		seen = append(seen, ctx.Action())
		return next(ctx, args)
	}
	final := func(context.Context, []string) (any, error) { return nil, nil }

	// A replacement dispatch context is handed to the next interceptor.
	swap := func(_ *Context, args []string, next HandlerFunc) (any, error) {
		return next(replacement, args)
	}
	_, err := chainInterceptors([]UnaryInterceptor{swap, observe})(outer, nil, final)
	require.NoError(t, err)

	// A plain context falls back to the outer dispatch context.
	plain := func(_ *Context, args []string, next HandlerFunc) (any, error) {
		return next(context.Background(), args)
	}
	_, err = chainInterceptors([]UnaryInterceptor{plain, observe})(outer, nil, final)
	require.NoError(t, err)

	assert.Equal(t, []string{"Forecast", "Today"}, seen)
}

func TestChainInterceptors_ShortCircuit(t *testing.T) {
	reached := false
	deny := func(*Context, []string, HandlerFunc) (any, error) {
		return nil, errServiceUnauthorized("weather")
	}
	after := func(ctx *Context, args []string, next HandlerFunc) (any, error) {
		reached = true
		return next(ctx, args)
	}

	_, err := chainInterceptors([]UnaryInterceptor{deny, after})(
		NewContext(context.Background(), nil, weatherDescriptor(), "Today"), nil,
		func(context.Context, []string) (any, error) { return "unreachable", nil },
	)
	assert.Equal(t, CodeServiceUnauthorized, CodeOf(err))
	assert.False(t, reached)
}
