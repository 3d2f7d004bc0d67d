package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aletheia-ng/pidginforge/internal/schema"
)

func TestMockProviderScript(t *testing.T) {
	mock := NewMockProvider("mock").
		Fail(NewRateLimitError(errors.New("429"))).
		Respond(func(req *Request) (schema.Record, error) {
			return schema.Record{"title": req.Model}, nil
		})

	ctx := context.Background()
	req := &Request{Model: "test-model"}

	_, err := mock.Generate(ctx, req)
	assert.True(t, IsRateLimit(err))

	record, err := mock.Generate(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "test-model", record["title"])

	// Script exhausted, default record from here on.
	record, err = mock.Generate(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, mock.Default, record)

	assert.Equal(t, 3, mock.Calls())
}

func TestMockProviderHonoursCancellation(t *testing.T) {
	mock := NewMockProvider("mock")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := mock.Generate(ctx, &Request{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(NewMockProvider("a")))
	require.NoError(t, registry.Register(NewMockProvider("b")))

	assert.Error(t, registry.Register(NewMockProvider("a")), "duplicate registration must fail")

	p, err := registry.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "a", p.Name())

	_, err = registry.Get("missing")
	assert.Error(t, err)

	assert.ElementsMatch(t, []string{"a", "b"}, registry.Names())
	assert.NoError(t, registry.Close())
}
