package progress

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemyke/node-backend-sub000/ecode"
)

func TestSubProgressComposition(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	p, err := s.Create(ctx, 100)
	require.NoError(t, err)

	sub, err := p.CreateSubProgress(ctx, 50, 10, "")
	require.NoError(t, err)
	assert.Equal(t, float64(0), sub.From())

	require.NoError(t, sub.Advance(ctx, 5))
	assert.Equal(t, float64(25), p.Current())

	require.NoError(t, sub.Advance(ctx, 5))
	assert.Equal(t, float64(50), p.Current())

	// child is capped at its own max
	require.NoError(t, sub.Advance(ctx, 10))
	assert.Equal(t, float64(10), sub.Current())
	assert.Equal(t, float64(50), p.Current())
}

func TestSubProgressNeverMovesParentBack(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	p, err := s.Create(ctx, 100)
	require.NoError(t, err)
	sub, err := p.CreateSubProgress(ctx, 50, 10, "")
	require.NoError(t, err)

	require.NoError(t, p.Advance(ctx, 40))
	require.NoError(t, sub.Advance(ctx, 2))
	assert.Equal(t, float64(40), p.Current())

	require.NoError(t, sub.Advance(ctx, 8))
	assert.Equal(t, float64(50), p.Current())
}

func TestSubProgressEagerReservation(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	p, err := s.Create(ctx, 100)
	require.NoError(t, err)

	sub, err := p.CreateSubProgress(ctx, 20, 0, "preparing")
	require.NoError(t, err)
	assert.Equal(t, float64(20), p.Current())
	assert.Equal(t, "preparing", p.Record().Message)
	assert.Equal(t, float64(20), sub.From())
	assert.Equal(t, float64(1), sub.Max())

	require.NoError(t, sub.Advance(ctx, 1))
	assert.Equal(t, float64(40), p.Current())
}

func TestNestedSubProgress(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	p, err := s.Create(ctx, 100)
	require.NoError(t, err)
	outer, err := p.CreateSubProgress(ctx, 80, 10, "")
	require.NoError(t, err)
	inner, err := outer.CreateSubProgress(ctx, 5, 4, "")
	require.NoError(t, err)

	require.NoError(t, inner.Advance(ctx, 4))
	assert.Equal(t, float64(5), outer.Current())
	assert.Equal(t, float64(40), p.Current())
	assert.Equal(t, p.ID(), inner.ID())
}

func TestSubProgressPropagatesMessageAndError(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	p, err := s.Create(ctx)
	require.NoError(t, err)
	sub, err := p.CreateSubProgress(ctx, 10, 5, "")
	require.NoError(t, err)

	require.NoError(t, sub.SetMessage(ctx, "step 2"))
	require.NoError(t, sub.SetError(ctx, "broken"))
	assert.Equal(t, "step 2", p.Record().Message)
	assert.Equal(t, "broken", p.Record().Error)
}

func TestSubProgressValidation(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	p, err := s.Create(ctx)
	require.NoError(t, err)

	_, err = NewSubProgress(p, -1, 10, 1)
	assert.True(t, ecode.Is(err, ecode.InvalidArgument))
	_, err = NewSubProgress(p, 0, 0, 1)
	assert.True(t, ecode.Is(err, ecode.InvalidArgument))

	sub, err := NewSubProgress(p, 0, 10, 0.5)
	require.NoError(t, err)
	assert.Equal(t, float64(1), sub.Max())

	assert.True(t, ecode.Is(sub.SetMax(ctx, 0), ecode.InvalidArgument))
	assert.True(t, ecode.Is(sub.Advance(ctx, -2), ecode.InvalidArgument))
	assert.Zero(t, sub.Current())

	require.NoError(t, sub.SetMax(ctx, 4))
	require.NoError(t, sub.Advance(ctx, 2))
	assert.Equal(t, float64(5), p.Current())
}
