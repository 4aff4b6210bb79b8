package progress

import (
	"context"
	"encoding/json"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemyke/node-backend-sub000/data/collection"
	"github.com/stemyke/node-backend-sub000/ecode"
	"github.com/stemyke/node-backend-sub000/notify"
)

type events struct {
	mu  sync.Mutex
	ids []string
}

func (e *events) ProgressChanged(_ context.Context, id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ids = append(e.ids, id)
}

func (e *events) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.ids)
}

func newTestStore(t *testing.T, opts ...Option) (*Store, *collection.Memory) {
	t.Helper()
	coll := collection.NewMemory("progresses")
	return NewStore(coll, opts...), coll
}

func TestRecordPercentAndRemaining(t *testing.T) {
	cases := []struct {
		current, max float64
		percent      int
		remaining    float64
	}{
		{0, 100, 0, 100},
		{33, 100, 33, 67},
		{1, 3, 33, 2},
		{2, 3, 67, 1},
		{10, 10, 100, 0},
		{5, 0, 0, 0},
	}
	for _, tc := range cases {
		r := Record{Current: tc.current, Max: tc.max}
		assert.Equal(t, tc.percent, r.Percent(), "%v/%v", tc.current, tc.max)
		assert.Equal(t, tc.remaining, r.Remaining(), "%v/%v", tc.current, tc.max)
	}

	assert.True(t, Record{Current: 100, Max: 100}.IsTerminal())
	assert.True(t, Record{Max: 100, Error: "x"}.IsTerminal())
	assert.True(t, Record{Max: 100, Canceled: true}.IsTerminal())
	assert.False(t, Record{Current: 99, Max: 100}.IsTerminal())
}

func TestAdvanceClampsAtMax(t *testing.T) {
	ctx := context.Background()
	ev := &events{}
	s, _ := newTestStore(t, WithNotifier(ev))

	p, err := s.Create(ctx)
	require.NoError(t, err)
	assert.Equal(t, float64(100), p.Max())
	assert.Zero(t, p.Current())

	require.NoError(t, p.Advance(ctx, 30))
	require.NoError(t, p.Advance(ctx, 80))
	assert.Equal(t, float64(100), p.Current())
	assert.Equal(t, 100, p.Percent())
	assert.Equal(t, 2, ev.count())

	stored, err := s.Get(ctx, p.ID())
	require.NoError(t, err)
	assert.Equal(t, float64(100), stored.Current())
}

func TestInvalidInputLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	p, err := s.Create(ctx, 10)
	require.NoError(t, err)
	require.NoError(t, p.Advance(ctx, 4))

	for _, v := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		assert.True(t, ecode.Is(p.Advance(ctx, v), ecode.InvalidArgument))
		assert.True(t, ecode.Is(p.SetMax(ctx, v), ecode.InvalidArgument))
	}
	assert.Equal(t, float64(4), p.Current())
	assert.Equal(t, float64(10), p.Max())

	stored, err := s.Get(ctx, p.ID())
	require.NoError(t, err)
	assert.Equal(t, float64(4), stored.Current())

	_, err = s.Create(ctx, 0)
	assert.True(t, ecode.Is(err, ecode.InvalidArgument))
}

func TestSetMaxAndError(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	p, err := s.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, p.Advance(ctx, 60))
	require.NoError(t, p.SetMax(ctx, 50))
	assert.Equal(t, float64(50), p.Current())

	require.NoError(t, p.SetMax(ctx, 200))
	require.NoError(t, p.SetError(ctx, "disk full"))
	rec := p.Record()
	assert.Equal(t, float64(50), rec.Current)
	assert.Equal(t, float64(200), rec.Max)
	assert.Equal(t, "disk full", rec.Error)
	assert.True(t, rec.IsTerminal())
}

func TestSaveOnRemovedRecord(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	p, err := s.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Remove(ctx, p.ID()))

	err = p.Advance(ctx, 1)
	assert.True(t, ecode.Is(err, ecode.NotFound))
	assert.Zero(t, p.Current())
}

func TestMarshalJSON(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	p, err := s.Create(ctx, 4)
	require.NoError(t, err)
	require.NoError(t, p.SetMessage(ctx, "rendering"))
	require.NoError(t, p.Advance(ctx, 1))

	b, err := json.Marshal(p)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, map[string]any{
		"id":      p.ID(),
		"current": float64(1),
		"max":     float64(4),
		"message": "rendering",
		"error":   "",
	}, out)
}

func TestNoopNotifierDefault(t *testing.T) {
	ctx := context.Background()
	s := NewStore(collection.NewMemory("p"), WithNotifier(nil))
	p, err := s.Create(ctx)
	require.NoError(t, err)
	assert.NoError(t, p.Advance(ctx, 1))
	assert.IsType(t, notify.Noop{}, s.notifier)
}
