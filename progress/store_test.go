package progress

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/stemyke/node-backend-sub000/ecode"
)

const testPoll = 5 * time.Millisecond

func TestGetAndFindMissing(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	p, err := s.Get(ctx, "nope")
	assert.NoError(t, err)
	assert.Nil(t, p)

	p, err = s.Get(ctx, "")
	assert.NoError(t, err)
	assert.Nil(t, p)

	created, err := s.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, created.SetMessage(ctx, "queued"))

	found, err := s.Find(ctx, bson.M{"message": "queued"})
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, created.ID(), found.ID())
}

func TestWaitToFinishSucceeds(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, WithPollInterval(testPoll))

	p, err := s.Create(ctx)
	require.NoError(t, err)

	go func() {
		for i := 0; i < 4; i++ {
			time.Sleep(2 * testPoll)
			_ = p.Advance(ctx, 25)
		}
	}()

	done, err := s.WaitToFinish(ctx, p.ID())
	require.NoError(t, err)
	assert.Equal(t, 100, done.Percent())
}

func TestWaitToFinishFailsWithRecordedError(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, WithPollInterval(testPoll))

	p, err := s.Create(ctx)
	require.NoError(t, err)

	go func() {
		time.Sleep(3 * testPoll)
		_ = p.Advance(ctx, 10)
		_ = p.SetError(ctx, "disk full")
	}()

	_, err = s.WaitToFinish(ctx, p.ID())
	require.Error(t, err)
	assert.True(t, ecode.Is(err, ecode.GenerationFailed))
	assert.Equal(t, "disk full", err.Error())
}

func TestWaitToFinishRecordDisappears(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, WithPollInterval(testPoll))

	p, err := s.Create(ctx)
	require.NoError(t, err)

	go func() {
		time.Sleep(3 * testPoll)
		_ = s.Remove(ctx, p.ID())
	}()

	_, err = s.WaitToFinish(ctx, p.ID())
	assert.True(t, ecode.Is(err, ecode.NotFound))

	_, err = s.WaitToFinish(ctx, "missing")
	assert.True(t, ecode.Is(err, ecode.NotFound))
}

func TestWaitToFinishCanceled(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, WithPollInterval(testPoll))

	p, err := s.Create(ctx, 10)
	require.NoError(t, err)

	go func() {
		time.Sleep(3 * testPoll)
		_ = s.Cancel(ctx, p.ID())
	}()

	snap, err := s.WaitToFinish(ctx, p.ID())
	assert.True(t, ecode.Is(err, ecode.Canceled))
	require.NotNil(t, snap)
	assert.Equal(t, float64(10), snap.Current())

	assert.True(t, ecode.Is(s.Cancel(ctx, "missing"), ecode.NotFound))
}

func TestWaitToFinishTimeout(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, WithPollInterval(testPoll), WithWaitTimeout(4*testPoll))

	p, err := s.Create(ctx)
	require.NoError(t, err)

	_, err = s.WaitToFinish(ctx, p.ID())
	assert.True(t, ecode.Is(err, ecode.Timeout))
}

func TestWaitToFinishContextCanceled(t *testing.T) {
	s, _ := newTestStore(t, WithPollInterval(testPoll))

	p, err := s.Create(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 4*testPoll)
	defer cancel()

	_, err = s.WaitToFinish(ctx, p.ID())
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestRemoveIsBestEffort(t *testing.T) {
	ctx := context.Background()
	s, coll := newTestStore(t)

	assert.NoError(t, s.Remove(ctx, "missing"))

	p, err := s.Create(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, coll.Len())
	assert.NoError(t, s.Remove(ctx, p.ID()))
	assert.Equal(t, 0, coll.Len())
}
