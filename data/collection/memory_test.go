package collection

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

type testDoc struct {
	ID         string    `bson:"_id"`
	Name       string    `bson:"name"`
	ProgressID string    `bson:"progressId,omitempty"`
	Count      int64     `bson:"count"`
	Created    time.Time `bson:"created"`
}

func TestMemoryInsertFind(t *testing.T) {
	ctx := context.Background()
	c := NewMemory("docs")
	now := time.Now().UTC().Truncate(time.Millisecond)

	require.NoError(t, c.InsertOne(ctx, &testDoc{ID: "a", Name: "first", Created: now}))
	assert.ErrorIs(t, c.InsertOne(ctx, &testDoc{ID: "a"}), ErrDuplicate)

	var out testDoc
	require.NoError(t, c.FindOne(ctx, bson.M{"name": "first"}, &out))
	assert.Equal(t, "a", out.ID)
	assert.True(t, now.Equal(out.Created))

	assert.ErrorIs(t, c.FindOne(ctx, bson.M{"name": "missing"}, &out), ErrNotFound)
}

func TestMemoryExistsAndUnset(t *testing.T) {
	ctx := context.Background()
	c := NewMemory("docs")
	require.NoError(t, c.InsertOne(ctx, &testDoc{ID: "a"}))

	n, err := c.UpdateOne(ctx, bson.M{"_id": "a", "progressId": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"progressId": "p1"}}, false)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = c.UpdateOne(ctx, bson.M{"_id": "a", "progressId": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"progressId": "p2"}}, false)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)

	var out testDoc
	require.NoError(t, c.FindOne(ctx, ByID("a"), &out))
	assert.Equal(t, "p1", out.ProgressID)

	_, err = c.UpdateOne(ctx, ByID("a"), bson.M{"$unset": bson.M{"progressId": ""}}, false)
	require.NoError(t, err)
	require.NoError(t, c.FindOne(ctx, bson.M{"progressId": bson.M{"$exists": false}}, &out))
	assert.Empty(t, out.ProgressID)
}

func TestMemoryIncAndUpsert(t *testing.T) {
	ctx := context.Background()
	c := NewMemory("docs")

	n, err := c.UpdateOne(ctx, bson.M{"name": "x"}, bson.M{
		"$setOnInsert": bson.M{"_id": "fixed"},
		"$inc":         bson.M{"count": 2},
	}, true)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = c.UpdateOne(ctx, bson.M{"name": "x"}, bson.M{
		"$setOnInsert": bson.M{"_id": "other"},
		"$inc":         bson.M{"count": 3},
	}, true)
	require.NoError(t, err)

	var out testDoc
	require.NoError(t, c.FindOne(ctx, bson.M{"name": "x"}, &out))
	assert.Equal(t, "fixed", out.ID)
	assert.EqualValues(t, 5, out.Count)
	assert.Equal(t, 1, c.Len())
}

func TestMemoryDelete(t *testing.T) {
	ctx := context.Background()
	c := NewMemory("docs")
	require.NoError(t, c.InsertOne(ctx, &testDoc{ID: "a"}))
	require.NoError(t, c.InsertOne(ctx, &testDoc{ID: "b"}))

	n, err := c.DeleteOne(ctx, ByID("a"))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = c.DeleteOne(ctx, ByID("a"))
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
	assert.Equal(t, 1, c.Len())
}

func TestMemoryConditionalUpdateIsAtomic(t *testing.T) {
	ctx := context.Background()
	c := NewMemory("docs")
	require.NoError(t, c.InsertOne(ctx, &testDoc{ID: "a"}))

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := c.UpdateOne(ctx, bson.M{"_id": "a", "progressId": bson.M{"$exists": false}},
				bson.M{"$set": bson.M{"progressId": NewID()}}, false)
			if err == nil && n == 1 {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, wins)
}
