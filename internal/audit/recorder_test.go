package audit

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRecorderFillsIdentity(t *testing.T) {
	rec := NewMemoryRecorder(0)
	ctx := context.Background()

	require.NoError(t, rec.Record(ctx, Decision{UserID: 1, Action: "query", Entity: "leads", Outcome: OutcomeAllowed}))

	recent, err := rec.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.NotEmpty(t, recent[0].ID)
	assert.False(t, recent[0].At.IsZero())
}

func TestMemoryRecorderNewestFirst(t *testing.T) {
	rec := NewMemoryRecorder(0)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, rec.Record(ctx, Decision{
			UserID:  int64(i),
			Action:  "query",
			Entity:  "leads",
			Query:   fmt.Sprintf("q%d", i),
			Outcome: OutcomeAllowed,
		}))
	}

	recent, err := rec.Recent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, "q4", recent[0].Query)
	assert.Equal(t, "q3", recent[1].Query)
	assert.Equal(t, "q2", recent[2].Query)
}

func TestMemoryRecorderCapacityBound(t *testing.T) {
	rec := NewMemoryRecorder(2)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, rec.Record(ctx, Decision{Query: fmt.Sprintf("q%d", i), Outcome: OutcomeAllowed}))
	}

	recent, err := rec.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "q4", recent[0].Query)
	assert.Equal(t, "q3", recent[1].Query)
}

func TestMemoryRecorderConcurrentWrites(t *testing.T) {
	rec := NewMemoryRecorder(0)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				_ = rec.Record(ctx, Decision{UserID: int64(i), Outcome: OutcomeAllowed})
			}
		}(i)
	}
	wg.Wait()

	recent, err := rec.Recent(ctx, 1000)
	require.NoError(t, err)
	assert.Len(t, recent, 200)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "abcde", truncate("abcdefgh", 5))
}
