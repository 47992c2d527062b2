package sessionstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStorePutGet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	record := &Record{
		SessionID: "sess-001",
		Domain:    "supermarket",
		Filename:  "billing.csv",
		Status:    StatusProcessing,
		CreatedAt: time.Now(),
	}
	require.NoError(t, store.Put(ctx, record))

	got, err := store.Get(ctx, "sess-001")
	require.NoError(t, err)
	assert.Equal(t, "sess-001", got.SessionID)
	assert.Equal(t, StatusProcessing, got.Status)

	// 覆盖写入：状态流转 PROCESSING → ANALYZED
	record.Status = StatusAnalyzed
	require.NoError(t, store.Put(ctx, record))
	got, err = store.Get(ctx, "sess-001")
	require.NoError(t, err)
	assert.Equal(t, StatusAnalyzed, got.Status)
}

func TestMemoryStoreGetReturnsCopy(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, &Record{SessionID: "sess-001", Status: StatusProcessing}))

	got, err := store.Get(ctx, "sess-001")
	require.NoError(t, err)
	got.Status = StatusFailed

	// 调用方改写副本不污染存储
	again, err := store.Get(ctx, "sess-001")
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, again.Status)
}

func TestMemoryStoreNotFound(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreListRecent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	base := time.Now()
	for i, id := range []string{"sess-a", "sess-b", "sess-c"} {
		require.NoError(t, store.Put(ctx, &Record{
			SessionID: id,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	records, err := store.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// 创建时间倒序
	assert.Equal(t, "sess-c", records[0].SessionID)
	assert.Equal(t, "sess-b", records[1].SessionID)

	all, err := store.ListRecent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
