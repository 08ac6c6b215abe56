package assistant

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryThreadStore(t *testing.T) {
	store := NewMemoryThreadStore()

	_, ok := store.Get("15551234567")
	assert.False(t, ok)

	store.Put("15551234567", "thread_1")
	id, ok := store.Get("15551234567")
	require.True(t, ok)
	assert.Equal(t, "thread_1", id)
	assert.Equal(t, 1, store.Len())
}

func TestMemoryThreadStoreConcurrent(t *testing.T) {
	store := NewMemoryThreadStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sender := fmt.Sprintf("sender-%d", i%10)
			store.Put(sender, "thread-"+sender)
			store.Get(sender)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 10, store.Len())
}

func TestSenderLocksSerialize(t *testing.T) {
	locks := NewSenderLocks()

	unlock, err := locks.Lock(context.Background(), "a")
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		second, err := locks.Lock(context.Background(), "a")
		if err == nil {
			close(acquired)
			second()
		}
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while first held")
	case <-time.After(20 * time.Millisecond):
	}

	other, err := locks.Lock(context.Background(), "b")
	require.NoError(t, err, "different senders must not block each other")
	other()

	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second lock not acquired after release")
	}

	require.Eventually(t, func() bool { return locks.Len() == 0 }, time.Second, time.Millisecond)
}

func TestSenderLocksContextCancel(t *testing.T) {
	locks := NewSenderLocks()
	unlock, err := locks.Lock(context.Background(), "a")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = locks.Lock(ctx, "a")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, locks.Len())
}
