package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryQueuePriorityOrder(t *testing.T) {
	q := NewInMemoryQueue(0)
	require.NoError(t, q.Push(&Task{ID: "a"}))
	require.NoError(t, q.Push(&Task{ID: "b", Priority: 5}))
	require.NoError(t, q.Push(&Task{ID: "c"}))
	require.NoError(t, q.Push(&Task{ID: "d", Priority: 5}))

	var got []string
	for q.Size() > 0 {
		task, err := q.Pop(context.Background())
		require.NoError(t, err)
		got = append(got, task.ID)
	}
	assert.Equal(t, []string{"b", "d", "a", "c"}, got)
}

func TestInMemoryQueuePopWaitsForPush(t *testing.T) {
	q := NewInMemoryQueue(0)

	result := make(chan *Task, 1)
	go func() {
		task, err := q.Pop(context.Background())
		if err == nil {
			result <- task
		}
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, q.Push(&Task{ID: "late"}))

	select {
	case task := <-result:
		assert.Equal(t, "late", task.ID)
	case <-time.After(time.Second):
		t.Fatal("Pop did not return after Push")
	}
}

func TestInMemoryQueuePopHonorsContext(t *testing.T) {
	q := NewInMemoryQueue(0)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := q.Pop(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestInMemoryQueueCloseWakesAllWaiters(t *testing.T) {
	q := NewInMemoryQueue(0)

	var wg sync.WaitGroup
	errs := make(chan error, 3)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := q.Pop(context.Background())
			errs <- err
		}()
	}

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, q.Close())
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.ErrorIs(t, err, ErrQueueClosed)
	}
	assert.ErrorIs(t, q.Push(&Task{}), ErrQueueClosed)
}

func TestInMemoryQueueDrainsAfterClose(t *testing.T) {
	q := NewInMemoryQueue(0)
	require.NoError(t, q.Push(&Task{ID: "pending"}))
	require.NoError(t, q.Close())

	task, err := q.Pop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "pending", task.ID)

	_, err = q.TryPop()
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestInMemoryQueueMaxSize(t *testing.T) {
	q := NewInMemoryQueue(2)
	b := NewBatchQueue(q, 10)

	n, err := b.PushBatch([]*Task{{ID: "1"}, {ID: "2"}, {ID: "3"}})
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Equal(t, 2, n)

	_, err = NewInMemoryQueue(0).TryPop()
	assert.ErrorIs(t, err, ErrQueueEmpty)
}

func TestBatchQueuePopBatch(t *testing.T) {
	q := NewInMemoryQueue(0)
	b := NewBatchQueue(q, 2)
	_, err := b.PushBatch([]*Task{{ID: "1"}, {ID: "2"}, {ID: "3"}})
	require.NoError(t, err)

	first, err := b.PopBatch(context.Background())
	require.NoError(t, err)
	assert.Len(t, first, 2)

	second, err := b.PopBatch(context.Background())
	require.NoError(t, err)
	assert.Len(t, second, 1)

	require.NoError(t, q.Close())
	_, err = b.PopBatch(context.Background())
	assert.ErrorIs(t, err, ErrQueueEmpty)
}
