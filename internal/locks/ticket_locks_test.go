package locks

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyedMutexSerializesSameTicket(t *testing.T) {
	locker := NewKeyedMutex()
	ctx := context.Background()

	var counter, max int
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locker.Lock(ctx, "ticket-1")
			if !assert.NoError(t, err) {
				return
			}
			defer release()

			mu.Lock()
			counter++
			if counter > max {
				max = counter
			}
			mu.Unlock()

			mu.Lock()
			counter--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, max, "at most one holder per ticket at a time")
}

func TestKeyedMutexIndependentTickets(t *testing.T) {
	locker := NewKeyedMutex()
	ctx := context.Background()

	releaseA, err := locker.Lock(ctx, "ticket-a")
	if err != nil {
		t.Fatalf("lock ticket-a: %v", err)
	}
	defer releaseA()

	// A held lock on one ticket must not block another ticket.
	done := make(chan struct{})
	go func() {
		releaseB, err := locker.Lock(ctx, "ticket-b")
		assert.NoError(t, err)
		releaseB()
		close(done)
	}()
	<-done
}

func TestKeyedMutexRejectsDoneContext(t *testing.T) {
	locker := NewKeyedMutex()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := locker.Lock(ctx, "ticket-1")
	assert.Error(t, err)
}
