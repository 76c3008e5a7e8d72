package pipeline

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOrderedWriteImmediate(t *testing.T) {
	s := NewSequencer()
	ran := false
	f := s.OrderedWrite(func() *Future {
		ran = true
		return nil
	})
	assert.True(t, ran)
	assert.True(t, f.Completed())
}

func TestOrderedWriteChainsOnSubmission(t *testing.T) {
	s := NewSequencer()
	var mu sync.Mutex
	var order []string
	record := func(name string) {
		mu.Lock()
		order = append(order, name)
		mu.Unlock()
	}

	// 首个动作的提交被人为延迟
	slow := NewFuture()
	f1 := s.OrderedWrite(func() *Future {
		record("r1")
		return slow
	})
	f2 := s.OrderedWrite(func() *Future {
		record("r2")
		return nil
	})
	f3 := s.OrderedWrite(func() *Future {
		record("r3")
		return nil
	})

	mu.Lock()
	assert.Equal(t, []string{"r1"}, order)
	mu.Unlock()

	slow.Complete(nil)
	<-f1.Done()
	<-f2.Done()
	<-f3.Done()

	mu.Lock()
	assert.Equal(t, []string{"r1", "r2", "r3"}, order)
	mu.Unlock()
}

func TestOrderedWriteAcrossGoroutines(t *testing.T) {
	s := NewSequencer()
	gate := NewFuture()
	var mu sync.Mutex
	var order []int

	first := s.OrderedWrite(func() *Future {
		mu.Lock()
		order = append(order, 0)
		mu.Unlock()
		return gate
	})

	var futures []*Future
	for i := 1; i <= 8; i++ {
		i := i
		futures = append(futures, s.OrderedWrite(func() *Future {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return nil
		}))
	}

	go func() {
		time.Sleep(10 * time.Millisecond)
		gate.Complete(nil)
	}()

	<-first.Done()
	for _, f := range futures {
		<-f.Done()
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8}, order)
}

func TestOrderedWritePropagatesError(t *testing.T) {
	s := NewSequencer()
	f := s.OrderedWrite(func() *Future {
		return CompletedFuture(assert.AnError)
	})
	assert.ErrorIs(t, f.Err(), assert.AnError)

	// 前驱出错不阻断后继提交
	ran := false
	f2 := s.OrderedWrite(func() *Future {
		ran = true
		return nil
	})
	<-f2.Done()
	assert.True(t, ran)
}
