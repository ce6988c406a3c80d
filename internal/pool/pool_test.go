package pool

import (
	"sync/atomic"
	"testing"
)

func TestPoolRunsAllTasks(t *testing.T) {
	p := New(4)
	var count int64
	for i := 0; i < 100; i++ {
		p.Submit(func() {
			atomic.AddInt64(&count, 1)
		})
	}
	p.Wait()
	p.Close()
	if count != 100 {
		t.Fatalf("expected 100 completed tasks, got %d", count)
	}
}

func TestPoolSurvivesPanic(t *testing.T) {
	p := New(2)
	var count int64
	p.Submit(func() { panic("boom") })
	for i := 0; i < 10; i++ {
		p.Submit(func() { atomic.AddInt64(&count, 1) })
	}
	p.Wait()
	p.Close()
	if count != 10 {
		t.Fatalf("expected 10 completed tasks after panic, got %d", count)
	}
}

func TestPoolSubmitAfterCloseProtected(t *testing.T) {
	p := New(1)
	p.Wait()
	p.Close()

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic when submitting to a stopped pool")
		}
	}()
	p.Submit(func() {})
}
