package services

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestTaskTypeSettlement_Constant(t *testing.T) {
	if TaskTypeSettlement != "billing:settle" {
		t.Errorf("TaskTypeSettlement = %q, expected %q", TaskTypeSettlement, "billing:settle")
	}
}

func TestSyncQueue_DeliversToProcessor(t *testing.T) {
	queue := NewSyncQueue()
	queue.SetDelay(5 * time.Millisecond)

	var mu sync.Mutex
	var got []uint
	queue.SetProcessor(func(_ context.Context, task *SettlementTask) error {
		mu.Lock()
		got = append(got, task.JobID)
		mu.Unlock()
		return nil
	})

	if err := queue.Enqueue(&SettlementTask{JobID: 42}); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0] != 42 {
		t.Errorf("processor received %v, expected [42]", got)
	}
}

func TestSyncQueue_NoProcessorDropsTask(t *testing.T) {
	queue := NewSyncQueue()
	if err := queue.Enqueue(&SettlementTask{JobID: 1}); err != nil {
		t.Errorf("Enqueue without processor should not error, got %v", err)
	}
}

func TestSyncQueue_IsNotAsync(t *testing.T) {
	queue := NewSyncQueue()
	if queue.IsAsync() {
		t.Error("SyncQueue must report IsAsync() == false")
	}
	if err := queue.Close(); err != nil {
		t.Errorf("Close should be a no-op, got %v", err)
	}
}
