package ocr

import (
	"testing"
	"time"

	"github.com/Sweily-fr/newbi-api-sub001/models"
)

func TestMonthKey(t *testing.T) {
	tests := []struct {
		at   time.Time
		want string
	}{
		{time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC), "2024-03"},
		{time.Date(2024, time.March, 31, 23, 59, 59, 0, time.UTC), "2024-03"},
		{time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC), "2024-04"},
		// A local time just before UTC midnight still lands on the UTC month.
		{time.Date(2024, time.April, 1, 1, 30, 0, 0, time.FixedZone("CEST", 2*3600)), "2024-03"},
	}
	for _, tt := range tests {
		if got := monthKey(tt.at); got != tt.want {
			t.Errorf("monthKey(%v) = %q, want %q", tt.at, got, tt.want)
		}
	}
}

func TestLimitForPlan(t *testing.T) {
	tests := []struct {
		plan     string
		provider string
		want     int
	}{
		{models.PlanFree, ProviderMistral, 500},
		{models.PlanFree, ProviderClaude, 500},
		{models.PlanFree, ProviderGemini, 500},
		{models.PlanFree, ProviderMindee, 250},
		{models.PlanPro, ProviderMistral, Unlimited},
		{models.PlanPro, ProviderClaude, Unlimited},
		{models.PlanPro, ProviderGemini, Unlimited},
		// Mindee's cap is the vendor's, not ours.
		{models.PlanPro, ProviderMindee, 250},
		{models.PlanFree, "unknown", 0},
	}
	for _, tt := range tests {
		if got := limitForPlan(tt.plan, tt.provider); got != tt.want {
			t.Errorf("limitForPlan(%q, %q) = %d, want %d", tt.plan, tt.provider, got, tt.want)
		}
	}
}

func TestTaskQueueRunsSubmittedTasks(t *testing.T) {
	q := NewTaskQueue(4)
	done := make(chan struct{})

	ok := q.Submit("probe", func() error {
		close(done)
		return nil
	})
	if !ok {
		t.Fatal("Submit returned false on an empty queue")
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task never ran")
	}
	q.Close()
}

func TestTaskQueueCloseDrains(t *testing.T) {
	q := NewTaskQueue(8)
	ran := 0
	for i := 0; i < 5; i++ {
		q.Submit("n", func() error { ran++; return nil })
	}
	q.Close()
	if ran != 5 {
		t.Errorf("ran = %d, want 5 after Close", ran)
	}
}
