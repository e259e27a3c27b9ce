package cycle

import (
	"testing"
	"time"
)

func twoItemCycle() *Cycle {
	return &Cycle{
		ID:    1,
		Epoch: NewEpoch(),
		Items: []Item{
			{ID: 10, SubjectID: 100, Order: 0, TargetMinutes: 60},
			{ID: 11, SubjectID: 101, Order: 1, TargetMinutes: 30},
		},
	}
}

func TestApplySession_CurrentSubjectAccumulates(t *testing.T) {
	c := twoItemCycle()
	if !c.ApplySession(100, 25) {
		t.Fatal("session for current subject should be counted")
	}
	if !c.ApplySession(100, 10) {
		t.Fatal("second session for current subject should be counted")
	}
	if got := c.Items[0].AccumulatedMinutes; got != 35 {
		t.Fatalf("accumulated = %d, want 35", got)
	}
}

func TestApplySession_NonCurrentSubjectIgnored(t *testing.T) {
	c := twoItemCycle()
	if c.ApplySession(101, 45) {
		t.Fatal("session for non-current subject should not be counted")
	}
	if c.Items[0].AccumulatedMinutes != 0 || c.Items[1].AccumulatedMinutes != 0 {
		t.Fatalf("no item should accumulate, got %d/%d",
			c.Items[0].AccumulatedMinutes, c.Items[1].AccumulatedMinutes)
	}
}

func TestApplySession_CompleteCycleIgnoresSessions(t *testing.T) {
	c := twoItemCycle()
	c.Position = 2
	if c.ApplySession(100, 30) || c.ApplySession(101, 30) {
		t.Fatal("complete cycle should ignore sessions")
	}
	if c.Position != 2 {
		t.Fatalf("position changed to %d", c.Position)
	}
}

func TestAdvance_FailsBeforeTarget(t *testing.T) {
	c := twoItemCycle()
	c.Items[0].AccumulatedMinutes = 59
	if err := c.Advance(false, time.Now()); err != ErrTargetNotReached {
		t.Fatalf("err = %v, want ErrTargetNotReached", err)
	}
	if c.Position != 0 {
		t.Fatalf("failed advance must not move position, got %d", c.Position)
	}
}

func TestAdvance_SucceedsAtTarget(t *testing.T) {
	c := twoItemCycle()
	c.Items[0].AccumulatedMinutes = 60
	if err := c.Advance(false, time.Now()); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if c.Position != 1 {
		t.Fatalf("position = %d, want 1", c.Position)
	}
	// The item left behind keeps its final counter as a lap record.
	if c.Items[0].AccumulatedMinutes != 60 {
		t.Fatalf("left-behind item counter = %d, want 60", c.Items[0].AccumulatedMinutes)
	}
	if c.CompletedAt.Valid {
		t.Fatal("mid-cycle advance must not stamp completion")
	}
}

func TestAdvance_ForcedAlwaysSucceeds(t *testing.T) {
	c := twoItemCycle()
	if err := c.Advance(true, time.Now()); err != nil {
		t.Fatalf("forced advance: %v", err)
	}
	if c.Position != 1 {
		t.Fatalf("position = %d, want 1", c.Position)
	}
	if c.Items[0].AccumulatedMinutes != 0 {
		t.Fatalf("force must not inflate minutes, got %d", c.Items[0].AccumulatedMinutes)
	}
}

func TestAdvance_LastItemCompletesCycle(t *testing.T) {
	c := twoItemCycle()
	c.Position = 1
	c.Items[1].AccumulatedMinutes = 30
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	if err := c.Advance(false, now); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if !c.IsComplete() {
		t.Fatal("cycle should be complete")
	}
	if !c.CompletedAt.Valid || !c.CompletedAt.Time.Equal(now) {
		t.Fatalf("CompletedAt = %+v, want %v", c.CompletedAt, now)
	}
}

func TestAdvance_CompleteIsTerminal(t *testing.T) {
	c := twoItemCycle()
	c.Position = 2
	if err := c.Advance(false, time.Now()); err != ErrCycleComplete {
		t.Fatalf("err = %v, want ErrCycleComplete", err)
	}
	if err := c.Advance(true, time.Now()); err != ErrCycleComplete {
		t.Fatalf("forced err = %v, want ErrCycleComplete", err)
	}
	if c.Position != 2 {
		t.Fatalf("position = %d, want 2 (no wraparound)", c.Position)
	}
}

func TestReset_FreshLapWithNewEpoch(t *testing.T) {
	c := twoItemCycle()
	c.Items[0].AccumulatedMinutes = 60
	c.Items[1].AccumulatedMinutes = 12
	c.Position = 2
	c.CompletedAt.Valid = true
	oldEpoch := c.Epoch

	c.Reset()

	if c.Position != 0 {
		t.Fatalf("position = %d, want 0", c.Position)
	}
	for i, it := range c.Items {
		if it.AccumulatedMinutes != 0 {
			t.Fatalf("item %d counter = %d, want 0", i, it.AccumulatedMinutes)
		}
	}
	if c.CompletedAt.Valid {
		t.Fatal("CompletedAt should be cleared")
	}
	if c.Epoch == oldEpoch || c.Epoch == "" {
		t.Fatalf("epoch %q should be fresh and distinct from %q", c.Epoch, oldEpoch)
	}
}

func TestReset_LegalMidCycle(t *testing.T) {
	c := twoItemCycle()
	c.Items[0].AccumulatedMinutes = 30
	c.Reset()
	if c.Position != 0 || c.Items[0].AccumulatedMinutes != 0 {
		t.Fatal("mid-cycle reset should abandon the lap")
	}
}

// Full walkthrough: two subjects, log, advance, complete, reset.
func TestCycleLifecycle(t *testing.T) {
	c := twoItemCycle()

	if !c.ApplySession(100, 60) {
		t.Fatal("math session should count")
	}
	if !c.IsCurrentComplete() {
		t.Fatal("math should be complete at 60/60")
	}
	if err := c.Advance(false, time.Now()); err != nil {
		t.Fatalf("advance to physics: %v", err)
	}
	if c.Items[0].AccumulatedMinutes != 60 {
		t.Fatal("math counter should be frozen at 60")
	}
	if !c.ApplySession(101, 30) {
		t.Fatal("physics session should count")
	}
	if err := c.Advance(false, time.Now()); err != nil {
		t.Fatalf("final advance: %v", err)
	}
	if !c.IsComplete() || !c.CompletedAt.Valid {
		t.Fatal("cycle should be complete with CompletedAt set")
	}

	before := c.Epoch
	c.Reset()
	if c.IsComplete() || c.Epoch == before {
		t.Fatal("reset should start a fresh lap under a new epoch")
	}
}

func TestValidateItems(t *testing.T) {
	tests := []struct {
		name  string
		items []Item
		want  error
	}{
		{"empty", nil, ErrNoItems},
		{"zero target", []Item{{Order: 0, TargetMinutes: 0}}, ErrNonPositiveTarget},
		{"negative target", []Item{{Order: 0, TargetMinutes: -5}}, ErrNonPositiveTarget},
		{"duplicate order", []Item{
			{Order: 0, TargetMinutes: 10},
			{Order: 0, TargetMinutes: 20},
		}, ErrDuplicateOrder},
		{"valid", []Item{
			{Order: 0, TargetMinutes: 10},
			{Order: 1, TargetMinutes: 20},
		}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateItems(tt.items); got != tt.want {
				t.Fatalf("ValidateItems() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidateName(t *testing.T) {
	if err := ValidateName(""); err != ErrEmptyName {
		t.Fatalf("empty name: %v", err)
	}
	long := make([]byte, MaxNameLength+1)
	for i := range long {
		long[i] = 'a'
	}
	if err := ValidateName(string(long)); err != ErrNameTooLong {
		t.Fatalf("long name: %v", err)
	}
	if err := ValidateName("Exam prep"); err != nil {
		t.Fatalf("valid name: %v", err)
	}
}
