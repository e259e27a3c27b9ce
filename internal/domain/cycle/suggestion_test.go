package cycle

import (
	"testing"
)

func testNames(subjectID int64) string {
	switch subjectID {
	case 100:
		return "Math"
	case 101:
		return "Physics"
	default:
		return "(unknown subject)"
	}
}

func TestProject_InProgress(t *testing.T) {
	c := twoItemCycle()
	c.Name = "Exams"
	c.Items[0].AccumulatedMinutes = 40

	s := Project(c, testNames)

	if !s.HasCycle {
		t.Fatal("HasCycle should be true")
	}
	if s.CurrentSubject != "Math" || s.CurrentPosition != 0 || s.TotalItems != 2 {
		t.Fatalf("current view wrong: %+v", s)
	}
	if s.CurrentAccumulatedMinutes != 40 || s.CurrentTargetMinutes != 60 || s.RemainingMinutes != 20 {
		t.Fatalf("minutes wrong: %+v", s)
	}
	if s.IsCurrentComplete || s.IsCycleComplete {
		t.Fatalf("nothing should be complete yet: %+v", s)
	}
	if s.NextSubject != "Physics" || s.NextTargetMinutes != 30 {
		t.Fatalf("next view wrong: %+v", s)
	}
}

func TestProject_RemainingNeverNegative(t *testing.T) {
	c := twoItemCycle()
	c.Items[0].AccumulatedMinutes = 90 // overshot the target

	s := Project(c, testNames)
	if s.RemainingMinutes != 0 {
		t.Fatalf("RemainingMinutes = %d, want 0", s.RemainingMinutes)
	}
	if !s.IsCurrentComplete {
		t.Fatal("overshot item should be current-complete")
	}
}

func TestProject_LastItemHasNoNext(t *testing.T) {
	c := twoItemCycle()
	c.Position = 1

	s := Project(c, testNames)
	if s.CurrentSubject != "Physics" {
		t.Fatalf("CurrentSubject = %q", s.CurrentSubject)
	}
	if s.NextSubject != "" || s.NextTargetMinutes != 0 {
		t.Fatalf("last item should have no next, got %q/%d", s.NextSubject, s.NextTargetMinutes)
	}
}

func TestProject_CompleteCycle(t *testing.T) {
	c := twoItemCycle()
	c.Items[0].AccumulatedMinutes = 60
	c.Items[1].AccumulatedMinutes = 35
	c.Position = 2

	s := Project(c, testNames)
	if !s.IsCycleComplete {
		t.Fatal("IsCycleComplete should be true")
	}
	if s.CurrentSubject != "" || s.NextSubject != "" {
		t.Fatalf("current/next undefined when complete, got %q/%q", s.CurrentSubject, s.NextSubject)
	}
	// The progress list still renders the whole finished lap.
	if len(s.AllItemsProgress) != 2 {
		t.Fatalf("progress list length = %d, want 2", len(s.AllItemsProgress))
	}
	if !s.AllItemsProgress[0].IsComplete || !s.AllItemsProgress[1].IsComplete {
		t.Fatalf("all items should be complete: %+v", s.AllItemsProgress)
	}
	if s.AllItemsProgress[1].AccumulatedMinutes != 35 {
		t.Fatalf("stored minutes should survive projection, got %d", s.AllItemsProgress[1].AccumulatedMinutes)
	}
}

func TestProject_ProgressListAlwaysFull(t *testing.T) {
	c := twoItemCycle()
	c.Items[0].AccumulatedMinutes = 60
	c.Position = 1
	c.Items[1].AccumulatedMinutes = 5

	s := Project(c, testNames)
	want := []ItemProgress{
		{Position: 0, Subject: "Math", SubjectID: 100, AccumulatedMinutes: 60, TargetMinutes: 60, IsComplete: true},
		{Position: 1, Subject: "Physics", SubjectID: 101, AccumulatedMinutes: 5, TargetMinutes: 30, IsComplete: false},
	}
	for i, w := range want {
		if s.AllItemsProgress[i] != w {
			t.Fatalf("progress[%d] = %+v, want %+v", i, s.AllItemsProgress[i], w)
		}
	}
}
