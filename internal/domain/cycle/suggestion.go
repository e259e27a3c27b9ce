// internal/domain/cycle/suggestion.go
package cycle

// Suggestion is the client-facing "what should I study now" view, derived
// from a single consistent snapshot of a cycle. It is never persisted.
type Suggestion struct {
	HasCycle                  bool
	CycleID                   int64
	CycleName                 string
	CurrentSubject            string
	CurrentSubjectID          int64
	CurrentPosition           int
	TotalItems                int
	CurrentAccumulatedMinutes int
	CurrentTargetMinutes      int
	RemainingMinutes          int
	IsCurrentComplete         bool
	IsCycleComplete           bool
	NextSubject               string
	NextTargetMinutes         int
	AllItemsProgress          []ItemProgress
}

// ItemProgress is one row of the full-cycle progress list.
type ItemProgress struct {
	Position           int
	Subject            string
	SubjectID          int64
	AccumulatedMinutes int
	TargetMinutes      int
	IsComplete         bool
}

// NameResolver maps a subject id to its display name. Display only; a
// missing name must not affect projection logic.
type NameResolver func(subjectID int64) string

// Project turns a cycle snapshot into a Suggestion. Pure: no side effects,
// no locking, safe to call arbitrarily often. When the cycle is complete the
// current/next fields are left empty and IsCycleComplete is set; the
// progress list is still fully populated so a finished lap can be rendered
// until the cycle is reset.
func Project(c *Cycle, names NameResolver) Suggestion {
	s := Suggestion{
		HasCycle:        true,
		CycleID:         c.ID,
		CycleName:       c.Name,
		CurrentPosition: c.Position,
		TotalItems:      len(c.Items),
		IsCycleComplete: c.IsComplete(),
	}

	s.AllItemsProgress = make([]ItemProgress, len(c.Items))
	for i, it := range c.Items {
		s.AllItemsProgress[i] = ItemProgress{
			Position:           i,
			Subject:            names(it.SubjectID),
			SubjectID:          it.SubjectID,
			AccumulatedMinutes: it.AccumulatedMinutes,
			TargetMinutes:      it.TargetMinutes,
			IsComplete:         it.IsComplete(),
		}
	}

	if s.IsCycleComplete {
		return s
	}

	cur := c.Items[c.Position]
	s.CurrentSubject = names(cur.SubjectID)
	s.CurrentSubjectID = cur.SubjectID
	s.CurrentAccumulatedMinutes = cur.AccumulatedMinutes
	s.CurrentTargetMinutes = cur.TargetMinutes
	if remaining := cur.TargetMinutes - cur.AccumulatedMinutes; remaining > 0 {
		s.RemainingMinutes = remaining
	}
	s.IsCurrentComplete = cur.IsComplete()

	if next := c.Position + 1; next < len(c.Items) {
		s.NextSubject = names(c.Items[next].SubjectID)
		s.NextTargetMinutes = c.Items[next].TargetMinutes
	}
	return s
}
