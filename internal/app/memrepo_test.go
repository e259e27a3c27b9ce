package app

// In-memory fakes for service tests. They honor the same contracts as the
// Postgres repositories: copy-on-read aggregates, activate-on-first-create,
// version bumps on every locked mutation.

import (
	"context"
	"io"
	"sync"
	"time"

	"study_cycle_bot/internal/domain/achievement"
	"study_cycle_bot/internal/domain/cycle"
	"study_cycle_bot/internal/domain/session"
	"study_cycle_bot/internal/domain/subject"
	idb "study_cycle_bot/internal/infra/database"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

// --- cycle.Repository ---

type memCycleRepo struct {
	mu     sync.Mutex
	nextID int64
	cycles map[int64]*cycle.Cycle
}

func newMemCycleRepo() *memCycleRepo {
	return &memCycleRepo{cycles: make(map[int64]*cycle.Cycle)}
}

func cloneCycle(c *cycle.Cycle) *cycle.Cycle {
	out := *c
	out.Items = make([]cycle.Item, len(c.Items))
	copy(out.Items, c.Items)
	return &out
}

func (r *memCycleRepo) Create(_ context.Context, c *cycle.Cycle, activate bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	first := true
	for _, existing := range r.cycles {
		if existing.WorkspaceID == c.WorkspaceID {
			first = false
			break
		}
	}
	c.Active = activate || first
	if c.Active {
		for _, existing := range r.cycles {
			if existing.WorkspaceID == c.WorkspaceID {
				existing.Active = false
			}
		}
	}

	r.nextID++
	c.ID = r.nextID
	if c.Epoch == "" {
		c.Epoch = cycle.NewEpoch()
	}
	c.Version = 1
	c.CreatedAt = time.Now()
	for i := range c.Items {
		r.nextID++
		c.Items[i].ID = r.nextID
		c.Items[i].CycleID = c.ID
	}
	r.cycles[c.ID] = cloneCycle(c)
	return nil
}

func (r *memCycleRepo) GetByID(_ context.Context, workspaceID, cycleID int64) (*cycle.Cycle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cycles[cycleID]
	if !ok || c.WorkspaceID != workspaceID {
		return nil, idb.ErrCycleNotFound
	}
	return cloneCycle(c), nil
}

func (r *memCycleRepo) GetActive(_ context.Context, workspaceID int64) (*cycle.Cycle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activeLocked(workspaceID)
}

func (r *memCycleRepo) activeLocked(workspaceID int64) (*cycle.Cycle, error) {
	for _, c := range r.cycles {
		if c.WorkspaceID == workspaceID && c.Active {
			return cloneCycle(c), nil
		}
	}
	return nil, idb.ErrNoActiveCycle
}

func (r *memCycleRepo) ListByWorkspace(_ context.Context, workspaceID int64) ([]*cycle.Cycle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*cycle.Cycle, 0)
	for id := int64(1); id <= r.nextID; id++ {
		if c, ok := r.cycles[id]; ok && c.WorkspaceID == workspaceID {
			out = append(out, cloneCycle(c))
		}
	}
	return out, nil
}

func (r *memCycleRepo) Activate(_ context.Context, workspaceID, cycleID int64) (*cycle.Cycle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	target, ok := r.cycles[cycleID]
	if !ok || target.WorkspaceID != workspaceID {
		return nil, idb.ErrCycleNotFound
	}
	for _, c := range r.cycles {
		if c.WorkspaceID == workspaceID {
			c.Active = c.ID == cycleID
		}
	}
	return cloneCycle(target), nil
}

func (r *memCycleRepo) Delete(_ context.Context, workspaceID, cycleID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cycles[cycleID]
	if !ok || c.WorkspaceID != workspaceID {
		return idb.ErrCycleNotFound
	}
	delete(r.cycles, cycleID)
	return nil
}

func (r *memCycleRepo) ReplaceItems(_ context.Context, workspaceID, cycleID int64, items []cycle.Item) (*cycle.Cycle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cycles[cycleID]
	if !ok || c.WorkspaceID != workspaceID {
		return nil, idb.ErrCycleNotFound
	}
	c.Items = make([]cycle.Item, len(items))
	for i, it := range items {
		r.nextID++
		it.ID = r.nextID
		it.CycleID = cycleID
		it.AccumulatedMinutes = 0
		c.Items[i] = it
	}
	c.Position = 0
	c.CompletedAt.Valid = false
	c.Epoch = cycle.NewEpoch()
	c.Version++
	return cloneCycle(c), nil
}

func (r *memCycleRepo) UpdateActiveLocked(_ context.Context, workspaceID int64, mutate func(*cycle.Cycle) error) (*cycle.Cycle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var active *cycle.Cycle
	for _, c := range r.cycles {
		if c.WorkspaceID == workspaceID && c.Active {
			active = c
			break
		}
	}
	if active == nil {
		return nil, idb.ErrNoActiveCycle
	}
	working := cloneCycle(active)
	if err := mutate(working); err != nil {
		return nil, err
	}
	working.Version++
	r.cycles[active.ID] = cloneCycle(working)
	return working, nil
}

var _ cycle.Repository = (*memCycleRepo)(nil)

// --- achievement.Gate ---

type memGate struct {
	mu       sync.Mutex
	hydrated bool
	records  map[string]bool
	marks    int
}

func newMemGate() *memGate {
	return &memGate{hydrated: true, records: make(map[string]bool)}
}

func (g *memGate) ShouldCelebrate(t achievement.Type, identifier string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.hydrated {
		return false
	}
	return !g.records[achievement.Key(t, identifier)]
}

func (g *memGate) MarkCelebrated(_ context.Context, t achievement.Type, identifier string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.records[achievement.Key(t, identifier)] = true
	g.marks++
	return nil
}

var _ achievement.Gate = (*memGate)(nil)

// --- subject.Repository + subject.Catalog ---

type memSubjectRepo struct {
	mu     sync.Mutex
	nextID int64
	byName map[string]*subject.Subject
}

func newMemSubjectRepo() *memSubjectRepo {
	return &memSubjectRepo{byName: make(map[string]*subject.Subject)}
}

func (r *memSubjectRepo) GetOrCreateByName(_ context.Context, workspaceID int64, name string) (*subject.Subject, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.byName[name]; ok {
		return s, nil
	}
	r.nextID++
	s := &subject.Subject{ID: r.nextID, WorkspaceID: workspaceID, Name: name, CreatedAt: time.Now()}
	r.byName[name] = s
	return s, nil
}

func (r *memSubjectRepo) GetByID(_ context.Context, workspaceID, id int64) (*subject.Subject, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.byName {
		if s.ID == id && s.WorkspaceID == workspaceID {
			return s, nil
		}
	}
	return nil, idb.ErrSubjectNotFound
}

func (r *memSubjectRepo) ListByWorkspace(_ context.Context, workspaceID int64) ([]*subject.Subject, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*subject.Subject, 0)
	for _, s := range r.byName {
		if s.WorkspaceID == workspaceID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *memSubjectRepo) GetName(ctx context.Context, workspaceID, subjectID int64) (string, error) {
	s, err := r.GetByID(ctx, workspaceID, subjectID)
	if err != nil {
		return "", err
	}
	return s.Name, nil
}

var (
	_ subject.Repository = (*memSubjectRepo)(nil)
	_ subject.Catalog    = (*memSubjectRepo)(nil)
)

// --- session.Repository ---

type memSessionRepo struct {
	mu       sync.Mutex
	nextID   int64
	sessions []session.StudySession
}

func newMemSessionRepo() *memSessionRepo { return &memSessionRepo{} }

func (r *memSessionRepo) Append(_ context.Context, s *session.StudySession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	s.ID = r.nextID
	s.CreatedAt = time.Now()
	r.sessions = append(r.sessions, *s)
	return nil
}

func (r *memSessionRepo) TotalMinutesSince(_ context.Context, workspaceID int64, since time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0
	for _, s := range r.sessions {
		if s.WorkspaceID == workspaceID && !s.CreatedAt.Before(since) {
			total += s.Minutes
		}
	}
	return total, nil
}

func (r *memSessionRepo) TotalsBySubject(_ context.Context, workspaceID int64) ([]session.SubjectTotal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	byID := make(map[int64]*session.SubjectTotal)
	order := make([]int64, 0)
	for _, s := range r.sessions {
		if s.WorkspaceID != workspaceID {
			continue
		}
		t, ok := byID[s.SubjectID]
		if !ok {
			t = &session.SubjectTotal{SubjectID: s.SubjectID}
			byID[s.SubjectID] = t
			order = append(order, s.SubjectID)
		}
		t.TotalMinutes += s.Minutes
		t.Sessions++
	}
	out := make([]session.SubjectTotal, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	return out, nil
}

var _ session.Repository = (*memSessionRepo)(nil)
