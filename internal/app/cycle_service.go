// internal/app/cycle_service.go
package app

import (
	"context"
	"fmt"
	"time"

	"study_cycle_bot/internal/domain/achievement"
	"study_cycle_bot/internal/domain/cycle"
	"study_cycle_bot/internal/domain/subject"

	"github.com/sirupsen/logrus"
)

// CycleService is the cycle progress engine: it owns per-item accumulated
// time, advance/completion semantics, multi-cycle switching and the
// celebration-dedup handshake. All mutations go through the repository's
// locked write path, so a session accumulation and a client advance can
// never interleave.
type CycleService struct {
	cycleRepo cycle.Repository
	catalog   subject.Catalog
	gate      achievement.Gate
	logger    *logrus.Entry
}

func NewCycleService(cr cycle.Repository, catalog subject.Catalog, gate achievement.Gate, logger *logrus.Entry) *CycleService {
	return &CycleService{
		cycleRepo: cr,
		catalog:   catalog,
		gate:      gate,
		logger:    logger,
	}
}

// CreateCycle validates and persists a new cycle. The workspace's first
// cycle, or any cycle created with activate, becomes the active one
// atomically.
func (s *CycleService) CreateCycle(ctx context.Context, workspaceID int64, name string, items []cycle.Item, activate bool) (*cycle.Cycle, error) {
	if err := cycle.ValidateName(name); err != nil {
		return nil, err
	}
	if err := cycle.ValidateItems(items); err != nil {
		return nil, err
	}
	for i := range items {
		items[i].AccumulatedMinutes = 0
	}

	c := &cycle.Cycle{
		WorkspaceID: workspaceID,
		Name:        name,
		Items:       items,
	}
	if err := s.cycleRepo.Create(ctx, c, activate); err != nil {
		return nil, fmt.Errorf("failed to create cycle: %w", err)
	}
	s.logger.WithFields(logrus.Fields{
		"workspace_id": workspaceID,
		"cycle_id":     c.ID,
		"items":        len(c.Items),
		"active":       c.Active,
	}).Info("Cycle created")
	return c, nil
}

func (s *CycleService) ListCycles(ctx context.Context, workspaceID int64) ([]*cycle.Cycle, error) {
	return s.cycleRepo.ListByWorkspace(ctx, workspaceID)
}

// ActivateCycle switches the workspace's active cycle. Both cycles keep
// their positions and accumulated minutes: switching is resumable.
func (s *CycleService) ActivateCycle(ctx context.Context, workspaceID, cycleID int64) (*cycle.Cycle, error) {
	c, err := s.cycleRepo.Activate(ctx, workspaceID, cycleID)
	if err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{"workspace_id": workspaceID, "cycle_id": cycleID}).Info("Cycle activated")
	return c, nil
}

// DeleteCycle removes a cycle. Logged study sessions are untouched; deleting
// the active cycle leaves the workspace with no active cycle until another
// is created or activated.
func (s *CycleService) DeleteCycle(ctx context.Context, workspaceID, cycleID int64) error {
	if err := s.cycleRepo.Delete(ctx, workspaceID, cycleID); err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{"workspace_id": workspaceID, "cycle_id": cycleID}).Info("Cycle deleted")
	return nil
}

// UpdateItems replaces the active cycle's item list wholesale and starts a
// fresh lap over the new list.
func (s *CycleService) UpdateItems(ctx context.Context, workspaceID int64, items []cycle.Item) (*cycle.Cycle, error) {
	if err := cycle.ValidateItems(items); err != nil {
		return nil, err
	}
	active, err := s.cycleRepo.GetActive(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	c, err := s.cycleRepo.ReplaceItems(ctx, workspaceID, active.ID, items)
	if err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{"workspace_id": workspaceID, "cycle_id": c.ID, "items": len(c.Items)}).Info("Cycle items replaced")
	return c, nil
}

// OnSessionLogged credits freshly logged minutes to the active cycle's
// current item, under the cycle's lock. Reports whether anything was
// credited: minutes for a non-current subject or for a complete cycle do
// not count toward cycle progress (they still count toward the subject's
// lifetime totals in the session log). A workspace without an active cycle
// is a quiet no-op.
func (s *CycleService) OnSessionLogged(ctx context.Context, workspaceID, subjectID int64, minutes int) (bool, error) {
	counted := false
	_, err := s.cycleRepo.UpdateActiveLocked(ctx, workspaceID, func(c *cycle.Cycle) error {
		counted = c.ApplySession(subjectID, minutes)
		return nil
	})
	if err != nil {
		if isNoActiveCycle(err) {
			return false, nil
		}
		return false, err
	}
	s.logger.WithFields(logrus.Fields{
		"workspace_id": workspaceID,
		"subject_id":   subjectID,
		"minutes":      minutes,
		"counted":      counted,
	}).Debug("Session applied to cycle")
	return counted, nil
}

// Advance moves the active cycle to its next item. Without force it fails
// with cycle.ErrTargetNotReached until the current item's target is met;
// with force it always succeeds (while the cycle is incomplete) and never
// inflates accumulated minutes. Advancing a complete cycle fails with
// cycle.ErrCycleComplete; only reset exits that state.
func (s *CycleService) Advance(ctx context.Context, workspaceID int64, force bool) (*cycle.Cycle, error) {
	c, err := s.cycleRepo.UpdateActiveLocked(ctx, workspaceID, func(c *cycle.Cycle) error {
		return c.Advance(force, time.Now())
	})
	if err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{
		"workspace_id": workspaceID,
		"cycle_id":     c.ID,
		"position":     c.Position,
		"complete":     c.IsComplete(),
		"forced":       force,
	}).Info("Cycle advanced")
	return c, nil
}

// Reset starts a fresh lap on the active cycle: position zero, counters
// zeroed, completion cleared, new epoch. Legal in any state.
func (s *CycleService) Reset(ctx context.Context, workspaceID int64) (*cycle.Cycle, error) {
	c, err := s.cycleRepo.UpdateActiveLocked(ctx, workspaceID, func(c *cycle.Cycle) error {
		c.Reset()
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{"workspace_id": workspaceID, "cycle_id": c.ID, "epoch": c.Epoch}).Info("Cycle reset")
	return c, nil
}

// GetSuggestion projects the active cycle into the "what should I study
// now" view. Read-only: takes no locks and can be polled freely. A
// workspace without an active cycle yields HasCycle=false.
func (s *CycleService) GetSuggestion(ctx context.Context, workspaceID int64) (cycle.Suggestion, error) {
	c, err := s.cycleRepo.GetActive(ctx, workspaceID)
	if err != nil {
		if isNoActiveCycle(err) {
			return cycle.Suggestion{HasCycle: false}, nil
		}
		return cycle.Suggestion{}, err
	}
	return cycle.Project(c, s.nameResolver(ctx, workspaceID)), nil
}

// nameResolver builds the display-name lookup for projection. Name lookup
// failures must not break projection, so they degrade to a placeholder.
func (s *CycleService) nameResolver(ctx context.Context, workspaceID int64) cycle.NameResolver {
	return func(subjectID int64) string {
		name, err := s.catalog.GetName(ctx, workspaceID, subjectID)
		if err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"workspace_id": workspaceID,
				"subject_id":   subjectID,
			}).Warn("Could not resolve subject name for projection")
			return "(unknown subject)"
		}
		return name
	}
}

// CelebrationDue reports whether the cycle's completion should be celebrated
// right now, consulting the dedup gate and marking it in the same step. The
// caller fires the celebration immediately when true; the epoch-qualified
// identifier makes a reset lap celebrate again while reloads and duplicate
// transition detections stay silent.
func (s *CycleService) CelebrationDue(ctx context.Context, c *cycle.Cycle) bool {
	if c == nil || !c.IsComplete() {
		return false
	}
	id := achievement.CycleCompletionIdentifier(c.ID, c.Epoch)
	if !s.gate.ShouldCelebrate(achievement.TypeCycleComplete, id) {
		return false
	}
	if err := s.gate.MarkCelebrated(ctx, achievement.TypeCycleComplete, id); err != nil {
		// The in-memory mark is in place, so this run stays deduplicated;
		// worst case after a crash is one repeat celebration.
		s.logger.WithError(err).WithField("cycle_id", c.ID).Error("Failed to persist celebration mark")
	}
	return true
}
