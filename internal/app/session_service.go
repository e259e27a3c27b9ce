// internal/app/session_service.go
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"study_cycle_bot/internal/domain/achievement"
	"study_cycle_bot/internal/domain/session"
	"study_cycle_bot/internal/domain/subject"
	idb "study_cycle_bot/internal/infra/database"

	"github.com/sirupsen/logrus"
)

var ErrInvalidMinutes = errors.New("session minutes must be positive")

func isNoActiveCycle(err error) bool {
	return errors.Is(err, idb.ErrNoActiveCycle)
}

// LogResult tells the caller what a logged session did.
type LogResult struct {
	Subject            *subject.Subject
	Session            *session.StudySession
	CountedTowardCycle bool
	WeeklyGoalReached  bool // true at most once per workspace-week
}

// SubjectStats is one line of the lifetime per-subject totals view.
type SubjectStats struct {
	Name         string
	TotalMinutes int
	Sessions     int
}

// SessionService is the session-logging collaborator: it appends to the
// session log, delivers the "session logged" event to the cycle engine
// exactly once, and checks the weekly study goal. The bot handler is the
// single producer, which is what upholds the exactly-once delivery the
// accumulator relies on.
type SessionService struct {
	sessions          session.Repository
	subjects          subject.Repository
	engine            *CycleService
	gate              achievement.Gate
	weeklyGoalMinutes int
	logger            *logrus.Entry
}

func NewSessionService(
	sr session.Repository,
	subjR subject.Repository,
	engine *CycleService,
	gate achievement.Gate,
	weeklyGoalMinutes int,
	logger *logrus.Entry,
) *SessionService {
	return &SessionService{
		sessions:          sr,
		subjects:          subjR,
		engine:            engine,
		gate:              gate,
		weeklyGoalMinutes: weeklyGoalMinutes,
		logger:            logger,
	}
}

// LogSession records study time against a subject (created on first use)
// and feeds the cycle engine. Accumulation is evaluated at delivery time,
// not at the session's study date; backdated entries never rewrite a lap.
func (s *SessionService) LogSession(ctx context.Context, workspaceID int64, subjectName string, minutes int, studiedOn time.Time) (*LogResult, error) {
	if minutes <= 0 {
		return nil, ErrInvalidMinutes
	}

	subj, err := s.subjects.GetOrCreateByName(ctx, workspaceID, subjectName)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve subject %q: %w", subjectName, err)
	}

	sess := &session.StudySession{
		WorkspaceID: workspaceID,
		SubjectID:   subj.ID,
		Minutes:     minutes,
		StudiedOn:   studiedOn,
	}
	if err := s.sessions.Append(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to append session: %w", err)
	}

	counted, err := s.engine.OnSessionLogged(ctx, workspaceID, subj.ID, minutes)
	if err != nil {
		// The session row is durable either way; surface the engine failure
		// so the caller can retry the accumulation by re-checking /now.
		return nil, fmt.Errorf("session logged but cycle accumulation failed: %w", err)
	}

	result := &LogResult{
		Subject:            subj,
		Session:            sess,
		CountedTowardCycle: counted,
	}

	if s.weeklyGoalMinutes > 0 {
		reached, err := s.checkWeeklyGoal(ctx, workspaceID)
		if err != nil {
			s.logger.WithError(err).WithField("workspace_id", workspaceID).Warn("Weekly goal check failed")
		} else {
			result.WeeklyGoalReached = reached
		}
	}

	s.logger.WithFields(logrus.Fields{
		"workspace_id": workspaceID,
		"subject":      subj.Name,
		"minutes":      minutes,
		"counted":      counted,
	}).Info("Study session logged")
	return result, nil
}

// checkWeeklyGoal reports true the first time a workspace's minutes for the
// current calendar week reach the configured goal. The gate keys on the
// week-start date, so the signal fires at most once per week and old weeks
// age out of the store.
func (s *SessionService) checkWeeklyGoal(ctx context.Context, workspaceID int64) (bool, error) {
	weekStart := achievement.WeekStart(time.Now())
	total, err := s.sessions.TotalMinutesSince(ctx, workspaceID, weekStart)
	if err != nil {
		return false, err
	}
	if total < s.weeklyGoalMinutes {
		return false, nil
	}

	id := achievement.WeeklyGoalIdentifier(workspaceID, weekStart)
	if !s.gate.ShouldCelebrate(achievement.TypeWeeklyGoal, id) {
		return false, nil
	}
	if err := s.gate.MarkCelebrated(ctx, achievement.TypeWeeklyGoal, id); err != nil {
		s.logger.WithError(err).WithField("workspace_id", workspaceID).Error("Failed to persist weekly goal mark")
	}
	return true, nil
}

// Stats returns lifetime per-subject totals with display names resolved.
func (s *SessionService) Stats(ctx context.Context, workspaceID int64) ([]SubjectStats, error) {
	totals, err := s.sessions.TotalsBySubject(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	subjects, err := s.subjects.ListByWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(subjects))
	for _, sub := range subjects {
		names[sub.ID] = sub.Name
	}

	stats := make([]SubjectStats, 0, len(totals))
	for _, t := range totals {
		name, ok := names[t.SubjectID]
		if !ok {
			name = "(unknown subject)"
		}
		stats = append(stats, SubjectStats{Name: name, TotalMinutes: t.TotalMinutes, Sessions: t.Sessions})
	}
	return stats, nil
}
