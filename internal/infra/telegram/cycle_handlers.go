// internal/infra/telegram/cycle_handlers.go
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"study_cycle_bot/internal/app"
	"study_cycle_bot/internal/domain/cycle"
	"study_cycle_bot/internal/domain/subject"
	idb "study_cycle_bot/internal/infra/database"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// RegisterCycleHandlers wires every cycle engine operation to a bot command.
// The chat id doubles as the workspace id: each chat is its own workspace.
func RegisterCycleHandlers(
	ctx context.Context,
	b *telebot.Bot,
	cycleService *app.CycleService,
	sessionService *app.SessionService,
	subjectRepo subject.Repository,
	baseLogger *logrus.Entry,
) {
	logger := baseLogger.WithField("handler_group", "cycle")

	b.Handle("/newcycle", func(c telebot.Context) error {
		workspaceID := c.Chat().ID
		args := c.Args()
		if len(args) < 2 {
			return c.Send("Usage: /newcycle <name> <Subject=minutes,...>\nExample: /newcycle Exams Math=60,Physics=30")
		}
		name := args[0]
		items, err := parseItems(ctx, subjectRepo, workspaceID, strings.Join(args[1:], " "))
		if err != nil {
			return c.Send("Invalid items: " + err.Error())
		}

		created, err := cycleService.CreateCycle(ctx, workspaceID, name, items, true)
		if err != nil {
			logger.WithError(err).WithField("workspace_id", workspaceID).Error("Create cycle failed")
			return c.Send(userMessage(err))
		}
		return c.Send(fmt.Sprintf("Cycle %q created and activated with %d subjects. Use /now to see what to study.", created.Name, len(created.Items)))
	})

	b.Handle("/cycles", func(c telebot.Context) error {
		workspaceID := c.Chat().ID
		cycles, err := cycleService.ListCycles(ctx, workspaceID)
		if err != nil {
			logger.WithError(err).WithField("workspace_id", workspaceID).Error("List cycles failed")
			return c.Send(userMessage(err))
		}
		if len(cycles) == 0 {
			return c.Send("No cycles yet. Create one with /newcycle.")
		}
		var sb strings.Builder
		sb.WriteString("Your cycles:\n")
		for _, cy := range cycles {
			marker := " "
			if cy.Active {
				marker = "▶"
			}
			state := fmt.Sprintf("%d/%d", cy.Position, len(cy.Items))
			if cy.IsComplete() {
				state = "complete"
			}
			sb.WriteString(fmt.Sprintf("%s %d: %s (%s)\n", marker, cy.ID, cy.Name, state))
		}
		sb.WriteString("\nSwitch with /use <id>. Switching keeps each cycle's progress.")
		return c.Send(sb.String())
	})

	b.Handle("/use", func(c telebot.Context) error {
		workspaceID := c.Chat().ID
		cycleID, err := parseID(c.Args())
		if err != nil {
			return c.Send("Usage: /use <cycle id> (see /cycles)")
		}
		activated, err := cycleService.ActivateCycle(ctx, workspaceID, cycleID)
		if err != nil {
			return c.Send(userMessage(err))
		}
		return c.Send(fmt.Sprintf("Cycle %q is now active. Use /now to see what to study.", activated.Name))
	})

	b.Handle("/delcycle", func(c telebot.Context) error {
		workspaceID := c.Chat().ID
		cycleID, err := parseID(c.Args())
		if err != nil {
			return c.Send("Usage: /delcycle <cycle id> (see /cycles)")
		}
		if err := cycleService.DeleteCycle(ctx, workspaceID, cycleID); err != nil {
			return c.Send(userMessage(err))
		}
		return c.Send("Cycle deleted. Logged sessions are kept.")
	})

	b.Handle("/editcycle", func(c telebot.Context) error {
		workspaceID := c.Chat().ID
		args := c.Args()
		if len(args) == 0 {
			return c.Send("Usage: /editcycle <Subject=minutes,...> — replaces the active cycle's list and starts a fresh lap.")
		}
		items, err := parseItems(ctx, subjectRepo, workspaceID, strings.Join(args, " "))
		if err != nil {
			return c.Send("Invalid items: " + err.Error())
		}
		updated, err := cycleService.UpdateItems(ctx, workspaceID, items)
		if err != nil {
			return c.Send(userMessage(err))
		}
		return c.Send(fmt.Sprintf("Cycle %q now has %d subjects; progress restarted.", updated.Name, len(updated.Items)))
	})

	b.Handle("/now", func(c telebot.Context) error {
		workspaceID := c.Chat().ID
		suggestion, err := cycleService.GetSuggestion(ctx, workspaceID)
		if err != nil {
			logger.WithError(err).WithField("workspace_id", workspaceID).Error("Get suggestion failed")
			return c.Send(userMessage(err))
		}
		return c.Send(renderSuggestion(suggestion))
	})

	advance := func(c telebot.Context, force bool) error {
		workspaceID := c.Chat().ID
		advanced, err := cycleService.Advance(ctx, workspaceID, force)
		if err != nil {
			return c.Send(userMessage(err))
		}
		if advanced.IsComplete() {
			reply := "That was the last subject — the cycle is complete! Use /resetcycle to start a new lap."
			if cycleService.CelebrationDue(ctx, advanced) {
				reply = "🎉 Cycle complete! You finished every subject in " + advanced.Name + ". Use /resetcycle to start a new lap."
			}
			return c.Send(reply)
		}
		suggestion, err := cycleService.GetSuggestion(ctx, workspaceID)
		if err != nil {
			return c.Send("Advanced to the next subject. Use /now to see it.")
		}
		return c.Send("Advanced!\n\n" + renderSuggestion(suggestion))
	}

	b.Handle("/advance", func(c telebot.Context) error { return advance(c, false) })
	b.Handle("/skip", func(c telebot.Context) error { return advance(c, true) })

	b.Handle("/resetcycle", func(c telebot.Context) error {
		workspaceID := c.Chat().ID
		reset, err := cycleService.Reset(ctx, workspaceID)
		if err != nil {
			return c.Send(userMessage(err))
		}
		return c.Send(fmt.Sprintf("Cycle %q reset — fresh lap from the top. Use /now to see what to study.", reset.Name))
	})

	b.Handle("/log", func(c telebot.Context) error {
		workspaceID := c.Chat().ID
		args := c.Args()
		if len(args) != 2 {
			return c.Send("Usage: /log <subject> <minutes>\nExample: /log Math 45")
		}
		minutes, err := strconv.Atoi(args[1])
		if err != nil {
			return c.Send("Minutes must be a number, e.g. /log Math 45")
		}

		result, err := sessionService.LogSession(ctx, workspaceID, args[0], minutes, time.Now())
		if err != nil {
			logger.WithError(err).WithField("workspace_id", workspaceID).Error("Log session failed")
			return c.Send(userMessage(err))
		}

		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("Logged %d min of %s.", result.Session.Minutes, result.Subject.Name))
		if result.CountedTowardCycle {
			if suggestion, err := cycleService.GetSuggestion(ctx, workspaceID); err == nil && suggestion.HasCycle {
				if suggestion.IsCurrentComplete {
					sb.WriteString(fmt.Sprintf("\n%s is done — /advance when ready.", result.Subject.Name))
				} else {
					sb.WriteString(fmt.Sprintf("\n%d min left on %s.", suggestion.RemainingMinutes, suggestion.CurrentSubject))
				}
			}
		} else {
			sb.WriteString("\n(Not the current cycle subject — counted toward lifetime totals only.)")
		}
		if result.WeeklyGoalReached {
			sb.WriteString("\n🎉 Weekly study goal reached!")
		}
		return c.Send(sb.String())
	})

	b.Handle("/stats", func(c telebot.Context) error {
		workspaceID := c.Chat().ID
		stats, err := sessionService.Stats(ctx, workspaceID)
		if err != nil {
			logger.WithError(err).WithField("workspace_id", workspaceID).Error("Stats failed")
			return c.Send(userMessage(err))
		}
		if len(stats) == 0 {
			return c.Send("No sessions logged yet. Use /log <subject> <minutes>.")
		}
		var sb strings.Builder
		sb.WriteString("Lifetime totals:\n")
		for _, st := range stats {
			sb.WriteString(fmt.Sprintf("%s — %s over %d sessions\n", st.Name, formatMinutes(st.TotalMinutes), st.Sessions))
		}
		return c.Send(sb.String())
	})
}

// parseItems turns "Math=60,Physics=30" into an ordered item list, creating
// subjects on first use.
func parseItems(ctx context.Context, subjects subject.Repository, workspaceID int64, spec string) ([]cycle.Item, error) {
	parts := strings.Split(spec, ",")
	items := make([]cycle.Item, 0, len(parts))
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, minutesStr, found := strings.Cut(part, "=")
		if !found {
			return nil, fmt.Errorf("%q is not Subject=minutes", part)
		}
		minutes, err := strconv.Atoi(strings.TrimSpace(minutesStr))
		if err != nil {
			return nil, fmt.Errorf("%q is not Subject=minutes", part)
		}
		subj, err := subjects.GetOrCreateByName(ctx, workspaceID, strings.TrimSpace(name))
		if err != nil {
			return nil, err
		}
		items = append(items, cycle.Item{
			SubjectID:     subj.ID,
			Order:         i,
			TargetMinutes: minutes,
		})
	}
	return items, nil
}

func parseID(args []string) (int64, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("expected exactly one id argument")
	}
	return strconv.ParseInt(args[0], 10, 64)
}

func renderSuggestion(s cycle.Suggestion) string {
	if !s.HasCycle {
		return "No active cycle. Create one with /newcycle or activate one with /use."
	}

	var sb strings.Builder
	if s.IsCycleComplete {
		sb.WriteString(fmt.Sprintf("Cycle %q is complete! 🏁 Use /resetcycle to start a new lap.\n", s.CycleName))
	} else {
		sb.WriteString(fmt.Sprintf("Study now: %s (%d/%d)\n", s.CurrentSubject, s.CurrentPosition+1, s.TotalItems))
		sb.WriteString(fmt.Sprintf("Progress: %d/%d min", s.CurrentAccumulatedMinutes, s.CurrentTargetMinutes))
		if s.IsCurrentComplete {
			sb.WriteString(" — done, /advance when ready!\n")
		} else {
			sb.WriteString(fmt.Sprintf(" (%d min left)\n", s.RemainingMinutes))
		}
		if s.NextSubject != "" {
			sb.WriteString(fmt.Sprintf("Next up: %s (%d min)\n", s.NextSubject, s.NextTargetMinutes))
		}
	}

	sb.WriteString("\nFull cycle:\n")
	for _, p := range s.AllItemsProgress {
		check := "○"
		if p.IsComplete {
			check = "✓"
		}
		cursor := "  "
		if !s.IsCycleComplete && p.Position == s.CurrentPosition {
			cursor = "→ "
		}
		sb.WriteString(fmt.Sprintf("%s%s %s %d/%d min\n", cursor, check, p.Subject, p.AccumulatedMinutes, p.TargetMinutes))
	}
	return sb.String()
}

func formatMinutes(m int) string {
	if m < 60 {
		return fmt.Sprintf("%d min", m)
	}
	return fmt.Sprintf("%dh %02dm", m/60, m%60)
}

// userMessage maps engine errors to user-facing replies.
func userMessage(err error) string {
	switch {
	case errors.Is(err, idb.ErrNoActiveCycle):
		return "No active cycle. Create one with /newcycle or activate one with /use."
	case errors.Is(err, idb.ErrCycleNotFound):
		return "That cycle doesn't exist here. See /cycles."
	case errors.Is(err, cycle.ErrCycleComplete):
		return "The cycle is already complete. Use /resetcycle to start a new lap."
	case errors.Is(err, cycle.ErrTargetNotReached):
		return "Not enough time on the current subject yet. Log more with /log, or /skip to move on anyway."
	case errors.Is(err, idb.ErrConcurrencyConflict):
		return "Another update got there first — please try again."
	case errors.Is(err, cycle.ErrNoItems),
		errors.Is(err, cycle.ErrNonPositiveTarget),
		errors.Is(err, cycle.ErrDuplicateOrder),
		errors.Is(err, cycle.ErrNameTooLong),
		errors.Is(err, cycle.ErrEmptyName),
		errors.Is(err, app.ErrInvalidMinutes):
		return "Invalid input: " + err.Error()
	default:
		return "Something went wrong. Please try again."
	}
}
