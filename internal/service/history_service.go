package service

import (
	"context"
	"encoding/json"
	"errors"

	"fieldops-server/internal/domain"
	"fieldops-server/internal/repository"

	"github.com/sirupsen/logrus"
)

type HistoryService struct {
	history     repository.HistoryRepository
	days        repository.CalendarDayRepository
	assignments repository.AssignmentRepository
	audit       repository.AuditRepository
	notifier    ChangeNotifier
	logger      *logrus.Logger
}

func NewHistoryService(
	history repository.HistoryRepository,
	days repository.CalendarDayRepository,
	assignments repository.AssignmentRepository,
	audit repository.AuditRepository,
	notifier ChangeNotifier,
	logger *logrus.Logger,
) *HistoryService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &HistoryService{
		history:     history,
		days:        days,
		assignments: assignments,
		audit:       audit,
		notifier:    notifier,
		logger:      logger,
	}
}

// List returns the snapshots of one day, newest first.
func (s *HistoryService) List(ctx context.Context, dayID string) ([]*domain.DayHistory, error) {
	if dayID == "" {
		return nil, invalid("calendar_day_id mancante")
	}
	rows, err := s.history.ListByDay(ctx, dayID)
	if err != nil {
		return nil, storeError("list history", err)
	}
	if rows == nil {
		rows = []*domain.DayHistory{}
	}
	return rows, nil
}

// ListAssignment returns the snapshots of one assignment, newest first. The
// entries outlive the assignment itself.
func (s *HistoryService) ListAssignment(ctx context.Context, assignmentID string) ([]*domain.AssignmentHistory, error) {
	if assignmentID == "" {
		return nil, invalid("assignment_id mancante")
	}
	rows, err := s.history.ListByAssignment(ctx, assignmentID)
	if err != nil {
		return nil, storeError("list assignment history", err)
	}
	if rows == nil {
		rows = []*domain.AssignmentHistory{}
	}
	return rows, nil
}

// Restore writes a snapshot back onto its day. The snapshot is the row as
// it was after the recorded change, or before it when no after image exists.
func (s *HistoryService) Restore(ctx context.Context, origin string, actor *string, historyID string) (*domain.CalendarDay, error) {
	entry, err := s.history.FindByID(ctx, historyID)
	if err != nil {
		return nil, lookupError("find history", err)
	}
	return s.restoreDay(ctx, origin, actor, entry)
}

// RestoreRow restores a calendar day or an assignment by row id, from the
// snapshot named by VersionID or from the latest one. A deleted assignment
// is re-created under its old id.
func (s *HistoryService) RestoreRow(ctx context.Context, origin string, actor *string, req *domain.RestoreRequest) (*domain.RestoreResponse, error) {
	switch req.Table {
	case domain.HistoryTableDays:
		entry, err := s.dayEntry(ctx, req.ID, req.VersionID)
		if err != nil {
			return nil, err
		}
		row, err := s.restoreDay(ctx, origin, actor, entry)
		if err != nil {
			return nil, err
		}
		return &domain.RestoreResponse{OK: true, RestoredFrom: entry.ID, Day: row}, nil

	case domain.HistoryTableAssignments:
		entry, err := s.assignmentEntry(ctx, req.ID, req.VersionID)
		if err != nil {
			return nil, err
		}
		row, err := s.restoreAssignment(ctx, origin, actor, entry)
		if err != nil {
			return nil, err
		}
		return &domain.RestoreResponse{OK: true, RestoredFrom: entry.ID, Assignment: row}, nil

	default:
		return nil, invalid("tabella non permessa")
	}
}

func (s *HistoryService) dayEntry(ctx context.Context, dayID, versionID string) (*domain.DayHistory, error) {
	if versionID == "" {
		entry, err := s.history.LatestForDay(ctx, dayID)
		if err != nil {
			return nil, lookupError("latest day history", err)
		}
		return entry, nil
	}
	entry, err := s.history.FindByID(ctx, versionID)
	if err != nil {
		return nil, lookupError("find history", err)
	}
	if entry.CalendarDayID != dayID {
		return nil, ErrNotFound
	}
	return entry, nil
}

func (s *HistoryService) assignmentEntry(ctx context.Context, assignmentID, versionID string) (*domain.AssignmentHistory, error) {
	if versionID == "" {
		entry, err := s.history.LatestForAssignment(ctx, assignmentID)
		if err != nil {
			return nil, lookupError("latest assignment history", err)
		}
		return entry, nil
	}
	entry, err := s.history.FindAssignmentEntry(ctx, versionID)
	if err != nil {
		return nil, lookupError("find assignment history", err)
	}
	if entry.AssignmentID != assignmentID {
		return nil, ErrNotFound
	}
	return entry, nil
}

func (s *HistoryService) restoreDay(ctx context.Context, origin string, actor *string, entry *domain.DayHistory) (*domain.CalendarDay, error) {
	raw := entry.Snapshot()
	if raw == nil {
		return nil, invalid("snapshot vuoto")
	}

	var snapshot domain.CalendarDay
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return nil, invalid("snapshot non leggibile")
	}

	row, err := s.days.Restore(ctx, entry.CalendarDayID, snapshot.Note, snapshot.UserID, actor)
	if err != nil {
		return nil, lookupError("restore", err)
	}

	s.record(ctx, actor, "restore_day", domain.HistoryTableDays, row.ID, map[string]interface{}{
		"history_id": entry.ID,
		"version":    row.Version,
	})

	s.logger.WithFields(logrus.Fields{
		"day":        row.Day,
		"history_id": entry.ID,
		"version":    row.Version,
	}).Info("Calendar day restored")
	s.notifier.DayUpdated(origin, row)

	return row, nil
}

func (s *HistoryService) restoreAssignment(ctx context.Context, origin string, actor *string, entry *domain.AssignmentHistory) (*domain.Assignment, error) {
	raw := entry.Snapshot()
	if raw == nil {
		return nil, invalid("snapshot vuoto")
	}

	var snapshot domain.Assignment
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return nil, invalid("snapshot non leggibile")
	}
	snapshot.ID = entry.AssignmentID

	row, err := s.assignments.Restore(ctx, &snapshot, actor)
	if err != nil {
		return nil, lookupError("restore assignment", err)
	}

	s.record(ctx, actor, "restore_assignment", domain.HistoryTableAssignments, row.ID, map[string]interface{}{
		"history_id": entry.ID,
	})

	s.logger.WithFields(logrus.Fields{
		"assignment": row.ID,
		"day_id":     row.DayID,
		"history_id": entry.ID,
	}).Info("Assignment restored")
	s.notifier.AssignmentUpdated(origin, row)

	return row, nil
}

func (s *HistoryService) record(ctx context.Context, actor *string, action, entity, id string, payload map[string]interface{}) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, actor, action, entity, id, payload); err != nil {
		s.logger.WithError(err).WithField("action", action).Warn("Failed to audit restore")
	}
}

func lookupError(op string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return storeError(op, err)
}
