package service

import (
	"context"
	"errors"
	"time"

	"fieldops-server/internal/calendar"
	"fieldops-server/internal/domain"
	"fieldops-server/internal/repository"

	"github.com/sirupsen/logrus"
)

// maxOnCallDays bounds a single on-call range.
const maxOnCallDays = 62

type AssignmentService struct {
	repo     repository.AssignmentRepository
	days     repository.CalendarDayRepository
	notifier ChangeNotifier
	logger   *logrus.Logger
}

func NewAssignmentService(
	repo repository.AssignmentRepository,
	days repository.CalendarDayRepository,
	notifier ChangeNotifier,
	logger *logrus.Logger,
) *AssignmentService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &AssignmentService{
		repo:     repo,
		days:     days,
		notifier: notifier,
		logger:   logger,
	}
}

func (s *AssignmentService) Create(ctx context.Context, origin string, actor *string, req *domain.CreateAssignmentRequest) (*domain.Assignment, error) {
	if _, err := s.days.FindByID(ctx, req.DayID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, invalid("unknown day_id %q", req.DayID)
		}
		return nil, storeError("lookup day", err)
	}

	a := &domain.Assignment{
		DayID:       req.DayID,
		StaffID:     req.StaffID,
		ActivityID:  req.ActivityID,
		TerritoryID: req.TerritoryID,
		CostCenter:  req.CostCenter,
		Reperibile:  req.Reperibile,
		Notes:       req.Notes,
	}
	if err := s.repo.Create(ctx, a, actor); err != nil {
		return nil, storeError("create assignment", err)
	}

	row, err := s.repo.FindByID(ctx, a.ID)
	if err != nil {
		return nil, storeError("reload assignment", err)
	}
	s.notifier.AssignmentUpdated(origin, row)
	return row, nil
}

// Update applies a partial patch. Only assignment columns a client may edit
// are accepted; the last writer wins.
func (s *AssignmentService) Update(ctx context.Context, origin string, actor *string, req *domain.UpdateAssignmentRequest) (*domain.Assignment, error) {
	fields, err := patchFields(req.Patch)
	if err != nil {
		return nil, err
	}

	row, err := s.repo.Update(ctx, req.ID, fields, actor)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, storeError("update assignment", err)
	}
	s.notifier.AssignmentUpdated(origin, row)
	return row, nil
}

// Delete succeeds whether or not the assignment still exists.
func (s *AssignmentService) Delete(ctx context.Context, origin string, actor *string, id string) error {
	if err := s.repo.Delete(ctx, id, actor); err != nil {
		return storeError("delete assignment", err)
	}
	s.notifier.AssignmentDeleted(origin, id)
	return nil
}

// AssignOnDate creates the day row when it is missing and the assignment in
// one transaction. Either both exist afterwards or nothing was written, so a
// failed call can be retried as is.
func (s *AssignmentService) AssignOnDate(ctx context.Context, origin string, actor *string, req *domain.AssignOnDateRequest) (*domain.CalendarDay, *domain.Assignment, error) {
	if _, err := calendar.Parse(req.Day); err != nil {
		return nil, nil, invalid("%s", err.Error())
	}

	a := &domain.Assignment{
		StaffID:     req.StaffID,
		ActivityID:  req.ActivityID,
		TerritoryID: req.TerritoryID,
		CostCenter:  req.CostCenter,
		Reperibile:  req.Reperibile,
		Notes:       req.Notes,
	}
	day, err := s.repo.CreateWithDay(ctx, req.Day, actor, a)
	if err != nil {
		return nil, nil, storeError("assign on date", err)
	}

	row, err := s.repo.FindByID(ctx, a.ID)
	if err != nil {
		return nil, nil, storeError("reload assignment", err)
	}

	s.notifier.DayUpdated(origin, day)
	s.notifier.AssignmentUpdated(origin, row)
	return day, row, nil
}

// AssignOnCall flags staff as on call for every date of the range.
func (s *AssignmentService) AssignOnCall(ctx context.Context, actor *string, req *domain.OnCallRangeRequest) (*domain.OnCallRangeResult, error) {
	from, err := calendar.Parse(req.From)
	if err != nil {
		return nil, invalid("%s", err.Error())
	}
	to, err := calendar.Parse(req.To)
	if err != nil {
		return nil, invalid("%s", err.Error())
	}
	if to.Before(from) {
		return nil, invalid("from must not be after to")
	}
	if calendar.DaysBetween(from, to) >= maxOnCallDays {
		return nil, invalid("range too large (max %d days)", maxOnCallDays)
	}

	dates := calendar.Range(from, to)
	created, updated, err := s.repo.UpsertOnCall(ctx, dates, req.StaffID, req.TerritoryID, req.Notes, actor)
	if err != nil {
		return nil, storeError("on-call range", err)
	}

	s.logger.WithFields(logrus.Fields{
		"staff_id": req.StaffID,
		"from":     req.From,
		"to":       req.To,
		"created":  created,
		"updated":  updated,
	}).Info("On-call range assigned")

	return &domain.OnCallRangeResult{OK: true, Days: len(dates), Created: created, Updated: updated}, nil
}

var patchableIDs = map[string]bool{
	"staff_id":     true,
	"activity_id":  true,
	"territory_id": true,
}

func patchFields(patch domain.AssignmentPatch) (map[string]interface{}, error) {
	if len(patch) == 0 {
		return nil, invalid("patch is empty")
	}

	fields := make(map[string]interface{}, len(patch)+1)
	for key, value := range patch {
		switch {
		case patchableIDs[key] || key == "notes":
			if value == nil {
				fields[key] = nil
				continue
			}
			v, ok := value.(string)
			if !ok {
				return nil, invalid("%s must be a string or null", key)
			}
			fields[key] = v

		case key == "cost_center":
			if value == nil {
				fields[key] = nil
				continue
			}
			v, ok := value.(string)
			if !ok || !domain.CostCenter(v).Valid() {
				return nil, invalid("invalid cost_center %v", value)
			}
			fields[key] = v

		case key == "reperibile":
			v, ok := value.(bool)
			if !ok {
				return nil, invalid("reperibile must be a boolean")
			}
			fields[key] = v

		default:
			return nil, invalid("field %q cannot be updated", key)
		}
	}
	fields["updated_at"] = time.Now().UTC()
	return fields, nil
}
