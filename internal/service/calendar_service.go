package service

import (
	"context"
	"errors"

	"fieldops-server/internal/calendar"
	"fieldops-server/internal/domain"
	"fieldops-server/internal/repository"

	"github.com/sirupsen/logrus"
)

// maxRangeDays bounds ListRange.
const maxRangeDays = 366

type CalendarService struct {
	days        repository.CalendarDayRepository
	assignments repository.AssignmentRepository
	notifier    ChangeNotifier
	logger      *logrus.Logger
}

func NewCalendarService(
	days repository.CalendarDayRepository,
	assignments repository.AssignmentRepository,
	notifier ChangeNotifier,
	logger *logrus.Logger,
) *CalendarService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &CalendarService{
		days:        days,
		assignments: assignments,
		notifier:    notifier,
		logger:      logger,
	}
}

// UpsertDay writes a calendar day with optimistic concurrency.
//
// With id and version the write is a compare-and-set; a stale or unknown
// pair falls through to an insert. An insert that hits an existing row for
// the same date returns *ConflictError carrying that row. Backend failures
// on any step return *StoreError and never fall through.
func (s *CalendarService) UpsertDay(ctx context.Context, origin string, req *domain.UpsertDayRequest) (*domain.CalendarDay, error) {
	if _, err := calendar.Parse(req.Day); err != nil {
		return nil, invalid("%s", err.Error())
	}

	log := s.logger.WithField("day", req.Day)

	if req.HasVersion() {
		row, err := s.days.UpdateIfVersion(ctx, *req.ID, *req.Version, req.Note, req.UserID)
		switch {
		case err == nil:
			log.WithField("version", row.Version).Debug("Calendar day updated")
			s.notifier.DayUpdated(origin, row)
			return row, nil
		case errors.Is(err, repository.ErrVersionMismatch):
			log.WithField("version", *req.Version).Debug("Stale version, falling back to insert")
		default:
			return nil, storeError("update", err)
		}
	}

	row := &domain.CalendarDay{
		Day:    req.Day,
		Note:   req.Note,
		UserID: req.UserID,
	}
	err := s.days.Insert(ctx, row)
	if err == nil {
		log.Debug("Calendar day inserted")
		s.notifier.DayUpdated(origin, row)
		return row, nil
	}
	if !errors.Is(err, repository.ErrDuplicateDay) {
		return nil, storeError("insert", err)
	}

	current, err := s.days.FindByDay(ctx, req.Day)
	if err != nil {
		return nil, storeError("lookup", err)
	}
	log.WithField("current_version", current.Version).Info("Calendar day conflict")
	return nil, &ConflictError{Current: current}
}

// ListRange returns every date in [from, to] with its stored day row, its
// assignments and weekend and holiday flags.
func (s *CalendarService) ListRange(ctx context.Context, from, to string) (*domain.RangeResponse, error) {
	start, err := calendar.Parse(from)
	if err != nil {
		return nil, invalid("%s", err.Error())
	}
	end, err := calendar.Parse(to)
	if err != nil {
		return nil, invalid("%s", err.Error())
	}
	if end.Before(start) {
		return nil, invalid("from must not be after to")
	}
	if calendar.DaysBetween(start, end) >= maxRangeDays {
		return nil, invalid("range too large (max %d days)", maxRangeDays)
	}

	days, err := s.days.ListRange(ctx, from, to)
	if err != nil {
		return nil, storeError("list days", err)
	}

	byDate := make(map[string]*domain.CalendarDay, len(days))
	ids := make([]string, 0, len(days))
	for _, d := range days {
		byDate[d.Day] = d
		ids = append(ids, d.ID)
	}

	byDay := make(map[string][]*domain.Assignment)
	if len(ids) > 0 {
		list, err := s.assignments.ListByDayIDs(ctx, ids)
		if err != nil {
			return nil, storeError("list assignments", err)
		}
		for _, a := range list {
			byDay[a.DayID] = append(byDay[a.DayID], a)
		}
	}

	resp := &domain.RangeResponse{From: from, To: to}
	for _, date := range calendar.Range(start, end) {
		t, _ := calendar.Parse(date)
		view := &domain.DayView{
			Date:        date,
			Weekend:     calendar.IsWeekend(t),
			Holiday:     calendar.IsHoliday(t),
			Assignments: []*domain.Assignment{},
		}
		if d, ok := byDate[date]; ok {
			view.Day = d
			if list := byDay[d.ID]; list != nil {
				view.Assignments = list
			}
		}
		resp.Days = append(resp.Days, view)
	}
	return resp, nil
}
