package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"fieldops-server/internal/domain"
	"fieldops-server/internal/logging"
)

func snapshot(t *testing.T, d *domain.CalendarDay) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(d)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestHistoryService_Restore(t *testing.T) {
	days := newMockDayRepo()
	days.put(&domain.CalendarDay{ID: "d1", Day: "2025-03-10", Version: 4, Note: strPtr("attuale")})

	history := &mockHistoryRepo{rows: map[string]*domain.DayHistory{
		"h1": {
			ID: "h1", CalendarDayID: "d1", Action: domain.HistoryUpdate, Version: 2,
			NewRecord: snapshot(t, &domain.CalendarDay{ID: "d1", Day: "2025-03-10", Note: strPtr("vecchia")}),
		},
		"h2": {
			ID: "h2", CalendarDayID: "d1", Action: domain.HistoryUpdate, Version: 3,
			NewRecord:  json.RawMessage("null"),
			PrevRecord: snapshot(t, &domain.CalendarDay{ID: "d1", Day: "2025-03-10", Note: strPtr("precedente")}),
		},
	}}
	audit := &mockAuditRepo{}
	notifier := &mockNotifier{}
	svc := NewHistoryService(history, days, newMockAssignmentRepo(), audit, notifier, logging.Discard())

	row, err := svc.Restore(context.Background(), "tab-1", strPtr("u1"), "h1")
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if row.Version != 5 || *row.Note != "vecchia" {
		t.Errorf("restored = %+v", row)
	}
	if len(audit.records) != 1 || audit.records[0].action != "restore_day" {
		t.Errorf("audit = %+v", audit.records)
	}
	if len(notifier.sent) != 1 {
		t.Errorf("notifications = %+v", notifier.sent)
	}

	row, err = svc.Restore(context.Background(), "", nil, "h2")
	if err != nil {
		t.Fatalf("Restore(prev) error = %v", err)
	}
	if *row.Note != "precedente" || row.Version != 6 {
		t.Errorf("restored from prev = %+v", row)
	}

	if _, err := svc.Restore(context.Background(), "", nil, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestHistoryService_List(t *testing.T) {
	history := &mockHistoryRepo{rows: map[string]*domain.DayHistory{
		"h1": {ID: "h1", CalendarDayID: "d1"},
		"h2": {ID: "h2", CalendarDayID: "d2"},
	}}
	svc := NewHistoryService(history, newMockDayRepo(), newMockAssignmentRepo(), nil, nil, logging.Discard())

	rows, err := svc.List(context.Background(), "d1")
	if err != nil || len(rows) != 1 {
		t.Fatalf("List() = %v, %v", rows, err)
	}

	rows, err = svc.List(context.Background(), "none")
	if err != nil || rows == nil || len(rows) != 0 {
		t.Errorf("List(empty) = %v, %v", rows, err)
	}

	var verr *ValidationError
	if _, err := svc.List(context.Background(), ""); !errors.As(err, &verr) {
		t.Errorf("error = %v, want *ValidationError", err)
	}
}

func assignmentSnapshot(t *testing.T, a *domain.Assignment) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(a)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestHistoryService_RestoreRow(t *testing.T) {
	days := newMockDayRepo()
	days.put(&domain.CalendarDay{ID: "d1", Day: "2025-03-10", Version: 3, Note: strPtr("attuale")})

	history := &mockHistoryRepo{
		rows: map[string]*domain.DayHistory{
			"h1": {
				ID: "h1", CalendarDayID: "d1", Action: domain.HistoryUpdate, Version: 2,
				NewRecord: snapshot(t, &domain.CalendarDay{ID: "d1", Note: strPtr("seconda")}),
			},
			"h0": {
				ID: "h0", CalendarDayID: "d1", Action: domain.HistoryInsert, Version: 1,
				NewRecord: snapshot(t, &domain.CalendarDay{ID: "d1", Note: strPtr("prima")}),
			},
		},
		assignments: []*domain.AssignmentHistory{
			{
				ID: "ah1", AssignmentID: "a1", Action: domain.HistoryInsert,
				NewRecord: assignmentSnapshot(t, &domain.Assignment{ID: "a1", DayID: "d1", Notes: strPtr("creata")}),
			},
			{
				ID: "ah2", AssignmentID: "a1", Action: domain.HistoryUpdate,
				PrevRecord: assignmentSnapshot(t, &domain.Assignment{ID: "a1", DayID: "d1", Notes: strPtr("creata")}),
				NewRecord:  assignmentSnapshot(t, &domain.Assignment{ID: "a1", DayID: "d1", Notes: strPtr("modificata"), Reperibile: true}),
			},
			{
				ID: "ah3", AssignmentID: "a1", Action: domain.HistoryDelete,
				PrevRecord: assignmentSnapshot(t, &domain.Assignment{ID: "a1", DayID: "d1", Notes: strPtr("modificata"), Reperibile: true}),
			},
			{
				ID: "ah4", AssignmentID: "a2", Action: domain.HistoryDelete,
				PrevRecord: assignmentSnapshot(t, &domain.Assignment{ID: "a2", DayID: "gone"}),
			},
		},
	}
	assignments := newMockAssignmentRepo()
	assignments.knownDays = map[string]bool{"d1": true}
	audit := &mockAuditRepo{}
	notifier := &mockNotifier{}
	svc := NewHistoryService(history, days, assignments, audit, notifier, logging.Discard())
	ctx := context.Background()

	t.Run("latest assignment snapshot re-creates a deleted row", func(t *testing.T) {
		res, err := svc.RestoreRow(ctx, "tab-1", strPtr("u1"), &domain.RestoreRequest{Table: "assignments", ID: "a1"})
		if err != nil {
			t.Fatalf("RestoreRow() error = %v", err)
		}
		if !res.OK || res.RestoredFrom != "ah3" || res.Day != nil {
			t.Errorf("response = %+v", res)
		}
		a := assignments.rows["a1"]
		if a == nil || *a.Notes != "modificata" || !a.Reperibile {
			t.Errorf("restored row = %+v", a)
		}
	})

	t.Run("specific assignment version", func(t *testing.T) {
		res, err := svc.RestoreRow(ctx, "", nil, &domain.RestoreRequest{Table: "assignments", ID: "a1", VersionID: "ah1"})
		if err != nil {
			t.Fatalf("RestoreRow() error = %v", err)
		}
		if res.RestoredFrom != "ah1" || *res.Assignment.Notes != "creata" || res.Assignment.Reperibile {
			t.Errorf("response = %+v", res.Assignment)
		}
	})

	t.Run("latest day snapshot", func(t *testing.T) {
		res, err := svc.RestoreRow(ctx, "", nil, &domain.RestoreRequest{Table: "calendar_days", ID: "d1"})
		if err != nil {
			t.Fatalf("RestoreRow() error = %v", err)
		}
		if res.RestoredFrom != "h1" || *res.Day.Note != "seconda" || res.Day.Version != 4 {
			t.Errorf("response = %+v", res.Day)
		}
	})

	t.Run("specific day version", func(t *testing.T) {
		res, err := svc.RestoreRow(ctx, "", nil, &domain.RestoreRequest{Table: "calendar_days", ID: "d1", VersionID: "h0"})
		if err != nil {
			t.Fatalf("RestoreRow() error = %v", err)
		}
		if *res.Day.Note != "prima" {
			t.Errorf("note = %q", *res.Day.Note)
		}
	})

	errCases := []struct {
		name string
		req  domain.RestoreRequest
		want error
	}{
		{"version of another assignment", domain.RestoreRequest{Table: "assignments", ID: "a2", VersionID: "ah1"}, ErrNotFound},
		{"version of another day", domain.RestoreRequest{Table: "calendar_days", ID: "d2", VersionID: "h1"}, ErrNotFound},
		{"unknown assignment", domain.RestoreRequest{Table: "assignments", ID: "a9"}, ErrNotFound},
		{"day of snapshot is gone", domain.RestoreRequest{Table: "assignments", ID: "a2"}, ErrNotFound},
	}
	for _, tt := range errCases {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.RestoreRow(ctx, "", nil, &tt.req); !errors.Is(err, tt.want) {
				t.Errorf("RestoreRow() error = %v, want %v", err, tt.want)
			}
		})
	}

	t.Run("table outside the allowed set", func(t *testing.T) {
		var verr *ValidationError
		_, err := svc.RestoreRow(ctx, "", nil, &domain.RestoreRequest{Table: "users", ID: "u1"})
		if !errors.As(err, &verr) || verr.Reason != "tabella non permessa" {
			t.Errorf("error = %v, want tabella non permessa", err)
		}
	})

	var actions []string
	for _, r := range audit.records {
		actions = append(actions, r.action)
	}
	want := []string{"restore_assignment", "restore_assignment", "restore_day", "restore_day"}
	if fmt.Sprint(actions) != fmt.Sprint(want) {
		t.Errorf("audit actions = %v, want %v", actions, want)
	}
	if audit.records[0].actor == nil || *audit.records[0].actor != "u1" || audit.records[0].entity != "assignments" {
		t.Errorf("first audit record = %+v", audit.records[0])
	}
	if len(notifier.sent) != 4 || notifier.sent[0].kind != "assignment" || notifier.sent[0].origin != "tab-1" {
		t.Errorf("notifications = %+v", notifier.sent)
	}
}

func TestHistoryService_ListAssignment(t *testing.T) {
	history := &mockHistoryRepo{assignments: []*domain.AssignmentHistory{
		{ID: "ah1", AssignmentID: "a1"},
		{ID: "ah2", AssignmentID: "a2"},
		{ID: "ah3", AssignmentID: "a1"},
	}}
	svc := NewHistoryService(history, newMockDayRepo(), newMockAssignmentRepo(), nil, nil, logging.Discard())

	rows, err := svc.ListAssignment(context.Background(), "a1")
	if err != nil || len(rows) != 2 || rows[0].ID != "ah3" {
		t.Fatalf("ListAssignment() = %v, %v", rows, err)
	}

	rows, err = svc.ListAssignment(context.Background(), "none")
	if err != nil || rows == nil || len(rows) != 0 {
		t.Errorf("ListAssignment(empty) = %v, %v", rows, err)
	}

	var verr *ValidationError
	if _, err := svc.ListAssignment(context.Background(), ""); !errors.As(err, &verr) {
		t.Errorf("error = %v, want *ValidationError", err)
	}
}
