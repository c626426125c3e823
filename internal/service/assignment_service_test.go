package service

import (
	"context"
	"errors"
	"testing"

	"fieldops-server/internal/domain"
	"fieldops-server/internal/logging"
)

func newAssignmentServiceForTest() (*AssignmentService, *mockAssignmentRepo, *mockDayRepo, *mockNotifier) {
	repo := newMockAssignmentRepo()
	days := newMockDayRepo()
	notifier := &mockNotifier{}
	return NewAssignmentService(repo, days, notifier, logging.Discard()), repo, days, notifier
}

func TestAssignmentService_Create(t *testing.T) {
	svc, repo, days, notifier := newAssignmentServiceForTest()
	days.put(&domain.CalendarDay{ID: "d1", Day: "2025-03-10", Version: 1})

	a, err := svc.Create(context.Background(), "tab-1", nil, &domain.CreateAssignmentRequest{
		DayID:   "d1",
		StaffID: strPtr("s1"),
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, ok := repo.rows[a.ID]; !ok {
		t.Errorf("assignment not stored")
	}
	if len(notifier.sent) != 1 || notifier.sent[0].kind != "assignment" {
		t.Errorf("notifications = %+v", notifier.sent)
	}
}

func TestAssignmentService_Create_UnknownDay(t *testing.T) {
	svc, repo, _, _ := newAssignmentServiceForTest()

	_, err := svc.Create(context.Background(), "", nil, &domain.CreateAssignmentRequest{DayID: "missing"})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v, want *ValidationError", err)
	}
	if len(repo.rows) != 0 {
		t.Errorf("nothing should be stored")
	}
}

func TestAssignmentService_Update(t *testing.T) {
	svc, repo, _, _ := newAssignmentServiceForTest()
	repo.rows["a1"] = &domain.Assignment{ID: "a1", DayID: "d1", Notes: strPtr("old")}

	a, err := svc.Update(context.Background(), "", nil, &domain.UpdateAssignmentRequest{
		ID:    "a1",
		Patch: domain.AssignmentPatch{"notes": nil, "reperibile": true},
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if a.Notes != nil || !a.Reperibile {
		t.Errorf("updated = %+v", a)
	}

	_, err = svc.Update(context.Background(), "", nil, &domain.UpdateAssignmentRequest{
		ID:    "missing",
		Patch: domain.AssignmentPatch{"notes": "x"},
	})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestPatchFields(t *testing.T) {
	tests := []struct {
		name    string
		patch   domain.AssignmentPatch
		wantErr bool
	}{
		{"empty", domain.AssignmentPatch{}, true},
		{"staff", domain.AssignmentPatch{"staff_id": "s1"}, false},
		{"clear territory", domain.AssignmentPatch{"territory_id": nil}, false},
		{"valid cost center", domain.AssignmentPatch{"cost_center": "PLENZICH"}, false},
		{"invalid cost center", domain.AssignmentPatch{"cost_center": "ACME"}, true},
		{"reperibile not bool", domain.AssignmentPatch{"reperibile": "yes"}, true},
		{"notes not string", domain.AssignmentPatch{"notes": 42.0}, true},
		{"unknown column", domain.AssignmentPatch{"day_id": "d2"}, true},
		{"id column", domain.AssignmentPatch{"id": "x"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields, err := patchFields(tt.patch)
			if (err != nil) != tt.wantErr {
				t.Fatalf("patchFields() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				if _, ok := fields["updated_at"]; !ok {
					t.Errorf("updated_at not set")
				}
			}
		})
	}
}

func TestAssignmentService_Delete(t *testing.T) {
	svc, repo, _, notifier := newAssignmentServiceForTest()
	repo.rows["a1"] = &domain.Assignment{ID: "a1"}

	if err := svc.Delete(context.Background(), "tab-2", nil, "a1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	// deleting again is not an error
	if err := svc.Delete(context.Background(), "tab-2", nil, "a1"); err != nil {
		t.Fatalf("second Delete() error = %v", err)
	}
	if len(notifier.sent) != 2 || notifier.sent[0].id != "a1" {
		t.Errorf("notifications = %+v", notifier.sent)
	}

	repo.deleteErr = errBackend
	var storeErr *StoreError
	if err := svc.Delete(context.Background(), "", nil, "a1"); !errors.As(err, &storeErr) {
		t.Errorf("error = %v, want *StoreError", err)
	}
}

func TestAssignmentService_AssignOnDate(t *testing.T) {
	svc, repo, _, notifier := newAssignmentServiceForTest()

	day, a, err := svc.AssignOnDate(context.Background(), "", strPtr("u1"), &domain.AssignOnDateRequest{
		Day:     "2025-03-11",
		StaffID: strPtr("s1"),
	})
	if err != nil {
		t.Fatalf("AssignOnDate() error = %v", err)
	}
	if a.DayID != day.ID {
		t.Errorf("assignment day = %s, want %s", a.DayID, day.ID)
	}
	if len(repo.rows) != 1 {
		t.Errorf("rows = %d, want 1", len(repo.rows))
	}
	if len(notifier.sent) != 2 {
		t.Errorf("notifications = %+v", notifier.sent)
	}
}

func TestAssignmentService_AssignOnCall(t *testing.T) {
	svc, repo, _, _ := newAssignmentServiceForTest()

	res, err := svc.AssignOnCall(context.Background(), nil, &domain.OnCallRangeRequest{
		StaffID: "s1",
		From:    "2025-02-27",
		To:      "2025-03-02",
	})
	if err != nil {
		t.Fatalf("AssignOnCall() error = %v", err)
	}
	if res.Days != 4 || res.Created != 4 {
		t.Errorf("result = %+v", res)
	}
	want := []string{"2025-02-27", "2025-02-28", "2025-03-01", "2025-03-02"}
	got := repo.onCall[0]
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("dates = %v, want %v", got, want)
			break
		}
	}

	_, err = svc.AssignOnCall(context.Background(), nil, &domain.OnCallRangeRequest{
		StaffID: "s1",
		From:    "2025-01-01",
		To:      "2025-06-01",
	})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("error = %v, want *ValidationError", err)
	}
}
