package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"fieldops-server/internal/domain"
	"fieldops-server/internal/mail"
	"fieldops-server/internal/repository"
)

var errBackend = errors.New("connection refused")

type mockDayRepo struct {
	days map[string]*domain.CalendarDay

	updateErr error
	insertErr error
	findErr   error
	inserts   int
}

func newMockDayRepo() *mockDayRepo {
	return &mockDayRepo{days: make(map[string]*domain.CalendarDay)}
}

func (m *mockDayRepo) put(d *domain.CalendarDay) {
	m.days[d.ID] = d
}

func (m *mockDayRepo) FindByID(ctx context.Context, id string) (*domain.CalendarDay, error) {
	if d, ok := m.days[id]; ok {
		cp := *d
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (m *mockDayRepo) FindByDay(ctx context.Context, day string) (*domain.CalendarDay, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	for _, d := range m.days {
		if d.Day == day {
			cp := *d
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *mockDayRepo) ListRange(ctx context.Context, from, to string) ([]*domain.CalendarDay, error) {
	var out []*domain.CalendarDay
	for _, d := range m.days {
		if d.Day >= from && d.Day <= to {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out, nil
}

func (m *mockDayRepo) Insert(ctx context.Context, day *domain.CalendarDay) error {
	m.inserts++
	if m.insertErr != nil {
		return m.insertErr
	}
	for _, d := range m.days {
		if d.Day == day.Day {
			return repository.ErrDuplicateDay
		}
	}
	if day.ID == "" {
		day.ID = fmt.Sprintf("day-%d", len(m.days)+1)
	}
	day.Version = domain.InitialDayVersion
	cp := *day
	m.days[day.ID] = &cp
	return nil
}

func (m *mockDayRepo) UpdateIfVersion(ctx context.Context, id string, version int64, note, userID *string) (*domain.CalendarDay, error) {
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	d, ok := m.days[id]
	if !ok || d.Version != version {
		return nil, repository.ErrVersionMismatch
	}
	d.Note, d.UserID = note, userID
	d.Version++
	cp := *d
	return &cp, nil
}

func (m *mockDayRepo) Restore(ctx context.Context, id string, note, userID *string, actor *string) (*domain.CalendarDay, error) {
	d, ok := m.days[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	d.Note, d.UserID = note, userID
	d.Version++
	cp := *d
	return &cp, nil
}

type mockAssignmentRepo struct {
	rows      map[string]*domain.Assignment
	deleteErr error
	onCall    [][]string
	knownDays map[string]bool
}

func newMockAssignmentRepo() *mockAssignmentRepo {
	return &mockAssignmentRepo{rows: make(map[string]*domain.Assignment)}
}

func (m *mockAssignmentRepo) Create(ctx context.Context, a *domain.Assignment, actor *string) error {
	if a.ID == "" {
		a.ID = fmt.Sprintf("a-%d", len(m.rows)+1)
	}
	cp := *a
	m.rows[a.ID] = &cp
	return nil
}

func (m *mockAssignmentRepo) FindByID(ctx context.Context, id string) (*domain.Assignment, error) {
	if a, ok := m.rows[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (m *mockAssignmentRepo) Update(ctx context.Context, id string, fields map[string]interface{}, actor *string) (*domain.Assignment, error) {
	a, ok := m.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if v, ok := fields["notes"]; ok {
		if v == nil {
			a.Notes = nil
		} else {
			s := v.(string)
			a.Notes = &s
		}
	}
	if v, ok := fields["reperibile"]; ok {
		a.Reperibile = v.(bool)
	}
	cp := *a
	return &cp, nil
}

func (m *mockAssignmentRepo) Delete(ctx context.Context, id string, actor *string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.rows, id)
	return nil
}

func (m *mockAssignmentRepo) Restore(ctx context.Context, snapshot *domain.Assignment, actor *string) (*domain.Assignment, error) {
	if m.knownDays != nil && !m.knownDays[snapshot.DayID] {
		return nil, repository.ErrNotFound
	}
	cp := *snapshot
	m.rows[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *mockAssignmentRepo) ListByDayIDs(ctx context.Context, dayIDs []string) ([]*domain.Assignment, error) {
	want := make(map[string]bool, len(dayIDs))
	for _, id := range dayIDs {
		want[id] = true
	}
	var out []*domain.Assignment
	for _, a := range m.rows {
		if want[a.DayID] {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockAssignmentRepo) CreateWithDay(ctx context.Context, day string, actor *string, a *domain.Assignment) (*domain.CalendarDay, error) {
	d := &domain.CalendarDay{ID: "day-" + day, Day: day, Version: 1, UserID: actor}
	a.DayID = d.ID
	if err := m.Create(ctx, a, actor); err != nil {
		return nil, err
	}
	return d, nil
}

func (m *mockAssignmentRepo) UpsertOnCall(ctx context.Context, days []string, staffID string, territoryID, notes, actor *string) (int, int, error) {
	m.onCall = append(m.onCall, days)
	return len(days), 0, nil
}

type notification struct {
	kind   string
	origin string
	id     string
}

type mockNotifier struct {
	mu   sync.Mutex
	sent []notification
}

func (m *mockNotifier) record(kind, origin, id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, notification{kind: kind, origin: origin, id: id})
}

func (m *mockNotifier) DayUpdated(origin string, day *domain.CalendarDay) {
	m.record("day", origin, day.ID)
}

func (m *mockNotifier) AssignmentUpdated(origin string, a *domain.Assignment) {
	m.record("assignment", origin, a.ID)
}

func (m *mockNotifier) AssignmentDeleted(origin string, id string) {
	m.record("delete", origin, id)
}

type mockMailer struct {
	sent []*mail.Message
	err  error
}

func (m *mockMailer) Send(ctx context.Context, msg *mail.Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type mockObjectStore struct {
	objects map[string][]byte

	bucketErr error
	putErr    error
	existsErr error
	// dropPuts simulates a store that acknowledges writes it never keeps.
	dropPuts bool
}

func newMockObjectStore() *mockObjectStore {
	return &mockObjectStore{objects: make(map[string][]byte)}
}

func (m *mockObjectStore) EnsureBucket(ctx context.Context, bucket string) error {
	return m.bucketErr
}

func (m *mockObjectStore) Put(ctx context.Context, bucket, key, contentType string, data []byte) error {
	if m.putErr != nil {
		return m.putErr
	}
	if !m.dropPuts {
		m.objects[bucket+"/"+key] = data
	}
	return nil
}

func (m *mockObjectStore) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	data, ok := m.objects[bucket+"/"+key]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return data, nil
}

func (m *mockObjectStore) Exists(ctx context.Context, bucket, key string) (bool, error) {
	if m.existsErr != nil {
		return false, m.existsErr
	}
	_, ok := m.objects[bucket+"/"+key]
	return ok, nil
}

type auditRecord struct {
	actor    *string
	action   string
	entity   string
	entityID string
}

type mockAuditRepo struct {
	records []auditRecord
}

func (m *mockAuditRepo) Record(ctx context.Context, actor *string, action, entity, entityID string, payload interface{}) error {
	m.records = append(m.records, auditRecord{actor: actor, action: action, entity: entity, entityID: entityID})
	return nil
}

type mockUserRepo struct {
	users map[string]*domain.User

	updateErr error
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*domain.User)}
}

func (m *mockUserRepo) Create(ctx context.Context, user *domain.User) error {
	for _, u := range m.users {
		if u.Username == user.Username {
			return repository.ErrDuplicateUser
		}
	}
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*domain.User, error) {
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *mockUserRepo) UpdatePassword(ctx context.Context, id, hashed string) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	u, ok := m.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Password = hashed
	return nil
}

func (m *mockUserRepo) UsernameExists(ctx context.Context, username string) (bool, error) {
	_, err := m.FindByUsername(ctx, username)
	return err == nil, nil
}

type mockHistoryRepo struct {
	rows        map[string]*domain.DayHistory
	assignments []*domain.AssignmentHistory
}

func (m *mockHistoryRepo) ListByDay(ctx context.Context, dayID string) ([]*domain.DayHistory, error) {
	var out []*domain.DayHistory
	for _, h := range m.rows {
		if h.CalendarDayID == dayID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (m *mockHistoryRepo) FindByID(ctx context.Context, id string) (*domain.DayHistory, error) {
	if h, ok := m.rows[id]; ok {
		return h, nil
	}
	return nil, repository.ErrNotFound
}

func (m *mockHistoryRepo) LatestForDay(ctx context.Context, dayID string) (*domain.DayHistory, error) {
	var latest *domain.DayHistory
	for _, h := range m.rows {
		if h.CalendarDayID == dayID && (latest == nil || h.Version > latest.Version) {
			latest = h
		}
	}
	if latest == nil {
		return nil, repository.ErrNotFound
	}
	return latest, nil
}

// assignments is kept oldest first.
func (m *mockHistoryRepo) ListByAssignment(ctx context.Context, assignmentID string) ([]*domain.AssignmentHistory, error) {
	var out []*domain.AssignmentHistory
	for i := len(m.assignments) - 1; i >= 0; i-- {
		if m.assignments[i].AssignmentID == assignmentID {
			out = append(out, m.assignments[i])
		}
	}
	return out, nil
}

func (m *mockHistoryRepo) FindAssignmentEntry(ctx context.Context, id string) (*domain.AssignmentHistory, error) {
	for _, h := range m.assignments {
		if h.ID == id {
			return h, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *mockHistoryRepo) LatestForAssignment(ctx context.Context, assignmentID string) (*domain.AssignmentHistory, error) {
	rows, _ := m.ListByAssignment(ctx, assignmentID)
	if len(rows) == 0 {
		return nil, repository.ErrNotFound
	}
	return rows[0], nil
}

type mockExportRepo struct {
	rows []repository.ExportRow
	err  error
}

func (m *mockExportRepo) AssignmentRows(ctx context.Context, from, to string) ([]repository.ExportRow, error) {
	return m.rows, m.err
}

func strPtr(s string) *string { return &s }

func int64Ptr(v int64) *int64 { return &v }
