// Package calendarclient is a Go client for the scheduling API that keeps a
// local Cache of the visible range and applies assignment edits to it before
// the server answers.
package calendarclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"fieldops-server/internal/domain"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DefaultLongTimeout bounds uploads, the expiry scan and report generation.
const DefaultLongTimeout = 45 * time.Second

const clientIDHeader = "X-Client-ID"

// tempIDPrefix marks assignments created locally and not yet confirmed.
const tempIDPrefix = "tmp-"

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
	Stage   string
}

func (e *APIError) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("%s (stage %s, status %d)", e.Message, e.Stage, e.Status)
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

type Client struct {
	baseURL     string
	http        *http.Client
	tokenMu     sync.RWMutex
	token       string
	clientID    string
	longTimeout time.Duration
	cache       *Cache
	logger      *logrus.Logger
	pending     sync.WaitGroup
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func WithLogger(logger *logrus.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithTimeout overrides DefaultLongTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.longTimeout = d }
}

// WithClientID sets the session id sent with every write. Realtime events
// caused by this session are not echoed back to it.
func WithClientID(id string) Option {
	return func(c *Client) { c.clientID = id }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		http:        http.DefaultClient,
		clientID:    uuid.New().String(),
		longTimeout: DefaultLongTimeout,
		cache:       NewCache(),
		logger:      logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Cache() *Cache {
	return c.cache
}

func (c *Client) ClientID() string {
	return c.clientID
}

// SetToken replaces the bearer token, e.g. after a refresh.
func (c *Client) SetToken(token string) {
	c.tokenMu.Lock()
	c.token = token
	c.tokenMu.Unlock()
}

func (c *Client) bearer() string {
	c.tokenMu.RLock()
	defer c.tokenMu.RUnlock()
	return c.token
}

// Wait blocks until every background request has finished.
func (c *Client) Wait() {
	c.pending.Wait()
}

// SignIn stores the returned access token on the client.
func (c *Client) SignIn(ctx context.Context, username, password string) (*domain.LoginResponse, error) {
	var resp domain.LoginResponse
	err := c.doJSON(ctx, http.MethodPost, "/api/auth/sign-in", &domain.SignInRequest{
		Username: username,
		Password: password,
	}, &resp)
	if err != nil {
		return nil, err
	}
	c.SetToken(resp.AccessToken)
	return &resp, nil
}

// OpenDay returns the id of the day row for date. A cached date costs no
// request. Otherwise the day is created or fetched, and a conflict answer
// is resolved by taking the id of the row the server already holds.
func (c *Client) OpenDay(ctx context.Context, date string) (string, error) {
	if id, ok := c.cache.DayID(date); ok {
		return id, nil
	}

	body, status, err := c.send(ctx, http.MethodPost, "/api/calendar/upsert-day", &domain.UpsertDayRequest{Day: date})
	if err != nil {
		return "", err
	}

	switch {
	case status == http.StatusConflict:
		var conflict domain.DayConflictResponse
		if err := json.Unmarshal(body, &conflict); err != nil || conflict.Current == nil {
			return "", &APIError{Status: status, Message: "conflict without current row"}
		}
		c.cache.PutDay(conflict.Current)
		return conflict.Current.ID, nil
	case status >= 300:
		return "", decodeError(status, body)
	}

	var resp domain.UpsertDayResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode upsert response: %w", err)
	}
	if resp.Row == nil {
		return "", errors.New("upsert response without row")
	}
	c.cache.PutDay(resp.Row)
	return resp.Row.ID, nil
}

// SaveDayNote writes note on a day using the cached version. A conflict
// refreshes the cached row and is returned as an *APIError with status 409.
func (c *Client) SaveDayNote(ctx context.Context, date string, note *string) (*domain.CalendarDay, error) {
	req := &domain.UpsertDayRequest{Day: date, Note: note}
	if day, ok := c.cache.Day(date); ok {
		id, version := day.ID, day.Version
		req.ID = &id
		req.Version = &version
	}

	body, status, err := c.send(ctx, http.MethodPost, "/api/calendar/upsert-day", req)
	if err != nil {
		return nil, err
	}
	if status == http.StatusConflict {
		var conflict domain.DayConflictResponse
		if json.Unmarshal(body, &conflict) == nil && conflict.Current != nil {
			c.cache.PutDay(conflict.Current)
		}
		return nil, &APIError{Status: status, Message: "day changed by another session"}
	}
	if status >= 300 {
		return nil, decodeError(status, body)
	}

	var resp domain.UpsertDayResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode upsert response: %w", err)
	}
	c.cache.PutDay(resp.Row)
	c.cache.MarkStale()
	return resp.Row, nil
}

// CreateAssignment adds a provisional row to the cache and posts it in the
// background. The provisional row is swapped for the server's row once the
// request succeeds; a failure is only logged.
func (c *Client) CreateAssignment(req *domain.CreateAssignmentRequest) *domain.Assignment {
	now := time.Now()
	local := &domain.Assignment{
		ID:          tempIDPrefix + uuid.New().String(),
		DayID:       req.DayID,
		StaffID:     req.StaffID,
		ActivityID:  req.ActivityID,
		TerritoryID: req.TerritoryID,
		CostCenter:  req.CostCenter,
		Reperibile:  req.Reperibile,
		Notes:       req.Notes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	c.cache.PutAssignment(local)

	c.background("create assignment", func(ctx context.Context) error {
		var resp domain.AssignmentResponse
		if err := c.doJSON(ctx, http.MethodPost, "/api/assignments/create", req, &resp); err != nil {
			return err
		}
		if resp.Assignment != nil {
			c.cache.ReplaceAssignment(local.ID, resp.Assignment)
		}
		c.cache.MarkStale()
		return nil
	})

	return local
}

// UpdateAssignment patches the cached row and posts the patch in the
// background. Failures are only logged.
func (c *Client) UpdateAssignment(id string, patch domain.AssignmentPatch) {
	if current, ok := c.cache.Assignment(id); ok {
		applyPatch(current, patch)
		c.cache.PutAssignment(current)
	}

	c.background("update assignment", func(ctx context.Context) error {
		req := &domain.UpdateAssignmentRequest{ID: id, Patch: patch}
		if err := c.doJSON(ctx, http.MethodPost, "/api/assignments/update", req, nil); err != nil {
			return err
		}
		c.cache.MarkStale()
		return nil
	})
}

// DeleteAssignment removes id from every cached list, then deletes it on
// the server. On failure the cache is put back as it was.
func (c *Client) DeleteAssignment(ctx context.Context, id string) error {
	snap := c.cache.RemoveAssignment(id)

	req := &domain.DeleteAssignmentRequest{ID: id}
	if err := c.doJSON(ctx, http.MethodPost, "/api/assignments/delete", req, nil); err != nil {
		c.cache.Restore(snap)
		return err
	}
	c.cache.MarkStale()
	return nil
}

// LoadRange fetches [from, to] into the cache. Moving to a different range
// invalidates everything cached for the old one.
func (c *Client) LoadRange(ctx context.Context, from, to string) (*domain.RangeResponse, error) {
	if curFrom, curTo := c.cache.Range(); curFrom != from || curTo != to {
		c.cache.Invalidate()
	}

	q := url.Values{"from": {from}, "to": {to}}
	var resp domain.RangeResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/calendar/days?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	c.cache.Load(&resp)
	return &resp, nil
}

// Refresh reloads the current range when it is stale. It reports whether a
// reload happened.
func (c *Client) Refresh(ctx context.Context) (bool, error) {
	from, to := c.cache.Range()
	if from == "" || !c.cache.Stale() {
		return false, nil
	}
	if _, err := c.LoadRange(ctx, from, to); err != nil {
		return false, err
	}
	return true, nil
}

// ExportCSV returns the assignment export for [from, to].
func (c *Client) ExportCSV(ctx context.Context, from, to string) ([]byte, error) {
	q := url.Values{"from": {from}, "to": {to}}
	body, status, err := c.send(ctx, http.MethodGet, "/api/export/assignments?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	if status >= 300 {
		return nil, decodeError(status, body)
	}
	return body, nil
}

// UploadEquipmentMaster replaces the equipment master workbook.
func (c *Client) UploadEquipmentMaster(ctx context.Context, data []byte) (*domain.UploadResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.longTimeout)
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodPost, "/api/equipment/upload", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mimetype.Detect(data).String())

	var resp domain.UploadResult
	if err := c.roundTrip(req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TriggerExpiryScan runs the expiry scan now. force skips the hour gate.
func (c *Client) TriggerExpiryScan(ctx context.Context, force bool) (*domain.ExpiryScanResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.longTimeout)
	defer cancel()

	path := "/api/equipment/expiry-scan"
	if force {
		path += "?force=1"
	}
	var resp domain.ExpiryScanResult
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// MassivaOptions selects what GenerateMassiva builds.
type MassivaOptions struct {
	Date      string
	Operators []string
	Combined  bool
	// Workbook asks for the xlsx instead of the PDF zip.
	Workbook bool
}

// GeneratedFile is a downloaded attachment.
type GeneratedFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// GenerateMassiva uploads a MASSIVA workbook and downloads the generated
// reports.
func (c *Client) GenerateMassiva(ctx context.Context, file []byte, filename string, opts MassivaOptions) (*GeneratedFile, error) {
	ctx, cancel := context.WithTimeout(ctx, c.longTimeout)
	defer cancel()

	fields := map[string][]string{
		"date":      {opts.Date},
		"operators": opts.Operators,
		"target":    {domain.ReportTargetDownload},
	}
	if opts.Combined {
		fields["combined"] = []string{"true"}
	}
	if opts.Workbook {
		fields["format"] = []string{"xlsx"}
	}

	req, err := c.multipartRequest(ctx, "/api/reports/massiva", file, filename, fields)
	if err != nil {
		return nil, err
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	if res.StatusCode >= 300 {
		return nil, decodeError(res.StatusCode, body)
	}

	out := &GeneratedFile{ContentType: res.Header.Get("Content-Type"), Data: body}
	if _, params, err := mime.ParseMediaType(res.Header.Get("Content-Disposition")); err == nil {
		out.Name = params["filename"]
	}
	return out, nil
}

// StoreMassiva generates the reports and stores them server side under path.
func (c *Client) StoreMassiva(ctx context.Context, file []byte, filename, path string, opts MassivaOptions) (*domain.StoredReportResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.longTimeout)
	defer cancel()

	fields := map[string][]string{
		"date":      {opts.Date},
		"operators": opts.Operators,
		"target":    {domain.ReportTargetStorage},
		"path":      {path},
	}
	if opts.Combined {
		fields["combined"] = []string{"true"}
	}

	req, err := c.multipartRequest(ctx, "/api/reports/massiva", file, filename, fields)
	if err != nil {
		return nil, err
	}
	var resp domain.StoredReportResponse
	if err := c.roundTrip(req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) background(op string, fn func(ctx context.Context) error) {
	c.pending.Add(1)
	go func() {
		defer c.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), c.longTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			c.logger.WithError(err).WithField("op", op).Error("Background request failed")
		}
	}()
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if token := c.bearer(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set(clientIDHeader, c.clientID)
	return req, nil
}

// send performs a JSON request and returns the raw body and status.
func (c *Client) send(ctx context.Context, method, path string, in interface{}) ([]byte, int, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, 0, err
		}
		body = bytes.NewReader(b)
	}

	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return nil, 0, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer res.Body.Close()

	b, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, res.StatusCode, err
	}
	return b, res.StatusCode, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out interface{}) error {
	body, status, err := c.send(ctx, method, path, in)
	if err != nil {
		return err
	}
	if status >= 300 {
		return decodeError(status, body)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func (c *Client) roundTrip(req *http.Request, out interface{}) error {
	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}
	if res.StatusCode >= 300 {
		return decodeError(res.StatusCode, body)
	}
	return json.Unmarshal(body, out)
}

func (c *Client) multipartRequest(ctx context.Context, path string, file []byte, filename string, fields map[string][]string) (*http.Request, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	for name, values := range fields {
		for _, v := range values {
			if err := mw.WriteField(name, v); err != nil {
				return nil, err
			}
		}
	}
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(file); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req, nil
}

func decodeError(status int, body []byte) error {
	var payload struct {
		Error string `json:"error"`
		Stage string `json:"stage"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.Error == "" {
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = http.StatusText(status)
		}
		return &APIError{Status: status, Message: msg}
	}
	return &APIError{Status: status, Message: payload.Error, Stage: payload.Stage}
}

// applyPatch mirrors the server's column whitelist on a local copy.
func applyPatch(a *domain.Assignment, patch domain.AssignmentPatch) {
	optString := func(v any) *string {
		s, ok := v.(string)
		if !ok {
			return nil
		}
		return &s
	}

	for key, v := range patch {
		switch key {
		case "staff_id":
			a.StaffID = optString(v)
		case "activity_id":
			a.ActivityID = optString(v)
		case "territory_id":
			a.TerritoryID = optString(v)
		case "notes":
			a.Notes = optString(v)
		case "cost_center":
			if s := optString(v); s != nil {
				cc := domain.CostCenter(*s)
				a.CostCenter = &cc
			} else {
				a.CostCenter = nil
			}
		case "reperibile":
			if b, ok := v.(bool); ok {
				a.Reperibile = b
			}
		}
	}
	a.UpdatedAt = time.Now()
}
