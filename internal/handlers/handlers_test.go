package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dcxrhonxai/Emergency-Response-PH-sub000/internal/database"
	"github.com/dcxrhonxai/Emergency-Response-PH-sub000/internal/dispatch"
	"github.com/dcxrhonxai/Emergency-Response-PH-sub000/internal/events"
)

type testEnv struct {
	handlers   *Handlers
	repo       *fakeRepo
	limiter    *fakeLimiter
	dispatcher *fakeDispatcher
	publisher  *fakePublisher
}

func newTestEnv(alerts ...*database.Alert) *testEnv {
	repo := newFakeRepo(alerts...)
	limiter := &fakeLimiter{}
	dispatcher := &fakeDispatcher{}
	publisher := &fakePublisher{}
	h := NewHandlers(repo, &fakeGuard{repo: repo}, limiter, dispatcher, publisher, nil)
	return &testEnv{handlers: h, repo: repo, limiter: limiter, dispatcher: dispatcher, publisher: publisher}
}

func ownedAlert(id, status string) *database.Alert {
	return &database.Alert{
		AlertID:       id,
		OwnerID:       "user-1",
		EmergencyType: "medical",
		Situation:     "chest pain",
		Latitude:      14.6,
		Longitude:     121.0,
		Status:        status,
		CreatedAt:     time.Now().UTC(),
	}
}

func postJSON(t *testing.T, handler http.HandlerFunc, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func validDispatchBody(alertID string) DispatchRequest {
	return DispatchRequest{
		AlertID: alertID,
		Wave:    "initial",
		Contacts: []ContactInput{
			{Name: "Ana", Phone: "+639171234567"},
			{Name: "Ben", Email: "ben@example.com"},
		},
	}
}

func TestDispatchAlert_Success(t *testing.T) {
	env := newTestEnv(ownedAlert("alert-1", database.StatusActive))
	env.dispatcher.result = &dispatch.Result{AlertID: "alert-1", Wave: "initial", EmailSent: 1, SMSSent: 1}

	w := postJSON(t, env.handlers.DispatchAlert, "/api/v1/alerts/dispatch", "good-token", validDispatchBody("alert-1"))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var result dispatch.Result
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if result.EmailSent != 1 || result.SMSSent != 1 {
		t.Errorf("unexpected aggregate: %+v", result)
	}
	if env.limiter.calls != 1 || env.limiter.keys[0] != "user-1" {
		t.Errorf("expected rate limit keyed by subject, got %+v", env.limiter.keys)
	}
	if len(env.publisher.events) != 1 || env.publisher.events[0].EventType != events.TypeDispatchCompleted {
		t.Errorf("expected one dispatch completed event, got %+v", env.publisher.events)
	}
}

func TestDispatchAlert_PartialFailureStill200(t *testing.T) {
	env := newTestEnv(ownedAlert("alert-1", database.StatusActive))
	env.dispatcher.result = &dispatch.Result{AlertID: "alert-1", Wave: "initial", SMSSent: 2, SMSFailed: 1}

	w := postJSON(t, env.handlers.DispatchAlert, "/api/v1/alerts/dispatch", "good-token", validDispatchBody("alert-1"))

	if w.Code != http.StatusOK {
		t.Fatalf("partial failure must still be 200, got %d", w.Code)
	}
}

func TestDispatchAlert_Unauthenticated(t *testing.T) {
	env := newTestEnv(ownedAlert("alert-1", database.StatusActive))

	w := postJSON(t, env.handlers.DispatchAlert, "/api/v1/alerts/dispatch", "", validDispatchBody("alert-1"))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if env.dispatcher.calls != 0 {
		t.Error("dispatch must not run for unauthenticated callers")
	}
}

func TestDispatchAlert_NotOwner(t *testing.T) {
	env := newTestEnv(ownedAlert("alert-1", database.StatusActive))

	w := postJSON(t, env.handlers.DispatchAlert, "/api/v1/alerts/dispatch", "other-token", validDispatchBody("alert-1"))

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
	if env.dispatcher.calls != 0 {
		t.Error("dispatch must not run for non-owners")
	}
}

func TestDispatchAlert_UnknownAlert(t *testing.T) {
	env := newTestEnv()

	w := postJSON(t, env.handlers.DispatchAlert, "/api/v1/alerts/dispatch", "good-token", validDispatchBody("alert-missing"))

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestDispatchAlert_Throttled(t *testing.T) {
	env := newTestEnv(ownedAlert("alert-1", database.StatusActive))
	env.limiter.err = throttledErr()

	w := postJSON(t, env.handlers.DispatchAlert, "/api/v1/alerts/dispatch", "good-token", validDispatchBody("alert-1"))

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header on 429")
	}
	if env.dispatcher.calls != 0 {
		t.Error("dispatch must not run when throttled")
	}
}

func TestDispatchAlert_ResolvedAlertConflicts(t *testing.T) {
	env := newTestEnv(ownedAlert("alert-1", database.StatusResolved))

	w := postJSON(t, env.handlers.DispatchAlert, "/api/v1/alerts/dispatch", "good-token", validDispatchBody("alert-1"))

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for resolved alert, got %d", w.Code)
	}
}

func TestDispatchAlert_ValidationFailures(t *testing.T) {
	env := newTestEnv(ownedAlert("alert-1", database.StatusActive))

	tooMany := make([]ContactInput, 21)
	for i := range tooMany {
		tooMany[i] = ContactInput{Name: fmt.Sprintf("c%d", i), Phone: "+639171234567"}
	}

	tests := []struct {
		name string
		body DispatchRequest
	}{
		{"missing alert_id", DispatchRequest{Wave: "initial", Contacts: []ContactInput{{Name: "Ana", Phone: "+639171234567"}}}},
		{"bad wave", DispatchRequest{AlertID: "alert-1", Wave: "second", Contacts: []ContactInput{{Name: "Ana", Phone: "+639171234567"}}}},
		{"no contacts", DispatchRequest{AlertID: "alert-1", Wave: "initial"}},
		{"too many contacts", DispatchRequest{AlertID: "alert-1", Wave: "initial", Contacts: tooMany}},
		{"contact missing name", DispatchRequest{AlertID: "alert-1", Wave: "initial", Contacts: []ContactInput{{Phone: "+639171234567"}}}},
		{"contact unreachable", DispatchRequest{AlertID: "alert-1", Wave: "initial", Contacts: []ContactInput{{Name: "Ana"}}}},
		{"bad phone", DispatchRequest{AlertID: "alert-1", Wave: "initial", Contacts: []ContactInput{{Name: "Ana", Phone: "call-me"}}}},
		{"bad email", DispatchRequest{AlertID: "alert-1", Wave: "initial", Contacts: []ContactInput{{Name: "Ana", Email: "not-an-email"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(t, env.handlers.DispatchAlert, "/api/v1/alerts/dispatch", "good-token", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d: %s", w.Code, w.Body.String())
			}
		})
	}
	if env.dispatcher.calls != 0 {
		t.Error("dispatch must not run on validation failure")
	}
}

func TestCreateAlert_Success(t *testing.T) {
	env := newTestEnv()
	env.dispatcher.result = &dispatch.Result{AlertID: "alert-new", Wave: "initial", SMSSent: 1}

	body := CreateAlertRequest{
		EmergencyType: "fire",
		Situation:     "kitchen fire spreading",
		Latitude:      14.6,
		Longitude:     121.0,
		Contacts:      []ContactInput{{Name: "Ana", Phone: "+639171234567"}},
		EvidenceRefs:  []string{"https://cdn.example.com/photo.jpg"},
	}
	w := postJSON(t, env.handlers.CreateAlert, "/api/v1/alerts", "good-token", body)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var resp CreateAlertResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Alert.OwnerID != "user-1" || resp.Alert.Status != database.StatusActive {
		t.Errorf("unexpected alert: %+v", resp.Alert)
	}
	if env.dispatcher.lastWave != "initial" {
		t.Errorf("expected initial wave, got %q", env.dispatcher.lastWave)
	}
	if len(env.publisher.events) != 2 {
		t.Fatalf("expected created + dispatch events, got %d", len(env.publisher.events))
	}
	if env.publisher.events[0].EventType != events.TypeAlertCreated {
		t.Errorf("expected first event ALERT_CREATED, got %s", env.publisher.events[0].EventType)
	}
}

func TestCreateAlert_BadLocation(t *testing.T) {
	env := newTestEnv()
	body := CreateAlertRequest{
		EmergencyType: "fire",
		Latitude:      91,
		Longitude:     121.0,
		Contacts:      []ContactInput{{Name: "Ana", Phone: "+639171234567"}},
	}
	w := postJSON(t, env.handlers.CreateAlert, "/api/v1/alerts", "good-token", body)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestCreateAlert_BadEvidenceRef(t *testing.T) {
	env := newTestEnv()
	body := CreateAlertRequest{
		EmergencyType: "fire",
		Latitude:      14.6,
		Longitude:     121.0,
		Contacts:      []ContactInput{{Name: "Ana", Phone: "+639171234567"}},
		EvidenceRefs:  []string{"ftp://example.com/file"},
	}
	w := postJSON(t, env.handlers.CreateAlert, "/api/v1/alerts", "good-token", body)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestResolveAlert_Applied(t *testing.T) {
	env := newTestEnv(ownedAlert("alert-1", database.StatusActive))

	w := postJSON(t, env.handlers.ResolveAlert, "/api/v1/alerts/resolve", "good-token", ResolveAlertRequest{AlertID: "alert-1"})

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp ResolveAlertResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if !resp.Resolved {
		t.Error("expected resolved=true")
	}
	if env.repo.alerts["alert-1"].Status != database.StatusResolved {
		t.Errorf("expected stored status resolved, got %s", env.repo.alerts["alert-1"].Status)
	}
	if len(env.publisher.events) != 1 || env.publisher.events[0].EventType != events.TypeAlertResolved {
		t.Errorf("expected one resolved event, got %+v", env.publisher.events)
	}
}

func TestResolveAlert_AlreadyResolvedIsNoOp(t *testing.T) {
	env := newTestEnv(ownedAlert("alert-1", database.StatusResolved))

	w := postJSON(t, env.handlers.ResolveAlert, "/api/v1/alerts/resolve", "good-token", ResolveAlertRequest{AlertID: "alert-1"})

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 no-op, got %d", w.Code)
	}
	var resp ResolveAlertResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Resolved {
		t.Error("expected resolved=false for no-op")
	}
	if len(env.publisher.events) != 0 {
		t.Error("no event expected for a no-op resolve")
	}
}

func TestResolveAlert_EscalatedCanResolve(t *testing.T) {
	env := newTestEnv(ownedAlert("alert-1", database.StatusEscalated))

	w := postJSON(t, env.handlers.ResolveAlert, "/api/v1/alerts/resolve", "good-token", ResolveAlertRequest{AlertID: "alert-1"})

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if env.repo.alerts["alert-1"].Status != database.StatusResolved {
		t.Errorf("escalated alert must resolve, got %s", env.repo.alerts["alert-1"].Status)
	}
}

func TestGetAlert(t *testing.T) {
	env := newTestEnv(ownedAlert("alert-1", database.StatusActive))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/alerts?alert_id=alert-1", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	w := httptest.NewRecorder()
	env.handlers.GetAlert(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var alert database.Alert
	if err := json.Unmarshal(w.Body.Bytes(), &alert); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if alert.AlertID != "alert-1" {
		t.Errorf("unexpected alert: %+v", alert)
	}
}

func TestListNotifications(t *testing.T) {
	env := newTestEnv(ownedAlert("alert-1", database.StatusActive))
	env.repo.records = []*database.NotificationRecord{
		{AlertID: "alert-1", ContactID: "c-1", Channel: "sms", Wave: "initial", Outcome: database.OutcomeSuccess},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications?alert_id=alert-1", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	w := httptest.NewRecorder()
	env.handlers.ListNotifications(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp NotificationListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Total != 1 || resp.Records[0].ContactID != "c-1" {
		t.Errorf("unexpected records: %+v", resp)
	}
}

func TestListNotifications_NotOwner(t *testing.T) {
	env := newTestEnv(ownedAlert("alert-1", database.StatusActive))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications?alert_id=alert-1", nil)
	req.Header.Set("Authorization", "Bearer other-token")
	w := httptest.NewRecorder()
	env.handlers.ListNotifications(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	env := newTestEnv()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/alerts/dispatch", strings.NewReader(""))
	w := httptest.NewRecorder()
	env.handlers.DispatchAlert(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", w.Code)
	}
}
