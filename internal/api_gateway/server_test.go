package api_gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabsplit/internal/api_gateway/service"
	"github.com/tabsplit/internal/config"
	"github.com/tabsplit/internal/domain/bill"
	"github.com/tabsplit/internal/domain/journal"
	"github.com/tabsplit/internal/domain/reconciliation"
	"github.com/tabsplit/internal/metrics"
	"github.com/tabsplit/internal/notification"
	"github.com/tabsplit/internal/reconciliation/processor"
	"github.com/tabsplit/internal/reconciliation/store"
)

type billSource map[string]*bill.Bill

func (b billSource) GetByID(_ context.Context, id string) (*bill.Bill, error) {
	if found, ok := b[id]; ok {
		return found, nil
	}
	return nil, bill.ErrBillNotFound{BillID: id}
}

type emptyLoader struct{}

func (emptyLoader) Load(_ context.Context, billID string) (*reconciliation.BillSplitState, error) {
	return nil, reconciliation.ErrStateNotFound{BillID: billID}
}

// memJournal journals every persisted change, standing in for the durable store
type memJournal struct {
	mu      sync.Mutex
	entries []*journal.Entry
}

func (j *memJournal) Persist(_ context.Context, state *reconciliation.BillSplitState, change *reconciliation.Change, correlationID string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, journal.NewEntry(state, change, correlationID))
	return nil
}

func (j *memJournal) Create(_ context.Context, entry *journal.Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, entry)
	return nil
}

func (j *memJournal) GetByEventID(_ context.Context, eventID uuid.UUID) (*journal.Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	for _, e := range j.entries {
		if e.EventID == eventID {
			return e, nil
		}
	}
	return nil, journal.ErrEntryNotFound{EventID: eventID}
}

func (j *memJournal) GetByBillID(_ context.Context, billID string, limit, offset int) ([]*journal.Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	var out []*journal.Entry
	for _, e := range j.entries {
		if e.BillID == billID {
			out = append(out, e)
		}
	}
	if offset >= len(out) {
		return []*journal.Entry{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (j *memJournal) CountByBillID(_ context.Context, billID string) (int64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	var n int64
	for _, e := range j.entries {
		if e.BillID == billID {
			n++
		}
	}
	return n, nil
}

type testEnv struct {
	server  *Server
	hub     *notification.Hub
	journal *memJournal
}

func newTestEnv(t *testing.T, checks map[string]HealthCheck) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	hub, err := notification.NewHub(notification.Config{DispatchPoolSize: 4, SubscriberBuffer: 16}, m, logger)
	require.NoError(t, err)
	t.Cleanup(hub.Close)

	j := &memJournal{}
	st := store.New(emptyLoader{}, j, hub, m, store.Config{ProcessingTimeout: time.Minute, QuiescencePeriod: time.Hour}, logger)
	bills := billSource{"b1": {
		ID:          "b1",
		BusinessID:  "biz",
		TableCode:   "T4",
		Currency:    "USD",
		Items:       []bill.LineItem{{ID: "burger", Name: "Burger", UnitPrice: 1200, Quantity: 2}, {ID: "salad", Name: "Salad", UnitPrice: 900, Quantity: 1}},
		Subtotal:    3300,
		TaxAmount:   330,
		TotalAmount: 3630,
	}}

	cfg := &config.Config{
		Application: config.ApplicationConfig{Env: "test"},
		Server:      config.ServerConfig{Port: 0, ShutdownTimeout: time.Second, ReadTimeout: time.Second, IdleTimeout: time.Second},
	}
	server := NewServer(logger, cfg, Dependencies{
		SplitService:   service.NewSplitService(logger, bills, j, st),
		PaymentService: service.NewPaymentService(logger, processor.NewProcessor(st, logger)),
		Rooms:          hub,
		Gatherer:       reg,
		HealthChecks:   checks,
	})
	return &testEnv{server: server, hub: hub, journal: j}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]json.RawMessage) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rr, req)

	var envelope map[string]json.RawMessage
	if rr.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &envelope))
	}
	return rr, envelope
}

func errorCode(t *testing.T, envelope map[string]json.RawMessage) string {
	t.Helper()
	var info struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(envelope["error"], &info))
	return info.Code
}

var diners = []map[string]string{
	{"person_id": "alice", "display_name": "Alice"},
	{"person_id": "bob", "display_name": "Bob"},
}

func TestServer_SplitAndReconcile(t *testing.T) {
	env := newTestEnv(t, nil)

	sub, err := env.hub.Subscribe(notification.TableRoom("T4"))
	require.NoError(t, err)
	defer sub.Cancel()

	rr, body := env.do(t, http.MethodPost, "/api/v1/splits/equal", map[string]interface{}{
		"bill_id":      "b1",
		"participants": diners,
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	computed := body["data"]

	rr, _ = env.do(t, http.MethodPost, "/api/v1/splits/execute", map[string]interface{}{
		"bill_id":      "b1",
		"participants": diners,
		"strategy":     map[string]string{"type": "EQUAL"},
		"split":        computed,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	pay := func(step, person string, amount int64) *httptest.ResponseRecorder {
		rr, _ := env.do(t, http.MethodPost, "/api/v1/bills/b1/payments/"+step, map[string]interface{}{
			"person_id": person,
			"amount":    amount,
		})
		return rr
	}

	assert.Equal(t, http.StatusUnprocessableEntity, pay("started", "alice", 1000).Code)
	assert.Equal(t, http.StatusOK, pay("started", "alice", 1815).Code)
	assert.Equal(t, http.StatusOK, pay("completed", "alice", 1815).Code)
	assert.Equal(t, http.StatusConflict, pay("started", "alice", 1815).Code)
	assert.Equal(t, http.StatusOK, pay("completed", "bob", 1815).Code)

	rr, body = env.do(t, http.MethodGet, "/api/v1/bills/b1/progress", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var progress struct {
		Status            string `json:"status"`
		CompletedPayments int    `json:"completed_payments"`
		TotalPaid         int64  `json:"total_paid"`
		TotalRemaining    int64  `json:"total_remaining"`
	}
	require.NoError(t, json.Unmarshal(body["data"], &progress))
	assert.Equal(t, "RECONCILED", progress.Status)
	assert.Equal(t, 2, progress.CompletedPayments)
	assert.Equal(t, int64(3630), progress.TotalPaid)
	assert.Equal(t, int64(0), progress.TotalRemaining)

	rr, body = env.do(t, http.MethodPost, "/api/v1/splits/execute", map[string]interface{}{
		"bill_id":      "b1",
		"participants": diners,
		"strategy":     map[string]string{"type": "EQUAL"},
		"split":        computed,
	})
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "SPLIT_LOCKED", errorCode(t, body))

	rr, body = env.do(t, http.MethodGet, "/api/v1/bills/b1/history?per_page=2&page=2", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var meta struct {
		TotalItems int `json:"total_items"`
		TotalPages int `json:"total_pages"`
	}
	require.NoError(t, json.Unmarshal(body["meta"], &meta))
	assert.Equal(t, 4, meta.TotalItems)
	assert.Equal(t, 2, meta.TotalPages)

	var last notification.Event
	require.Eventually(t, func() bool {
		for {
			select {
			case ev := <-sub.Events():
				if ev.Version > last.Version {
					last = ev
				}
			default:
				return last.Version == 4
			}
		}
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "RECONCILED", string(last.SessionStatus))
}

func TestServer_Rejections(t *testing.T) {
	env := newTestEnv(t, nil)

	rr, body := env.do(t, http.MethodPost, "/api/v1/splits/custom", map[string]interface{}{
		"bill_id":      "b1",
		"participants": diners,
		"amounts":      map[string]int64{"alice": 2000, "bob": 1000},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, "AMOUNT_MISMATCH", errorCode(t, body))

	rr, body = env.do(t, http.MethodPost, "/api/v1/splits/items", map[string]interface{}{
		"bill_id":      "b1",
		"participants": diners,
		"assignments":  map[string][]string{"alice": {"burger"}},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, "UNASSIGNED_ITEM", errorCode(t, body))

	rr, _ = env.do(t, http.MethodPost, "/api/v1/splits/equal", map[string]interface{}{
		"bill_id":      "missing",
		"participants": diners,
	})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr, _ = env.do(t, http.MethodGet, "/api/v1/bills/b1/split", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr, _ = env.do(t, http.MethodPost, "/api/v1/bills/b1/payments/started", map[string]interface{}{
		"person_id": "alice",
		"amount":    1815,
	})
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestServer_Health(t *testing.T) {
	t.Run("Healthy", func(t *testing.T) {
		env := newTestEnv(t, map[string]HealthCheck{
			"postgres": func(context.Context) error { return nil },
		})
		rr, _ := env.do(t, http.MethodGet, "/health", nil)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"status":"ok"`)
	})

	t.Run("Degraded", func(t *testing.T) {
		env := newTestEnv(t, map[string]HealthCheck{
			"postgres": func(context.Context) error { return nil },
			"mongodb":  func(context.Context) error { return errors.New("server selection timeout") },
		})
		rr, _ := env.do(t, http.MethodGet, "/health", nil)
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
		assert.Contains(t, rr.Body.String(), `"mongodb":"server selection timeout"`)
		assert.Contains(t, rr.Body.String(), `"postgres":"ok"`)
	})
}

func TestServer_Metrics(t *testing.T) {
	env := newTestEnv(t, nil)

	rr, _ := env.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "tabsplit_fanout_subscribers")
	assert.Contains(t, rr.Body.String(), "tabsplit_sessions_in_memory")
}

func TestServer_StopWithoutStart(t *testing.T) {
	env := newTestEnv(t, nil)
	assert.NoError(t, env.server.Stop(context.Background()))
}
