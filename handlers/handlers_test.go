package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/satheeshds/garage/clock"
	"github.com/satheeshds/garage/config"
	"github.com/satheeshds/garage/db"
	"github.com/satheeshds/garage/ledger"
	"github.com/satheeshds/garage/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

type testAPI struct {
	t      *testing.T
	router http.Handler
	ledger *ledger.Ledger
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	return newHookedTestAPI(t, nil)
}

// newHookedTestAPI builds the API with before running ahead of every statement
// the handlers execute directly against the store.
func newHookedTestAPI(t *testing.T, before func(query string)) *testAPI {
	t.Helper()
	store, err := db.Open(config.DBConfig{
		Driver: config.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "api.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, db.Migrate(context.Background(), store))

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	clk := clock.NewFakeClock(time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC))
	l := ledger.New(ledger.Params{Store: store, Clock: clk, Log: log, PaymentTermsDays: 14})
	var q db.Querier = store
	if before != nil {
		q = &hookQuerier{Querier: store, before: before}
	}
	h := New(Params{
		Store:  q,
		Ledger: l,
		Clock:  clk,
		Log:    log,
	})

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(BasicAuth("admin", "secret"))
		h.Routes(r)
	})
	return &testAPI{t: t, router: r, ledger: l}
}

type hookQuerier struct {
	db.Querier
	before func(query string)
}

func (q *hookQuerier) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	q.before(query)
	return q.Querier.ExecContext(ctx, query, args...)
}

func (a *testAPI) do(method, path string, body any) (int, envelope) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, "/api/v1"+path, &buf)
	req.SetBasicAuth("admin", "secret")
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)

	var env envelope
	require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

// must performs the request, asserts the status, and decodes data into out.
func (a *testAPI) must(method, path string, body any, want int, out any) {
	a.t.Helper()
	code, env := a.do(method, path, body)
	require.Equal(a.t, want, code, env.Error)
	if out != nil {
		require.NoError(a.t, json.Unmarshal(env.Data, out))
	}
}

// seedJob creates a client, a vehicle and a completed job for them.
func (a *testAPI) seedJob() models.Job {
	a.t.Helper()
	var c models.Client
	a.must(http.MethodPost, "/clients", map[string]any{"name": "Dana Ortiz", "phone": "555-0101"}, http.StatusCreated, &c)
	var v models.Vehicle
	a.must(http.MethodPost, "/vehicles", map[string]any{
		"client_id": c.ID, "make": "Toyota", "model": "Corolla", "year": 2015,
	}, http.StatusCreated, &v)
	var j models.Job
	a.must(http.MethodPost, "/jobs", map[string]any{
		"client_id": c.ID, "vehicle_id": v.ID, "title": "Replace brake pads", "status": "completed",
	}, http.StatusCreated, &j)
	return j
}

func TestBasicAuth(t *testing.T) {
	api := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/clients", nil)
	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, `Basic realm="garage"`, rec.Header().Get("WWW-Authenticate"))

	req = httptest.NewRequest(http.MethodGet, "/api/v1/clients", nil)
	req.SetBasicAuth("admin", "wrong")
	rec = httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBasicAuthDisabledWithoutCredentials(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) })
	rec := httptest.NewRecorder()
	BasicAuth("", "")(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestClientVehicleJobCRUD(t *testing.T) {
	api := newTestAPI(t)
	job := api.seedJob()
	require.NotNil(t, job.ClientID)
	assert.Equal(t, models.JobCompleted, job.Status)
	assert.Nil(t, job.InvoiceNumber)

	var clients []models.Client
	api.must(http.MethodGet, "/clients?search=ortiz", nil, http.StatusOK, &clients)
	require.Len(t, clients, 1)
	assert.Equal(t, 1, clients[0].VehicleCount)

	var vehicles []models.Vehicle
	api.must(http.MethodGet, "/vehicles?client_id="+*job.ClientID, nil, http.StatusOK, &vehicles)
	require.Len(t, vehicles, 1)
	require.NotNil(t, vehicles[0].ClientName)
	assert.Equal(t, "Dana Ortiz", *vehicles[0].ClientName)

	var updated models.Job
	api.must(http.MethodPut, "/jobs/"+job.ID, map[string]any{"title": "Replace brake pads and rotors"}, http.StatusOK, &updated)
	assert.Equal(t, models.JobCompleted, updated.Status)
	assert.Equal(t, "Replace brake pads and rotors", updated.Title)

	var jobs []models.Job
	api.must(http.MethodGet, "/jobs?status=completed", nil, http.StatusOK, &jobs)
	assert.Len(t, jobs, 1)

	code, env := api.do(http.MethodGet, "/clients/nope", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "client not found", env.Error)

	code, _ = api.do(http.MethodPost, "/vehicles", map[string]any{"client_id": "nope", "make": "Ford", "model": "F-150"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = api.do(http.MethodPost, "/clients", "{not json")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid JSON", env.Error)

	code, _ = api.do(http.MethodPost, "/jobs", map[string]any{"title": "Detailing", "status": "paid"})
	assert.Equal(t, http.StatusBadRequest, code)

	api.must(http.MethodDelete, "/jobs/"+job.ID, nil, http.StatusOK, nil)
	code, _ = api.do(http.MethodGet, "/jobs/"+job.ID, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestInvoicePaymentFlow(t *testing.T) {
	api := newTestAPI(t)
	job := api.seedJob()

	var next map[string]string
	api.must(http.MethodGet, "/invoices/next-number", nil, http.StatusOK, &next)
	assert.Equal(t, "INV-20240315-0001", next["invoice_number"])

	var inv models.Invoice
	api.must(http.MethodPost, "/invoices", map[string]any{
		"job_id": job.ID, "subtotal": "240.00", "tax_rate": "7.5",
	}, http.StatusCreated, &inv)
	assert.Equal(t, "INV-20240315-0001", inv.InvoiceNumber)
	assert.Equal(t, models.Money(25800), inv.TotalAmount)
	assert.Equal(t, "2024-03-29", *inv.DueDate)

	var j models.Job
	api.must(http.MethodGet, "/jobs/"+job.ID, nil, http.StatusOK, &j)
	assert.Equal(t, models.JobInvoiced, j.Status)
	require.NotNil(t, j.InvoiceNumber)
	assert.Equal(t, inv.InvoiceNumber, *j.InvoiceNumber)

	// the ledger owns the job status now
	code, _ := api.do(http.MethodPut, "/jobs/"+job.ID, map[string]any{"title": j.Title, "status": "completed"})
	assert.Equal(t, http.StatusConflict, code)
	code, _ = api.do(http.MethodDelete, "/jobs/"+job.ID, nil)
	assert.Equal(t, http.StatusConflict, code)

	code, _ = api.do(http.MethodPost, "/invoices", map[string]any{"job_id": job.ID, "subtotal": 10})
	assert.Equal(t, http.StatusConflict, code)

	var p models.Payment
	api.must(http.MethodPost, "/invoices/"+inv.ID+"/payments", map[string]any{
		"amount": 100, "payment_method": "cash",
	}, http.StatusCreated, &p)
	assert.Equal(t, models.Money(10000), p.Amount)

	api.must(http.MethodGet, "/jobs/"+job.ID, nil, http.StatusOK, &j)
	assert.Equal(t, models.JobInvoiced, j.Status)
	require.NotNil(t, j.PaymentStatus)
	assert.Equal(t, models.PaymentPartial, *j.PaymentStatus)

	api.must(http.MethodPost, "/invoices/"+inv.ID+"/payments", map[string]any{
		"amount": 158, "payment_method": "card",
	}, http.StatusCreated, nil)

	api.must(http.MethodGet, "/invoices/"+inv.ID, nil, http.StatusOK, &inv)
	assert.Equal(t, models.InvoicePaid, inv.Status)
	assert.Equal(t, models.Money(0), inv.BalanceDue)

	api.must(http.MethodGet, "/jobs/"+job.ID, nil, http.StatusOK, &j)
	assert.Equal(t, models.JobPaid, j.Status)
	assert.Equal(t, "card", *j.PaymentMethod)

	var payments []models.Payment
	api.must(http.MethodGet, "/invoices/"+inv.ID+"/payments", nil, http.StatusOK, &payments)
	assert.Len(t, payments, 2)

	api.must(http.MethodDelete, "/payments/"+p.ID, nil, http.StatusOK, nil)
	code, _ = api.do(http.MethodDelete, "/payments/"+p.ID, nil)
	assert.Equal(t, http.StatusNotFound, code)

	api.must(http.MethodGet, "/invoices/"+inv.ID, nil, http.StatusOK, &inv)
	assert.Equal(t, models.InvoicePartial, inv.Status)

	var dash dashboardData
	api.must(http.MethodGet, "/dashboard", nil, http.StatusOK, &dash)
	assert.Equal(t, 1, dash.TotalClients)
	assert.Equal(t, 1, dash.TotalJobs)
	assert.Equal(t, 1, dash.Ledger.InvoiceCount)
	assert.Equal(t, models.Money(10000), dash.Ledger.Outstanding)
	assert.Len(t, dash.RecentPayments, 1)
}

func TestInvoiceErrors(t *testing.T) {
	api := newTestAPI(t)

	code, env := api.do(http.MethodPost, "/invoices", map[string]any{"job_id": "nope", "subtotal": 10})
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "job not found", env.Error)

	code, _ = api.do(http.MethodPost, "/invoices", map[string]any{"subtotal": 10})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = api.do(http.MethodGet, "/invoices/nope", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "invoice not found", env.Error)

	code, _ = api.do(http.MethodDelete, "/invoices/nope", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = api.do(http.MethodPost, "/invoices/nope/payments", map[string]any{"amount": 10, "payment_method": "cash"})
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = api.do(http.MethodGet, "/invoices?status=sent", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestSweepAndDeleteInvoice(t *testing.T) {
	api := newTestAPI(t)
	job := api.seedJob()

	var inv models.Invoice
	api.must(http.MethodPost, "/invoices", map[string]any{
		"job_id": job.ID, "subtotal": 50, "issue_date": "2024-02-01", "due_date": "2024-02-15",
	}, http.StatusCreated, &inv)

	var swept map[string]int64
	api.must(http.MethodPost, "/invoices/sweep", nil, http.StatusOK, &swept)
	assert.Equal(t, int64(1), swept["marked"])

	var overdue []models.Invoice
	api.must(http.MethodGet, "/invoices?status=overdue", nil, http.StatusOK, &overdue)
	require.Len(t, overdue, 1)
	assert.Equal(t, inv.ID, overdue[0].ID)

	api.must(http.MethodDelete, "/invoices/"+inv.ID, nil, http.StatusOK, nil)

	var j models.Job
	api.must(http.MethodGet, "/jobs/"+job.ID, nil, http.StatusOK, &j)
	assert.Equal(t, models.JobCompleted, j.Status)
	assert.Nil(t, j.InvoiceNumber)
	assert.Nil(t, j.PaymentStatus)
}

func TestUpdateJobKeepsStatusWrittenByLedger(t *testing.T) {
	var inv models.Invoice
	var api *testAPI
	armed := false
	api = newHookedTestAPI(t, func(query string) {
		if !armed || !strings.HasPrefix(strings.TrimSpace(query), "UPDATE jobs") {
			return
		}
		armed = false
		// the invoice is settled between the handler's read and its write
		_, err := api.ledger.AddPayment(context.Background(), models.PaymentInput{
			InvoiceID: inv.ID, Amount: inv.TotalAmount, PaymentMethod: "card",
		})
		require.NoError(t, err)
	})
	job := api.seedJob()
	api.must(http.MethodPost, "/invoices", map[string]any{"job_id": job.ID, "subtotal": 80}, http.StatusCreated, &inv)

	armed = true
	var updated models.Job
	api.must(http.MethodPut, "/jobs/"+job.ID, map[string]any{"title": "Front brake pads"}, http.StatusOK, &updated)
	assert.Equal(t, "Front brake pads", updated.Title)
	assert.Equal(t, models.JobPaid, updated.Status)
	require.NotNil(t, updated.PaymentStatus)
	assert.Equal(t, models.PaymentPaid, *updated.PaymentStatus)
}

func TestUpdateJobStatusLosesToConcurrentInvoice(t *testing.T) {
	var jobID string
	var api *testAPI
	armed := false
	api = newHookedTestAPI(t, func(query string) {
		if !armed || !strings.HasPrefix(strings.TrimSpace(query), "UPDATE jobs") {
			return
		}
		armed = false
		_, err := api.ledger.CreateInvoice(context.Background(), models.InvoiceInput{JobID: jobID, Subtotal: 8000})
		require.NoError(t, err)
	})
	jobID = api.seedJob().ID

	armed = true
	code, _ := api.do(http.MethodPut, "/jobs/"+jobID, map[string]any{"title": "Replace brake pads", "status": "in_progress"})
	assert.Equal(t, http.StatusConflict, code)

	var j models.Job
	api.must(http.MethodGet, "/jobs/"+jobID, nil, http.StatusOK, &j)
	assert.Equal(t, models.JobInvoiced, j.Status)
}

func TestUpdateJobStatusAfterInvoiceCanceled(t *testing.T) {
	api := newTestAPI(t)
	job := api.seedJob()

	var inv models.Invoice
	api.must(http.MethodPost, "/invoices", map[string]any{"job_id": job.ID, "subtotal": 80}, http.StatusCreated, &inv)
	code, _ := api.do(http.MethodPut, "/jobs/"+job.ID, map[string]any{"title": job.Title, "status": "in_progress"})
	assert.Equal(t, http.StatusConflict, code)

	api.must(http.MethodPut, "/invoices/"+inv.ID, map[string]any{"status": "canceled"}, http.StatusOK, &inv)
	assert.Equal(t, models.InvoiceCanceled, inv.Status)
	assert.Equal(t, models.Money(8000), inv.TotalAmount)

	var updated models.Job
	api.must(http.MethodPut, "/jobs/"+job.ID, map[string]any{"title": job.Title, "status": "in_progress"}, http.StatusOK, &updated)
	assert.Equal(t, models.JobInProgress, updated.Status)

	code, _ = api.do(http.MethodPut, "/jobs/"+job.ID, map[string]any{"title": job.Title, "status": "paid"})
	assert.Equal(t, http.StatusBadRequest, code)
}
