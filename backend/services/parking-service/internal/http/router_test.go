package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"parkingledger/backend/services/parking-service/internal/apperr"
	"parkingledger/backend/services/parking-service/internal/clock"
	"parkingledger/backend/services/parking-service/internal/http/handlers"
	"parkingledger/backend/services/parking-service/internal/metrics"
	"parkingledger/backend/services/parking-service/internal/repository/sqlstore"
	"parkingledger/backend/services/parking-service/internal/service"
)

var brt = time.FixedZone("BRT", -3*60*60)

type testAPI struct {
	handler http.Handler
	clock   *clock.Fixed
	store   *sqlstore.Store
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	return newTestAPIWithLocker(t, nil)
}

func newTestAPIWithLocker(t *testing.T, locker service.EntryLocker) *testAPI {
	t.Helper()
	store, err := sqlstore.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "ledger.db"), sqlstore.WithLocation(brt))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	clk := clock.NewFixed(time.Date(2026, time.May, 4, 15, 0, 0, 0, time.UTC))
	m := metrics.New()
	logger := zap.NewNop()
	svc := service.NewParkingService(service.Dependencies{
		Store:           store,
		Clock:           clk,
		Locker:          locker,
		Metrics:         m,
		Logger:          logger,
		Location:        brt,
		DefaultRate:     decimal.NewFromInt(10),
		DefaultCapacity: 50,
	})
	handler := NewRouter(RouterDeps{
		Sessions: handlers.NewSessionsHandlers(svc, logger),
		Reports:  handlers.NewReportsHandlers(svc, logger),
		Vehicles: handlers.NewVehiclesHandlers(svc, logger),
		Health:   handlers.NewHealthHandler(svc),
		Metrics:  m.Handler(),
		Logger:   logger,
	})
	return &testAPI{handler: handler, clock: clk, store: store}
}

func (a *testAPI) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

const aliceEntry = `{"placa":"ABC1234","modelo":"Civic","cor":"black","cliente":"Alice"}`

func TestSessionLifecycleOverHTTP(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/permanencias/entrada", aliceEntry)
	if rec.Code != http.StatusCreated {
		t.Fatalf("entry: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Message string `json:"mensagem"`
		ID      int64  `json:"permanencia_id"`
	}
	decode(t, rec, &created)
	if created.ID <= 0 || created.Message == "" {
		t.Fatalf("unexpected entry response %+v", created)
	}

	rec = api.do(t, http.MethodPost, "/api/permanencias/entrada", aliceEntry)
	if rec.Code != http.StatusConflict {
		t.Fatalf("second entry: expected 409, got %d", rec.Code)
	}
	var failure struct {
		Error string `json:"erro"`
		Kind  string `json:"kind"`
	}
	decode(t, rec, &failure)
	if failure.Kind != "conflict" || failure.Error == "" {
		t.Fatalf("unexpected error body %+v", failure)
	}

	rec = api.do(t, http.MethodGet, "/api/permanencias?status=active", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", rec.Code)
	}
	var active []map[string]interface{}
	decode(t, rec, &active)
	if len(active) != 1 || active[0]["placa"] != "ABC1234" || active[0]["valor_atual"] != "10.00" {
		t.Fatalf("unexpected active list %v", active)
	}
	if active[0]["status"] != "ativo" || active[0]["data_entrada"] != "2026-05-04 12:00:00" || active[0]["data_saida"] != nil {
		t.Fatalf("unexpected active session fields %v", active[0])
	}
	rec = api.do(t, http.MethodGet, "/api/permanencias?status=ativo", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list by label: expected 200, got %d", rec.Code)
	}

	api.clock.Advance(90 * time.Minute)
	rec = api.do(t, http.MethodPut, "/api/permanencias/1/saida", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("exit: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var exit struct {
		Data struct {
			Final   string `json:"valor_final"`
			Charged string `json:"valor_cobrado"`
			Minutes int64  `json:"minutos_decorridos"`
			Status  string `json:"status"`
			Exit    string `json:"data_saida"`
		} `json:"dados"`
	}
	decode(t, rec, &exit)
	if exit.Data.Final != "20.00" || exit.Data.Charged != "20.00" || exit.Data.Minutes != 90 || exit.Data.Status != "finalizado" {
		t.Fatalf("unexpected exit payload %+v", exit)
	}
	if exit.Data.Exit != "2026-05-04 13:30:00" {
		t.Fatalf("expected local exit time, got %q", exit.Data.Exit)
	}

	rec = api.do(t, http.MethodGet, "/api/relatorios/financeiro", "")
	var report []struct {
		Day     string `json:"data"`
		Count   int64  `json:"total_permanencias"`
		Revenue string `json:"faturamento_total"`
		Average string `json:"tempo_medio_minutos"`
	}
	decode(t, rec, &report)
	if len(report) != 1 || report[0].Day != "2026-05-04" || report[0].Count != 1 || report[0].Revenue != "20.00" || report[0].Average != "90.00" {
		t.Fatalf("unexpected financial report %+v", report)
	}

	rec = api.do(t, http.MethodPut, "/api/permanencias/1/saida", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second exit: expected 404, got %d", rec.Code)
	}

	rec = api.do(t, http.MethodDelete, "/api/permanencias/1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", rec.Code)
	}
	rec = api.do(t, http.MethodDelete, "/api/permanencias/1", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete: expected 404, got %d", rec.Code)
	}
}

func TestEntryValidationOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	for name, body := range map[string]string{
		"malformed":      `{"placa":`,
		"missing client": `{"placa":"ABC1234","modelo":"Civic"}`,
	} {
		t.Run(name, func(t *testing.T) {
			rec := api.do(t, http.MethodPost, "/api/permanencias/entrada", body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestInvalidPathIDAndStatus(t *testing.T) {
	api := newTestAPI(t)
	if rec := api.do(t, http.MethodPut, "/api/permanencias/abc/saida", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad id, got %d", rec.Code)
	}
	if rec := api.do(t, http.MethodGet, "/api/permanencias?status=parked", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad status, got %d", rec.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, http.MethodGet, "/api/permanencias/entrada", "")
	if rec.Code != http.StatusMethodNotAllowed || rec.Header().Get("Allow") != http.MethodPost {
		t.Fatalf("expected 405 with Allow POST, got %d %q", rec.Code, rec.Header().Get("Allow"))
	}
	rec = api.do(t, http.MethodPost, "/api/veiculos/1", "")
	if rec.Code != http.StatusMethodNotAllowed || rec.Header().Get("Allow") != "DELETE, PUT" {
		t.Fatalf("expected 405 with Allow DELETE, PUT, got %d %q", rec.Code, rec.Header().Get("Allow"))
	}
}

func TestReportsOverHTTP(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/api/relatorios/vagas", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("occupancy: expected 200, got %d", rec.Code)
	}
	var occ struct {
		Occupied  int     `json:"vagas_ocupadas"`
		Available int     `json:"vagas_disponiveis"`
		Total     int     `json:"total_vagas"`
		Percent   float64 `json:"percentual_ocupacao"`
	}
	decode(t, rec, &occ)
	if occ.Occupied != 0 || occ.Available != 50 || occ.Total != 50 || occ.Percent != 0 {
		t.Fatalf("unexpected occupancy %+v", occ)
	}

	rec = api.do(t, http.MethodGet, "/api/relatorios/financeiro", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("financial: expected 200, got %d", rec.Code)
	}
	var rows []map[string]interface{}
	decode(t, rec, &rows)
	if len(rows) != 0 {
		t.Fatalf("expected empty financial report, got %v", rows)
	}
}

func TestCloseDayOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	for _, plate := range []string{"AAA0001", "BBB0002"} {
		body := `{"placa":"` + plate + `","modelo":"Gol","cliente":"Bob"}`
		if rec := api.do(t, http.MethodPost, "/api/permanencias/entrada", body); rec.Code != http.StatusCreated {
			t.Fatalf("entry %s: %d", plate, rec.Code)
		}
	}

	rec := api.do(t, http.MethodPost, "/api/permanencias/encerrar-dia", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("close day: expected 200, got %d", rec.Code)
	}
	var result struct {
		Message string `json:"mensagem"`
		Removed int64  `json:"removidas"`
		Policy  string `json:"politica"`
		From    string `json:"inicio"`
		To      string `json:"fim"`
	}
	decode(t, rec, &result)
	if result.Removed != 2 || result.Message == "" {
		t.Fatalf("expected 2 removed, got %+v", result)
	}
	if result.From != "2026-05-04 00:00:00" || result.To != "2026-05-05 00:00:00" {
		t.Fatalf("expected local day bounds, got %q..%q", result.From, result.To)
	}
}

func TestVehicleEndpoints(t *testing.T) {
	api := newTestAPI(t)
	if rec := api.do(t, http.MethodPost, "/api/permanencias/entrada", aliceEntry); rec.Code != http.StatusCreated {
		t.Fatalf("entry: %d", rec.Code)
	}

	rec := api.do(t, http.MethodGet, "/api/veiculos", "")
	var vehicles []struct {
		ID         int64  `json:"id"`
		Plate      string `json:"placa"`
		ClientName string `json:"cliente_nome"`
	}
	decode(t, rec, &vehicles)
	if len(vehicles) != 1 || vehicles[0].Plate != "ABC1234" || vehicles[0].ClientName != "Alice" {
		t.Fatalf("unexpected vehicles %+v", vehicles)
	}

	rec = api.do(t, http.MethodPut, "/api/veiculos/1", `{"placa":"abc1234","modelo":"Civic","marca":"Honda","ano":2020}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec := api.do(t, http.MethodPut, "/api/veiculos/99", `{"placa":"ZZZ0000","modelo":"Uno"}`); rec.Code != http.StatusNotFound {
		t.Fatalf("update unknown: expected 404, got %d", rec.Code)
	}

	if rec := api.do(t, http.MethodDelete, "/api/veiculos/1", ""); rec.Code != http.StatusConflict {
		t.Fatalf("delete with sessions: expected 409, got %d", rec.Code)
	}
	if rec := api.do(t, http.MethodDelete, "/api/permanencias/1", ""); rec.Code != http.StatusOK {
		t.Fatalf("delete session: %d", rec.Code)
	}
	if rec := api.do(t, http.MethodDelete, "/api/veiculos/1", ""); rec.Code != http.StatusOK {
		t.Fatalf("delete vehicle: expected 200, got %d", rec.Code)
	}
}

type busyLocker struct{}

func (busyLocker) Acquire(context.Context, string) (func(context.Context) error, error) {
	return nil, apperr.New(apperr.KindBusy, "entry for this plate already in progress")
}

func TestEntryBusyIsRetryable(t *testing.T) {
	api := newTestAPIWithLocker(t, busyLocker{})

	rec := api.do(t, http.MethodPost, "/api/permanencias/entrada", aliceEntry)
	if rec.Code != http.StatusServiceUnavailable || rec.Header().Get("Retry-After") != "1" {
		t.Fatalf("expected 503 with Retry-After, got %d %q", rec.Code, rec.Header().Get("Retry-After"))
	}
	var failure struct {
		Kind string `json:"kind"`
	}
	decode(t, rec, &failure)
	if failure.Kind != "busy" {
		t.Fatalf("expected busy kind, got %q", failure.Kind)
	}

	rec = api.do(t, http.MethodPost, "/api/permanencias/entrada", `{"placa":"ABC1234"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid entry must fail validation before locking, got %d", rec.Code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/api/health", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Fatalf("health: %d %s", rec.Code, rec.Body.String())
	}

	api.do(t, http.MethodPost, "/api/permanencias/entrada", aliceEntry)
	rec = api.do(t, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "parking_sessions_opened_total 1") {
		t.Fatalf("metrics: %d %s", rec.Code, rec.Body.String())
	}

	_ = api.store.Close()
	rec = api.do(t, http.MethodGet, "/api/health", "")
	if rec.Code != http.StatusInternalServerError || !strings.Contains(rec.Body.String(), `"error"`) {
		t.Fatalf("health after close: %d %s", rec.Code, rec.Body.String())
	}
}

func TestServerRunStopsOnCancel(t *testing.T) {
	srv := NewServer("127.0.0.1:0", http.NotFoundHandler(), zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
