package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"testing"

	"github.com/metal-toolbox/snatt/internal/configuration"
	"github.com/metal-toolbox/snatt/internal/discovery"
	"github.com/metal-toolbox/snatt/internal/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedProber map[string]bool

func (p fixedProber) Probe(_ context.Context, addr netip.Addr) (bool, error) {
	return p[addr.String()], nil
}

func newTestServer(t *testing.T) http.Handler {
	t.Helper()

	cfg := configuration.New()
	cfg.Credentials.MasterKey = "test-key"

	prober := fixedProber{"10.1.0.2": true, "10.1.0.4": true}

	s, err := New(cfg, log.NewDiscardLogger(), discovery.WithProber(prober))
	require.Nil(t, err)

	return s.Handler()
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.Nil(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.Nil(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())

	return v
}

func scanAndConnect(t *testing.T, h http.Handler) ScanResponse {
	t.Helper()

	rec := do(t, h, http.MethodPost, "/api/discovery/scan", ScanRequest{IPRange: "10.1.0.1-10.1.0.5"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	scan := decode[ScanResponse](t, rec)

	ids := []string{}
	for _, d := range scan.Devices {
		ids = append(ids, d.ID)
	}

	rec = do(t, h, http.MethodPost, "/api/discovery/connect", ConnectRequest{DeviceIDs: ids})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	return scan
}

func TestRoot(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	got := decode[map[string]string](t, rec)
	assert.Equal(t, "SNATT API", got["message"])

	rec = do(t, h, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestScan(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/api/discovery/scan", ScanRequest{IPRange: "10.1.0.1-10.1.0.5"})
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[ScanResponse](t, rec)
	require.Len(t, got.Devices, 2)
	assert.Equal(t, "10.1.0.2", got.Devices[0].IPAddress)
	assert.Equal(t, "10.1.0.4", got.Devices[1].IPAddress)
	assert.NotEmpty(t, got.Devices[0].ID)
}

func TestScanInvalidRange(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/api/discovery/scan", ScanRequest{IPRange: "not-an-address"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	got := decode[ErrorResponse](t, rec)
	assert.NotEmpty(t, got.Detail)
}

func TestScanMalformedBody(t *testing.T) {
	h := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/discovery/scan", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[ErrorResponse](t, rec).Detail, "invalid request body")
}

func TestConnect(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/api/discovery/scan", ScanRequest{IPRange: "10.1.0.1-10.1.0.5"})
	scan := decode[ScanResponse](t, rec)
	require.Len(t, scan.Devices, 2)

	rec = do(t, h, http.MethodPost, "/api/discovery/connect", ConnectRequest{DeviceIDs: []string{scan.Devices[0].ID, "unknown"}})
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[ConnectResponse](t, rec)
	assert.Equal(t, 1, got.Connected)
	assert.Equal(t, "Connected to 1 devices", got.Message)

	rec = do(t, h, http.MethodPost, "/api/discovery/connect", ConnectRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDiagnostics(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/api/diagnostics/run", DiagnosticsRequest{Workflow: "interface_health"})
	require.Equal(t, http.StatusOK, rec.Code)

	empty := decode[DiagnosticsResponse](t, rec)
	assert.Empty(t, empty.Results)
	assert.Equal(t, "No connected devices", empty.Message)

	scanAndConnect(t, h)

	rec = do(t, h, http.MethodPost, "/api/diagnostics/run", DiagnosticsRequest{Workflow: "cpu_memory"})
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[DiagnosticsResponse](t, rec)
	assert.Len(t, got.Results, 2)
	assert.Empty(t, got.Message)

	rec = do(t, h, http.MethodPost, "/api/diagnostics/run", DiagnosticsRequest{Workflow: "bogus"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWorkflows(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, http.MethodGet, "/api/diagnostics/workflows", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "interface_health")
}

func TestBackup(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/api/backup/create", BackupRequest{BackupType: "running"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No connected devices to backup", decode[ErrorResponse](t, rec).Detail)

	scanAndConnect(t, h)

	rec = do(t, h, http.MethodPost, "/api/backup/create", BackupRequest{BackupType: "running"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Backup completed for 2 devices", decode[MessageResponse](t, rec).Message)

	rec = do(t, h, http.MethodGet, "/api/backup/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[BackupHistoryResponse](t, rec).Backups, 2)

	rec = do(t, h, http.MethodPost, "/api/backup/create", BackupRequest{BackupType: "weekly"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBackupHistoryEmpty(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, http.MethodGet, "/api/backup/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"backups":[]}`, rec.Body.String())
}

func TestReportGenerate(t *testing.T) {
	h := newTestServer(t)

	scanAndConnect(t, h)

	rec := do(t, h, http.MethodPost, "/api/reports/generate", ReportRequest{ReportType: "inventory", Format: "csv"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "text/csv", strings.Split(rec.Header().Get("Content-Type"), ";")[0])
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment; filename=")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "snatt_inventory_report_")
	assert.Contains(t, rec.Body.String(), "10.1.0.2")

	rec = do(t, h, http.MethodPost, "/api/reports/generate", ReportRequest{ReportType: "inventory", Format: "docx"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCredentials(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, http.MethodGet, "/api/settings/credentials", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"credentials":[]}`, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/api/settings/credentials", map[string]string{
		"name": "core", "username": "admin", "password": "s3cret",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Credential added successfully", decode[MessageResponse](t, rec).Message)

	rec = do(t, h, http.MethodGet, "/api/settings/credentials", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "s3cret")

	got := decode[CredentialsResponse](t, rec)
	require.Len(t, got.Credentials, 1)
	assert.Equal(t, "core", got.Credentials[0].Name)

	rec = do(t, h, http.MethodPost, "/api/settings/credentials", map[string]string{"name": "core"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	h := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/discovery/scan", http.NoBody)
	req.Header.Set("Origin", "http://localhost:8080")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
