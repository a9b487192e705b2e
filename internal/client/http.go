package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/metal-toolbox/snatt/internal/configuration"
	"github.com/metal-toolbox/snatt/internal/model"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// HTTP talks to a running snatt API.
type HTTP struct {
	baseURL *url.URL
	client  *retryablehttp.Client
	logger  *logrus.Entry
}

// NewHTTP returns a client for the API at cfg.APIBaseURL.
func NewHTTP(cfg *configuration.DashboardConfig, logger *logrus.Entry) (*HTTP, error) {
	base, err := url.Parse(strings.TrimRight(cfg.APIBaseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(model.ErrConfig, "api base url: "+err.Error())
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.RetryMax
	rc.Logger = &leveledLogger{logger}
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.HTTPClient = &http.Client{
		Timeout:   cfg.RequestTimeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	return &HTTP{baseURL: base, client: rc, logger: logger}, nil
}

func (h *HTTP) Scan(ctx context.Context, ipRange string) ([]*model.Device, error) {
	var resp struct {
		Devices []*model.Device `json:"devices"`
	}

	if err := h.do(ctx, http.MethodPost, "/api/discovery/scan", map[string]string{"ip_range": ipRange}, &resp); err != nil {
		return nil, err
	}

	return resp.Devices, nil
}

func (h *HTTP) Connect(ctx context.Context, deviceIDs []string) (*ConnectResult, error) {
	resp := &ConnectResult{}
	if err := h.do(ctx, http.MethodPost, "/api/discovery/connect", map[string][]string{"device_ids": deviceIDs}, resp); err != nil {
		return nil, err
	}

	return resp, nil
}

func (h *HTTP) Workflows(ctx context.Context) ([]Workflow, error) {
	var resp struct {
		Workflows []Workflow `json:"workflows"`
	}

	if err := h.do(ctx, http.MethodGet, "/api/diagnostics/workflows", nil, &resp); err != nil {
		return nil, err
	}

	return resp.Workflows, nil
}

func (h *HTTP) RunDiagnostics(ctx context.Context, workflow string) (*DiagnosticsResult, error) {
	resp := &DiagnosticsResult{}
	if err := h.do(ctx, http.MethodPost, "/api/diagnostics/run", map[string]string{"workflow": workflow}, resp); err != nil {
		return nil, err
	}

	return resp, nil
}

func (h *HTTP) CreateBackup(ctx context.Context, backupType string) (string, error) {
	var resp struct {
		Message string `json:"message"`
	}

	if err := h.do(ctx, http.MethodPost, "/api/backup/create", map[string]string{"backup_type": backupType}, &resp); err != nil {
		return "", err
	}

	return resp.Message, nil
}

func (h *HTTP) BackupHistory(ctx context.Context) ([]*model.BackupRecord, error) {
	var resp struct {
		Backups []*model.BackupRecord `json:"backups"`
	}

	if err := h.do(ctx, http.MethodGet, "/api/backup/history", nil, &resp); err != nil {
		return nil, err
	}

	return resp.Backups, nil
}

func (h *HTTP) GenerateReport(ctx context.Context, reportType, format string) (*Download, error) {
	body := map[string]string{"report_type": reportType, "format": format}

	resp, err := h.send(ctx, http.MethodPost, "/api/reports/generate", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read report")
	}

	filename := attachmentFilename(resp.Header.Get("Content-Disposition"))
	if filename == "" {
		filename = fmt.Sprintf("snatt_report_%d.%s", time.Now().UnixMilli(), format)
	}

	return &Download{
		Filename:    filename,
		ContentType: resp.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func (h *HTTP) AddCredential(ctx context.Context, in *model.CredentialInput) (string, error) {
	var resp struct {
		Message string `json:"message"`
	}

	if err := h.do(ctx, http.MethodPost, "/api/settings/credentials", in, &resp); err != nil {
		return "", err
	}

	return resp.Message, nil
}

func (h *HTTP) Credentials(ctx context.Context) ([]model.Credential, error) {
	var resp struct {
		Credentials []model.Credential `json:"credentials"`
	}

	if err := h.do(ctx, http.MethodGet, "/api/settings/credentials", nil, &resp); err != nil {
		return nil, err
	}

	return resp.Credentials, nil
}

func (h *HTTP) do(ctx context.Context, method, path string, body, out any) error {
	resp, err := h.send(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "failed to decode "+path+" response")
	}

	return nil
}

// send performs the request, non-2xx responses are returned as *Error.
func (h *HTTP) send(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader

	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "failed to encode request")
		}

		reader = bytes.NewReader(b)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, h.baseURL.JoinPath(path).String(), reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build request")
	}

	req.Header.Set("Accept", "application/json")

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return resp, nil
	}

	defer resp.Body.Close()

	apiErr := &Error{StatusCode: resp.StatusCode}

	var detail struct {
		Detail string `json:"detail"`
	}

	if b, rerr := io.ReadAll(resp.Body); rerr == nil && json.Unmarshal(b, &detail) == nil {
		apiErr.Detail = detail.Detail
	}

	h.logger.WithFields(logrus.Fields{"path": path, "status": resp.StatusCode}).Debug("api request failed")

	return nil, apiErr
}

func attachmentFilename(header string) string {
	if header == "" {
		return ""
	}

	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}

	return params["filename"]
}

// leveledLogger routes retryablehttp logging into logrus.
type leveledLogger struct {
	entry *logrus.Entry
}

func (l *leveledLogger) fields(kv []any) *logrus.Entry {
	f := logrus.Fields{}

	for i := 0; i+1 < len(kv); i += 2 {
		f[fmt.Sprint(kv[i])] = kv[i+1]
	}

	return l.entry.WithFields(f)
}

func (l *leveledLogger) Error(msg string, kv ...any) { l.fields(kv).Error(msg) }
func (l *leveledLogger) Warn(msg string, kv ...any)  { l.fields(kv).Warn(msg) }
func (l *leveledLogger) Info(msg string, kv ...any)  { l.fields(kv).Debug(msg) }
func (l *leveledLogger) Debug(msg string, kv ...any) { l.fields(kv).Trace(msg) }
