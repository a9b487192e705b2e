package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/metal-toolbox/snatt/internal/diagnostics"
	"github.com/metal-toolbox/snatt/internal/model"
	"github.com/pkg/errors"
)

// ScanRequest is the body of POST /api/discovery/scan.
type ScanRequest struct {
	IPRange string `json:"ip_range"`
}

type ScanResponse struct {
	Devices []*model.Device `json:"devices"`
}

type ConnectRequest struct {
	DeviceIDs []string `json:"device_ids"`
}

type ConnectResponse struct {
	Connected int    `json:"connected"`
	Message   string `json:"message"`
}

type DiagnosticsRequest struct {
	Workflow string `json:"workflow"`
}

type DiagnosticsResponse struct {
	Results []*model.DiagnosticResult `json:"results"`
	Message string                    `json:"message,omitempty"`
}

type BackupRequest struct {
	BackupType string `json:"backup_type"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type BackupHistoryResponse struct {
	Backups []*model.BackupRecord `json:"backups"`
}

type ReportRequest struct {
	ReportType string `json:"report_type"`
	Format     string `json:"format"`
}

type CredentialsResponse struct {
	Credentials []model.Credential `json:"credentials"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, model.ErrInvalidRequest), errors.Is(err, model.ErrNoConnectedDevices):
		status = http.StatusBadRequest
	case errors.Is(err, model.ErrUnknownDevice):
		status = http.StatusNotFound
	}

	if status == http.StatusInternalServerError {
		s.logger.WithError(err).WithField("path", c.Request.URL.Path).Error("request error")
	}

	c.AbortWithStatusJSON(status, ErrorResponse{Detail: err.Error()})
}

func (s *Server) bind(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		s.fail(c, model.InvalidRequestf("invalid request body: %s", err.Error()))
		return false
	}

	return true
}

func (s *Server) handleScan(c *gin.Context) {
	var req ScanRequest
	if !s.bind(c, &req) {
		return
	}

	devices, err := s.discovery.Scan(c.Request.Context(), req.IPRange)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, ScanResponse{Devices: devices})
}

func (s *Server) handleConnect(c *gin.Context) {
	var req ConnectRequest
	if !s.bind(c, &req) {
		return
	}

	n, err := s.discovery.Connect(c.Request.Context(), req.DeviceIDs)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, ConnectResponse{Connected: n, Message: fmt.Sprintf("Connected to %d devices", n)})
}

func (s *Server) handleWorkflows(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"workflows": diagnostics.Workflows()})
}

func (s *Server) handleDiagnosticsRun(c *gin.Context) {
	var req DiagnosticsRequest
	if !s.bind(c, &req) {
		return
	}

	results, err := s.diagnostics.Run(c.Request.Context(), req.Workflow)
	if err != nil {
		s.fail(c, err)
		return
	}

	resp := DiagnosticsResponse{Results: results}
	if len(results) == 0 {
		resp.Message = "No connected devices"
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleBackupCreate(c *gin.Context) {
	var req BackupRequest
	if !s.bind(c, &req) {
		return
	}

	configType, err := model.ParseConfigType(req.BackupType)
	if err != nil {
		s.fail(c, err)
		return
	}

	n, err := s.backups.Create(c.Request.Context(), configType)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: fmt.Sprintf("Backup completed for %d devices", n)})
}

func (s *Server) handleBackupHistory(c *gin.Context) {
	backups, err := s.backups.History(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, BackupHistoryResponse{Backups: backups})
}

func (s *Server) handleReportGenerate(c *gin.Context) {
	var req ReportRequest
	if !s.bind(c, &req) {
		return
	}

	r, err := s.reports.Generate(c.Request.Context(), req.ReportType, req.Format)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", r.Filename))
	c.Data(http.StatusOK, r.ContentType, r.Data)
}

func (s *Server) handleCredentialAdd(c *gin.Context) {
	var req model.CredentialInput
	if !s.bind(c, &req) {
		return
	}

	if _, err := s.vault.Add(&req); err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "Credential added successfully"})
}

func (s *Server) handleCredentialList(c *gin.Context) {
	c.JSON(http.StatusOK, CredentialsResponse{Credentials: s.vault.List()})
}
