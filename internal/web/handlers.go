package web

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/metal-toolbox/snatt/internal/model"
	"github.com/metal-toolbox/snatt/internal/panel"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var funcs = map[string]any{
	"lower": strings.ToLower,
	"lines": func(s string) []string {
		return strings.Split(strings.TrimRight(s, "\n"), "\n")
	},
	"bytes": func(n int) string {
		switch {
		case n >= 1<<20:
			return strconv.FormatFloat(float64(n)/(1<<20), 'f', 1, 64) + " MB"
		case n >= 1<<10:
			return strconv.FormatFloat(float64(n)/(1<<10), 'f', 1, 64) + " KB"
		default:
			return strconv.Itoa(n) + " B"
		}
	},
}

// page is the data of the layout template, only the selected panel's view is set.
type page struct {
	Panel  string
	Nav    []panel.NavEntry
	Dialog *dialog

	Discovery   *panel.DiscoveryView
	Diagnostics *panel.DiagnosticsView
	Backup      *panel.BackupView
	Reports     *panel.ReportsView
	Settings    *panel.SettingsView
}

type dialog struct {
	Title   string
	Message string
	Error   bool
}

func dialogFor(st panel.Status) *dialog {
	switch {
	case st.Alert != "":
		return &dialog{Title: "Error", Message: st.Alert, Error: true}
	case st.Notice != "":
		return &dialog{Title: "Done", Message: st.Notice}
	default:
		return nil
	}
}

// actionContext detaches the action from the browser request, an action runs to completion
// even when the page is left.
func actionContext(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	id := panel.Resolve(r.URL.Query().Get("panel"))

	p := &page{Panel: id, Nav: panel.Navigation()}
	d := s.dashboard

	switch id {
	case panel.IDDiscovery:
		p.Discovery = d.Discovery.Snapshot()
		p.Dialog = dialogFor(p.Discovery.Status)
	case panel.IDDiagnostics:
		p.Diagnostics = d.Diagnostics.Snapshot()
		p.Dialog = dialogFor(p.Diagnostics.Status)
	case panel.IDBackup:
		d.Backup.Load(r.Context())
		p.Backup = d.Backup.Snapshot()
		p.Dialog = dialogFor(p.Backup.Status)
	case panel.IDReports:
		p.Reports = d.Reports.Snapshot()
		p.Dialog = dialogFor(p.Reports.Status)
	case panel.IDSettings:
		d.Settings.Load(r.Context())
		p.Settings = d.Settings.Snapshot()
		p.Dialog = dialogFor(p.Settings.Status)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")

	if err := s.templates.ExecuteTemplate(w, "layout.html", p); err != nil {
		s.logger.WithError(err).Error("page render failed")
	}
}

// done redirects back to the panel once an action returned, its outcome is part of the panel state.
func (s *Server) done(w http.ResponseWriter, r *http.Request, id, action string, err error) {
	if err != nil {
		entry := s.logger.WithFields(logrus.Fields{"panel": id, "action": action})

		var rejection panel.Rejection

		switch {
		case errors.Is(err, panel.ErrBusy):
			entry.Debug("action ignored, panel busy")
		case errors.As(err, &rejection):
			entry.Debug("action rejected: " + rejection.Error())
		default:
			entry.WithError(err).Debug("action failed")
		}
	}

	http.Redirect(w, r, "/?panel="+url.QueryEscape(id), http.StatusSeeOther)
}

func (s *Server) parseForm(w http.ResponseWriter, r *http.Request) bool {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form: "+err.Error(), http.StatusBadRequest)
		return false
	}

	return true
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	if !s.parseForm(w, r) {
		return
	}

	err := s.dashboard.Discovery.Scan(actionContext(r), r.PostForm.Get("ip_range"))
	s.done(w, r, panel.IDDiscovery, "scan", err)
}

// handleSelect updates the selection, "all" selects or clears every device.
func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	if !s.parseForm(w, r) {
		return
	}

	switch r.PostForm.Get("all") {
	case "on":
		s.dashboard.Discovery.SelectAll(true)
	case "off":
		s.dashboard.Discovery.SelectAll(false)
	default:
		s.dashboard.Discovery.Select(r.PostForm["device_id"])
	}

	s.done(w, r, panel.IDDiscovery, "select", nil)
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	if !s.parseForm(w, r) {
		return
	}

	s.dashboard.Discovery.Select(r.PostForm["device_id"])

	err := s.dashboard.Discovery.Connect(actionContext(r))
	s.done(w, r, panel.IDDiscovery, "connect", err)
}

func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	if !s.parseForm(w, r) {
		return
	}

	err := s.dashboard.Diagnostics.Run(actionContext(r), r.PostForm.Get("workflow"))
	s.done(w, r, panel.IDDiagnostics, "run", err)
}

func (s *Server) handleBackupCreate(w http.ResponseWriter, r *http.Request) {
	if !s.parseForm(w, r) {
		return
	}

	err := s.dashboard.Backup.Create(actionContext(r), r.PostForm.Get("backup_type"))
	s.done(w, r, panel.IDBackup, "create", err)
}

func (s *Server) handleBackupRefresh(w http.ResponseWriter, r *http.Request) {
	err := s.dashboard.Backup.Refresh(actionContext(r))
	s.done(w, r, panel.IDBackup, "refresh", err)
}

// handleReport answers with the report as an attachment, failures go back to the panel.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if !s.parseForm(w, r) {
		return
	}

	download, err := s.dashboard.Reports.Generate(actionContext(r), r.PostForm.Get("report_type"), r.PostForm.Get("format"))
	if err != nil {
		s.done(w, r, panel.IDReports, "generate", err)
		return
	}

	contentType := download.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", download.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(download.Data)))
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write(download.Data); err != nil {
		s.logger.WithError(err).Warn("report download interrupted")
	}
}

func (s *Server) handleCredentialAdd(w http.ResponseWriter, r *http.Request) {
	if !s.parseForm(w, r) {
		return
	}

	in := &model.CredentialInput{
		Name:           r.PostForm.Get("name"),
		Username:       r.PostForm.Get("username"),
		Password:       r.PostForm.Get("password"),
		EnablePassword: r.PostForm.Get("enable_password"),
	}

	err := s.dashboard.Settings.Submit(actionContext(r), in)
	s.done(w, r, panel.IDSettings, "add", err)
}

func (s *Server) handleCredentialForm(w http.ResponseWriter, r *http.Request) {
	if !s.parseForm(w, r) {
		return
	}

	s.dashboard.Settings.ShowForm(r.PostForm.Get("visible") == "true")
	s.done(w, r, panel.IDSettings, "form", nil)
}

func (s *Server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	id := panel.Resolve(mux.Vars(r)["panel"])

	s.dashboard.Dismiss(id)
	s.done(w, r, id, "dismiss", nil)
}
