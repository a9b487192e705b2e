package panel

import (
	"github.com/metal-toolbox/snatt/internal/client"
	"github.com/sirupsen/logrus"
)

const (
	IDDiscovery   = "discovery"
	IDDiagnostics = "diagnostics"
	IDBackup      = "backup"
	IDReports     = "reports"
	IDSettings    = "settings"
)

// NavEntry is an item of the navigation rail.
type NavEntry struct {
	ID    string
	Label string
	Icon  string
}

var navigation = []NavEntry{
	{ID: IDDiscovery, Label: "Discovery", Icon: "🔍"},
	{ID: IDDiagnostics, Label: "Diagnostics", Icon: "🩺"},
	{ID: IDBackup, Label: "Backup", Icon: "💾"},
	{ID: IDReports, Label: "Reports", Icon: "📊"},
	{ID: IDSettings, Label: "Settings", Icon: "⚙️"},
}

// Navigation returns the fixed navigation rail entries.
func Navigation() []NavEntry {
	return append([]NavEntry(nil), navigation...)
}

// Resolve returns id when it names a panel, the discovery panel otherwise.
func Resolve(id string) string {
	for _, e := range navigation {
		if e.ID == id {
			return id
		}
	}

	return IDDiscovery
}

// Dashboard owns one instance of every panel.
type Dashboard struct {
	Discovery   *Discovery
	Diagnostics *Diagnostics
	Backup      *Backup
	Reports     *Reports
	Settings    *Settings
}

func NewDashboard(api client.API, logger *logrus.Entry, notify Notifier) *Dashboard {
	return &Dashboard{
		Discovery:   NewDiscovery(api, logger, notify),
		Diagnostics: NewDiagnostics(api, logger, notify),
		Backup:      NewBackup(api, logger, notify),
		Reports:     NewReports(api, logger, notify),
		Settings:    NewSettings(api, logger, notify),
	}
}

// Dismiss acknowledges the dialog of the named panel.
func (d *Dashboard) Dismiss(id string) {
	switch Resolve(id) {
	case IDDiscovery:
		d.Discovery.Dismiss()
	case IDDiagnostics:
		d.Diagnostics.Dismiss()
	case IDBackup:
		d.Backup.Dismiss()
	case IDReports:
		d.Reports.Dismiss()
	case IDSettings:
		d.Settings.Dismiss()
	}
}

// Phases returns the current phase of every panel.
func (d *Dashboard) Phases() []Event {
	return []Event{
		{Panel: IDDiscovery, Phase: d.Discovery.Phase()},
		{Panel: IDDiagnostics, Phase: d.Diagnostics.Phase()},
		{Panel: IDBackup, Phase: d.Backup.Phase()},
		{Panel: IDReports, Phase: d.Reports.Phase()},
		{Panel: IDSettings, Phase: d.Settings.Phase()},
	}
}
