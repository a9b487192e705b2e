package panel

import (
	"context"
	"strings"

	"github.com/metal-toolbox/snatt/internal/client"
	"github.com/metal-toolbox/snatt/internal/model"
	"github.com/sirupsen/logrus"
)

// CredentialForm holds the redisplayable fields of the add form, passwords are never kept.
type CredentialForm struct {
	Name     string
	Username string
}

type SettingsView struct {
	Status
	FormVisible bool
	Form        CredentialForm
	Credentials []model.Credential
}

func (v *SettingsView) FormToggleLabel() string {
	if v.FormVisible {
		return "Cancel"
	}

	return "+ Add Credential"
}

// Settings manages device credentials.
type Settings struct {
	base
	api client.API

	formVisible bool
	form        CredentialForm
	credentials []model.Credential
	loaded      bool
}

func NewSettings(api client.API, logger *logrus.Entry, notify Notifier) *Settings {
	return &Settings{
		base:        newBase(IDSettings, logger, notify),
		api:         api,
		credentials: []model.Credential{},
	}
}

// ShowForm shows or hides the add credential form.
func (p *Settings) ShowForm(visible bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.formVisible = visible
	if !visible {
		p.form = CredentialForm{}
	}
}

// Submit adds the credential. A form with an empty required field is refused without a request.
func (p *Settings) Submit(ctx context.Context, in *model.CredentialInput) error {
	p.mu.Lock()
	if p.status.Phase == PhaseBusy {
		p.mu.Unlock()
		return ErrBusy
	}

	p.formVisible = true
	p.form = CredentialForm{Name: in.Name, Username: in.Username}
	p.mu.Unlock()

	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Username) == "" || in.Password == "" {
		return p.reject(ErrMissingFields)
	}

	return p.run(ctx, "add", func(ctx context.Context) (string, error) {
		msg, err := p.api.AddCredential(ctx, in)
		if err != nil {
			return "", err
		}

		p.mu.Lock()
		p.form = CredentialForm{}
		p.formVisible = false
		p.mu.Unlock()

		creds, err := p.api.Credentials(ctx)
		if err != nil {
			p.logger.WithError(err).Warn("credential list reload failed")
			return msg, nil
		}

		p.setCredentials(creds)

		return msg, nil
	})
}

// Load fetches the credential list the first time the panel is shown, failures are only logged.
func (p *Settings) Load(ctx context.Context) {
	p.mu.Lock()
	loaded := p.loaded || p.status.Phase == PhaseBusy
	p.mu.Unlock()

	if loaded {
		return
	}

	creds, err := p.api.Credentials(ctx)
	if err != nil {
		p.logger.WithError(err).Warn("credential list load failed")
		return
	}

	p.setCredentials(creds)
}

func (p *Settings) setCredentials(creds []model.Credential) {
	if creds == nil {
		creds = []model.Credential{}
	}

	p.mu.Lock()
	p.credentials = creds
	p.loaded = true
	p.mu.Unlock()
}

func (p *Settings) Snapshot() *SettingsView {
	p.mu.Lock()
	defer p.mu.Unlock()

	return deepCopy(&SettingsView{
		Status:      p.status,
		FormVisible: p.formVisible,
		Form:        p.form,
		Credentials: p.credentials,
	})
}
