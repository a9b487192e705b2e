package credentials

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/metal-toolbox/snatt/internal/model"
	"github.com/pkg/errors"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

var (
	ErrNotFound = errors.New("credential not found")

	hkdfInfo = []byte("snatt credential vault v1")
)

// Secret is a revealed credential, for use by device sessions only.
type Secret struct {
	Username       string
	Password       string
	EnablePassword string
}

type entry struct {
	meta           model.Credential
	password       []byte
	enablePassword []byte
}

// Vault keeps credentials in memory with the passwords sealed.
// Adding a name that exists replaces the earlier entry.
type Vault struct {
	mu      sync.RWMutex
	aead    cipher.AEAD
	entries []*entry
	now     func() time.Time
}

// NewVault derives the sealing key from masterKey.
func NewVault(masterKey string) (*Vault, error) {
	if masterKey == "" {
		return nil, errors.Wrap(model.ErrConfig, "credentials master key is empty")
	}

	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(masterKey), nil, hkdfInfo), key); err != nil {
		return nil, errors.Wrap(err, "key derivation failed")
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, errors.Wrap(err, "cipher init failed")
	}

	return &Vault{aead: aead, now: time.Now}, nil
}

// Validate checks the required fields of a credential form.
func Validate(in *model.CredentialInput) error {
	missing := []string{}

	if strings.TrimSpace(in.Name) == "" {
		missing = append(missing, "name")
	}

	if strings.TrimSpace(in.Username) == "" {
		missing = append(missing, "username")
	}

	if in.Password == "" {
		missing = append(missing, "password")
	}

	if len(missing) > 0 {
		return model.InvalidRequestf("missing required fields: %s", strings.Join(missing, ", "))
	}

	return nil
}

// Add stores the credential and returns its listable view.
func (v *Vault) Add(in *model.CredentialInput) (*model.Credential, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)

	e := &entry{
		meta: model.Credential{
			Name:              name,
			Username:          strings.TrimSpace(in.Username),
			HasEnablePassword: in.EnablePassword != "",
			CreatedAt:         v.now(),
		},
	}

	var err error

	e.password, err = v.seal(name, in.Password)
	if err != nil {
		return nil, err
	}

	if in.EnablePassword != "" {
		e.enablePassword, err = v.seal(name, in.EnablePassword)
		if err != nil {
			return nil, err
		}
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	kept := v.entries[:0]
	for _, existing := range v.entries {
		if existing.meta.Name != name {
			kept = append(kept, existing)
		}
	}

	v.entries = append(kept, e)

	meta := e.meta

	return &meta, nil
}

// List returns names and usernames in insertion order.
func (v *Vault) List() []model.Credential {
	v.mu.RLock()
	defer v.mu.RUnlock()

	out := make([]model.Credential, 0, len(v.entries))
	for _, e := range v.entries {
		out = append(out, e.meta)
	}

	return out
}

// Reveal opens the sealed secrets of the named credential.
func (v *Vault) Reveal(name string) (*Secret, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	for _, e := range v.entries {
		if e.meta.Name != name {
			continue
		}

		password, err := v.open(name, e.password)
		if err != nil {
			return nil, err
		}

		secret := &Secret{Username: e.meta.Username, Password: password}

		if e.enablePassword != nil {
			secret.EnablePassword, err = v.open(name, e.enablePassword)
			if err != nil {
				return nil, err
			}
		}

		return secret, nil
	}

	return nil, errors.Wrap(ErrNotFound, name)
}

func (v *Vault) seal(name, plaintext string) ([]byte, error) {
	nonce := make([]byte, v.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, errors.Wrap(err, "nonce generation failed")
	}

	return v.aead.Seal(nonce, nonce, []byte(plaintext), []byte(name)), nil
}

func (v *Vault) open(name string, sealed []byte) (string, error) {
	n := v.aead.NonceSize()
	if len(sealed) < n {
		return "", errors.New("sealed secret is truncated")
	}

	plain, err := v.aead.Open(nil, sealed[:n], sealed[n:], []byte(name))
	if err != nil {
		return "", errors.Wrap(err, "failed to open sealed secret")
	}

	return string(plain), nil
}
