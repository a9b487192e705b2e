package credentials

import (
	"encoding/json"
	"testing"

	"github.com/metal-toolbox/snatt/internal/model"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVaultRequiresKey(t *testing.T) {
	_, err := NewVault("")
	assert.True(t, errors.Is(err, model.ErrConfig))
}

func TestAddAndList(t *testing.T) {
	v, err := NewVault("test-key")
	require.Nil(t, err)

	_, err = v.Add(&model.CredentialInput{Name: "core", Username: "admin", Password: "p1", EnablePassword: "e1"})
	require.Nil(t, err)

	_, err = v.Add(&model.CredentialInput{Name: "edge", Username: "ops", Password: "p2"})
	require.Nil(t, err)

	list := v.List()
	require.Len(t, list, 2)
	assert.Equal(t, "core", list[0].Name)
	assert.Equal(t, "admin", list[0].Username)
	assert.True(t, list[0].HasEnablePassword)
	assert.False(t, list[1].HasEnablePassword)

	b, err := json.Marshal(list)
	require.Nil(t, err)
	assert.NotContains(t, string(b), "p1")
	assert.NotContains(t, string(b), "e1")
}

func TestAddSameNameReplaces(t *testing.T) {
	v, err := NewVault("test-key")
	require.Nil(t, err)

	_, err = v.Add(&model.CredentialInput{Name: "core", Username: "admin", Password: "old"})
	require.Nil(t, err)
	_, err = v.Add(&model.CredentialInput{Name: "edge", Username: "ops", Password: "p2"})
	require.Nil(t, err)
	_, err = v.Add(&model.CredentialInput{Name: "core", Username: "netadmin", Password: "new"})
	require.Nil(t, err)

	list := v.List()
	require.Len(t, list, 2)
	assert.Equal(t, "edge", list[0].Name)
	assert.Equal(t, "core", list[1].Name)
	assert.Equal(t, "netadmin", list[1].Username)

	secret, err := v.Reveal("core")
	require.Nil(t, err)
	assert.Equal(t, "new", secret.Password)
}

func TestAddMissingFields(t *testing.T) {
	v, err := NewVault("test-key")
	require.Nil(t, err)

	_, err = v.Add(&model.CredentialInput{Name: " ", Username: "admin"})
	assert.True(t, errors.Is(err, model.ErrInvalidRequest))
	assert.Equal(t, "missing required fields: name, password", err.Error())
	assert.Empty(t, v.List())
}

func TestReveal(t *testing.T) {
	v, err := NewVault("test-key")
	require.Nil(t, err)

	_, err = v.Add(&model.CredentialInput{Name: "core", Username: "admin", Password: "s3cret", EnablePassword: "en"})
	require.Nil(t, err)

	secret, err := v.Reveal("core")
	require.Nil(t, err)
	assert.Equal(t, "admin", secret.Username)
	assert.Equal(t, "s3cret", secret.Password)
	assert.Equal(t, "en", secret.EnablePassword)

	_, err = v.Reveal("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSealedWithDifferentKeyFails(t *testing.T) {
	a, err := NewVault("key-a")
	require.Nil(t, err)

	b, err := NewVault("key-b")
	require.Nil(t, err)

	sealed, err := a.seal("core", "secret")
	require.Nil(t, err)

	_, err = b.open("core", sealed)
	assert.NotNil(t, err)

	plain, err := a.open("core", sealed)
	require.Nil(t, err)
	assert.Equal(t, "secret", plain)
}
