package state

import (
	"path/filepath"
	"testing"

	"github.com/heliotropix/places-auth/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testState(t *testing.T) (*State, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "state.db")
	s, err := LoadAt(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return s, path
}

func TestCredential_EmptyStore(t *testing.T) {
	s, _ := testState(t)

	_, ok, err := s.Credential()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCredential_RoundTrip(t *testing.T) {
	s, _ := testState(t)

	cred := models.Credential{
		Key:        "access-key",
		Secret:     "access-secret",
		ScreenName: "episod",
		UserID:     "7588892",
	}
	require.NoError(t, s.SetCredential(cred))

	got, ok, err := s.Credential()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, cred, got)
}

func TestCredential_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")

	s, err := LoadAt(path)
	require.NoError(t, err)

	cred := models.Credential{Key: "k", Secret: "s", ScreenName: "name", UserID: "42"}
	require.NoError(t, s.SetCredential(cred))
	require.NoError(t, s.SetBearerToken("bearer-abc"))
	require.NoError(t, s.Close())

	// Simulated restart: a fresh State against the same file must read
	// back identical fields.
	s2, err := LoadAt(path)
	require.NoError(t, err)
	defer s2.Close()

	got, ok, err := s2.Credential()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, cred, got)

	token, err := s2.BearerToken()
	require.NoError(t, err)
	assert.Equal(t, "bearer-abc", token)
}

func TestCredential_ReplacedWholesale(t *testing.T) {
	s, _ := testState(t)

	require.NoError(t, s.SetCredential(models.Credential{Key: "old", Secret: "old", ScreenName: "before"}))
	require.NoError(t, s.SetCredential(models.Credential{Key: "new", Secret: "new"}))

	got, ok, err := s.Credential()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "new", got.Key)
	assert.Empty(t, got.ScreenName, "stale fields must not leak into the replacement")
}

func TestDeleteCredential(t *testing.T) {
	s, _ := testState(t)

	require.NoError(t, s.SetCredential(models.Credential{Key: "k", Secret: "s"}))
	require.NoError(t, s.DeleteCredential())

	_, ok, err := s.Credential()
	require.NoError(t, err)
	assert.False(t, ok)

	// Deleting again is a no-op.
	assert.NoError(t, s.DeleteCredential())
}

func TestBearerToken_RoundTrip(t *testing.T) {
	s, _ := testState(t)

	token, err := s.BearerToken()
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, s.SetBearerToken("first"))
	require.NoError(t, s.SetBearerToken("second"))

	token, err = s.BearerToken()
	require.NoError(t, err)
	assert.Equal(t, "second", token)
}

func TestLoadAt_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "state.db")

	s, err := LoadAt(path)
	require.NoError(t, err)
	assert.NoError(t, s.Close())
}
