package sshpool

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

func TestShellQuote(t *testing.T) {
	cases := map[string]string{
		"/mnt/ledger/tower-1_9-abc.bin": `'/mnt/ledger/tower-1_9-abc.bin'`,
		"it's/a/path":                   `'it'\''s/a/path'`,
	}
	for in, want := range cases {
		assert.Equal(t, want, shellQuote(in))
	}
}

func TestSignerFromFile_Success(t *testing.T) {
	tempDir := t.TempDir()
	keyFile := filepath.Join(tempDir, "id_ed25519")

	_, priv, err := generateTestEd25519Key()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(keyFile, priv, 0600))

	signer, err := signerFromFile(keyFile)
	require.NoError(t, err)
	assert.NotNil(t, signer)
}

func TestSignerFromFile_MissingFile(t *testing.T) {
	signer, err := signerFromFile("/nonexistent/path/to/key")
	assert.Error(t, err)
	assert.Nil(t, signer)
}

func TestSignerFromFile_InvalidKeyData(t *testing.T) {
	tempDir := t.TempDir()
	keyFile := filepath.Join(tempDir, "not-a-key")
	require.NoError(t, os.WriteFile(keyFile, []byte("not a key"), 0600))

	signer, err := signerFromFile(keyFile)
	assert.Error(t, err)
	assert.Nil(t, signer)
}

func TestAuthMethodsFor_NoKeyFileNoAgent(t *testing.T) {
	t.Setenv("SSH_AUTH_SOCK", "")

	_, err := authMethodsFor(HostConfig{Address: "127.0.0.1:22", User: "sol"})
	assert.Error(t, err)
}

// TestIsAuthError distinguishes a rejected-credentials handshake failure
// from a plain network-level dial failure: the former must classify as
// KindSSHAuth (fatal, no retry), the latter as KindSSHTransport (one
// transparent retry).
func TestIsAuthError(t *testing.T) {
	assert.True(t, isAuthError(errors.New("ssh: handshake failed: ssh: unable to authenticate, attempted methods [none publickey], no supported methods remain")))
	assert.False(t, isAuthError(errors.New("dial tcp 10.0.0.1:22: connect: connection refused")))
	assert.False(t, isAuthError(errors.New("dial tcp 10.0.0.1:22: i/o timeout")))
}

// TestPool_NewPool_SessionsAreOnePerHost exercises the pool's bookkeeping
// without dialing a real SSH server: the same HostConfig address must
// resolve to the same session object across calls, so at most one session
// exists per host at any time.
func TestPool_NewPool_SessionsAreOnePerHost(t *testing.T) {
	p := NewPool()
	cfg := HostConfig{Address: "host-a:22", User: "sol"}

	s1 := p.sessionFor(cfg)
	s2 := p.sessionFor(cfg)

	assert.Same(t, s1, s2)

	other := p.sessionFor(HostConfig{Address: "host-b:22", User: "sol"})
	assert.NotSame(t, s1, other)
}

// TestIntegration_WithRealSSHServer is skipped by default; a real SSH server
// is required to exercise session dial/keepalive/reconnect end-to-end, which
// a unit-test run does not provide.
func TestIntegration_WithRealSSHServer(t *testing.T) {
	t.Skip("requires a reachable SSH server; run manually against a test host")
}

// generateTestEd25519Key is a small helper producing a PEM-encoded ed25519
// private key for signerFromFile tests, avoiding a dependency on fixtures.
func generateTestEd25519Key() (ssh.PublicKey, []byte, error) {
	return testEd25519KeyPair()
}
