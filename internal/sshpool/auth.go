package sshpool

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/ssh"
)

// signerFromFile loads and parses a private key file for SSH public-key auth.
func signerFromFile(path string) (ssh.Signer, error) {
	keyBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ssh key file %s: %w", path, err)
	}
	signer, err := ssh.ParsePrivateKey(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("parse ssh key file %s: %w", path, err)
	}
	return signer, nil
}

// agentSocketPath returns the path to the running ssh-agent's unix socket.
func agentSocketPath() string {
	return os.Getenv("SSH_AUTH_SOCK")
}

// isAuthError reports whether a Dial/handshake error is a credentials
// rejection rather than a network-level transport failure. x/crypto/ssh
// exposes no sentinel for this; "ssh: handshake failed: ... unable to
// authenticate" is the message it returns once the server has rejected
// every offered auth method.
func isAuthError(err error) bool {
	return strings.Contains(err.Error(), "unable to authenticate")
}
