package sshpool

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"

	"golang.org/x/crypto/ssh"
)

// testEd25519KeyPair generates a fresh ed25519 key pair PEM-encoded the way
// ssh-keygen would write one, for use by signerFromFile tests.
func testEd25519KeyPair() (ssh.PublicKey, []byte, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, err
	}

	sshPub, err := ssh.NewPublicKey(pub)
	if err != nil {
		return nil, nil, err
	}

	block, err := ssh.MarshalPrivateKey(priv, "")
	if err != nil {
		return nil, nil, err
	}

	return sshPub, pem.EncodeToMemory(block), nil
}
