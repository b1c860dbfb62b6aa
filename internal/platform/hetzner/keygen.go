package hetzner

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"

	"golang.org/x/crypto/ssh"
)

// keyPair holds a generated RSA key pair: the private key PEM-encoded in
// PKCS#1 form, the public key in OpenSSH authorized_keys form.
type keyPair struct {
	privatePEM []byte
	publicKey  []byte
}

// generateKeyPair generates an RSA key pair for node access.
func generateKeyPair(bits int) (*keyPair, error) {
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("failed to generate RSA private key: %w", err)
	}
	if err := key.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate RSA private key: %w", err)
	}

	privatePEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})

	public, err := ssh.NewPublicKey(&key.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to derive SSH public key: %w", err)
	}

	return &keyPair{
		privatePEM: privatePEM,
		publicKey:  ssh.MarshalAuthorizedKey(public),
	}, nil
}
