package jwtx

import (
	"crypto"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
)

const minRSABits = 2048

// GenerateKey creates a fresh keypair for the given algorithm. Used for
// ephemeral mode: tokens do not survive a restart.
func GenerateKey(alg string, rsaBits int) (crypto.PrivateKey, error) {
	switch alg {
	case "RS256", "":
		if rsaBits < minRSABits {
			rsaBits = minRSABits
		}
		return rsa.GenerateKey(rand.Reader, rsaBits)
	case "EdDSA":
		_, priv, err := ed25519.GenerateKey(rand.Reader)
		return priv, err
	default:
		return nil, fmt.Errorf("jwtx: unsupported algorithm %q", alg)
	}
}

// ParsePrivateKeyPEM decodes a PEM-encoded private key. Accepts PKCS8 for
// both RSA and Ed25519, plus legacy PKCS1 for RSA.
func ParsePrivateKeyPEM(pemBytes []byte) (crypto.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, errors.New("jwtx: no PEM block in private key")
	}

	switch block.Type {
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("jwtx: parse PKCS8: %w", err)
		}
		switch k := key.(type) {
		case *rsa.PrivateKey:
			return k, nil
		case ed25519.PrivateKey:
			return k, nil
		default:
			return nil, fmt.Errorf("jwtx: unsupported PKCS8 key type %T", key)
		}
	case "RSA PRIVATE KEY":
		key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("jwtx: parse PKCS1: %w", err)
		}
		return key, nil
	default:
		return nil, fmt.Errorf("jwtx: unexpected PEM type %q", block.Type)
	}
}

// ParsePublicKeyPEM decodes a PEM-encoded PKIX public key for verify-only use.
func ParsePublicKeyPEM(pemBytes []byte) (crypto.PublicKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, errors.New("jwtx: no PEM block in public key")
	}
	if block.Type != "PUBLIC KEY" {
		return nil, fmt.Errorf("jwtx: unexpected PEM type %q", block.Type)
	}

	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("jwtx: parse PKIX: %w", err)
	}
	return key, nil
}

// MarshalPublicKeyPEM encodes the public half of priv for distribution to
// verifying services.
func MarshalPublicKeyPEM(priv crypto.PrivateKey) ([]byte, error) {
	signer, ok := priv.(crypto.Signer)
	if !ok {
		return nil, fmt.Errorf("jwtx: key type %T is not a signer", priv)
	}

	der, err := x509.MarshalPKIXPublicKey(signer.Public())
	if err != nil {
		return nil, fmt.Errorf("jwtx: marshal PKIX: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}
