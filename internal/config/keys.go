package config

import (
	"crypto"
	"errors"
	"fmt"
	"os"

	"github.com/golang-jwt/jwt/v5"
)

// LoadSigner reads a PEM encoded RSA (PKCS1 or PKCS8), EC (SEC1 or PKCS8)
// or Ed25519 (PKCS8) private key.
func LoadSigner(path string) (crypto.Signer, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}
	return ParseSigner(raw)
}

// ParseSigner decodes raw with the jwt key parsers, trying RSA, then EC,
// then Ed25519.
func ParseSigner(raw []byte) (crypto.Signer, error) {
	rsaKey, err := jwt.ParseRSAPrivateKeyFromPEM(raw)
	if err == nil {
		return rsaKey, nil
	}
	if errors.Is(err, jwt.ErrKeyMustBePEMEncoded) {
		return nil, fmt.Errorf("private key: %w", err)
	}

	if ecKey, err := jwt.ParseECPrivateKeyFromPEM(raw); err == nil {
		return ecKey, nil
	}

	edKey, err := jwt.ParseEdPrivateKeyFromPEM(raw)
	if err != nil {
		return nil, fmt.Errorf("private key: unsupported key type: %w", err)
	}
	signer, ok := edKey.(crypto.Signer)
	if !ok {
		return nil, fmt.Errorf("private key: %T cannot sign", edKey)
	}
	return signer, nil
}
