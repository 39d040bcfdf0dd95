package auth

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
)

// Keyring locates the RSA keypair used for first-party session tokens.
// Keys are read from disk on every use so they can be rotated without a
// restart. Read failures surface as errors; the session layer maps them
// to "not logged in" rather than failing the request.
type Keyring struct {
	PrivatePath string
	PublicPath  string
}

// Private returns the signing key.
func (k Keyring) Private() (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(k.PrivatePath)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}
	return ParseRSAPrivateKey(string(data))
}

// Public returns the verification key.
func (k Keyring) Public() (*rsa.PublicKey, error) {
	data, err := os.ReadFile(k.PublicPath)
	if err != nil {
		return nil, fmt.Errorf("read public key: %w", err)
	}
	return ParseRSAPublicKey(string(data))
}

// ParseRSAPrivateKey decodes a PEM private key in PKCS1 or PKCS8 form.
func ParseRSAPrivateKey(pemData string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, errors.New("invalid PEM private key")
	}
	switch block.Type {
	case "RSA PRIVATE KEY":
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		if rsaKey, ok := key.(*rsa.PrivateKey); ok {
			return rsaKey, nil
		}
		return nil, errors.New("unsupported private key type")
	default:
		return nil, fmt.Errorf("unsupported private key type %s", block.Type)
	}
}

// ParseRSAPublicKey decodes a PEM public key in PKIX or PKCS1 form.
func ParseRSAPublicKey(pemData string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, errors.New("invalid PEM public key")
	}
	switch block.Type {
	case "PUBLIC KEY":
		key, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		rsaKey, ok := key.(*rsa.PublicKey)
		if !ok {
			return nil, errors.New("not an RSA public key")
		}
		return rsaKey, nil
	case "RSA PUBLIC KEY":
		return x509.ParsePKCS1PublicKey(block.Bytes)
	default:
		return nil, fmt.Errorf("unsupported public key type %s", block.Type)
	}
}
