// Package keyring owns the process-wide signing keypair used to issue and
// verify bearer credentials.
//
// The keypair is generated once, persisted as PEM files in the data
// directory, and loaded verbatim on every later start so credentials survive
// restarts. A broker that cannot sign or verify cannot authenticate anyone,
// so every failure here is fatal at startup.
package keyring

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// PrivateKeyFile is the on-disk name of the signing key.
	PrivateKeyFile = "private.pem"

	// PublicKeyFile is the on-disk name of the verification key.
	PublicKeyFile = "public.pem"

	// keyBits is the RSA modulus size for newly generated keypairs.
	keyBits = 2048
)

// KeyPair is an asymmetric signing key and its matching verification key.
// It is immutable after construction and safe for concurrent use.
type KeyPair struct {
	private *rsa.PrivateKey
	public  *rsa.PublicKey
	method  jwt.SigningMethod
}

// Private returns the signing half.
func (k *KeyPair) Private() *rsa.PrivateKey { return k.private }

// Public returns the verification half.
func (k *KeyPair) Public() *rsa.PublicKey { return k.public }

// Method returns the JWT signing method bound to this keypair.
func (k *KeyPair) Method() jwt.SigningMethod { return k.method }

// Obtain loads the keypair persisted in dir, generating and persisting a
// fresh one if either PEM half is missing. The two halves are always written
// together; a mismatched half-pair is never used.
func Obtain(dir string) (*KeyPair, error) {
	privatePath := filepath.Join(dir, PrivateKeyFile)
	publicPath := filepath.Join(dir, PublicKeyFile)

	if !fileExists(privatePath) || !fileExists(publicPath) {
		return generate(dir, privatePath, publicPath)
	}

	return load(privatePath, publicPath)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func generate(dir, privatePath, publicPath string) (*KeyPair, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("cannot create key directory %s: %w", dir, err)
	}

	key, err := rsa.GenerateKey(rand.Reader, keyBits)
	if err != nil {
		return nil, fmt.Errorf("cannot generate signing key: %w", err)
	}

	privatePEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})

	publicDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("cannot encode public key: %w", err)
	}
	publicPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: publicDER,
	})

	if err := os.WriteFile(privatePath, privatePEM, 0600); err != nil {
		return nil, fmt.Errorf("cannot persist private key: %w", err)
	}
	if err := os.WriteFile(publicPath, publicPEM, 0644); err != nil {
		return nil, fmt.Errorf("cannot persist public key: %w", err)
	}

	return &KeyPair{
		private: key,
		public:  &key.PublicKey,
		method:  jwt.SigningMethodRS256,
	}, nil
}

func load(privatePath, publicPath string) (*KeyPair, error) {
	privatePEM, err := os.ReadFile(privatePath)
	if err != nil {
		return nil, fmt.Errorf("cannot read private key: %w", err)
	}
	private, err := jwt.ParseRSAPrivateKeyFromPEM(privatePEM)
	if err != nil {
		return nil, fmt.Errorf("cannot parse private key: %w", err)
	}

	publicPEM, err := os.ReadFile(publicPath)
	if err != nil {
		return nil, fmt.Errorf("cannot read public key: %w", err)
	}
	public, err := jwt.ParseRSAPublicKeyFromPEM(publicPEM)
	if err != nil {
		return nil, fmt.Errorf("cannot parse public key: %w", err)
	}

	return &KeyPair{
		private: private,
		public:  public,
		method:  jwt.SigningMethodRS256,
	}, nil
}
