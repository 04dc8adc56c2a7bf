package application

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

// API keys are presented as "<id>.<secret>". The stored digest keeps the key
// ID in the clear next to an argon2id digest of the secret, so an operator
// can tell which key a configuration carries and rotate it without being
// able to recover the secret. Verification rejects an ID mismatch before
// paying for the derivation.

var (
	// ErrInvalidKeyDigest indicates a stored API key digest is malformed.
	ErrInvalidKeyDigest = errors.New("application: invalid api key digest format")
	// ErrIncompatibleKeyVersion indicates a digest from an unsupported argon2 version.
	ErrIncompatibleKeyVersion = errors.New("application: incompatible api key digest version")
)

const keyDigestScheme = "schedkey"

// Argon2idParams tunes the API key digest derivation.
type Argon2idParams struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultArgon2idParams balances derivation cost against per-request
// verification latency.
var DefaultArgon2idParams = Argon2idParams{
	Memory:      64 * 1024,
	Iterations:  3,
	Parallelism: 2,
	SaltLength:  16,
	KeyLength:   32,
}

// keyDigest is the decoded form of a stored digest.
type keyDigest struct {
	id     string
	params Argon2idParams
	salt   []byte
	hash   []byte
}

// CreateKeyDigest derives a self-describing digest for an API key given as
// "<id>.<secret>", suitable for storing in configuration.
func CreateKeyDigest(key string, params Argon2idParams) (string, error) {
	id, secret, err := splitKey(key)
	if err != nil {
		return "", err
	}

	salt := make([]byte, params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(secret), salt, params.Iterations, params.Memory, params.Parallelism, params.KeyLength)

	// Format is $schedkey$<id>$v=19$m=...,t=...,p=...$salt$hash
	return fmt.Sprintf("$%s$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		keyDigestScheme,
		id,
		argon2.Version,
		params.Memory, params.Iterations, params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// VerifyKey checks a presented "<id>.<secret>" key against a stored digest.
func VerifyKey(digest, key string) error {
	id, secret, err := splitKey(key)
	if err != nil {
		return ErrUnauthorized
	}

	decoded, err := parseKeyDigest(digest)
	if err != nil {
		return err
	}

	if subtle.ConstantTimeCompare([]byte(decoded.id), []byte(id)) != 1 {
		return ErrUnauthorized
	}

	candidate := argon2.IDKey([]byte(secret), decoded.salt, decoded.params.Iterations, decoded.params.Memory, decoded.params.Parallelism, decoded.params.KeyLength)
	if subtle.ConstantTimeCompare(decoded.hash, candidate) != 1 {
		return ErrUnauthorized
	}
	return nil
}

// KeyID returns the key ID recorded in a stored digest, for operator-facing
// listings and logs.
func KeyID(digest string) (string, error) {
	decoded, err := parseKeyDigest(digest)
	if err != nil {
		return "", err
	}
	return decoded.id, nil
}

func splitKey(key string) (id, secret string, err error) {
	id, secret, found := strings.Cut(key, ".")
	if !found || id == "" || secret == "" || strings.ContainsAny(id, "$") {
		return "", "", fmt.Errorf("application: api key must have the form <id>.<secret>")
	}
	return id, secret, nil
}

func parseKeyDigest(digest string) (keyDigest, error) {
	parts := strings.Split(digest, "$")
	if len(parts) != 7 || parts[0] != "" || parts[1] != keyDigestScheme || parts[2] == "" {
		return keyDigest{}, ErrInvalidKeyDigest
	}

	version, ok := strings.CutPrefix(parts[3], "v=")
	if !ok {
		return keyDigest{}, ErrInvalidKeyDigest
	}
	if parsed, err := strconv.Atoi(version); err != nil {
		return keyDigest{}, ErrInvalidKeyDigest
	} else if parsed != argon2.Version {
		return keyDigest{}, ErrIncompatibleKeyVersion
	}

	decoded := keyDigest{id: parts[2]}
	for _, field := range strings.Split(parts[4], ",") {
		name, value, found := strings.Cut(field, "=")
		if !found {
			return keyDigest{}, ErrInvalidKeyDigest
		}
		parsed, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return keyDigest{}, ErrInvalidKeyDigest
		}
		switch name {
		case "m":
			decoded.params.Memory = uint32(parsed)
		case "t":
			decoded.params.Iterations = uint32(parsed)
		case "p":
			if parsed > 255 {
				return keyDigest{}, ErrInvalidKeyDigest
			}
			decoded.params.Parallelism = uint8(parsed)
		default:
			return keyDigest{}, ErrInvalidKeyDigest
		}
	}
	if decoded.params.Memory == 0 || decoded.params.Iterations == 0 || decoded.params.Parallelism == 0 {
		return keyDigest{}, ErrInvalidKeyDigest
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return keyDigest{}, ErrInvalidKeyDigest
	}
	hash, err := base64.RawStdEncoding.DecodeString(parts[6])
	if err != nil {
		return keyDigest{}, ErrInvalidKeyDigest
	}
	decoded.salt = salt
	decoded.hash = hash
	decoded.params.SaltLength = uint32(len(salt))
	decoded.params.KeyLength = uint32(len(hash))
	return decoded, nil
}
