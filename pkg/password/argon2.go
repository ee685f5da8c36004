// Package password hashes and verifies passwords with Argon2id, encoded in PHC format:
// $argon2id$v=19$m=<kib>,t=<iterations>,p=<parallelism>$<salt>$<hash>
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const algorithmID = "argon2id"

var (
	ErrInvalidHash     = errors.New("password: invalid PHC hash")
	ErrUnsupportedHash = errors.New("password: unsupported hash algorithm or version")
	ErrEmptyPassword   = errors.New("password: empty password")
	ErrInvalidParams   = errors.New("password: invalid argon2 parameters")
)

type Params struct {
	MemoryKB    uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultParams follows the OWASP minimum for argon2id.
func DefaultParams() Params {
	return Params{MemoryKB: 19 * 1024, Iterations: 2, Parallelism: 1, SaltLength: 16, KeyLength: 32}
}

type Argon2 struct {
	params Params
}

func NewArgon2(p Params) (*Argon2, error) {
	if p.MemoryKB < 8 || p.Iterations < 1 || p.Parallelism < 1 || p.SaltLength < 8 || p.KeyLength < 16 {
		return nil, ErrInvalidParams
	}
	return &Argon2{params: p}, nil
}

func (a *Argon2) Hash(plain string) (string, error) {
	if plain == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, a.params.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("password: read salt: %w", err)
	}

	key := argon2.IDKey([]byte(plain), salt, a.params.Iterations, a.params.MemoryKB, a.params.Parallelism, a.params.KeyLength)

	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID,
		argon2.Version,
		a.params.MemoryKB,
		a.params.Iterations,
		a.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify recomputes the key with the parameters stored in encoded, so hashes
// made under older parameters keep verifying after a config change.
func (a *Argon2) Verify(plain, encoded string) (bool, error) {
	ph, err := parse(encoded)
	if err != nil {
		return false, err
	}
	key := argon2.IDKey([]byte(plain), ph.salt, ph.params.Iterations, ph.params.MemoryKB, ph.params.Parallelism, uint32(len(ph.key)))
	return subtle.ConstantTimeCompare(key, ph.key) == 1, nil
}

// NeedsRehash reports whether encoded was produced with weaker parameters than the current ones.
func (a *Argon2) NeedsRehash(encoded string) bool {
	ph, err := parse(encoded)
	if err != nil {
		return true
	}
	return ph.params.MemoryKB < a.params.MemoryKB ||
		ph.params.Iterations < a.params.Iterations ||
		ph.params.Parallelism < a.params.Parallelism ||
		uint32(len(ph.key)) != a.params.KeyLength
}

type phc struct {
	params Params
	salt   []byte
	key    []byte
}

func parse(encoded string) (*phc, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, ErrInvalidHash
	}
	if parts[1] != algorithmID || parts[2] != "v="+strconv.Itoa(argon2.Version) {
		return nil, ErrUnsupportedHash
	}

	var p Params
	for _, kv := range strings.Split(parts[3], ",") {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, ErrInvalidHash
		}
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil || n == 0 {
			return nil, ErrInvalidHash
		}
		switch k {
		case "m":
			p.MemoryKB = uint32(n)
		case "t":
			p.Iterations = uint32(n)
		case "p":
			if n > 255 {
				return nil, ErrInvalidHash
			}
			p.Parallelism = uint8(n)
		default:
			return nil, ErrInvalidHash
		}
	}
	if p.MemoryKB == 0 || p.Iterations == 0 || p.Parallelism == 0 {
		return nil, ErrInvalidHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return nil, ErrInvalidHash
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return nil, ErrInvalidHash
	}
	p.SaltLength = uint32(len(salt))
	p.KeyLength = uint32(len(key))

	return &phc{params: p, salt: salt, key: key}, nil
}
