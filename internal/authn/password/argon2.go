// Package password provides cost-tunable one-way password hashing built on
// argon2id. Hashes are serialized in PHC string format so parameters travel
// with the hash and can be raised without re-hashing the world at once.
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

const (
	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16
	algorithmID           = "argon2id"
)

// Config tunes the argon2id cost parameters.
type Config struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultConfig is a reasonable interactive-login cost profile.
func DefaultConfig() Config {
	return Config{
		Memory:      64 * 1024,
		Time:        2,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Hasher hashes and verifies passwords. Safe for concurrent use.
type Hasher struct {
	config Config
}

// NewHasher validates cfg and returns a Hasher.
func NewHasher(cfg Config) (*Hasher, error) {
	if cfg.Memory < minMemoryKB {
		return nil, errors.New("password: memory must be >= 8192 KB")
	}
	if cfg.Time < minTimeCost {
		return nil, errors.New("password: time must be >= 1")
	}
	if cfg.Parallelism < minParallelism {
		return nil, errors.New("password: parallelism must be >= 1")
	}
	if cfg.SaltLength < minSaltLength {
		return nil, errors.New("password: salt length must be >= 16")
	}
	if cfg.KeyLength < minKeyLength {
		return nil, errors.New("password: key length must be >= 16")
	}
	return &Hasher{config: cfg}, nil
}

// Hash derives an argon2id hash of password under a fresh random salt and
// returns it PHC-encoded.
func (h *Hasher) Hash(password string) (string, error) {
	if password == "" {
		return "", errors.New("password: empty password")
	}

	salt := make([]byte, h.config.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	key := argon2.IDKey(
		[]byte(password),
		salt,
		h.config.Time,
		h.config.Memory,
		h.config.Parallelism,
		h.config.KeyLength,
	)

	return fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID,
		argon2.Version,
		h.config.Memory,
		h.config.Time,
		h.config.Parallelism,
		base64.StdEncoding.EncodeToString(salt),
		base64.StdEncoding.EncodeToString(key),
	), nil
}

// Verify recomputes the hash of password under the parameters encoded in
// encodedHash and compares in constant time. A mismatch is (false, nil), never
// an error; errors indicate an unparseable hash.
func (h *Hasher) Verify(password, encodedHash string) (bool, error) {
	parsed, err := parsePHC(encodedHash)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey(
		[]byte(password),
		parsed.salt,
		parsed.time,
		parsed.memory,
		parsed.parallelism,
		uint32(len(parsed.hash)),
	)

	return subtle.ConstantTimeCompare(computed, parsed.hash) == 1, nil
}

type parsedPHC struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	hash        []byte
}

func parsePHC(encodedHash string) (*parsedPHC, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, errors.New("password: invalid PHC format")
	}
	if parts[1] != algorithmID {
		return nil, errors.New("password: unsupported algorithm")
	}

	if !strings.HasPrefix(parts[2], "v=") {
		return nil, errors.New("password: missing argon2 version")
	}
	version, err := strconv.Atoi(strings.TrimPrefix(parts[2], "v="))
	if err != nil || version != argon2.Version {
		return nil, errors.New("password: unsupported argon2 version")
	}

	parsed := &parsedPHC{}
	if err := parseParams(parts[3], parsed); err != nil {
		return nil, err
	}

	parsed.salt, err = base64.StdEncoding.DecodeString(parts[4])
	if err != nil || len(parsed.salt) < int(minSaltLength) {
		return nil, errors.New("password: invalid salt")
	}

	parsed.hash, err = base64.StdEncoding.DecodeString(parts[5])
	if err != nil || len(parsed.hash) == 0 {
		return nil, errors.New("password: invalid hash")
	}

	return parsed, nil
}

func parseParams(part string, out *parsedPHC) error {
	pairs := strings.Split(part, ",")
	if len(pairs) != 3 {
		return errors.New("password: invalid parameter format")
	}

	var memorySet, timeSet, parallelismSet bool
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return errors.New("password: invalid parameter entry")
		}
		switch key {
		case "m":
			v, err := strconv.ParseUint(value, 10, 32)
			if err != nil || v < uint64(minMemoryKB) {
				return errors.New("password: invalid memory parameter")
			}
			out.memory = uint32(v)
			memorySet = true
		case "t":
			v, err := strconv.ParseUint(value, 10, 32)
			if err != nil || v < uint64(minTimeCost) {
				return errors.New("password: invalid time parameter")
			}
			out.time = uint32(v)
			timeSet = true
		case "p":
			v, err := strconv.ParseUint(value, 10, 8)
			if err != nil || v < uint64(minParallelism) {
				return errors.New("password: invalid parallelism parameter")
			}
			out.parallelism = uint8(v)
			parallelismSet = true
		default:
			return errors.New("password: unsupported parameter")
		}
	}

	if !memorySet || !timeSet || !parallelismSet {
		return errors.New("password: missing parameters")
	}
	return nil
}
