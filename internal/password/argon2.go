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
	argon2Prefix = "$argon2id$"

	minArgon2Memory uint32 = 8 * 1024
	minArgon2Salt   uint32 = 16
	minArgon2Key    uint32 = 16

	// upper bounds also apply to parsed hashes, so a stored hash cannot
	// make Verify allocate or spin without limit
	maxArgon2Memory uint32 = 1024 * 1024 // 1 GiB
	maxArgon2Time   uint32 = 32
	maxArgon2Salt   uint32 = 64
	maxArgon2Key    uint32 = 128
)

// Argon2Params are encoded into every argon2id hash in PHC form:
//
//	$argon2id$v=19$m=65536,t=3,p=2$<salt>$<key>
type Argon2Params struct {
	Memory      uint32 // KiB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func (p Argon2Params) validate() error {
	switch {
	case p.Memory < minArgon2Memory || p.Memory > maxArgon2Memory:
		return fmt.Errorf("argon2 memory must be within %d..%d KiB", minArgon2Memory, maxArgon2Memory)
	case p.Time < 1 || p.Time > maxArgon2Time:
		return fmt.Errorf("argon2 time must be within 1..%d", maxArgon2Time)
	case p.Parallelism < 1:
		return errors.New("argon2 parallelism must be >= 1")
	case p.SaltLength < minArgon2Salt || p.SaltLength > maxArgon2Salt:
		return fmt.Errorf("argon2 salt length must be within %d..%d", minArgon2Salt, maxArgon2Salt)
	case p.KeyLength < minArgon2Key || p.KeyLength > maxArgon2Key:
		return fmt.Errorf("argon2 key length must be within %d..%d", minArgon2Key, maxArgon2Key)
	}
	return nil
}

type argon2Scheme struct {
	params Argon2Params
}

func newArgon2(params Argon2Params) (*argon2Scheme, error) {
	if params == (Argon2Params{}) {
		params = DefaultArgon2Params()
	}
	if err := params.validate(); err != nil {
		return nil, err
	}
	return &argon2Scheme{params: params}, nil
}

func (a *argon2Scheme) hash(plaintext string) (string, error) {
	salt := make([]byte, a.params.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("%w: %v", ErrHashFailure, err)
	}

	key := argon2.IDKey(
		[]byte(plaintext),
		salt,
		a.params.Time,
		a.params.Memory,
		a.params.Parallelism,
		a.params.KeyLength,
	)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		a.params.Memory,
		a.params.Time,
		a.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

func (a *argon2Scheme) verify(plaintext string, encoded string) (bool, error) {
	phc, err := parseArgon2(encoded)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrHashFailure, err)
	}

	computed := argon2.IDKey(
		[]byte(plaintext),
		phc.salt,
		phc.params.Time,
		phc.params.Memory,
		phc.params.Parallelism,
		phc.params.KeyLength,
	)
	return subtle.ConstantTimeCompare(computed, phc.key) == 1, nil
}

func (a *argon2Scheme) recognizes(encoded string) bool {
	return strings.HasPrefix(encoded, argon2Prefix)
}

func (a *argon2Scheme) weakerThanConfigured(encoded string) bool {
	phc, err := parseArgon2(encoded)
	if err != nil {
		return false
	}
	return phc.params.Memory < a.params.Memory ||
		phc.params.Time < a.params.Time ||
		phc.params.Parallelism < a.params.Parallelism ||
		phc.params.KeyLength != a.params.KeyLength
}

type argon2Hash struct {
	params Argon2Params
	salt   []byte
	key    []byte
}

func parseArgon2(encoded string) (*argon2Hash, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return nil, errors.New("invalid PHC format")
	}

	if parts[2] != "v="+strconv.Itoa(argon2.Version) {
		return nil, fmt.Errorf("unsupported argon2 version %q", parts[2])
	}

	var params Argon2Params
	var seen int
	for _, pair := range strings.Split(parts[3], ",") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid parameter %q", pair)
		}
		switch k {
		case "m":
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil || uint32(n) < minArgon2Memory || uint32(n) > maxArgon2Memory {
				return nil, errors.New("invalid memory parameter")
			}
			params.Memory = uint32(n)
		case "t":
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil || n < 1 || uint32(n) > maxArgon2Time {
				return nil, errors.New("invalid time parameter")
			}
			params.Time = uint32(n)
		case "p":
			n, err := strconv.ParseUint(v, 10, 8)
			if err != nil || n < 1 {
				return nil, errors.New("invalid parallelism parameter")
			}
			params.Parallelism = uint8(n)
		default:
			return nil, fmt.Errorf("unsupported parameter %q", k)
		}
		seen++
	}
	if seen != 3 || params.Memory == 0 || params.Time == 0 || params.Parallelism == 0 {
		return nil, errors.New("missing parameters")
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || uint32(len(salt)) < minArgon2Salt || uint32(len(salt)) > maxArgon2Salt {
		return nil, errors.New("invalid salt")
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || uint32(len(key)) < minArgon2Key || uint32(len(key)) > maxArgon2Key {
		return nil, errors.New("invalid key")
	}

	params.SaltLength = uint32(len(salt))
	params.KeyLength = uint32(len(key))
	return &argon2Hash{params: params, salt: salt, key: key}, nil
}
