package admin

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// encodedHash — разобранный хеш вида $argon2id$v=19$m=65536,t=3,p=2$<salt>$<hash>.
type encodedHash struct {
	params Params
	salt   []byte
	hash   []byte
}

func parseHash(encoded string) (*encodedHash, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return nil, fmt.Errorf("некорректный формат хеша Argon2id")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return nil, fmt.Errorf("неподдерживаемая версия Argon2id %q", parts[2])
	}

	var h encodedHash
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d",
		&h.params.Memory, &h.params.Iterations, &h.params.Parallelism); err != nil {
		return nil, fmt.Errorf("ошибка парсинга параметров Argon2id: %w", err)
	}

	var err error
	if h.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return nil, fmt.Errorf("ошибка декодирования соли: %w", err)
	}
	if h.hash, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil {
		return nil, fmt.Errorf("ошибка декодирования хеша: %w", err)
	}
	if len(h.hash) == 0 {
		return nil, fmt.Errorf("пустой хеш Argon2id")
	}
	h.params.SaltLength = uint32(len(h.salt))
	h.params.KeyLength = uint32(len(h.hash))
	return &h, nil
}

// matches сравнивает ключ с хешем в постоянном времени.
func (h *encodedHash) matches(key string) bool {
	p := h.params
	computed := argon2.IDKey([]byte(key), h.salt, p.Iterations, p.Memory, p.Parallelism, p.KeyLength)
	return subtle.ConstantTimeCompare(computed, h.hash) == 1
}

// HashKey строит хеш ключа для ADMIN_KEY_HASH (scripts/generate_hash.go).
func HashKey(key string, p Params) (string, error) {
	salt := make([]byte, p.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("ошибка генерации соли: %w", err)
	}
	hash := argon2.IDKey([]byte(key), salt, p.Iterations, p.Memory, p.Parallelism, p.KeyLength)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.Memory, p.Iterations, p.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash)), nil
}
