package common

import (
	"strings"
	"unicode/utf8"
)

// maxPlayerIDLen — ограничение на длину внешнего id (steam:..., discord:...).
const maxPlayerIDLen = 128

// NormalizePlayerID проверяет и нормализует внешний id игрока.
func NormalizePlayerID(raw string) (string, error) {
	id := strings.TrimSpace(raw)
	if id == "" || len(id) > maxPlayerIDLen || !utf8.ValidString(id) {
		return "", ErrInvalidPlayerID
	}
	return id, nil
}
