package common

import (
	"strings"
	"testing"
	"time"
	"unicode"

	"github.com/stretchr/testify/assert"
)

func normalizeSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return ' '
		}
		return r
	}, s)
}

func TestPluralizeSouls(t *testing.T) {
	cases := map[int64]string{
		0:   "душ",
		1:   "душа",
		2:   "души",
		4:   "души",
		5:   "душ",
		11:  "душ",
		12:  "душ",
		21:  "душа",
		22:  "души",
		111: "душ",
		-1:  "душа",
		-3:  "души",
	}
	for n, want := range cases {
		assert.Equal(t, want, PluralizeSouls(n), "n=%d", n)
	}
}

func TestFormatBalance(t *testing.T) {
	assert.Equal(t, "150 душ", normalizeSpaces(FormatBalance(150)))
	assert.Equal(t, "2 350 душ", normalizeSpaces(FormatBalance(2350)))
	assert.Equal(t, "+1 душа", normalizeSpaces(FormatSoulsAmount(1)))
	assert.Equal(t, "-50 душ", normalizeSpaces(FormatSoulsAmount(-50)))
}

func TestFormatDateTime(t *testing.T) {
	ts := time.Date(2026, time.March, 1, 21, 30, 0, 0, time.UTC)
	assert.Equal(t, "02.03.2026 00:30", FormatDateTime(ts, time.FixedZone("MSK", 3*60*60)))
	assert.Equal(t, "01.03.2026 21:30", FormatDateTime(ts, nil))
}

func TestLoadLocationFallback(t *testing.T) {
	loc := LoadLocation("Nowhere/Atlantis")
	_, offset := time.Date(2026, 1, 1, 0, 0, 0, 0, loc).Zone()
	assert.Equal(t, 3*60*60, offset)
}
