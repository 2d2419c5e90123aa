// Package random даёт источник случайности для розыгрышей и кейсов.
// В проде используется crypto/rand, в тестах подставляется детерминированный PCG.
package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
)

// cryptoSource реализует rand.Source поверх crypto/rand.
// Результат нельзя ни предсказать, ни воспроизвести со стороны клиента.
type cryptoSource struct{}

func (cryptoSource) Uint64() uint64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		// crypto/rand.Read не возвращает ошибок на поддерживаемых платформах.
		panic("random: crypto/rand недоступен: " + err.Error())
	}
	return binary.LittleEndian.Uint64(b[:])
}

// Secure возвращает генератор на криптостойком источнике.
// *rand.Rand с этим источником безопасен для конкурентного использования,
// так как у источника нет состояния.
func Secure() *rand.Rand {
	return rand.New(cryptoSource{})
}

// Seeded возвращает детерминированный генератор (для тестов).
func Seeded(seed1, seed2 uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed1, seed2))
}

// Sample возвращает k различных индексов из [0, n) в порядке выбора
// (частичное тасование Фишера–Йетса). Если k > n, возвращается n индексов.
func Sample(r *rand.Rand, n, k int) []int {
	if n <= 0 || k <= 0 {
		return nil
	}
	if k > n {
		k = n
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	for i := 0; i < k; i++ {
		j := i + r.IntN(n-i)
		idx[i], idx[j] = idx[j], idx[i]
	}
	return idx[:k]
}
