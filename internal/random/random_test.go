package random

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSampleDistinctAndBounded(t *testing.T) {
	r := Seeded(1, 2)
	for n := 1; n <= 20; n++ {
		for k := 0; k <= n+3; k++ {
			got := Sample(r, n, k)
			want := k
			if want > n {
				want = n
			}
			require.Len(t, got, want)

			seen := make(map[int]bool)
			for _, i := range got {
				assert.True(t, i >= 0 && i < n)
				assert.False(t, seen[i], "индекс %d выбран дважды", i)
				seen[i] = true
			}
		}
	}
}

func TestSampleDeterministicWithSeed(t *testing.T) {
	assert.Equal(t, Sample(Seeded(7, 7), 50, 5), Sample(Seeded(7, 7), 50, 5))
}

func TestSampleRoughlyUniform(t *testing.T) {
	r := Seeded(3, 4)
	const n, rounds = 5, 50000
	counts := make([]int, n)
	for i := 0; i < rounds; i++ {
		counts[Sample(r, n, 1)[0]]++
	}
	for i, c := range counts {
		assert.InDelta(t, rounds/n, c, rounds/n*0.1, "индекс %d", i)
	}
}

func TestSecureProducesValues(t *testing.T) {
	r := Secure()
	seen := make(map[uint64]bool)
	for i := 0; i < 100; i++ {
		seen[r.Uint64()] = true
	}
	assert.Greater(t, len(seen), 95)

	f := r.Float64()
	assert.True(t, f >= 0 && f < 1)
}
