package index

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestArgon2IndexScenario(t *testing.T) {
	seed := []byte{0x01, 0, 0, 0}
	got := Argon2Index(seed, 1000)
	require.Equal(t, uint64(999), got)
}

func TestPhiVariantsScenario(t *testing.T) {
	const i, a = uint64(1024), uint64(100)

	cases := map[int]uint64{
		0:  1023,
		2:  562,
		3:  896,
		10: 87,
		11: 896,
	}
	for k, want := range cases {
		got := Phi(k, i, a)
		require.Equalf(t, want, got, "Phi(%d, %d, %d)", k, i, a)
	}
}

func TestPhiZeroIndexIsAlwaysZero(t *testing.T) {
	for k := 0; k < PhiVariantCount; k++ {
		require.Zero(t, Phi(k, 0, 42))
	}
}

func TestPhiResultIsAlwaysInRange(t *testing.T) {
	for i := uint64(1); i < 200; i++ {
		for a := uint64(0); a < 200; a += 7 {
			for k := 0; k < PhiVariantCount; k++ {
				got := Phi(k, i, a)
				require.Lessf(t, got, i, "Phi(%d, %d, %d) = %d out of range", k, i, a, got)
			}
		}
	}
}

func TestPhiVariantWrapsModuloCount(t *testing.T) {
	require.Equal(t, Phi(0, 50, 5), Phi(12, 50, 5))
	require.Equal(t, Phi(1, 50, 5), Phi(13, 50, 5))
}
