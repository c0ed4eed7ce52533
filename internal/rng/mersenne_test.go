package rng

import (
	"os"
	"testing"

	"gopkg.in/yaml.v2"
)

type goldenVector struct {
	Seed     uint32 `yaml:"seed"`
	FirstU32 uint32 `yaml:"first_u32"`
}

func loadGoldenVector(t *testing.T) goldenVector {
	t.Helper()
	raw, err := os.ReadFile("golden_vector.yaml")
	if err != nil {
		t.Fatalf("reading golden vector fixture: %v", err)
	}
	var g goldenVector
	if err := yaml.Unmarshal(raw, &g); err != nil {
		t.Fatalf("decoding golden vector fixture: %v", err)
	}
	return g
}

// TestGoldenVector pins the generator against a frozen, previously
// recorded output.
func TestGoldenVector(t *testing.T) {
	g := loadGoldenVector(t)
	m := New(g.Seed)
	if got := m.NextU32(); got != g.FirstU32 {
		t.Fatalf("NextU32() after seeding with %d = %d, want %d", g.Seed, got, g.FirstU32)
	}
}

func TestDeterministicGivenSameSeed(t *testing.T) {
	const seed = 123456789
	a := New(seed)
	b := New(seed)
	for i := 0; i < 2000; i++ {
		if got, want := a.NextU32(), b.NextU32(); got != want {
			t.Fatalf("draw %d diverged: %d != %d", i, got, want)
		}
	}
}

func TestReseedResetsSequence(t *testing.T) {
	const seed = 42
	a := New(seed)
	for i := 0; i < 50; i++ {
		a.NextU32()
	}
	a.SetSeed(seed)
	b := New(seed)
	for i := 0; i < 50; i++ {
		if got, want := a.NextU32(), b.NextU32(); got != want {
			t.Fatalf("draw %d after reseed diverged: %d != %d", i, got, want)
		}
	}
}

func TestNextU32InPowerOfTwoStaysInRange(t *testing.T) {
	m := New(1)
	for i := 0; i < 1000; i++ {
		v := m.NextU32In(16)
		if v >= 16 {
			t.Fatalf("NextU32In(16) returned %d, out of range", v)
		}
	}
}

func TestNextU32InNonPowerOfTwoStaysInRange(t *testing.T) {
	m := New(2)
	for i := 0; i < 1000; i++ {
		v := m.NextU32In(10)
		if v >= 10 {
			t.Fatalf("NextU32In(10) returned %d, out of range", v)
		}
	}
}

func TestNextF64StaysInUnitInterval(t *testing.T) {
	m := New(3)
	for i := 0; i < 1000; i++ {
		v := m.NextF64()
		if v < 0 || v >= 1 {
			t.Fatalf("NextF64() = %v, out of [0,1)", v)
		}
	}
}

func TestNextGaussianCachesSecondSample(t *testing.T) {
	m := New(4)
	first := m.NextGaussian()
	if !m.hasPrecomputedGaussian {
		t.Fatal("expected a precomputed gaussian to be cached after the first call")
	}
	cached := m.precomputedGaussian
	second := m.NextGaussian()
	if second != cached {
		t.Fatalf("second NextGaussian() call = %v, want cached value %v", second, cached)
	}
	if m.hasPrecomputedGaussian {
		t.Fatal("expected the cache to be consumed after the second call")
	}
	_ = first
}

func TestNextIntZeroMaxReturnsZero(t *testing.T) {
	m := New(5)
	if got := m.NextInt(0); got != 0 {
		t.Fatalf("NextInt(0) = %d, want 0", got)
	}
}

func TestNextIntNegativeMaxReflectsBound(t *testing.T) {
	m := New(6)
	for i := 0; i < 1000; i++ {
		v := m.NextInt(-10)
		if v > 0 || v <= -10 {
			t.Fatalf("NextInt(-10) = %d, want in (-10, 0]", v)
		}
	}
}

// The default NextU64In sign-extends its low draw (the legacy quirk);
// every result must still fall below the bound.
// TestCorrectedU64InDivergesFromLegacy shows the quirk itself.
func TestNextU64InStaysInRange(t *testing.T) {
	m := New(7)
	const bound = uint64(1_000_000_007)
	for i := 0; i < 500; i++ {
		v := m.NextU64In(bound)
		if v >= bound {
			t.Fatalf("NextU64In(%d) = %d, out of range", bound, v)
		}
	}
}

// The corrected zero-extending variant is opt-in; a legacy-seeded
// generator and a corrected one must diverge exactly where the quirk
// bites (a low draw with its top bit set) and nowhere in the underlying
// raw stream.
func TestCorrectedU64InDivergesFromLegacy(t *testing.T) {
	const seed, bound = uint32(99), uint64(1) << 62

	legacy := New(seed)
	corrected := New(seed)
	corrected.CorrectedU64In = true

	diverged := false
	for i := 0; i < 2000; i++ {
		if legacy.NextU64In(bound) != corrected.NextU64In(bound) {
			diverged = true
			break
		}
	}
	if !diverged {
		t.Fatal("expected the sign-extension quirk to surface within 2000 draws")
	}
}

func TestCorrectedU64InStaysInRange(t *testing.T) {
	m := New(7)
	m.CorrectedU64In = true
	const bound = uint64(1_000_000_007)
	for i := 0; i < 500; i++ {
		if v := m.NextU64In(bound); v >= bound {
			t.Fatalf("NextU64In(%d) = %d, out of range", bound, v)
		}
	}
}
