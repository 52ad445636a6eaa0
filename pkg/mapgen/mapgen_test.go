package mapgen

import (
	"testing"
)

func TestGenerateKeepsBorderSolid(t *testing.T) {
	for _, side := range []int{MinSide, 9, DefaultSide, MaxSide} {
		m, err := Generate("gen", Options{Side: side, Seed: 42})
		if err != nil {
			t.Fatalf("Generate(side=%d) error = %v", side, err)
		}
		if m.Width() != side || m.Height() != side {
			t.Fatalf("size = %dx%d, want %dx%d", m.Width(), m.Height(), side, side)
		}
		for i := 0; i < side; i++ {
			if !m.IsSolid(i, 0) || !m.IsSolid(i, side-1) || !m.IsSolid(0, i) || !m.IsSolid(side-1, i) {
				t.Fatalf("side %d: border opened near index %d\n%s", side, i, m)
			}
		}
		if m.IsSolid(side/2, side/2) {
			t.Fatalf("side %d: start tile is solid\n%s", side, m)
		}
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	a, err := Generate("a", Options{Side: 21, Seed: 7})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	b, err := Generate("b", Options{Side: 21, Seed: 7})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if a.String() != b.String() {
		t.Fatalf("same seed produced different maps:\n%s\n%s", a, b)
	}
}

func TestGenerateIsConnected(t *testing.T) {
	m, err := Generate("gen", Options{Side: 25, Seed: 3})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	type pt struct{ x, y int }
	start := pt{m.Width() / 2, m.Height() / 2}
	seen := map[pt]bool{start: true}
	queue := []pt{start}
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		for _, d := range directions {
			n := pt{p.x + d.dx, p.y + d.dy}
			if !seen[n] && !m.IsSolid(n.x, n.y) {
				seen[n] = true
				queue = append(queue, n)
			}
		}
	}
	if len(seen) != m.OpenTiles() {
		t.Fatalf("reached %d of %d open tiles\n%s", len(seen), m.OpenTiles(), m)
	}
}

func TestValidateSide(t *testing.T) {
	for _, side := range []int{MinSide - 1, MaxSide + 1} {
		if _, err := Generate("bad", Options{Side: side}); err == nil {
			t.Errorf("Generate(side=%d) succeeded, want error", side)
		}
	}
}
