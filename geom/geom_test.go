package geom

import (
	"errors"
	"testing"
)

func TestRegion_HalfOpenContains(t *testing.T) {
	r := Region{X: 10, Y: 20, W: 30, H: 40}

	if !r.Contains(r.TopLeft()) {
		t.Fatal("top-left corner must be contained")
	}
	if r.Contains(r.BottomRight()) {
		t.Fatal("bottom-right corner is exclusive")
	}
	if !r.Contains(Location{39, 59}) {
		t.Fatal("last interior pixel must be contained")
	}
	for _, p := range []Location{{40, 59}, {39, 60}, {9, 20}} {
		if r.Contains(p) {
			t.Fatalf("point %v must be outside", p)
		}
	}
}

func TestRegion_OffsetPreservesArea(t *testing.T) {
	cases := []struct {
		r      Region
		dx, dy int
	}{
		{Region{0, 0, 5, 7}, 3, -4},
		{Region{-100, -200, 1920, 1080}, 0, 0},
		{Region{-5, 9, 1, 1}, -1000, 1000},
	}
	for _, tc := range cases {
		moved := tc.r.Offset(tc.dx, tc.dy)
		if moved.Area() != tc.r.Area() {
			t.Fatalf("offset changed area: %v -> %v", tc.r, moved)
		}
		if moved.X != tc.r.X+tc.dx || moved.Y != tc.r.Y+tc.dy {
			t.Fatalf("wrong origin after offset: %v", moved)
		}
	}
}

func TestRegion_Center(t *testing.T) {
	// Even dimensions give the exact midpoint; odd dimensions round the
	// half-pixel midpoint toward +inf.
	cases := []struct {
		r    Region
		want Location
	}{
		{Region{0, 0, 4, 4}, Location{2, 2}},
		{Region{0, 0, 5, 5}, Location{3, 3}},
		{Region{523, 304, 40, 40}, Location{543, 324}},
	}
	for _, tc := range cases {
		if got := tc.r.Center(); got != tc.want {
			t.Fatalf("center of %v: got %v want %v", tc.r, got, tc.want)
		}
	}
	// Stable across identical regions.
	a := Region{7, -3, 11, 6}
	if a.Center() != a.Center() {
		t.Fatal("center not stable")
	}
}

func TestRegion_Intersection(t *testing.T) {
	a := Region{0, 0, 10, 10}
	b := Region{5, 5, 10, 10}
	got, ok := a.Intersection(b)
	if !ok {
		t.Fatal("expected overlap")
	}
	if got != (Region{5, 5, 5, 5}) {
		t.Fatalf("wrong intersection %v", got)
	}

	// Touching edges do not overlap under half-open semantics.
	c := Region{10, 0, 5, 5}
	if _, ok := a.Intersection(c); ok {
		t.Fatal("touching edges must not intersect")
	}
	if a.Intersects(c) {
		t.Fatal("touching edges must not report intersection")
	}
}

func TestRegion_Expand(t *testing.T) {
	r := Region{10, 10, 4, 4}

	grown, err := r.Expand(2)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if grown != (Region{8, 8, 8, 8}) {
		t.Fatalf("wrong expansion %v", grown)
	}

	same, err := r.Expand(0)
	if err != nil {
		t.Fatalf("expand(0): %v", err)
	}
	if same != r {
		t.Fatalf("expand(0) must be identity, got %v", same)
	}

	if _, err := r.Expand(-2); !errors.Is(err, ErrInvalidRegion) {
		t.Fatalf("expected ErrInvalidRegion, got %v", err)
	}
}

func TestNewRegion_RejectsDegenerate(t *testing.T) {
	for _, wh := range [][2]int{{0, 5}, {5, 0}, {-1, 5}, {5, -1}, {0, 0}} {
		if _, err := NewRegion(0, 0, wh[0], wh[1]); !errors.Is(err, ErrInvalidRegion) {
			t.Fatalf("w=%d h=%d: expected ErrInvalidRegion, got %v", wh[0], wh[1], err)
		}
	}
}

func TestGrow_ClampsToBounds(t *testing.T) {
	bounds := Region{0, 0, 100, 100}
	r := Grow(Location{2, 2}, 10, bounds)
	if !bounds.ContainsRegion(r) {
		t.Fatalf("grown region %v escapes bounds", r)
	}
	if r.X != 0 || r.Y != 0 {
		t.Fatalf("expected clamp to origin, got %v", r)
	}

	r = Grow(Location{99, 99}, 10, bounds)
	if !bounds.ContainsRegion(r) {
		t.Fatalf("grown region %v escapes bounds", r)
	}
}

func TestColor_Clamp(t *testing.T) {
	c := NewColor(-0.1, 1.2, 0.5, 2)
	if c.R != 0 || c.G != 1 || c.B != 0.5 || c.A != 1 {
		t.Fatalf("channels not clamped: %+v", c)
	}
}
