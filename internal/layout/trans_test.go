package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrans_Apply(t *testing.T) {
	t.Parallel()

	p := Point{3, 1}
	tests := []struct {
		name string
		tr   Trans
		want Point
	}{
		{"identity", Trans{}, Point{3, 1}},
		{"translate", Translate(10, -5), Point{13, -4}},
		{"r90", Trans{Rot: R90}, Point{-1, 3}},
		{"r180", Trans{Rot: R180, Disp: Point{0, 7}}, Point{-3, 6}},
		{"r270", Trans{Rot: R270}, Point{1, -3}},
		{"mirror", Trans{Mirror: true}, Point{3, -1}},
		{"mirror r90", Trans{Rot: R90, Mirror: true}, Point{1, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.tr.Apply(p))
		})
	}
}

func TestTrans_ComposeAndInverse(t *testing.T) {
	t.Parallel()

	var all []Trans
	for _, m := range []bool{false, true} {
		for r := R0; r <= R270; r++ {
			all = append(all, Trans{Rot: r, Mirror: m, Disp: Point{int64(r) * 7, -11}})
		}
	}
	pts := []Point{{0, 0}, {5, 2}, {-3, 9}}

	for _, a := range all {
		inv := a.Inverse()
		for _, p := range pts {
			assert.Equal(t, p, inv.Apply(a.Apply(p)), "%s inverse", a)
		}
		for _, b := range all {
			c := a.Compose(b)
			for _, p := range pts {
				assert.Equal(t, a.Apply(b.Apply(p)), c.Apply(p), "%s after %s", a, b)
			}
		}
	}
}

func TestTrans_ApplyBox(t *testing.T) {
	b := Box{0, 0, 10, 4}
	got := Trans{Rot: R90, Disp: Point{1, 1}}.ApplyBox(b)
	assert.Equal(t, Box{-3, 1, 1, 11}, got)
	assert.Equal(t, int64(4), got.Width())
}

func TestBox(t *testing.T) {
	b := NewBox(5, 8, -1, 2)
	assert.Equal(t, Box{-1, 2, 5, 8}, b)
	assert.True(t, b.Contains(Point{5, 8}))
	assert.False(t, b.Contains(Point{6, 8}))
	assert.Equal(t, Box{-2, 1, 6, 9}, b.Enlarge(1))
	assert.True(t, b.Intersect(Box{10, 10, 20, 20}).Empty())
	assert.Equal(t, Box{-1, 0, 5, 8}, b.Union(Box{0, 0, 1, 1}))
}
