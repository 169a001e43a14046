package series

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSliceDelete(t *testing.T) {
	s := Slice[float64]{0.1, 0.2, 0.3, 0.4}
	s.Delete(1)

	if diff := cmp.Diff(Slice[float64]{0.1, 0.3, 0.4}, s); diff != "" {
		t.Errorf("Delete() mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 3, s.Len())
}

func TestSliceSetWritesThrough(t *testing.T) {
	backing := []float32{0.5, 0.5}
	s := Slice[float32](backing)
	s.Set(0, 0.25)

	assert.Equal(t, float32(0.25), backing[0])
}

func TestMasked(t *testing.T) {
	arr := [5]float64{0.2, 0.2, 0.2, 0.2, 0.2}
	m := NewMasked[float64](Slice[float64](arr[:]))

	m.Delete(1)
	m.Delete(2) // slot 3 of the array

	require.Equal(t, 3, m.Len())
	assert.Equal(t, []float64{0.2, 0.2, 0.2}, Values[float64](m))
	assert.Equal(t, [5]float64{0.2, Removed, 0.2, Removed, 0.2}, arr)
	assert.True(t, m.IsRemoved(1))
	assert.True(t, m.IsRemoved(3))
	assert.False(t, m.IsRemoved(4))

	m.Set(2, 0.6)
	assert.Equal(t, 0.6, arr[4])
}

type color struct {
	name    string
	percent float64
}

func (c *color) Percent() float64     { return c.percent }
func (c *color) SetPercent(p float64) { c.percent = p }

func TestBind(t *testing.T) {
	colors := []*color{{"red", 0.5}, {"blue", 0.5}}

	adjusted, err := Bind[float64](colors, func(s Slice[float64]) (bool, error) {
		s.Set(0, 0.75)
		s.Set(1, 0.25)
		return true, nil
	})
	require.NoError(t, err)
	assert.True(t, adjusted)
	assert.Equal(t, 0.75, colors[0].percent)
	assert.Equal(t, 0.25, colors[1].percent)

	errBoom := errors.New("boom")
	_, err = Bind[float64](colors, func(s Slice[float64]) (bool, error) {
		s.Set(0, 0)
		return false, errBoom
	})
	require.ErrorIs(t, err, errBoom)
	assert.Equal(t, 0.75, colors[0].percent, "failed call must not write back")
}

func TestProjectCopies(t *testing.T) {
	colors := []*color{{"red", 0.3}, {"green", 0.7}}
	s := Project[float64](colors)
	s.Set(0, 1)

	assert.Equal(t, 0.3, colors[0].percent)
	assert.Equal(t, Slice[float64]{1, 0.7}, s)
}
