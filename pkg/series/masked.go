package series

import "slices"

// Removed is the value written into a slot of the underlying storage once it
// has been deleted through a Masked view.
const Removed = 0

// Masked is a Deleter over storage whose length cannot change, such as a
// fixed-size array. Deleted slots are overwritten with Removed and hidden
// from every later Len, At and Set, so they take no part in any further
// calibration.
type Masked[F Float] struct {
	base Series[F]
	live []int
}

// NewMasked returns a view exposing every slot of base.
func NewMasked[F Float](base Series[F]) *Masked[F] {
	live := make([]int, base.Len())
	for i := range live {
		live[i] = i
	}
	return &Masked[F]{base: base, live: live}
}

func (m *Masked[F]) Len() int { return len(m.live) }

func (m *Masked[F]) At(i int) F { return m.base.At(m.live[i]) }

func (m *Masked[F]) Set(i int, v F) { m.base.Set(m.live[i], v) }

func (m *Masked[F]) Delete(i int) {
	m.base.Set(m.live[i], Removed)
	m.live = slices.Delete(m.live, i, i+1)
}

// IsRemoved reports whether slot j of the underlying storage was deleted.
func (m *Masked[F]) IsRemoved(j int) bool {
	return !slices.Contains(m.live, j)
}
