package series

import "slices"

// Float is the element type of a Share Series.
type Float interface {
	~float32 | ~float64
}

// Series is an ordered, fixed-length collection of shares.
type Series[F Float] interface {
	Len() int
	At(i int) F
	Set(i int, v F)
}

// Deleter is a Series that can drop one of its entries.
type Deleter[F Float] interface {
	Series[F]
	// Delete removes the entry at i. Later indices shift down by one.
	Delete(i int)
}

// Slice adapts a plain slice to Series. A *Slice is also a Deleter.
type Slice[F Float] []F

var (
	_ Series[float64]  = Slice[float64]{}
	_ Deleter[float64] = &Slice[float64]{}
	_ Deleter[float32] = &Masked[float32]{}
)

func (s Slice[F]) Len() int { return len(s) }

func (s Slice[F]) At(i int) F { return s[i] }

func (s Slice[F]) Set(i int, v F) { s[i] = v }

func (s *Slice[F]) Delete(i int) {
	*s = slices.Delete(*s, i, i+1)
}

// Values copies the current contents of s.
func Values[F Float](s Series[F]) []F {
	ret := make([]F, s.Len())
	for i := range ret {
		ret[i] = s.At(i)
	}
	return ret
}
