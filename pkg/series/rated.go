package series

// Rated is anything that carries a share of the whole.
type Rated[F Float] interface {
	Percent() F
	SetPercent(F)
}

// Project copies the percents of objs into a new Slice, in order.
func Project[F Float, T Rated[F]](objs []T) Slice[F] {
	s := make(Slice[F], len(objs))
	for i, o := range objs {
		s[i] = o.Percent()
	}
	return s
}

// WriteBack assigns s[i] to objs[i]. s must not be longer than objs.
func WriteBack[F Float, T Rated[F]](objs []T, s Series[F]) {
	for i := 0; i < s.Len(); i++ {
		objs[i].SetPercent(s.At(i))
	}
}

// Bind projects objs, runs fn on the projection and, unless fn fails,
// writes the results back. A failing fn leaves objs untouched.
func Bind[F Float, T Rated[F]](objs []T, fn func(Slice[F]) (bool, error)) (bool, error) {
	s := Project[F](objs)
	adjusted, err := fn(s)
	if err != nil {
		return false, err
	}
	WriteBack[F](objs, s)
	return adjusted, nil
}
