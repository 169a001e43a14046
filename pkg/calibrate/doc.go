// Package calibrate keeps a Share Series summing to one while single shares
// are nudged, reset or removed.
//
// All operations are pure, synchronous transformations of a caller-owned
// series.Series. They never retain the series and never run concurrently on
// their own; callers sharing a series between goroutines must serialize
// access themselves.
//
// Every operation returns whether the series was changed. Ordinary "nothing
// to do" conditions (zero magnitude, a share already at its limit, a sum that
// is already close enough to one) are reported as false with a nil error.
// Only malformed arguments produce ErrInvalidArgument, and in that case the
// series is left untouched.
package calibrate
