// Package series defines the containers the calibration engine works on.
//
// A Share Series is any ordered, indexable collection of fractional values
// that should add up to one. The engine only needs Len, At and Set, so the
// same code runs against:
//
//   - Slice: a plain []float32 or []float64
//   - Masked: a fixed-length series whose deleted slots are tombstoned
//   - Rated objects: anything carrying a percent, projected into a Slice
//     with Project and written back with WriteBack (or Bind for both)
//
// The series is always owned by the caller. Nothing in this module keeps a
// reference to it between calls.
package series
