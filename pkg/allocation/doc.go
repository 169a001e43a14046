// Package allocation is the adapter between user actions and the calibration
// engine. It owns named share series ("allocations") whose items carry a
// label and a share, and maps increment, decrement, edit, remove, reset and
// recalibrate actions onto calibrate calls, publishing an event after every
// change.
package allocation
