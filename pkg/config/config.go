package config

import "github.com/sirupsen/logrus"

type Config interface {
	// Precision is the number of decimal places within which shares must
	// sum to one.
	Precision() int
	// Magnitude is the step of one increment or decrement.
	Magnitude() float64
	// RecalibrateSchedule is a cron expression for periodic drift
	// recalibration. Empty disables it.
	RecalibrateSchedule() string
	AllowNonRootAccess() bool

	SetPrecision(int) error
	SetMagnitude(float64) error
	SetRecalibrateSchedule(string)
	SetAllowNonRootAccess(bool)

	LogrusFields() logrus.Fields

	// Load reads the configuration from the source.
	Load() error
	// Save saves the configuration to the source.
	Save() error
}
