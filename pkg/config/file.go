package config

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/caarlos0/env/v11"
	pkgerrors "github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/charlie0129/apportion/pkg/calibrate"
	"github.com/charlie0129/apportion/pkg/utils/ptr"
)

var (
	defaultFileConfig = &RawFileConfig{
		Precision: ptr.To(calibrate.StandardPrecision),
		Magnitude: ptr.To(calibrate.StandardMagnitude),
		// Drift stays well below the tolerance for everyday use, so periodic
		// recalibration is opt-in.
		RecalibrateSchedule: ptr.To(""),
		AllowNonRootAccess:  ptr.To(false),
	}

	// CronParser parses RecalibrateSchedule. Shared with the daemon scheduler
	// so that anything accepted here can also be scheduled.
	CronParser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
)

var _ Config = &File{}

type File struct {
	c        *RawFileConfig
	env      *EnvConfig
	mu       *sync.RWMutex
	filepath string
}

func NewFile(configPath string) (*File, error) {
	f := &File{
		filepath: configPath,
		mu:       &sync.RWMutex{},
	}
	err := f.Load()
	if err != nil {
		return nil, err
	}

	return f, nil
}

func NewFileFromConfig(c *RawFileConfig, configPath string) *File {
	if c == nil {
		c = &RawFileConfig{}
	}

	f := &File{
		c:        c,
		env:      &EnvConfig{},
		mu:       &sync.RWMutex{},
		filepath: configPath,
	}

	return f
}

type RawFileConfig struct {
	Precision           *int     `json:"precision,omitempty" yaml:"precision,omitempty"`
	Magnitude           *float64 `json:"magnitude,omitempty" yaml:"magnitude,omitempty"`
	RecalibrateSchedule *string  `json:"recalibrateSchedule,omitempty" yaml:"recalibrateSchedule,omitempty"`
	AllowNonRootAccess  *bool    `json:"allowNonRootAccess,omitempty" yaml:"allowNonRootAccess,omitempty"`
}

// EnvConfig holds overrides read from the environment. They take precedence
// over the file but are never written back by Save.
type EnvConfig struct {
	Precision           *int     `env:"APPORTION_PRECISION"`
	Magnitude           *float64 `env:"APPORTION_MAGNITUDE"`
	RecalibrateSchedule *string  `env:"APPORTION_RECALIBRATE_SCHEDULE"`
}

func NewRawFileConfigFromConfig(c Config) (*RawFileConfig, error) {
	if c == nil {
		return nil, pkgerrors.New("config is nil")
	}

	rawConfig := &RawFileConfig{
		Precision:           ptr.To(c.Precision()),
		Magnitude:           ptr.To(c.Magnitude()),
		RecalibrateSchedule: ptr.To(c.RecalibrateSchedule()),
		AllowNonRootAccess:  ptr.To(c.AllowNonRootAccess()),
	}

	return rawConfig, nil
}

// ValidatePrecision checks p against the range the calibration engine accepts.
func ValidatePrecision(p int) error {
	if p < 0 || p > calibrate.MaxPrecision {
		return pkgerrors.Errorf("precision must be between 0 and %d, got %d", calibrate.MaxPrecision, p)
	}
	return nil
}

// ValidateMagnitude checks that m is a usable step for increment/decrement.
func ValidateMagnitude(m float64) error {
	if !(m > 0 && m <= 1) {
		return pkgerrors.Errorf("magnitude must be greater than 0 and at most 1, got %v", m)
	}
	return nil
}

// ValidateSchedule checks that expr is empty or a valid cron expression.
func ValidateSchedule(expr string) error {
	if expr == "" {
		return nil
	}
	if _, err := CronParser.Parse(expr); err != nil {
		return pkgerrors.Wrapf(err, "invalid recalibrate schedule %q", expr)
	}
	return nil
}

func (f *File) Precision() int {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	var precision int

	switch {
	case f.env.Precision != nil:
		precision = *f.env.Precision
	case f.c.Precision != nil:
		precision = *f.c.Precision
	default:
		precision = *defaultFileConfig.Precision
	}

	return precision
}

func (f *File) Magnitude() float64 {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	var magnitude float64

	switch {
	case f.env.Magnitude != nil:
		magnitude = *f.env.Magnitude
	case f.c.Magnitude != nil:
		magnitude = *f.c.Magnitude
	default:
		magnitude = *defaultFileConfig.Magnitude
	}

	return magnitude
}

func (f *File) RecalibrateSchedule() string {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	var schedule string

	switch {
	case f.env.RecalibrateSchedule != nil:
		schedule = *f.env.RecalibrateSchedule
	case f.c.RecalibrateSchedule != nil:
		schedule = *f.c.RecalibrateSchedule
	default:
		schedule = *defaultFileConfig.RecalibrateSchedule
	}

	return schedule
}

func (f *File) AllowNonRootAccess() bool {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	var allowNonRootAccess bool

	if f.c.AllowNonRootAccess != nil {
		allowNonRootAccess = *f.c.AllowNonRootAccess
	} else {
		allowNonRootAccess = *defaultFileConfig.AllowNonRootAccess
	}

	return allowNonRootAccess
}

func (f *File) SetPrecision(i int) error {
	if f.c == nil {
		panic("config is nil")
	}

	if err := ValidatePrecision(i); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.Precision = &i

	return nil
}

func (f *File) SetMagnitude(m float64) error {
	if f.c == nil {
		panic("config is nil")
	}

	if err := ValidateMagnitude(m); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.Magnitude = &m

	return nil
}

func (f *File) SetRecalibrateSchedule(s string) {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.RecalibrateSchedule = &s
}

func (f *File) SetAllowNonRootAccess(b bool) {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.c.AllowNonRootAccess = &b
}

func (f *File) isYAML() bool {
	switch strings.ToLower(filepath.Ext(f.filepath)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

func (f *File) Load() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	envConf := &EnvConfig{}
	if err := env.Parse(envConf); err != nil {
		return pkgerrors.Wrap(err, "failed to parse environment overrides")
	}
	if envConf.Precision != nil {
		if err := ValidatePrecision(*envConf.Precision); err != nil {
			return pkgerrors.Wrap(err, "invalid APPORTION_PRECISION")
		}
	}
	if envConf.Magnitude != nil {
		if err := ValidateMagnitude(*envConf.Magnitude); err != nil {
			return pkgerrors.Wrap(err, "invalid APPORTION_MAGNITUDE")
		}
	}
	if envConf.RecalibrateSchedule != nil {
		if err := ValidateSchedule(*envConf.RecalibrateSchedule); err != nil {
			return pkgerrors.Wrap(err, "invalid APPORTION_RECALIBRATE_SCHEDULE")
		}
	}
	f.env = envConf

	fp, err := os.Open(f.filepath)
	if err != nil {
		if os.IsNotExist(err) {
			// If the file does not exist, return the empty config.
			// Do not make f.c a nil.
			f.c = &RawFileConfig{}
			return nil
		}
		return pkgerrors.Wrapf(err, "failed to open file %s", f.filepath)
	}
	defer func(fp *os.File) {
		err := fp.Close()
		if err != nil {
			logrus.Warnf("failed to close file %s", f.filepath)
		}
	}(fp)

	// Since we want to tell if the file is empty, using json.Decoder will
	// not work.
	b, err := io.ReadAll(fp)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to read file %s", f.filepath)
	}

	if strings.TrimSpace(string(b)) == "" {
		f.c = &RawFileConfig{}
		return nil
	}

	conf := RawFileConfig{}
	if f.isYAML() {
		err = yaml.Unmarshal(b, &conf)
	} else {
		err = json.Unmarshal(b, &conf)
	}
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to unmarshal config from file %s", f.filepath)
	}

	if conf.Precision != nil {
		if err := ValidatePrecision(*conf.Precision); err != nil {
			return pkgerrors.Wrapf(err, "invalid config file %s", f.filepath)
		}
	}
	if conf.Magnitude != nil {
		if err := ValidateMagnitude(*conf.Magnitude); err != nil {
			return pkgerrors.Wrapf(err, "invalid config file %s", f.filepath)
		}
	}
	if conf.RecalibrateSchedule != nil {
		if err := ValidateSchedule(*conf.RecalibrateSchedule); err != nil {
			return pkgerrors.Wrapf(err, "invalid config file %s", f.filepath)
		}
	}

	f.c = &conf

	return nil
}

func (f *File) Save() error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c == nil {
		return pkgerrors.New("config is nil")
	}

	var (
		b   []byte
		err error
	)
	if f.isYAML() {
		b, err = yaml.Marshal(f.c)
	} else {
		b, err = json.MarshalIndent(f.c, "", "  ")
		b = append(b, '\n')
	}
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to encode config to file %s", f.filepath)
	}

	err = os.WriteFile(f.filepath, b, 0644)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to write file %s", f.filepath)
	}

	return nil
}

func (f *File) LogrusFields() logrus.Fields {
	if f.c == nil {
		panic("config is nil")
	}

	return logrus.Fields{
		"precision":           f.Precision(),
		"magnitude":           f.Magnitude(),
		"recalibrateSchedule": f.RecalibrateSchedule(),
		"allowNonRootAccess":  f.AllowNonRootAccess(),
	}
}
