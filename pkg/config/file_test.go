package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileDefaults(t *testing.T) {
	f, err := NewFile(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)

	assert.Equal(t, 4, f.Precision())
	assert.Equal(t, 0.01, f.Magnitude())
	assert.Equal(t, "", f.RecalibrateSchedule())
	assert.False(t, f.AllowNonRootAccess())
}

func TestFileEmpty(t *testing.T) {
	p := filepath.Join(t.TempDir(), "empty.json")
	require.NoError(t, os.WriteFile(p, []byte("  \n"), 0644))

	f, err := NewFile(p)
	require.NoError(t, err)
	assert.Equal(t, 4, f.Precision())
}

func TestFileSaveLoadJSON(t *testing.T) {
	p := filepath.Join(t.TempDir(), "apportion.json")

	f, err := NewFile(p)
	require.NoError(t, err)
	require.NoError(t, f.SetPrecision(6))
	require.NoError(t, f.SetMagnitude(0.05))
	f.SetRecalibrateSchedule("@every 10m")
	f.SetAllowNonRootAccess(true)
	require.NoError(t, f.Save())

	b, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{"precision":6,"magnitude":0.05,"recalibrateSchedule":"@every 10m","allowNonRootAccess":true}`, string(b))

	g, err := NewFile(p)
	require.NoError(t, err)
	assert.Equal(t, 6, g.Precision())
	assert.Equal(t, 0.05, g.Magnitude())
	assert.Equal(t, "@every 10m", g.RecalibrateSchedule())
	assert.True(t, g.AllowNonRootAccess())
}

func TestFileLoadYAML(t *testing.T) {
	p := filepath.Join(t.TempDir(), "apportion.yaml")
	require.NoError(t, os.WriteFile(p, []byte("precision: 2\nmagnitude: 0.1\n"), 0644))

	f, err := NewFile(p)
	require.NoError(t, err)
	assert.Equal(t, 2, f.Precision())
	assert.Equal(t, 0.1, f.Magnitude())

	f.SetRecalibrateSchedule("0 3 * * *")
	require.NoError(t, f.Save())

	g, err := NewFile(p)
	require.NoError(t, err)
	assert.Equal(t, "0 3 * * *", g.RecalibrateSchedule())
	assert.Equal(t, 2, g.Precision())
}

func TestFileRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "precision", content: `{"precision": 17}`},
		{name: "magnitude", content: `{"magnitude": 0}`},
		{name: "schedule", content: `{"recalibrateSchedule": "every now and then"}`},
		{name: "syntax", content: `{"precision": `},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := filepath.Join(t.TempDir(), "apportion.json")
			require.NoError(t, os.WriteFile(p, []byte(tt.content), 0644))

			_, err := NewFile(p)
			assert.Error(t, err)
		})
	}
}

func TestFileSetterValidation(t *testing.T) {
	f := NewFileFromConfig(nil, "")

	assert.Error(t, f.SetPrecision(-1))
	assert.Error(t, f.SetMagnitude(1.5))
	assert.Equal(t, 4, f.Precision(), "rejected value must not be stored")
}

func TestFileEnvOverrides(t *testing.T) {
	p := filepath.Join(t.TempDir(), "apportion.json")
	require.NoError(t, os.WriteFile(p, []byte(`{"precision": 3, "magnitude": 0.02}`), 0644))

	t.Setenv("APPORTION_PRECISION", "8")
	t.Setenv("APPORTION_RECALIBRATE_SCHEDULE", "@hourly")

	f, err := NewFile(p)
	require.NoError(t, err)
	assert.Equal(t, 8, f.Precision())
	assert.Equal(t, 0.02, f.Magnitude())
	assert.Equal(t, "@hourly", f.RecalibrateSchedule())

	require.NoError(t, f.Save())
	b, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{"precision": 3, "magnitude": 0.02}`, string(b), "overrides are not persisted")
}

func TestFileEnvOverrideInvalid(t *testing.T) {
	t.Setenv("APPORTION_PRECISION", "99")

	_, err := NewFile(filepath.Join(t.TempDir(), "apportion.json"))
	assert.Error(t, err)
}

func TestNewRawFileConfigFromConfig(t *testing.T) {
	f := NewFileFromConfig(nil, "")
	raw, err := NewRawFileConfigFromConfig(f)
	require.NoError(t, err)

	assert.Equal(t, 4, *raw.Precision)
	assert.Equal(t, 0.01, *raw.Magnitude)

	_, err = NewRawFileConfigFromConfig(nil)
	assert.Error(t, err)
}
