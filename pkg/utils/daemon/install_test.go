package daemon

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRenderUnit(t *testing.T) {
	unit := RenderUnit("/usr/local/bin/apportion", "/run/apportion.sock", "/etc/apportion.yaml")

	want := "ExecStart=/usr/local/bin/apportion daemon --daemon-socket=/run/apportion.sock --config=/etc/apportion.yaml\n"
	if !strings.Contains(unit, want) {
		t.Errorf("unit does not contain %q:\n%s", want, unit)
	}
	if strings.Contains(unit, "/path/to/") {
		t.Errorf("unit still contains placeholders:\n%s", unit)
	}
}

func TestInstallUninstall(t *testing.T) {
	dir := t.TempDir()
	origUnit, origCtl := unitPath, systemctl
	t.Cleanup(func() { unitPath, systemctl = origUnit, origCtl })

	unitPath = filepath.Join(dir, "systemd", "apportion.service")
	systemctl = "true"

	if err := Install("/tmp/apportion.sock", "/etc/apportion.json"); err != nil {
		t.Fatalf("Install() error = %v", err)
	}
	b, err := os.ReadFile(unitPath)
	if err != nil {
		t.Fatalf("unit not written: %v", err)
	}
	if !strings.Contains(string(b), "--daemon-socket=/tmp/apportion.sock") {
		t.Errorf("unexpected unit:\n%s", b)
	}

	if err := Uninstall(); err != nil {
		t.Fatalf("Uninstall() error = %v", err)
	}
	if _, err := os.Stat(unitPath); !os.IsNotExist(err) {
		t.Errorf("unit should be removed, stat error = %v", err)
	}
	// Uninstalling twice is fine.
	if err := Uninstall(); err != nil {
		t.Fatalf("second Uninstall() error = %v", err)
	}
}
