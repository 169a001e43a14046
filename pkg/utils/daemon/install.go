package daemon

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

var (
	unitPath  = "/etc/systemd/system/apportion.service"
	unitName  = "apportion.service"
	systemctl = "systemctl"
)

const unitTemplate = `[Unit]
Description=apportion daemon
After=network.target

[Service]
Type=simple
ExecStart=/path/to/apportion daemon --daemon-socket=/path/to/socket --config=/path/to/config
ExecReload=/bin/kill -HUP $MAINPID
Restart=on-failure

[Install]
WantedBy=multi-user.target
`

// RenderUnit fills the systemd unit template for the given binary, socket
// and config file.
func RenderUnit(exePath, socketPath, configPath string) string {
	return strings.NewReplacer(
		"/path/to/apportion", exePath,
		"/path/to/socket", socketPath,
		"/path/to/config", configPath,
	).Replace(unitTemplate)
}

func Install(socketPath, configPath string) error {
	// Get the path to the current executable
	exePath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get the path to the current executable: %w", err)
	}
	exePath, err = filepath.Abs(exePath)
	if err != nil {
		return fmt.Errorf("failed to get the absolute path to the current executable: %w", err)
	}

	err = os.Chmod(exePath, 0755)
	if err != nil {
		return fmt.Errorf("failed to chmod the current executable to 0755: %w", err)
	}

	logrus.Infof("current executable path: %s", exePath)

	logrus.Infof("writing systemd unit to %s", unitPath)

	// mkdir -p
	err = os.MkdirAll(filepath.Dir(unitPath), 0755)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(unitPath), err)
	}

	// warn if the file already exists
	_, err = os.Stat(unitPath)
	if err == nil {
		logrus.Warnf("%s already exists, overwriting", unitPath)
	}

	err = os.WriteFile(unitPath, []byte(RenderUnit(exePath, socketPath, configPath)), 0644)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", unitPath, err)
	}

	logrus.Infof("starting apportion")

	if err := exec.Command(systemctl, "daemon-reload").Run(); err != nil {
		return fmt.Errorf("failed to reload systemd: %w", err)
	}
	if err := exec.Command(systemctl, "enable", "--now", unitName).Run(); err != nil {
		return fmt.Errorf("failed to enable %s: %w", unitName, err)
	}

	return nil
}
