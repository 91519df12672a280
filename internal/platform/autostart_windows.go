//go:build windows

package platform

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

const registryRunKey = `HKCU\Software\Microsoft\Windows\CurrentVersion\Run`

func (service *platformService) EnableAutostart(entry AutostartEntry) error {
	if err := entry.validate("enable"); err != nil {
		return err
	}
	return runReg("enable autostart", "add", registryRunKey,
		"/v", entry.Name, "/t", "REG_SZ", "/d", quoteWindowsPath(entry.ExecPath), "/f")
}

func (service *platformService) DisableAutostart(entry AutostartEntry) error {
	if err := entry.validate("disable"); err != nil {
		return err
	}
	return runReg("disable autostart", "delete", registryRunKey, "/v", entry.Name, "/f")
}

func runReg(operation string, args ...string) error {
	output, err := exec.Command("reg", args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: reg %s failed: %w: %s", operation, args[0], err, strings.TrimSpace(string(output)))
	}
	return nil
}

func fallbackConfigDir(homeDir string) string {
	return filepath.Join(homeDir, "AppData", "Roaming")
}

func quoteWindowsPath(execPath string) string {
	return `"` + strings.Trim(execPath, `"`) + `"`
}
