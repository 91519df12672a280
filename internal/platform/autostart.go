package platform

import (
	"fmt"
	"os"
	"strings"
)

// AutostartEntry describes the login item registered for the app.
type AutostartEntry struct {
	Name     string
	ExecPath string
	Comment  string
}

func (entry AutostartEntry) validate(operation string) error {
	if strings.TrimSpace(entry.Name) == "" {
		return fmt.Errorf("%s autostart: app name is empty", operation)
	}
	if operation == "enable" && entry.ExecPath == "" {
		return fmt.Errorf("enable autostart: exec path is empty")
	}
	return nil
}

// slug is the lowercase, dash separated form of the app name used for file
// names and launchd labels.
func (entry AutostartEntry) slug() string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(entry.Name)), " ", "-")
}

// Service groups the OS integrations used by the binary.
type Service interface {
	ConfigDir() (string, error)
	EnableAutostart(entry AutostartEntry) error
	DisableAutostart(entry AutostartEntry) error
}

type platformService struct{}

// NewService returns the implementation for the current operating system.
func NewService() Service {
	return &platformService{}
}

// ConfigDir returns the per-user configuration directory.
func (service *platformService) ConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err == nil && configDir != "" {
		return configDir, nil
	}

	homeDir, homeErr := os.UserHomeDir()
	if homeErr != nil {
		if err != nil {
			return "", fmt.Errorf("get config dir: %w", err)
		}
		return "", fmt.Errorf("get config dir: %w", homeErr)
	}
	return fallbackConfigDir(homeDir), nil
}

// ApplyAutostart registers or removes the login item so it matches enabled.
func ApplyAutostart(service Service, entry AutostartEntry, enabled bool) error {
	if enabled {
		return service.EnableAutostart(entry)
	}
	return service.DisableAutostart(entry)
}
