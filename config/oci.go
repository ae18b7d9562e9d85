package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/oracle/oci-go-sdk/v65/common"
)

// LoadOCIConfig loads the OCI configuration from the specified config file
// path and profile. A leading "~/" is expanded to the user's home directory.
func LoadOCIConfig(configFilePath, profile string) (common.ConfigurationProvider, error) {
	path, err := expandHome(configFilePath)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("oci config file %s: %w", path, err)
	}
	if profile == "" {
		profile = "DEFAULT"
	}

	provider, err := common.ConfigurationProviderFromFileWithProfile(path, profile, "")
	if err != nil {
		return nil, fmt.Errorf("failed to load config from file: %w", err)
	}
	return provider, nil
}

func expandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, path[2:]), nil
}
