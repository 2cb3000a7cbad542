package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// HomeEnv names the environment variable overriding the home directory.
const HomeEnv = "SUBSTRCOUNT_HOME"

const (
	appDirName     = "substrcount"
	homeDirName    = ".substrcount"
	configFileName = "config.yaml"
	historyDBName  = "history.db"
)

// GetHome returns the substrcount home directory without creating it.
// Priority order:
//  1. SUBSTRCOUNT_HOME environment variable (if set)
//  2. substrcount under the user config directory (os.UserConfigDir)
//  3. .substrcount in the current working directory
func GetHome() (string, error) {
	if home := os.Getenv(HomeEnv); home != "" {
		return home, nil
	}

	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, appDirName), nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}
	return filepath.Join(cwd, homeDirName), nil
}

// DefaultConfigPath returns $SUBSTRCOUNT_HOME/config.yaml.
func DefaultConfigPath() (string, error) {
	home, err := GetHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configFileName), nil
}

// GetHistoryDBPath returns $SUBSTRCOUNT_HOME/history.db. Nothing is
// created; the store creates the parent directory when it opens the file.
func GetHistoryDBPath() (string, error) {
	home, err := GetHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, historyDBName), nil
}

// ResolveHistoryDBPath returns the configured database path, or the
// default one when none is configured.
func (c *Config) ResolveHistoryDBPath() (string, error) {
	if c.History.DBPath != "" {
		return c.History.DBPath, nil
	}
	return GetHistoryDBPath()
}
