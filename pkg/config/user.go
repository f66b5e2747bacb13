package config

import (
	"path/filepath"

	"github.com/ghodss/yaml"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"

	"github.com/sidkik/configsync/pkg/errors"
)

const (
	// UserConfigPath is the default path to the configsync user config.
	UserConfigPath = "~/.configsync.yaml"

	// InitialUserConfigVersion is the first version of the user config.
	// Config files that do not specify a version will default to this
	// version.
	InitialUserConfigVersion = "v1alpha1"

	// SupportedUserConfigVersion is the supported version of the user
	// config of the current configsync binary.
	SupportedUserConfigVersion = "v1alpha1"
)

// User contains the optional settings that override where the configuration
// trees live and how the synchronizer runs.
type User struct {
	Version      string `json:"version,omitempty"`
	LegacyDir    string `json:"legacyDir,omitempty"`
	CanonicalDir string `json:"canonicalDir,omitempty"`
	Workers      int    `json:"workers,omitempty"`
}

func (u User) getVersion() string {
	return u.Version
}

func (u User) validate(path string) error {
	if u.Workers < 0 {
		return errors.NewFriendlyError(
			"The user config at %q sets workers to %d.\n"+
				"The number of workers must be positive.", path, u.Workers)
	}

	if u.LegacyDir != "" && filepath.Clean(u.LegacyDir) == filepath.Clean(u.CanonicalDir) {
		return errors.NewFriendlyError(
			"The user config at %q sets both legacyDir and canonicalDir to %q.\n"+
				"They must be two separate directories.", path, u.LegacyDir)
	}
	return nil
}

// homedirExpand will be overridden in mock tests
var homedirExpand = homedir.Expand

// ParseUser parses the User stored in the default path. A missing file isn't
// an error: the zero config is returned so that the defaults apply.
func ParseUser() (User, error) {
	path, err := GetUserConfigPath()
	if err != nil {
		return User{}, errors.WithContext(err, "expand config path")
	}

	config := User{Version: InitialUserConfigVersion}
	if err := parseConfig(path, &config, SupportedUserConfigVersion); err != nil {
		if _, ok := err.(errors.FileNotFound); ok {
			return User{Version: SupportedUserConfigVersion}, nil
		}
		return User{}, errors.WithContext(err, "parse")
	}

	// Evaluate relative paths relative to the config path.
	configDir := filepath.Dir(path)
	if config.LegacyDir, err = expandRelativeTo(config.LegacyDir, configDir); err != nil {
		return User{}, errors.WithContext(err, "expand legacy path")
	}
	if config.CanonicalDir, err = expandRelativeTo(config.CanonicalDir, configDir); err != nil {
		return User{}, errors.WithContext(err, "expand canonical path")
	}
	return config, nil
}

// WriteUser writes the given user config to disk.
func WriteUser(cfg User) error {
	cfg.Version = SupportedUserConfigVersion
	path, err := GetUserConfigPath()
	if err != nil {
		return errors.WithContext(err, "expand config path")
	}

	yamlBytes, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.WithContext(err, "marshal")
	}

	if err := afero.WriteFile(fs, path, yamlBytes, 0644); err != nil {
		return errors.WithContext(err, "write")
	}
	return nil
}

// GetUserConfigPath returns the path to the user's configsync configuration.
// This path is expanded, so it can be directly passed to file operations.
func GetUserConfigPath() (string, error) {
	return homedirExpand(UserConfigPath)
}

func expandRelativeTo(path, dir string) (string, error) {
	if path == "" {
		return "", nil
	}

	expanded, err := homedirExpand(path)
	if err != nil {
		return "", err
	}

	if !filepath.IsAbs(expanded) {
		expanded = filepath.Join(dir, expanded)
	}
	return filepath.Clean(expanded), nil
}
