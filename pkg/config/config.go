package config

import (
	"fmt"
	"os"

	"github.com/ghodss/yaml"
	"github.com/spf13/afero"

	"github.com/sidkik/configsync/pkg/errors"
)

// parseConfigErrTemplate is shown when a config file isn't valid YAML for its
// type. The parser's errors don't say where in the file the problem is, so
// the raw message is passed along.
const parseConfigErrTemplate = "Configuration file could not be parsed. " +
	"Please review %q.\n" +
	"Common pitfalls include:\n" +
	" - Using the wrong types for fields\n" +
	" - Having extra fields inside the config file\n\n" +
	"For reference, here is the error from the parser:\n" +
	"%s"

// versionedConfig is a config file that declares its schema version, and
// whose values can be checked once parsed.
type versionedConfig interface {
	getVersion() string

	// validate checks the parsed values. `path` is the file they came from,
	// for use in error messages.
	validate(path string) error
}

type incompatibleVersionError struct {
	path, exp, actual string
}

func (err incompatibleVersionError) Error() string {
	return err.FriendlyMessage()
}

func (err incompatibleVersionError) FriendlyMessage() string {
	return fmt.Sprintf("The configuration file %q is incompatible "+
		"with this version of configsync.\n"+
		"Expected version %q, but got %q.", err.path, err.exp, err.actual)
}

// parseConfig reads `path` into `config`. A missing file is reported as
// errors.FileNotFound so that callers can fall back to defaults.
//
// The file is decoded twice. The lenient pass finds the version, so a file
// written for another release gets a version error rather than complaints
// about fields this release doesn't know. The strict pass then rejects
// unknown fields.
func parseConfig(path string, config versionedConfig, expVersion string) error {
	configBytes, err := afero.ReadFile(fs, path)
	switch {
	case os.IsNotExist(err):
		return errors.FileNotFound{Path: path}
	case err != nil:
		return errors.WithContext(err, "read file")
	}

	if err := yaml.Unmarshal(configBytes, config); err != nil {
		return errors.NewFriendlyError(parseConfigErrTemplate, path, err)
	}

	if version := config.getVersion(); version != expVersion {
		return incompatibleVersionError{path, expVersion, version}
	}

	if err := yaml.UnmarshalStrict(configBytes, config, yaml.DisallowUnknownFields); err != nil {
		return errors.NewFriendlyError(parseConfigErrTemplate, path, err)
	}
	return config.validate(path)
}
