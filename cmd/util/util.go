package util

import (
	"fmt"
	"os"
	"runtime/debug"

	log "github.com/sirupsen/logrus"

	"github.com/sidkik/configsync/pkg/config"
	"github.com/sidkik/configsync/pkg/errors"
)

// Mocked out for unit testing.
var (
	exit      = os.Exit
	parseUser = config.ParseUser
)

// HandleFatalError prints the error to the user and exits.
func HandleFatalError(err error) {
	log.WithError(err).Debug("Fatal error")
	fmt.Fprintln(os.Stderr, errors.GetPrintableMessage(err))
	exit(1)
}

// HandlePanic logs the stack trace of a panic before exiting. It should be
// deferred at the top of every goroutine.
func HandlePanic() {
	if r := recover(); r != nil {
		log.WithField("stack", string(debug.Stack())).Error("Unexpected panic")
		fmt.Fprintf(os.Stderr, "configsync crashed: %v\n", r)
		exit(2)
	}
}

// RootFlags are the command line overrides for the configuration roots.
type RootFlags struct {
	Legacy    string
	Canonical string
}

// ResolveConfig parses the user config and resolves the roots, giving
// precedence to the values set on the command line.
func ResolveConfig(flags RootFlags) (config.User, config.Roots, error) {
	user, err := parseUser()
	if err != nil {
		return config.User{}, config.Roots{}, errors.WithContext(err, "parse user config")
	}

	roots, err := config.ResolveRoots(user, config.Roots{
		Legacy:    flags.Legacy,
		Canonical: flags.Canonical,
	})
	if err != nil {
		return config.User{}, config.Roots{}, errors.WithContext(err, "resolve roots")
	}
	return user, roots, nil
}
