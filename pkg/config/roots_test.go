package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveRoots(t *testing.T) {
	mockHomedir()

	tests := []struct {
		name      string
		env       string
		user      User
		overrides Roots
		exp       Roots
	}{
		{
			name: "Defaults",
			exp: Roots{
				Legacy:    "/home/me/.atelier-desktop",
				Canonical: "/home/me/.atelier",
			},
		},
		{
			name: "UserConfig",
			user: User{LegacyDir: "/srv/old", CanonicalDir: "/srv/new"},
			exp:  Roots{Legacy: "/srv/old", Canonical: "/srv/new"},
		},
		{
			name: "EnvBeatsUserConfig",
			env:  "/env/canonical",
			user: User{LegacyDir: "/srv/old", CanonicalDir: "/srv/new"},
			exp:  Roots{Legacy: "/srv/old", Canonical: "/env/canonical"},
		},
		{
			name:      "OverridesBeatEverything",
			env:       "/env/canonical",
			user:      User{LegacyDir: "/srv/old", CanonicalDir: "/srv/new"},
			overrides: Roots{Legacy: "~/legacy", Canonical: "/flag/canonical"},
			exp:       Roots{Legacy: "/home/me/legacy", Canonical: "/flag/canonical"},
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			getenv = func(key string) string {
				if key == CanonicalDirEnvKey {
					return test.env
				}
				return ""
			}

			roots, err := ResolveRoots(test.user, test.overrides)
			require.NoError(t, err)
			assert.Equal(t, test.exp, roots)
		})
	}
}

func TestValidateRoots(t *testing.T) {
	tests := []struct {
		name  string
		roots Roots
		valid bool
	}{
		{"Siblings", Roots{Legacy: "/home/me/.atelier-desktop", Canonical: "/home/me/.atelier"}, true},
		{"SharedPrefix", Roots{Legacy: "/srv/config-old", Canonical: "/srv/config"}, true},
		{"Same", Roots{Legacy: "/srv/config", Canonical: "/srv/config"}, false},
		{"CanonicalInsideLegacy", Roots{Legacy: "/srv/config", Canonical: "/srv/config/new"}, false},
		{"LegacyInsideCanonical", Roots{Legacy: "/srv/config/old", Canonical: "/srv/config"}, false},
		{"Empty", Roots{Canonical: "/srv/config"}, false},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			err := test.roots.Validate()
			if test.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestLogFilePath(t *testing.T) {
	xdgLogFile = func(rel string) (string, error) {
		return "/home/me/.local/state/" + rel, nil
	}

	path, err := LogFilePath()
	assert.NoError(t, err)
	assert.Equal(t, "/home/me/.local/state/configsync/configsync.log", path)
}
