//go:build integration

package testdb

import "os"

// Database URL environment variables, in order of preference.
const (
	EnvTestDatabaseURL = "ENHANCE_TEST_DB_URL"
	EnvDatabaseURL     = "DATABASE_URL"
)

// ciVars are set by the common CI providers.
var ciVars = []string{
	"CI",
	"GITHUB_ACTIONS",
	"GITLAB_CI",
	"JENKINS_URL",
	"CIRCLECI",
}

// GetTestDatabaseURL returns the first non-empty database URL variable, or "".
func GetTestDatabaseURL() string {
	for _, name := range []string{EnvTestDatabaseURL, EnvDatabaseURL} {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// IsCI reports whether the tests run under a CI provider.
func IsCI() bool {
	for _, name := range ciVars {
		if os.Getenv(name) != "" {
			return true
		}
	}
	return false
}
