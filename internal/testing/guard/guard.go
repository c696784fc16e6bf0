// Package guard forces ODYSSEY_TEST_MODE for any test binary that imports it,
// so entrypoints skip connecting to Postgres and Redis.
package guard

import (
	"os"
	"sync"
	"testing"
)

// EnvVar is the flag read by app.InTestMode.
const EnvVar = "ODYSSEY_TEST_MODE"

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv(EnvVar) == "" {
			_ = os.Setenv(EnvVar, "1")
		}
	})
}

// Set overrides the flag for the duration of a single test.
func Set(t testing.TB, enabled bool) {
	t.Helper()
	value := "0"
	if enabled {
		value = "1"
	}
	t.Setenv(EnvVar, value)
}
