package app

import (
	"os"
	"strconv"
	"sync"
	"sync/atomic"
)

// testModeEnv makes cmd/odyssey and cmd/worker exit before dialing Postgres
// or Redis. internal/testing/guard sets it for test binaries.
const testModeEnv = "ODYSSEY_TEST_MODE"

var (
	testMode     atomic.Bool
	testModeOnce sync.Once
)

func readTestMode() {
	enabled, err := strconv.ParseBool(os.Getenv(testModeEnv))
	testMode.Store(err == nil && enabled)
}

// InTestMode reports whether entrypoints should skip runtime side effects.
func InTestMode() bool {
	testModeOnce.Do(readTestMode)
	return testMode.Load()
}

// RefreshTestMode re-reads the flag after the environment changed.
func RefreshTestMode() {
	testModeOnce.Do(func() {})
	readTestMode()
}
