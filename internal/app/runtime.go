package app

import (
	"os"
	"sync"
	"sync/atomic"

	"github.com/joho/godotenv"
)

const testModeEnv = "INSIGHTS_TEST_MODE"

var (
	testModeFlag atomic.Bool
	testModeOnce sync.Once
)

// detectTestMode reads the INSIGHTS_TEST_MODE flag once.
func detectTestMode() {
	testModeFlag.Store(os.Getenv(testModeEnv) == "1")
}

// InTestMode reports whether the application should skip runtime side effects.
func InTestMode() bool {
	testModeOnce.Do(detectTestMode)
	return testModeFlag.Load()
}

// RefreshTestMode updates the cached flag after environment changes.
func RefreshTestMode() {
	detectTestMode()
}

// LoadDotEnv loads a .env file outside production. Variables already present
// in the environment win over the file.
func LoadDotEnv(files ...string) error {
	if os.Getenv("APP_ENV") == "production" {
		return nil
	}
	if len(files) == 0 {
		files = []string{".env"}
	}
	present := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			present = append(present, f)
		}
	}
	if len(present) == 0 {
		return nil
	}
	return godotenv.Load(present...)
}
