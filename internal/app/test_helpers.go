package app

import (
	"context"
	"os"
	"testing"

	"github.com/specialistvlad/patchbay/internal/registry"
	"github.com/specialistvlad/patchbay/internal/testutil"
)

// SetupAppTest creates a new app instance for system testing. Logs are kept
// in the returned buffer and printed when PATCHBAY_TEST_LOGS is "true".
func SetupAppTest(t *testing.T, cfg *Config, providers ...registry.Provider) (*App, *testutil.SafeBuffer) {
	t.Helper()

	logBuffer := &testutil.SafeBuffer{}
	cfg.LogLevel = "debug"
	testApp := NewApp(logBuffer, cfg, providers...)

	t.Cleanup(func() {
		if err := testApp.Close(context.Background()); err != nil {
			t.Errorf("failed to close app: %v", err)
		}
		if os.Getenv("PATCHBAY_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
		}
	})

	return testApp, logBuffer
}
