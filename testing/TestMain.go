// Package testing switches the process into test mode when imported for side
// effects by package tests.
package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("FOMET_TEST_MODE", "1")
		if os.Getenv("APPSCRIPT_URL") == "" {
			_ = os.Setenv("APPSCRIPT_URL", "http://127.0.0.1:0")
		}
	})
}

func init() {
	ensureTestMode()
}

func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
