// Package env resolves GLYPHPACK_* environment variables and the legacy
// GLYPH_* names they replaced.
package env

import (
	"os"
	"strings"
	"sync"

	"github.com/RowanDark/glyphpack/internal/logging"
)

const (
	Prefix       = "GLYPHPACK_"
	LegacyPrefix = "GLYPH_"
)

var (
	warnLogger func(format string, args ...any) = func(format string, args ...any) {
		logging.Logger().Sugar().Warnf(format, args...)
	}
	warnMu     sync.Mutex
	warnedKeys sync.Map
)

// Get resolves GLYPHPACK_<name>, falling back to GLYPH_<name>. Values are
// trimmed; blank values count as unset.
func Get(name string) (string, bool) {
	v, ok := Lookup(Prefix+name, LegacyPrefix+name)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

// Lookup returns the value of newKey if it exists. When only the legacy
// oldKey is present it is returned instead and a deprecation warning is
// logged once.
func Lookup(newKey, oldKey string) (string, bool) {
	if v, ok := os.LookupEnv(newKey); ok {
		return v, true
	}
	if oldKey == "" {
		return "", false
	}
	if v, ok := os.LookupEnv(oldKey); ok {
		logDeprecated(oldKey, newKey)
		return v, true
	}
	return "", false
}

func logDeprecated(oldKey, newKey string) {
	onceIface, _ := warnedKeys.LoadOrStore(oldKey, &sync.Once{})
	once := onceIface.(*sync.Once)
	once.Do(func() {
		warnMu.Lock()
		logger := warnLogger
		warnMu.Unlock()
		logger("%s is deprecated; use %s", oldKey, newKey)
	})
}

// ResetWarningsForTesting clears the cached once guards so tests can verify
// warning behaviour deterministically.
func ResetWarningsForTesting() {
	warnMu.Lock()
	warnedKeys = sync.Map{}
	warnMu.Unlock()
}

// SetWarnLoggerForTesting swaps the logger used for warnings. The returned
// function restores the previous logger and should be deferred in tests.
func SetWarnLoggerForTesting(fn func(format string, args ...any)) (restore func()) {
	warnMu.Lock()
	previous := warnLogger
	warnLogger = fn
	warnMu.Unlock()
	return func() {
		warnMu.Lock()
		warnLogger = previous
		warnMu.Unlock()
	}
}
