package utils

import (
	"os"
	"strconv"
	"sync"
)

// EnvPrefix namespaces every environment variable this module reads
// (OXI_ENV, OXI_SEED, ...), so an embedding shell can configure a run
// without colliding with other tools' variables.
const EnvPrefix = "OXI_"

// envCache stores previously fetched non-empty values so repeated
// lookups during a run avoid the syscall round trip. Only non-empty
// values are cached.
var envCache sync.Map // map[string]string

// Env returns the value of the EnvPrefix-namespaced variable name
// ("ENV" reads OXI_ENV), reporting whether it was set non-empty.
func Env(name string) (string, bool) {
	key := EnvPrefix + name
	if v, ok := envCache.Load(key); ok {
		return v.(string), true
	}
	if v := os.Getenv(key); v != "" {
		envCache.Store(key, v)
		return v, true
	}
	return "", false
}

// ForgetEnv drops any cached value for name. Tests that mutate the
// environment between lookups call this.
func ForgetEnv(name string) {
	envCache.Delete(EnvPrefix + name)
}

// EnvOr returns the namespaced variable's value, or fallback when it
// is unset or empty.
func EnvOr(name, fallback string) string {
	if v, ok := Env(name); ok {
		return v
	}
	return fallback
}

// EnvInt64Or parses the namespaced variable as an int64 (the shape
// world seeds cross the environment in), falling back when unset,
// empty, or unparseable.
func EnvInt64Or(name string, fallback int64) int64 {
	v, ok := Env(name)
	if !ok {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}
