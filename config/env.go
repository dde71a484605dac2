package config

import (
	"os"
	"strconv"

	"github.com/rs/zerolog/log"
)

// envString overrides current with the variable key when it is set, even
// when set to an empty value.
func envString(key, current string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return current
}

// envInt and envBool ignore empty variables. A malformed value is logged and
// current is kept.
func envInt(key string, current int) int {
	raw := os.Getenv(key)
	if len(raw) == 0 {
		return current
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		log.Warn().Str("key", key).Str("value", raw).Msg("ignoring non numeric environment value")
		return current
	}
	return value
}

func envBool(key string, current bool) bool {
	raw := os.Getenv(key)
	if len(raw) == 0 {
		return current
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		log.Warn().Str("key", key).Str("value", raw).Msg("ignoring non boolean environment value")
		return current
	}
	return value
}
