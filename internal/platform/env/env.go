package env

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// LookupFunc matches os.LookupEnv. A nil LookupFunc reads the process
// environment.
type LookupFunc func(key string) (string, bool)

func (l LookupFunc) lookup(key string) (string, bool) {
	if l == nil {
		return os.LookupEnv(key)
	}
	return l(key)
}

func (l LookupFunc) String(key string, def string) string {
	if v, ok := l.lookup(key); ok {
		return v
	}
	return def
}

func (l LookupFunc) Duration(key string, def time.Duration) (time.Duration, error) {
	if v, ok := l.lookup(key); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("parse %s: %w", key, err)
		}
		return d, nil
	}
	return def, nil
}

func (l LookupFunc) Bool(key string, def bool) (bool, error) {
	if v, ok := l.lookup(key); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return false, fmt.Errorf("parse %s: %w", key, err)
		}
		return b, nil
	}
	return def, nil
}

// Param returns the trimmed value of key. CI runners pass unset action
// inputs as empty strings, so a blank value reports ok=false.
func Param(lookup LookupFunc, key string) (string, bool) {
	v, ok := lookup.lookup(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return "", false
	}
	return v, true
}

// Int64Param parses an optional integer parameter. Absent values return nil.
func Int64Param(lookup LookupFunc, key string) (*int64, error) {
	raw, ok := Param(lookup, key)
	if !ok {
		return nil, nil
	}
	i, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", key, err)
	}
	return &i, nil
}
