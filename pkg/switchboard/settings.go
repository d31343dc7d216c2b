package switchboard

import "strconv"

// Settings is the tenant's key/value settings table, loaded once per unit of
// work by the settings task. Values are read-only snapshots; writes go
// through ordinary business code against the tenant database.
type Settings map[string]string

// Get returns the raw value for a key.
func (s Settings) Get(key string) (string, bool) {
	v, ok := s[key]
	return v, ok
}

// GetDefault returns the value for a key, or def when absent.
func (s Settings) GetDefault(key, def string) string {
	if v, ok := s[key]; ok {
		return v
	}
	return def
}

// GetBool parses the value as a boolean; absent or malformed values are false.
func (s Settings) GetBool(key string) bool {
	v, ok := s[key]
	if !ok {
		return false
	}
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

// GetInt parses the value as an integer, or returns def.
func (s Settings) GetInt(key string, def int) int {
	v, ok := s[key]
	if !ok {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}
