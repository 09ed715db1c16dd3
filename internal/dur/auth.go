package dur

import "strings"

// ExtractAuthCode returns the last field of raw that is exactly five ASCII
// digits once trimmed.
func ExtractAuthCode(raw string) (string, bool) {
	if raw == "" {
		return "", false
	}
	fields := strings.Split(raw, fieldSep)
	for i := len(fields) - 1; i >= 0; i-- {
		v := strings.TrimSpace(fields[i])
		if isAuthCode(v) {
			return v, true
		}
	}
	return "", false
}

func isAuthCode(v string) bool {
	if len(v) != 5 {
		return false
	}
	for i := 0; i < len(v); i++ {
		if v[i] < '0' || v[i] > '9' {
			return false
		}
	}
	return true
}
