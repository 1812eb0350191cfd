package rules

import (
	"net/mail"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// StartsWith reports whether s begins with prefix.
func StartsWith(s, prefix string) bool {
	return strings.HasPrefix(s, prefix)
}

// EndsWith reports whether s ends with suffix.
func EndsWith(s, suffix string) bool {
	return strings.HasSuffix(s, suffix)
}

// Contains reports whether substr is within s.
func Contains(s, substr string) bool {
	return strings.Contains(s, substr)
}

// maxCachedPatterns bounds the compiled-pattern cache. Patterns past the
// bound are compiled on every call.
const maxCachedPatterns = 256

var (
	patterns       sync.Map // pattern -> *regexp.Regexp, nil when invalid
	cachedPatterns atomic.Int64
)

// Matches reports whether s matches the regular expression pattern.
// An invalid pattern never matches.
func Matches(s, pattern string) bool {
	re := compilePattern(pattern)
	return re != nil && re.MatchString(s)
}

func compilePattern(pattern string) *regexp.Regexp {
	if re, ok := patterns.Load(pattern); ok {
		return re.(*regexp.Regexp)
	}
	compiled, err := regexp.Compile(pattern)
	if err != nil {
		compiled = nil
	}
	if cachedPatterns.Add(1) > maxCachedPatterns {
		cachedPatterns.Add(-1)
		return compiled
	}
	re, loaded := patterns.LoadOrStore(pattern, compiled)
	if loaded {
		cachedPatterns.Add(-1)
	}
	return re.(*regexp.Regexp)
}

// IsEmail reports whether s is a bare RFC 5322 address ("a@b.c", no display name).
func IsEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Name == "" && addr.Address == s
}

// IsUUID reports whether s is a UUID in canonical 8-4-4-4-12 form.
func IsUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}
