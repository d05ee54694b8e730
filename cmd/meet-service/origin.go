package main

import (
	"net/http"
	"strings"
)

// originChecker тот же список, что и для CORS; "*" пускает всех.
func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if strings.TrimSpace(o) == "*" {
			return func(*http.Request) bool { return true }
		}
		set[normalizeOrigin(o)] = struct{}{}
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[normalizeOrigin(origin)]
		return ok
	}
}

func normalizeOrigin(o string) string {
	return strings.ToLower(strings.TrimRight(strings.TrimSpace(o), "/"))
}
