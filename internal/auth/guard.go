package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"strings"
)

type ctxKey struct{}

func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, ctxKey{}, c)
}

func FromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(ctxKey{}).(*Claims)
	return c, ok
}

// Rule protects every path under Prefix, except the exact paths in Public.
type Rule struct {
	Prefix string
	Roles  []string
	Public []string
}

// Guard rejects requests to protected prefixes without a session cookie of an
// allowed role: 401 when no valid session is present, 403 when the role is wrong.
func (s *Sessions) Guard(rules ...Rule) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rule, ok := match(rules, r.URL.Path)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			var authenticated bool
			for _, name := range []string{AdminCookie, UserCookie} {
				cookie, err := r.Cookie(name)
				if err != nil || cookie.Value == "" {
					continue
				}
				claims, err := s.Parse(cookie.Value)
				if err != nil {
					continue
				}
				authenticated = true
				if slices.Contains(rule.Roles, claims.Role) {
					next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
					return
				}
			}

			if authenticated {
				deny(w, http.StatusForbidden, ErrForbidden)
				return
			}
			deny(w, http.StatusUnauthorized, ErrUnauthorized)
		})
	}
}

func match(rules []Rule, path string) (Rule, bool) {
	for _, rule := range rules {
		if path != rule.Prefix && !strings.HasPrefix(path, strings.TrimSuffix(rule.Prefix, "/")+"/") {
			continue
		}
		if slices.Contains(rule.Public, path) {
			return Rule{}, false
		}
		return rule, true
	}
	return Rule{}, false
}

func deny(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": err.Error()})
}
