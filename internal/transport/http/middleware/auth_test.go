package httpmw

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cwrk-planet/meet-service/internal/domain"
	"github.com/cwrk-planet/meet-service/pkg/errs"

	"github.com/stretchr/testify/assert"
)

type resolverFunc func(ctx context.Context, credential string) (domain.User, error)

func (f resolverFunc) ResolveCaller(ctx context.Context, credential string) (domain.User, error) {
	return f(ctx, credential)
}

var tokens = resolverFunc(func(_ context.Context, credential string) (domain.User, error) {
	switch credential {
	case "alice-token":
		return domain.User{ID: 1, Username: "Alice"}, nil
	case "broken":
		return domain.User{}, errors.Join(errs.ErrUpstream, errors.New("db down"))
	}
	return domain.User{}, errs.ErrUnauthorized
})

func TestAuth(t *testing.T) {
	var seen domain.User
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = CallerFromCtx(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	h := Auth(tokens, "meet_token")(next)

	tests := []struct {
		name   string
		setup  func(r *http.Request)
		status int
	}{
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "meet_token", Value: "alice-token"}) }, http.StatusNoContent},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer alice-token") }, http.StatusNoContent},
		{"query", func(r *http.Request) { r.URL.RawQuery = "access_token=alice-token" }, http.StatusNoContent},
		{"missing", func(*http.Request) {}, http.StatusUnauthorized},
		{"unknown", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "meet_token", Value: "nope"}) }, http.StatusUnauthorized},
		{"store down", func(r *http.Request) { r.Header.Set("Authorization", "Bearer broken") }, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = domain.User{}
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.setup(r)
			w := httptest.NewRecorder()

			h.ServeHTTP(w, r)

			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusNoContent {
				assert.Equal(t, "Alice", seen.Username)
			} else {
				assert.Zero(t, seen.ID)
			}
		})
	}
}

func TestCredential_CookieWins(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?access_token=q", nil)
	r.Header.Set("Authorization", "Bearer h")
	r.AddCookie(&http.Cookie{Name: "meet_token", Value: "c"})
	assert.Equal(t, "c", Credential(r, "meet_token"))

	r = httptest.NewRequest(http.MethodGet, "/?access_token=q", nil)
	r.Header.Set("Authorization", "Basic xyz")
	assert.Equal(t, "q", Credential(r, "meet_token"))
}
