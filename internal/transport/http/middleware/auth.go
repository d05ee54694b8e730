package httpmw

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/cwrk-planet/meet-service/internal/domain"
	"github.com/cwrk-planet/meet-service/pkg/errs"
	"github.com/cwrk-planet/meet-service/pkg/httputil"
	"github.com/cwrk-planet/meet-service/pkg/logger"
)

type ctxKey string

const ctxKeyCaller ctxKey = "caller"

type CallerResolver interface {
	ResolveCaller(ctx context.Context, credential string) (domain.User, error)
}

// Auth пропускает дальше только запросы с валидной сессией.
// Учётные данные ищутся в cookie, затем в Authorization: Bearer, затем в ?access_token
// (браузерный WebSocket не умеет ставить заголовки).
func Auth(resolver CallerResolver, cookie string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, err := resolver.ResolveCaller(r.Context(), Credential(r, cookie))
			if err != nil {
				status := errs.ToHTTP(err)
				if status >= http.StatusInternalServerError {
					logger.FromContext(r.Context()).Error("httpmw.Auth", slog.Any("err", err))
					httputil.Error(r.Context(), w, status, "session lookup failed", nil)
					return
				}
				httputil.Error(r.Context(), w, http.StatusUnauthorized, "unauthorized", nil)
				return
			}

			ctx := WithCaller(r.Context(), caller)
			ctx = logger.IntoContext(ctx, logger.FromContext(ctx).With(slog.Int64("user_id", caller.ID)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func Credential(r *http.Request, cookie string) string {
	if c, err := r.Cookie(cookie); err == nil && strings.TrimSpace(c.Value) != "" {
		return strings.TrimSpace(c.Value)
	}
	authz := r.Header.Get("Authorization")
	if parts := strings.SplitN(authz, " ", 2); len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return strings.TrimSpace(parts[1])
	}

	return strings.TrimSpace(r.URL.Query().Get("access_token"))
}

func WithCaller(ctx context.Context, u domain.User) context.Context {
	return context.WithValue(ctx, ctxKeyCaller, u)
}

func CallerFromCtx(ctx context.Context) (domain.User, bool) {
	u, ok := ctx.Value(ctxKeyCaller).(domain.User)
	return u, ok
}
