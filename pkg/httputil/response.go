package httputil

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/cwrk-planet/meet-service/pkg/errs"
	"github.com/cwrk-planet/meet-service/pkg/logger"
)

type envelope map[string]any

func JSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.FromContext(ctx).Error("write json response failed", "err", err)
	}
}

// OK успешный ответ с обёрткой data.
func OK(ctx context.Context, w http.ResponseWriter, data any) {
	JSON(ctx, w, http.StatusOK, envelope{"data": data})
}

// Text ответ text/plain, так отвечают /api/send и /api/create_room.
func Text(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

// Error унифицированная ошибка (message + meta).
func Error(ctx context.Context, w http.ResponseWriter, status int, msg string, meta map[string]any) {
	body := envelope{"message": msg}
	if len(meta) > 0 {
		body["meta"] = meta
	}
	JSON(ctx, w, status, envelope{"error": body})
}

// Fail выбирает статус по errs.ToHTTP; 5xx пишутся в лог с причиной.
func Fail(ctx context.Context, w http.ResponseWriter, op string, err error) {
	status := errs.ToHTTP(err)
	if status >= http.StatusInternalServerError {
		logger.FromContext(ctx).Error(op, "err", err)
		Error(ctx, w, status, op+" failed", nil)
		return
	}
	Error(ctx, w, status, op+" failed", map[string]any{"reason": err.Error()})
}
