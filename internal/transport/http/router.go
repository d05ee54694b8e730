package http

import (
	"net/http"
	"time"

	httpmw "github.com/cwrk-planet/meet-service/internal/transport/http/middleware"
	"github.com/cwrk-planet/meet-service/pkg/httputil"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Deps struct {
	Handler *Handler
	// SSE GET /api/connect/{roomId}
	SSE http.HandlerFunc
	// WS GET /ws/rooms/{id}
	WS http.HandlerFunc

	Auth   httpmw.CallerResolver
	Cookie string

	AllowedOrigins []string
	RequestTimeout time.Duration
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(httputil.MiddlewareRequestID)
	r.Use(httputil.MiddlewareLogging)

	if len(d.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   d.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{httputil.HeaderRequestID},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// health
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httputil.OK(r.Context(), w, map[string]string{"status": "ok"})
	})

	auth := httpmw.Auth(d.Auth, d.Cookie)

	// стримы без Timeout
	r.Group(func(sr chi.Router) {
		sr.Use(auth)
		if d.SSE != nil {
			sr.Get("/api/connect/{roomId}", d.SSE)
		}
		if d.WS != nil {
			sr.Get("/ws/rooms/{id}", d.WS)
		}
	})

	r.Group(func(pr chi.Router) {
		pr.Use(auth)
		if d.RequestTimeout > 0 {
			pr.Use(middleware.Timeout(d.RequestTimeout))
		}

		pr.Post("/api/send", d.Handler.Send)
		pr.Post("/api/create_room", d.Handler.CreateRoom)

		pr.Route("/api/rooms", func(rm chi.Router) {
			rm.Get("/", d.Handler.ListRooms)
			rm.Route("/{id}", func(rr chi.Router) {
				rr.Post("/join", d.Handler.JoinRoom)
				rr.Get("/messages", d.Handler.Messages)
			})
		})
	})

	return r
}
