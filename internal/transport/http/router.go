package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"prepmaster-service/internal/app"
	"prepmaster-service/internal/auth"
	"prepmaster-service/internal/domain"
	"prepmaster-service/internal/metrics"
)

// RouterDeps collects what the HTTP surface needs. Metrics and Logger may be nil.
type RouterDeps struct {
	Service        *app.Service
	Tokens         *auth.Service
	Metrics        *metrics.Metrics
	Logger         *zap.Logger
	AllowedOrigins []string
	// Ready reports dependency health for /readyz; nil means always ready.
	Ready func(r *http.Request) error
}

// NewRouter builds the REST, websocket and operational routes.
func NewRouter(d RouterDeps) http.Handler {
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}
	h := NewHandler(d.Service, log)
	ws := NewWSHandler(d.Service, d.Tokens, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware(routePattern))
	}
	r.Use(requestLogger(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: d.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		ExposedHeaders: []string{"Content-Length"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if d.Ready != nil {
			if err := d.Ready(r); err != nil {
				writeErr(w, http.StatusServiceUnavailable, err.Error())
				return
			}
		}
		w.Write([]byte("ok"))
	})
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}
	r.Get("/ws/results", ws.ServeWS)

	r.Route("/api", func(api chi.Router) {
		api.Use(middleware.Timeout(30 * time.Second))

		api.Post("/auth/register", h.Register)
		api.Post("/auth/login", h.Login)

		api.Group(func(pr chi.Router) {
			pr.Use(Authenticate(d.Tokens))

			pr.Get("/auth/profile", h.Profile)
			pr.Put("/auth/profile", h.UpdateProfile)

			pr.Route("/questions", func(qr chi.Router) {
				qr.Get("/", h.ListQuestions)
				qr.Get("/{questionID}", h.GetQuestion)
				qr.Group(func(ar chi.Router) {
					ar.Use(RequireRole(domain.RoleAdmin))
					ar.Post("/", h.CreateQuestion)
					ar.Post("/bulk-import", h.BulkImportQuestions)
					ar.Put("/{questionID}", h.UpdateQuestion)
					ar.Delete("/{questionID}", h.DeleteQuestion)
				})
			})

			pr.Route("/tests", func(tr chi.Router) {
				tr.Get("/", h.ListTests)
				tr.Get("/{testID}", h.GetTest)
				tr.Group(func(ar chi.Router) {
					ar.Use(RequireRole(domain.RoleAdmin))
					ar.Post("/", h.CreateTest)
					ar.Post("/add-questions", h.ImportQuestions)
					ar.Put("/{testID}", h.UpdateTest)
					ar.Delete("/{testID}", h.DeleteTest)
				})
			})

			pr.Route("/results", func(rr chi.Router) {
				rr.With(RequireRole(domain.RoleStudent)).Post("/submit", h.SubmitTest)
				rr.Get("/student", h.ListMyResults)
				rr.With(RequireRole(domain.RoleAdmin)).Get("/analytics", h.ClassAnalytics)
				rr.Get("/{resultID}", h.GetResult)
			})
		})
	})
	return r
}
