package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/tesloshop/backend/internal/domain"
	"github.com/tesloshop/backend/internal/health"
	"github.com/tesloshop/backend/internal/http/handler"
	"github.com/tesloshop/backend/internal/http/middleware"
	"github.com/tesloshop/backend/internal/http/response"
	"github.com/tesloshop/backend/internal/security"
)

type Dependencies struct {
	AuthHandler      *handler.AuthHandler
	ProductHandler   *handler.ProductHandler
	FilesHandler     *handler.FilesHandler
	JWTManager       *security.JWTManager
	CORSOrigins      []string
	AuthRateLimitRPM int
	APIRateLimitRPM  int
	BodyLimitBytes   int64
	UploadMaxBytes   int64
	APIRateLimiter   func(http.Handler) http.Handler
	AuthRateLimiter  func(http.Handler) http.Handler
	Readiness        *health.ProbeRunner
	EnableOTelHTTP   bool
}

// NewRouter wires the public surface: products are world-readable,
// catalog writes need a token, destructive operations need the admin
// role.
func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.StructuredRequestLogger)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(dep.CORSOrigins))

	bodyLimit := dep.BodyLimitBytes
	if bodyLimit <= 0 {
		bodyLimit = 1 << 20
	}

	apiLimiter := dep.APIRateLimiter
	if apiLimiter == nil {
		apiLimiter = middleware.NewRateLimiter(dep.APIRateLimitRPM, time.Minute, "api").Middleware()
	}
	authLimiter := dep.AuthRateLimiter
	if authLimiter == nil {
		authLimiter = middleware.NewRateLimiter(dep.AuthRateLimitRPM, time.Minute, "auth").Middleware()
	}
	r.Use(apiLimiter)

	authn := middleware.AuthMiddleware(dep.JWTManager)

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		ready, results := dep.Readiness.Ready(r.Context())
		if ready {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": results})
			return
		}
		response.Error(w, r, http.StatusServiceUnavailable, "DEPENDENCY_UNREADY", "dependencies are not ready", map[string]any{"checks": results})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Use(middleware.BodyLimit(bodyLimit))
			r.With(authLimiter).Post("/register", dep.AuthHandler.Register)
			r.With(authLimiter).Post("/login", dep.AuthHandler.Login)
			r.With(authLimiter).Post("/refresh", dep.AuthHandler.Refresh)
			r.With(authn).Get("/check-status", dep.AuthHandler.CheckStatus)
			r.With(authn).Post("/logout", dep.AuthHandler.Logout)
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", dep.ProductHandler.List)
			r.Get("/{term}", dep.ProductHandler.Get)
			r.Group(func(r chi.Router) {
				r.Use(middleware.BodyLimit(bodyLimit))
				r.Use(authn)
				r.Post("/", dep.ProductHandler.Create)
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireRole(domain.RoleAdmin))
					r.Patch("/{id}", dep.ProductHandler.Update)
					r.Delete("/{id}", dep.ProductHandler.Delete)
				})
			})
		})

		r.Route("/files", func(r chi.Router) {
			r.Get("/product/{imageName}", dep.FilesHandler.GetProductImage)
			uploadLimit := dep.UploadMaxBytes
			if uploadLimit <= 0 {
				uploadLimit = 5 << 20
			}
			// Image uploads need more headroom than the JSON body limit.
			r.With(authn, middleware.BodyLimit(uploadLimit+4096)).Post("/product", dep.FilesHandler.UploadProductImage)
		})
	})

	var h http.Handler = r
	if dep.EnableOTelHTTP {
		h = otelhttp.NewHandler(r, "http.server")
	}
	return h
}
