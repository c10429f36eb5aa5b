// Package router define las rutas HTTP del servicio.
package router

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	ctrl "github.com/dropDatabas3/studytrack/internal/http/controllers/auth"
	"github.com/dropDatabas3/studytrack/internal/http/helpers"
	mw "github.com/dropDatabas3/studytrack/internal/http/middlewares"
	jwtx "github.com/dropDatabas3/studytrack/internal/jwt"
	"github.com/dropDatabas3/studytrack/internal/rate"
)

// Pinger expone el health check del storage.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps contiene las dependencias del router.
type Deps struct {
	Auth   *ctrl.Controller
	Issuer *jwtx.Issuer
	Store  Pinger

	// Limiters por endpoint sensible. Nil deshabilita el límite.
	LoginLimiter  rate.Limiter
	ForgotLimiter rate.Limiter

	// Registry para /metrics. Nil usa el registrador default.
	Registry *prometheus.Registry
}

// New construye el router completo: rutas de auth, health checks y
// métricas, con la cadena de middlewares estándar.
func New(deps Deps) http.Handler {
	r := chi.NewRouter()

	// Cadena base: recover primero en interceptar, request id antes del
	// logging para que todo log salga correlacionado.
	r.Use(mw.WithRecover())
	r.Use(mw.WithRequestID())
	r.Use(mw.WithLogging())
	r.Use(mw.WithSecurityHeaders())

	r.Route("/v1/auth", func(r chi.Router) {
		// Endpoints que emiten tokens nunca se cachean.
		r.Use(mw.WithNoStore())

		r.With(mw.WithRateLimit(deps.LoginLimiter, mw.IPRateKey)).
			Post("/login", deps.Auth.Login)
		r.With(mw.WithRateLimit(deps.ForgotLimiter, mw.IPRateKey)).
			Post("/forgot-password", deps.Auth.ForgotPassword)
		r.With(mw.WithRateLimit(deps.ForgotLimiter, mw.IPRateKey)).
			Post("/verify-email/resend", deps.Auth.ResendVerification)

		r.Post("/register", deps.Auth.Register)
		r.Post("/verify-email", deps.Auth.VerifyEmail)
		r.Post("/refresh", deps.Auth.Refresh)
		r.Post("/logout", deps.Auth.Logout)
		r.Post("/reset-password", deps.Auth.ResetPassword)

		r.With(mw.RequireAuth(deps.Issuer)).
			Post("/logout-all", deps.Auth.LogoutAll)
	})

	// Liveness: el proceso responde.
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		helpers.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Readiness: el storage responde.
	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()
		if deps.Store != nil {
			if err := deps.Store.Ping(ctx); err != nil {
				helpers.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "degraded",
					"store":  "unreachable",
				})
				return
			}
		}
		helpers.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if deps.Registry != nil {
		r.Get("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}).ServeHTTP)
	} else {
		r.Get("/metrics", promhttp.Handler().ServeHTTP)
	}

	return r
}
