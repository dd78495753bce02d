package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterConfig holds the router's non-handler settings.
type RouterConfig struct {
	JWTSecret     []byte
	JWTIssuer     string
	RatePerMinute int // per client IP; <= 0 means 60
}

// NewRouter builds and returns the Chi router with all routes configured.
// Health, metrics, shop and geocode routes are public; favorites require a JWT.
func NewRouter(handlers *Handlers, health http.HandlerFunc, cfg RouterConfig) *chi.Mux {
	rate := cfg.RatePerMinute
	if rate <= 0 {
		rate = 60
	}

	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/api/v1/health", health)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(httprate.LimitByIP(rate, time.Minute))

		r.Get("/api/v1/shops/nearby", handlers.NearbyShops)
		r.Get("/api/v1/shops/*", handlers.ShopDetail)
		r.Get("/api/v1/photos/*", handlers.Photo)
		r.Get("/api/v1/geocode/reverse", handlers.ReverseGeocode)
		r.Get("/api/v1/geocode/forward", handlers.ForwardGeocode)

		r.Group(func(r chi.Router) {
			r.Use(JWTAuth(cfg.JWTSecret, cfg.JWTIssuer))
			r.Get("/api/v1/favorites", handlers.ListFavorites)
			r.Post("/api/v1/favorites", handlers.AddFavorite)
			r.Delete("/api/v1/favorites/*", handlers.RemoveFavorite)
		})
	})

	return r
}

// Ensure chi.Mux implements http.Handler.
var _ http.Handler = (*chi.Mux)(nil)
