package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront/api/controllers"
	"github.com/angelmondragon/storefront/api/middleware"
	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/metrics"
)

// Services are the handlers' collaborators, built once in main.
type Services struct {
	Storefront controllers.StorefrontService
	Carts      controllers.CartOpener
	Reconciler controllers.PaymentReconciler
	Orders     controllers.OrderTracker
	Checkout   controllers.CheckoutOptions
	Readiness  []controllers.ReadinessCheck

	// Gatherer backs /metrics; nil disables the endpoint.
	Gatherer    prometheus.Gatherer
	HTTPMetrics *metrics.HTTPMetrics
}

func NewRouter(cfg *config.Config, logg *logger.Logger, svc Services) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(svc.HTTPMetrics),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, svc.Readiness...))
	})
	if svc.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(svc.Gatherer, promhttp.HandlerOpts{}))
	}

	cartHandlers := controllers.NewCartHandlers(svc.Storefront, svc.Carts, svc.Checkout.DefaultPlatformFeePercent, logg)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Shopper(cfg.Session, logg))

		r.Get("/stores", controllers.StoreDirectory(svc.Storefront, logg))

		r.Route("/stores/{slug}", func(r chi.Router) {
			r.Use(middleware.StoreSlug(logg))

			r.Get("/", controllers.StorePage(svc.Storefront, svc.Carts, svc.Reconciler, logg))
			r.Get("/products", controllers.StoreProducts(svc.Storefront, logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartHandlers.Fetch())
				r.Delete("/", cartHandlers.Clear())
				r.Get("/count", cartHandlers.Count())
				r.Post("/items", cartHandlers.Add())
				r.Patch("/items/{productId}", cartHandlers.Update())
				r.Delete("/items/{productId}", cartHandlers.Remove())
			})

			r.Post("/checkout/quote", controllers.CheckoutQuote(svc.Storefront, svc.Carts, svc.Checkout, logg))
			r.Post("/checkout", controllers.CheckoutSubmit(svc.Storefront, svc.Carts, svc.Checkout, logg))

			r.Route("/orders/{orderNumber}", func(r chi.Router) {
				r.Get("/", controllers.OrderTrack(svc.Orders, logg))
				r.Post("/payment-proof", controllers.OrderPaymentProof(svc.Orders, logg))
			})
		})
	})

	return r
}
