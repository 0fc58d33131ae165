package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/etchbroker/makelar-backend/api/controllers"
	ordercontrollers "github.com/etchbroker/makelar-backend/api/controllers/orders"
	paymentcontrollers "github.com/etchbroker/makelar-backend/api/controllers/payments"
	pricingcontrollers "github.com/etchbroker/makelar-backend/api/controllers/pricing"
	quotecontrollers "github.com/etchbroker/makelar-backend/api/controllers/quotes"
	"github.com/etchbroker/makelar-backend/api/middleware"
	"github.com/etchbroker/makelar-backend/internal/orders"
	"github.com/etchbroker/makelar-backend/internal/payments"
	"github.com/etchbroker/makelar-backend/internal/quotes"
	"github.com/etchbroker/makelar-backend/pkg/config"
	"github.com/etchbroker/makelar-backend/pkg/enums"
	"github.com/etchbroker/makelar-backend/pkg/logger"
	"github.com/etchbroker/makelar-backend/pkg/redis"
)

// Services bundles the domain services exposed over HTTP.
type Services struct {
	Orders   orders.Service
	Quotes   quotes.Service
	Payments payments.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	readiness map[string]controllers.Pinger,
	redisClient *redis.Client,
	gatherer prometheus.Gatherer,
	svc Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSAllowedOrigins),
	)

	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	var (
		idemStore redis.IdempotencyStore
		limiter   middleware.RateLimiterStore
	)
	if redisClient != nil {
		idemStore = redisClient
		limiter = redisClient
	}
	ratePolicy := middleware.NewRateLimitPolicy(cfg.RateLimit.Window, cfg.RateLimit.TenantLimit, cfg.RateLimit.UserLimit)
	moneyRoles := middleware.RequireRoles(logg, enums.ActorRoleAdmin, enums.ActorRoleFinance)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RateLimit(ratePolicy, limiter, logg))
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordercontrollers.List(svc.Orders, logg))
			r.Post("/", ordercontrollers.Create(svc.Orders, logg))
			r.Route("/{orderId}", func(r chi.Router) {
				r.Get("/", ordercontrollers.Detail(svc.Orders, logg))
				r.Put("/parties", ordercontrollers.AssignParties(svc.Orders, logg))
				r.Put("/items", ordercontrollers.SetItems(svc.Orders, logg))
				r.Put("/pricing", ordercontrollers.SetPricing(svc.Orders, logg))
				r.Put("/payment-type", ordercontrollers.SelectPaymentType(svc.Orders, logg))
				r.Get("/transitions", ordercontrollers.AvailableTransitions(svc.Orders, logg))
				r.Post("/transitions", ordercontrollers.Transition(svc.Orders, logg))

				r.Get("/quotes", quotecontrollers.ListActiveForOrder(svc.Quotes, logg))
				r.Get("/quotes/compare", quotecontrollers.Compare(svc.Quotes, logg))

				r.Get("/payments", paymentcontrollers.List(svc.Payments, logg))
				r.With(moneyRoles).Post("/payments", paymentcontrollers.RecordCustomerPayment(svc.Payments, logg))
				r.Post("/payments/preview", paymentcontrollers.Preview(svc.Payments, logg))
				r.With(moneyRoles).Post("/payouts", paymentcontrollers.RecordVendorPayout(svc.Payments, logg))
			})
		})

		r.Route("/quotes", func(r chi.Router) {
			r.Get("/", quotecontrollers.List(svc.Quotes, logg))
			r.Post("/", quotecontrollers.Create(svc.Quotes, logg))
			r.Route("/{quoteId}", func(r chi.Router) {
				r.Get("/", quotecontrollers.Detail(svc.Quotes, logg))
				r.Patch("/", quotecontrollers.UpdateDetails(svc.Quotes, logg))
				r.Post("/send", quotecontrollers.Send(svc.Quotes, logg))
				r.Post("/responses", quotecontrollers.RecordResponse(svc.Quotes, logg))
				r.Put("/offer", quotecontrollers.UpdateOffer(svc.Quotes, logg))
				r.Post("/extend", quotecontrollers.ExtendExpiration(svc.Quotes, logg))
			})
		})

		r.With(moneyRoles).Post("/payment-allocations/{allocationId}/paid", paymentcontrollers.MarkAllocationPaid(svc.Payments, logg))

		r.Route("/pricing", func(r chi.Router) {
			r.Post("/markup", pricingcontrollers.Markup(logg))
			r.Post("/profit", pricingcontrollers.Profit(logg))
			r.Post("/compare", pricingcontrollers.Compare(logg))
			r.Post("/schedule", pricingcontrollers.Schedule(logg))
		})
	})

	return r
}
