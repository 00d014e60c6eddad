package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/thecolognehub/colognehub-backend/api/controllers"
	webhookcontrollers "github.com/thecolognehub/colognehub-backend/api/controllers/webhooks"
	"github.com/thecolognehub/colognehub-backend/api/middleware"
	"github.com/thecolognehub/colognehub-backend/internal/auth"
	cartsvc "github.com/thecolognehub/colognehub-backend/internal/cart"
	orderssvc "github.com/thecolognehub/colognehub-backend/internal/orders"
	paymentssvc "github.com/thecolognehub/colognehub-backend/internal/payments"
	productsvc "github.com/thecolognehub/colognehub-backend/internal/products"
	userssvc "github.com/thecolognehub/colognehub-backend/internal/users"
	wishlistsvc "github.com/thecolognehub/colognehub-backend/internal/wishlist"
	"github.com/thecolognehub/colognehub-backend/pkg/auth/session"
	"github.com/thecolognehub/colognehub-backend/pkg/config"
	"github.com/thecolognehub/colognehub-backend/pkg/db"
	"github.com/thecolognehub/colognehub-backend/pkg/enums"
	"github.com/thecolognehub/colognehub-backend/pkg/logger"
	"github.com/thecolognehub/colognehub-backend/pkg/metrics"
	"github.com/thecolognehub/colognehub-backend/pkg/redis"
	"github.com/thecolognehub/colognehub-backend/pkg/stripe"
)

// RouterParams carries everything the HTTP surface depends on.
type RouterParams struct {
	Config          *config.Config
	Logger          *logger.Logger
	DB              db.Pinger
	Redis           *redis.Client
	SessionManager  session.AccessSessionChecker
	AuthService     auth.Service
	RegisterService auth.RegisterService
	UsersService    *userssvc.Service
	ProductsService *productsvc.Service
	CartService     *cartsvc.Service
	WishlistService *wishlistsvc.Service
	OrdersService   *orderssvc.Service
	PaymentsService *paymentssvc.Service
	StripeClient    *stripe.Client
	WebhookGuard    *paymentssvc.IdempotencyGuard
	HTTPMetrics     *metrics.HTTPMetrics
	MetricsGatherer prometheus.Gatherer
}

// NewRouter assembles the full route tree. The Stripe webhook is mounted
// outside the authenticated groups because signature verification needs the
// raw request body and no bearer token accompanies gateway deliveries.
func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Metrics(p.HTTPMetrics),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	authed := middleware.Auth(cfg.JWT, p.SessionManager, logg)
	adminOnly := middleware.RequireRole(string(enums.UserRoleAdmin), logg)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.DB, p.Redis))
	})

	if p.MetricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.MetricsGatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(p.PaymentsService, p.StripeClient, p.WebhookGuard, logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(registerPolicy, p.Redis, logg)).Post("/register", controllers.AuthRegister(p.RegisterService, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, p.Redis, logg)).Post("/login", controllers.AuthLogin(p.AuthService, logg))
		r.Post("/verify-email", controllers.AuthVerifyEmail(p.RegisterService, logg))
		r.Post("/resend-code", controllers.AuthResendCode(p.RegisterService, logg))
		r.Post("/refresh", controllers.AuthRefresh(p.AuthService, logg))
		r.With(authed).Post("/logout", controllers.AuthLogout(p.AuthService, logg))
	})

	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", controllers.ProductList(p.ProductsService, logg))
		r.Get("/{productId}", controllers.ProductDetail(p.ProductsService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(authed)

		r.Route("/users/me", func(r chi.Router) {
			r.Get("/", controllers.UserProfile(p.UsersService, logg))
			r.Patch("/", controllers.UserUpdateProfile(p.UsersService, logg))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(p.CartService, logg))
			r.Post("/items", controllers.CartSetItem(p.CartService, logg))
			r.Delete("/items/{productId}", controllers.CartRemoveItem(p.CartService, logg))
			r.Delete("/", controllers.CartClear(p.CartService, logg))
		})

		r.Route("/wishlist", func(r chi.Router) {
			r.Get("/", controllers.WishlistList(p.WishlistService, logg))
			r.Post("/", controllers.WishlistAdd(p.WishlistService, logg))
			r.Delete("/{productId}", controllers.WishlistRemove(p.WishlistService, logg))
		})

		r.Route("/payments", func(r chi.Router) {
			r.Post("/create-intent", controllers.PaymentIntentCreate(p.PaymentsService, logg))
			r.Post("/confirm", controllers.PaymentConfirm(p.PaymentsService, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.OrderList(p.OrdersService, logg))
			r.Get("/{orderId}", controllers.OrderDetail(p.OrdersService, logg))
			r.Post("/{orderId}/cancel", controllers.OrderCancel(p.OrdersService, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(adminOnly)

			r.Route("/products", func(r chi.Router) {
				r.Post("/", controllers.AdminProductCreate(p.ProductsService, logg))
				r.Patch("/{productId}", controllers.AdminProductUpdate(p.ProductsService, logg))
				r.Delete("/{productId}", controllers.AdminProductDelete(p.ProductsService, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.AdminOrderList(p.OrdersService, logg))
				r.Get("/status-counts", controllers.AdminOrderStatusCounts(p.OrdersService, logg))
				r.Get("/{orderId}", controllers.AdminOrderDetail(p.OrdersService, logg))
				r.Patch("/{orderId}/status", controllers.AdminOrderUpdateStatus(p.OrdersService, logg))
			})
		})
	})

	return r
}
