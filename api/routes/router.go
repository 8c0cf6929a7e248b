package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tsiki-shop/storefront-backend/api/controllers"
	"github.com/tsiki-shop/storefront-backend/api/middleware"
	"github.com/tsiki-shop/storefront-backend/internal/auth"
	"github.com/tsiki-shop/storefront-backend/internal/cart"
	product "github.com/tsiki-shop/storefront-backend/internal/products"
	"github.com/tsiki-shop/storefront-backend/internal/users"
	pkgauth "github.com/tsiki-shop/storefront-backend/pkg/auth"
	"github.com/tsiki-shop/storefront-backend/pkg/config"
	"github.com/tsiki-shop/storefront-backend/pkg/db"
	"github.com/tsiki-shop/storefront-backend/pkg/enums"
	"github.com/tsiki-shop/storefront-backend/pkg/logger"
	"github.com/tsiki-shop/storefront-backend/pkg/metrics"
	"github.com/tsiki-shop/storefront-backend/pkg/redis"
)

// Deps is everything the router needs from cmd/api.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          db.Pinger
	Redis       *redis.Client
	Gatherer    prometheus.Gatherer
	HTTPMetrics *metrics.HTTPMetrics

	AuthService    auth.Service
	CartService    cart.Service
	ProductService product.Service
	AdminUsers     users.AdminService
}

func NewRouter(deps Deps) http.Handler {
	cfg, logg := deps.Config, deps.Logger
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, deps.HTTPMetrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	sessionCookies := pkgauth.CookieSettingsFromConfig(cfg)
	cartCookies := middleware.CartCookieSettings{
		Domain: cfg.Cookie.Domain,
		Secure: sessionCookies.Secure,
		MaxAge: cfg.Cookie.CartIDMaxAge,
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readinessChecks(deps)))
	})

	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(authRateLimit(middleware.RegisterPolicy(cfg.AuthRateLimit), deps)).
			Post("/register", controllers.AuthRegister(deps.AuthService, sessionCookies, logg))
		r.With(authRateLimit(middleware.LoginPolicy(cfg.AuthRateLimit), deps)).
			Post("/login", controllers.AuthLogin(deps.AuthService, sessionCookies, logg))
		r.Post("/logout", controllers.AuthLogout(sessionCookies))
		r.Get("/me", controllers.AuthMe(deps.AuthService, logg))
	})

	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", controllers.ProductList(deps.ProductService, logg))
		r.Get("/{productId}", controllers.ProductDetail(deps.ProductService, logg))
	})

	r.Route("/api/v1/cart", func(r chi.Router) {
		r.Use(middleware.CartSession(cartCookies, logg))

		r.Get("/", controllers.CartFetch(deps.CartService, logg))
		r.Delete("/", controllers.CartClear(deps.CartService, logg))
		r.Post("/items", controllers.CartAddItem(deps.CartService, logg))
		r.Route("/items/{productId}", func(r chi.Router) {
			r.Put("/", controllers.CartSetQuantity(deps.CartService, logg))
			r.Delete("/", controllers.CartRemoveItem(deps.CartService, logg))
			r.Post("/increment", controllers.CartIncrement(deps.CartService, logg))
			r.Post("/decrement", controllers.CartDecrement(deps.CartService, logg))
		})
		r.Post("/coupon", controllers.CartApplyCoupon(deps.CartService, logg))
		r.Delete("/coupon", controllers.CartRemoveCoupon(deps.CartService, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Session(deps.AuthService, logg))
		r.Use(middleware.RequireRole(enums.UserRoleAdmin, logg))

		r.Get("/users", controllers.AdminUserList(deps.AdminUsers, logg))
		r.Route("/users/{userId}", func(r chi.Router) {
			r.Get("/", controllers.AdminUserDetail(deps.AdminUsers, logg))
			r.Patch("/", controllers.AdminUserUpdate(deps.AdminUsers, logg))
			r.Delete("/", controllers.AdminUserDelete(deps.AdminUsers, logg))
		})
	})

	return r
}

// authRateLimit skips limiting when no redis client is wired.
func authRateLimit(policy middleware.AuthRateLimitPolicy, deps Deps) func(http.Handler) http.Handler {
	if deps.Redis == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return middleware.AuthRateLimit(policy, deps.Redis, deps.Logger)
}

func readinessChecks(deps Deps) map[string]controllers.Pinger {
	checks := map[string]controllers.Pinger{}
	if deps.DB != nil {
		checks["db"] = deps.DB
	}
	if deps.Redis != nil {
		checks["redis"] = deps.Redis
	}
	return checks
}
