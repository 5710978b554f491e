// Package handler implements the HTTP API on top of the domain services.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yega-app/yega-api/internal/domain/auth"
	"github.com/yega-app/yega-api/internal/domain/order"
	"github.com/yega-app/yega-api/internal/domain/product"
	"github.com/yega-app/yega-api/internal/domain/store"
	"github.com/yega-app/yega-api/internal/domain/user"
)

//go:generate mockgen -destination=mocks/services.go -package=mocks . UserService,StoreService,ProductService,OrderService,PaymentService,TokenVerifier

// UserService handles account registration and sessions.
type UserService interface {
	Register(ctx context.Context, req user.RegisterRequest) (*user.Session, error)
	Login(ctx context.Context, email, password string) (*user.Session, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
}

// StoreService manages stores.
type StoreService interface {
	List(ctx context.Context, limit, offset int) ([]store.Store, int, error)
	Get(ctx context.Context, id string) (*store.Store, error)
	Create(ctx context.Context, ownerID, name, description string) (*store.Store, error)
	Update(ctx context.Context, callerID, id, name, description string) (*store.Store, error)
	Delete(ctx context.Context, callerID, id string) error
}

// ProductService manages the catalog.
type ProductService interface {
	List(ctx context.Context, limit, offset int) ([]product.Product, int, error)
	Get(ctx context.Context, id string) (*product.Product, error)
	Create(ctx context.Context, callerID string, in product.Input) (*product.Product, error)
	Update(ctx context.Context, callerID, id string, in product.Input) (*product.Product, error)
	Delete(ctx context.Context, callerID, id string) error
}

// OrderService creates orders and drives their status.
type OrderService interface {
	Create(ctx context.Context, req order.CreateRequest) (*order.Order, error)
	UpdateStatus(ctx context.Context, req order.UpdateStatusRequest) (*order.Order, error)
	Get(ctx context.Context, userID, orderID string) (*order.Order, error)
	List(ctx context.Context, userID string, limit, offset int) ([]order.Order, int, error)
}

// PaymentService creates payment intents and consumes provider webhooks.
type PaymentService interface {
	CreateIntent(ctx context.Context, userID, orderID string) (string, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

// TokenVerifier resolves a bearer token to an identity.
type TokenVerifier interface {
	ParseAccess(token string) (auth.Identity, error)
}

// Deps are the services the API delegates to.
type Deps struct {
	Users    UserService
	Stores   StoreService
	Products ProductService
	Orders   OrderService
	Payments PaymentService
	Tokens   TokenVerifier

	// AuthLimiter, when set, wraps the /auth routes.
	AuthLimiter func(http.Handler) http.Handler
}

// Handler serves the REST API.
type Handler struct {
	users       UserService
	stores      StoreService
	products    ProductService
	orders      OrderService
	payments    PaymentService
	tokens      TokenVerifier
	authLimiter func(http.Handler) http.Handler
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(deps Deps) *Handler {
	limiter := deps.AuthLimiter
	if limiter == nil {
		limiter = func(next http.Handler) http.Handler { return next }
	}
	return &Handler{
		users:       deps.Users,
		stores:      deps.Stores,
		products:    deps.Products,
		orders:      deps.Orders,
		payments:    deps.Payments,
		tokens:      deps.Tokens,
		authLimiter: limiter,
	}
}

// Mount registers all API routes on r.
func (h *Handler) Mount(r chi.Router) {
	authn := Authenticate(h.tokens)

	r.Route("/auth", func(r chi.Router) {
		r.Use(h.authLimiter)
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/refresh", h.Refresh)
	})

	r.Route("/stores", func(r chi.Router) {
		r.Get("/", h.ListStores)
		r.Get("/{storeID}", h.GetStore)
		r.Group(func(r chi.Router) {
			r.Use(authn)
			r.Post("/", h.CreateStore)
			r.Put("/{storeID}", h.UpdateStore)
			r.Delete("/{storeID}", h.DeleteStore)
		})
	})

	r.Route("/catalog/products", func(r chi.Router) {
		r.Get("/", h.ListProducts)
		r.Get("/{productID}", h.GetProduct)
		r.Group(func(r chi.Router) {
			r.Use(authn, RequireRole(auth.RoleStore))
			r.Post("/", h.CreateProduct)
			r.Put("/{productID}", h.UpdateProduct)
			r.Delete("/{productID}", h.DeleteProduct)
		})
	})

	r.Route("/orders", func(r chi.Router) {
		r.Use(authn)
		r.Get("/", h.ListOrders)
		r.Post("/", h.CreateOrder)
		r.Get("/{orderID}", h.GetOrder)
		r.Patch("/{orderID}/status", h.UpdateOrderStatus)
	})

	r.Route("/payments", func(r chi.Router) {
		r.Post("/webhook", h.PaymentWebhook)
		r.With(authn).Post("/intent", h.CreatePaymentIntent)
	})
}

// Routes returns a router serving the API.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, codeNotFound, "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
	})
	h.Mount(r)
	return r
}
