package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/corray333/pedidos-svc/internal/audit/reqlog"
	"github.com/corray333/pedidos-svc/internal/service/models/customer"
	"github.com/corray333/pedidos-svc/internal/service/models/order"
	"github.com/corray333/pedidos-svc/internal/service/models/orderline"
	"github.com/corray333/pedidos-svc/internal/service/models/product"
	"github.com/corray333/pedidos-svc/internal/service/services/ordersvc"
	"github.com/corray333/pedidos-svc/pkg/http/middleware/trace"
	"github.com/corray333/pedidos-svc/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/viper"
)

type customerService interface {
	List(ctx context.Context) ([]customer.View, error)
	SearchByName(ctx context.Context, name string) ([]customer.View, error)
	GetByEmail(ctx context.Context, email string) (*customer.View, error)
	Create(ctx context.Context, name, email string) (*customer.View, error)
	Update(ctx context.Context, email, newName, newEmail string) (*customer.View, error)
	Delete(ctx context.Context, email string) error
}

type productService interface {
	List(ctx context.Context) ([]product.Product, error)
	GetByID(ctx context.Context, id int64) (*product.Product, error)
	Create(ctx context.Context, name string, priceCents int64) (*product.Product, error)
	Update(ctx context.Context, id int64, name string, priceCents int64, active bool) (*product.Product, error)
	Delete(ctx context.Context, id int64) error
}

type orderService interface {
	Create(ctx context.Context, customerEmail string, requested []ordersvc.CreateOrderLine) (*order.HeaderView, error)
	ListHeaders(ctx context.Context) ([]order.HeaderView, error)
	GetHeader(ctx context.Context, orderNumber string) (*order.HeaderView, error)
	UpdateStatus(ctx context.Context, orderNumber, newStatus string) (*order.HeaderView, error)
	Cancel(ctx context.Context, orderNumber string) (*order.HeaderView, error)
	ListLines(ctx context.Context, orderNumber string) ([]orderline.View, error)
	AddLine(ctx context.Context, orderNumber string, productID int64, quantity int) (*orderline.View, error)
	UpdateLine(ctx context.Context, orderNumber string, lineNumber, quantity int) (*orderline.View, error)
	DeleteLine(ctx context.Context, orderNumber string, lineNumber int) (*ordersvc.DeleteLineResult, error)
}

type HTTPTransport struct {
	server    *http.Server
	router    *chi.Mux
	reqLogger *reqlog.Logger

	customers customerService
	products  productService
	orders    orderService
}

func NewHTTPTransport(
	reqLogger *reqlog.Logger,
	customers customerService,
	products productService,
	orders orderService,
) *HTTPTransport {
	router := newRouter(reqLogger)
	server := newServer(router)

	return &HTTPTransport{
		server:    server,
		router:    router,
		reqLogger: reqLogger,
		customers: customers,
		products:  products,
		orders:    orders,
	}
}

func (h *HTTPTransport) Run() error {
	return h.server.ListenAndServe()
}

func (h *HTTPTransport) Shutdown(ctx context.Context) error {
	return h.server.Shutdown(ctx)
}

// RegisterRoutes registers the routes for the HTTPTransport.
func (h *HTTPTransport) RegisterRoutes() {
	h.router.Route("/api", func(r chi.Router) {
		r.Route("/clientes", func(r chi.Router) {
			r.Get("/search", h.listCustomers)
			r.Get("/search-name/{nombre}", h.searchCustomersByName)
			r.Get("/search-email/{email}", h.getCustomerByEmail)
			r.Post("/create", h.createCustomer)
			r.Put("/update-by-email/{email}", h.updateCustomer)
			r.Delete("/delete-by-email/{email}", h.deleteCustomer)
		})

		r.Route("/productos", func(r chi.Router) {
			r.Get("/", h.listProducts)
			r.Get("/{id}", h.getProduct)
			r.Post("/create", h.createProduct)
			r.Put("/{id}", h.updateProduct)
			r.Delete("/{id}", h.deleteProduct)
		})

		r.Route("/pedidos", func(r chi.Router) {
			r.Get("/cabeceras", h.listOrderHeaders)
			r.Get("/cabeceras/{numeroPedido}", h.getOrderHeader)
			r.Post("/create", h.createOrder)
			r.Put("/cabeceras/{numeroPedido}", h.updateOrderStatus)
			r.Delete("/cabeceras/{numeroPedido}", h.cancelOrder)
			r.Get("/{numeroPedido}/detalles", h.listOrderLines)
			r.Post("/{numeroPedido}/detalles/create", h.addOrderLine)
			r.Put("/{numeroPedido}/detalles/{numeroDetalle}", h.updateOrderLine)
			r.Delete("/{numeroPedido}/detalles/{numeroDetalle}", h.deleteOrderLine)
		})
	})
}

func newRouter(reqLogger *reqlog.Logger) *chi.Mux {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(logger.NewLoggerMiddleware(slog.Default()))
	router.Use(trace.NewTraceMiddleware)
	router.Use(newAuditMiddleware(reqLogger))

	allowedOrigins := viper.GetStringSlice("server.http.cors.allowed_origins")
	allowedMethods := viper.GetStringSlice("server.http.cors.allowed_methods")
	allowedHeaders := viper.GetStringSlice("server.http.cors.allowed_headers")
	exposedHeaders := viper.GetStringSlice("server.http.cors.exposed_headers")
	allowCredentials := viper.GetBool("server.http.cors.allow_credentials")
	maxAge := viper.GetInt("server.http.cors.max_age")

	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   allowedMethods,
		AllowedHeaders:   allowedHeaders,
		ExposedHeaders:   exposedHeaders,
		AllowCredentials: allowCredentials,
		MaxAge:           maxAge,
	})

	router.Use(c.Handler)

	return router
}

func newServer(router http.Handler) *http.Server {
	return &http.Server{
		Addr:    "0.0.0.0:" + viper.GetString("server.http.port"),
		Handler: router,
	}
}
