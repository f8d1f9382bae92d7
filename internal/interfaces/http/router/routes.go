package router

import (
	"github.com/gin-gonic/gin"
	"github.com/kif1r4ek/test-my-sklad/internal/infrastructure/logger"
	"github.com/kif1r4ek/test-my-sklad/internal/interfaces/http/handler"
	"github.com/kif1r4ek/test-my-sklad/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// Handlers are the HTTP handlers served by the engine
type Handlers struct {
	Orders   *handler.OrdersHandler
	Supply   *handler.SupplyHandler
	Employee *handler.EmployeeHandler
	Events   *handler.EventsHandler
	System   *handler.SystemHandler
}

// EngineConfig configures the middleware stack of the engine
type EngineConfig struct {
	ServiceName    string
	Tracing        bool
	CORSOrigins    []string
	TrustedProxies []string
	MaxBodySize    int64
}

// NewEngine builds the gin engine with its middleware stack and all routes.
//
// Middleware order:
//  1. RequestID, then the request logger that reuses it
//  2. Recovery
//  3. CORS and the body limit
//  4. Tracing with request, user and supply span attributes
func NewEngine(cfg EngineConfig, h Handlers, log *zap.Logger) *gin.Engine {
	engine := gin.New()
	if len(cfg.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.GinMiddleware(log))
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.CORSOrigins)))
	if cfg.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(cfg.MaxBodySize))
	}
	engine.Use(middleware.Tracing(middleware.TracingConfig{
		ServiceName: cfg.ServiceName,
		Enabled:     cfg.Tracing,
	}))

	engine.GET("/health", h.System.Health)
	engine.GET("/metrics", h.System.Metrics)

	r := NewRouter(engine, WithAPIVersion("v1"))
	RegisterRoutes(r, h)
	r.Setup()
	return engine
}

// RegisterRoutes registers the admin, employee, event and system groups
func RegisterRoutes(r *Router, h Handlers) {
	admin := NewDomainGroup("admin", "")
	admin.Use(middleware.SpanAttributes())
	admin.GET("/stores", h.Orders.ListStores)
	admin.GET("/orders", h.Orders.ListOrders)
	admin.GET("/orders/new", h.Orders.ListNewOrders)
	admin.GET("/orders/pick", h.Orders.PickOrders)
	admin.GET("/supplies", h.Orders.ListSupplies)
	admin.POST("/supplies", h.Orders.CreateSupply)

	supplies := admin.Group("supply", "/supplies/:id")
	supplies.GET("/orders", h.Supply.ListOrders)
	supplies.GET("/settings", h.Supply.GetSettings)
	supplies.PUT("/access-mode", h.Supply.UpdateAccessMode)
	supplies.PUT("/access-users", h.Supply.SetAccessUsers)
	supplies.POST("/reset-access", h.Supply.ResetAccess)
	supplies.POST("/split", h.Supply.Split)
	supplies.POST("/redistribute", h.Supply.Redistribute)
	supplies.POST("/labels", h.Supply.GenerateLabels)

	employee := NewDomainGroup("employee", "/employee")
	employee.Use(middleware.Actor(), middleware.SpanAttributes())
	employee.GET("/supplies", h.Employee.ListSupplies)
	employee.GET("/supplies/:id/items", h.Employee.ListItems)
	employee.GET("/supplies/:id/orders", h.Employee.ListOrders)
	employee.POST("/supplies/:id/orders/:orderId/scan", h.Employee.Scan)
	employee.POST("/supplies/:id/orders/:orderId/label-scan", h.Employee.LabelScan)
	employee.POST("/supplies/:id/orders/:orderId/collect", h.Employee.Collect)

	events := NewDomainGroup("events", "/events")
	events.GET("", h.Events.Stream)

	system := NewDomainGroup("system", "/system")
	system.GET("/info", h.System.GetSystemInfo)

	r.Register(admin).
		Register(employee).
		Register(events).
		Register(system)
}
