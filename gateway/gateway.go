package gateway

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/example/foodonbus/pkg/cart"
	"github.com/example/foodonbus/pkg/catalog"
	"github.com/example/foodonbus/pkg/config"
	"github.com/example/foodonbus/pkg/history"
	"github.com/example/foodonbus/pkg/models"
	"github.com/example/foodonbus/pkg/order"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// Services are the components the HTTP handlers drive.
type Services struct {
	Catalog *catalog.Catalog
	Carts   cart.Store
	Builder *order.Builder
	History *history.View
}

type Gateway struct {
	config   *config.Config
	services Services
	logger   *zap.Logger
	router   *gin.Engine
	server   *http.Server
	now      func() time.Time
}

type Option func(*Gateway)

// WithClock sets the clock used for schedule defaults.
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) { g.now = now }
}

func NewGateway(cfg *config.Config, logger *zap.Logger, services Services, opts ...Option) *Gateway {
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggerMiddleware(logger.Named("http")))
	router.Use(cors.Default())

	g := &Gateway{
		config:   cfg,
		services: services,
		logger:   logger.Named("gateway"),
		router:   router,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.setupRoutes()
	return g
}

func (g *Gateway) setupRoutes() {
	g.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := g.router.Group("/api/v1")
	{
		v1.GET("/menu", g.listMenu)
		v1.GET("/stops", g.listStops)
		v1.GET("/trips", g.listTrips)

		carts := v1.Group("/carts/:session")
		{
			carts.GET("", g.getCart)
			carts.POST("/items", g.addItem)
			carts.DELETE("", g.clearCart)
			carts.POST("/orders", g.placeOrder)
		}

		v1.GET("/orders", g.listOrders)
		v1.GET("/orders/stats", g.orderStats)
	}

	g.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

// Handler exposes the router, mainly for httptest.
func (g *Gateway) Handler() http.Handler {
	return g.router
}

// Start serves until Shutdown; a clean shutdown returns nil.
func (g *Gateway) Start() error {
	addr := g.config.Server.Addr()
	g.server = &http.Server{
		Addr:              addr,
		Handler:           g.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.logger.Info("Gateway starting", zap.String("address", addr))
	if err := g.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (g *Gateway) Shutdown(ctx context.Context) error {
	if g.server == nil {
		return nil
	}
	return g.server.Shutdown(ctx)
}

func (g *Gateway) symbol() string {
	return g.config.Order.CurrencySymbol
}

type menuItemResponse struct {
	models.MenuItem
	PriceDisplay string `json:"price_display"`
}

func (g *Gateway) listMenu(c *gin.Context) {
	items := g.services.Catalog.Items()
	out := make([]menuItemResponse, 0, len(items))
	for _, it := range items {
		out = append(out, menuItemResponse{MenuItem: it, PriceDisplay: models.FormatCurrency(g.symbol(), it.Price)})
	}
	c.JSON(http.StatusOK, gin.H{"items": out})
}

func (g *Gateway) listStops(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"stops": models.Stops})
}

func (g *Gateway) listTrips(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"trips": catalog.Trips()})
}

type cartResponse struct {
	Items           []models.CartLine `json:"items"`
	Subtotal        string            `json:"subtotal"`
	SubtotalDisplay string            `json:"subtotal_display"`
}

func (g *Gateway) cartView(ct *cart.Cart) cartResponse {
	lines := ct.Lines()
	if lines == nil {
		lines = []models.CartLine{}
	}
	subtotal := ct.Subtotal()
	return cartResponse{
		Items:           lines,
		Subtotal:        subtotal.StringFixed(2),
		SubtotalDisplay: models.FormatCurrency(g.symbol(), subtotal),
	}
}

func (g *Gateway) getCart(c *gin.Context) {
	ct, err := g.services.Carts.Load(c.Request.Context(), c.Param("session"))
	if err != nil {
		g.internalError(c, "Failed to load cart", err)
		return
	}
	c.JSON(http.StatusOK, g.cartView(ct))
}

type addItemRequest struct {
	ItemID string `json:"item_id" binding:"required"`
	Qty    int    `json:"qty" binding:"required,min=1,max=10"`
}

func (g *Gateway) addItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	session := c.Param("session")

	ct, err := g.services.Carts.Load(ctx, session)
	if err != nil {
		g.internalError(c, "Failed to load cart", err)
		return
	}

	line, err := ct.Add(req.ItemID, req.Qty)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := g.services.Carts.Save(ctx, session, ct); err != nil {
		g.internalError(c, "Failed to save cart", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"added": line, "cart": g.cartView(ct)})
}

func (g *Gateway) clearCart(c *gin.Context) {
	if err := g.services.Carts.Delete(c.Request.Context(), c.Param("session")); err != nil {
		g.internalError(c, "Failed to clear cart", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cart cleared"})
}

type deliveryRequest struct {
	Mode      string `json:"mode"`
	Stop      string `json:"stop"`
	Time      string `json:"time"`
	Date      string `json:"date"`
	DropPoint string `json:"drop_point"`
}

type placeOrderRequest struct {
	Trip          string          `json:"trip"`
	BusNo         string          `json:"bus_no"`
	Seat          string          `json:"seat"`
	Route         string          `json:"route"`
	BoardingPoint string          `json:"boarding_point"`
	Phone         string          `json:"phone"`
	Notes         string          `json:"notes"`
	Delivery      deliveryRequest `json:"delivery"`
}

const defaultLaterTime = "23:00"

func (g *Gateway) placeOrder(c *gin.Context) {
	var req placeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	passenger := models.Passenger{
		BusNo:         req.BusNo,
		Seat:          req.Seat,
		Route:         req.Route,
		BoardingPoint: req.BoardingPoint,
		Phone:         req.Phone,
		Notes:         req.Notes,
	}.Normalize()
	if req.Trip != "" {
		trip, ok := catalog.TripByBusNo(req.Trip)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown trip " + req.Trip})
			return
		}
		passenger = passenger.FillFromTrip(trip)
	}

	delivery, err := g.schedule(req.Delivery)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	session := c.Param("session")

	ct, err := g.services.Carts.Load(ctx, session)
	if err != nil {
		g.internalError(c, "Failed to load cart", err)
		return
	}

	receipt, err := g.services.Builder.PlaceOrder(ctx, ct, passenger, delivery)
	switch {
	case errors.Is(err, order.ErrValidation):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	case err != nil:
		g.internalError(c, "Failed to place order", err)
		return
	}

	resp := gin.H{
		"order_id": receipt.OrderID,
		"total":    receipt.Total,
	}
	if err := g.clearStoredCart(ctx, session, ct); err != nil {
		g.logger.Error("Order placed but cart not cleared",
			zap.String("session", session), zap.String("order_id", receipt.OrderID), zap.Error(err))
		resp["warning"] = "order placed but the cart could not be cleared; clear it before ordering again"
	}

	c.JSON(http.StatusCreated, resp)
}

// clearStoredCart saves the emptied cart, falling back to deleting the session.
func (g *Gateway) clearStoredCart(ctx context.Context, session string, ct *cart.Cart) error {
	saveErr := g.services.Carts.Save(ctx, session, ct)
	if saveErr == nil {
		return nil
	}
	g.logger.Warn("Failed to save emptied cart, deleting session",
		zap.String("session", session), zap.Error(saveErr))
	if err := g.services.Carts.Delete(ctx, session); err != nil {
		return errors.Join(saveErr, err)
	}
	return nil
}

// schedule builds the delivery schedule, filling the Later time and the
// Tomorrow date when they are left blank.
func (g *Gateway) schedule(req deliveryRequest) (models.DeliverySchedule, error) {
	if req.Mode == "" {
		return models.DeliverNow(), nil
	}

	mode, err := models.ParseDeliveryMode(req.Mode)
	if err != nil {
		return models.DeliverySchedule{}, err
	}

	switch mode {
	case models.DeliveryLater:
		at := req.Time
		if at == "" {
			at = defaultLaterTime
		}
		tod, err := models.ParseTimeOfDay(at)
		if err != nil {
			return models.DeliverySchedule{}, err
		}
		return models.DeliverLater(req.Stop, tod)
	case models.DeliveryTomorrow:
		date := g.now().AddDate(0, 0, 1)
		if req.Date != "" {
			date, err = time.Parse(models.DateLayout, req.Date)
			if err != nil {
				return models.DeliverySchedule{}, err
			}
		}
		return models.DeliverTomorrow(date, req.DropPoint)
	default:
		return models.DeliverNow(), nil
	}
}

func (g *Gateway) listOrders(c *gin.Context) {
	orders := g.services.History.ListOrders(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"total":  len(orders),
	})
}

const defaultTopItems = 3

func (g *Gateway) orderStats(c *gin.Context) {
	top := defaultTopItems
	if q := c.Query("top"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "top must be a non-negative integer"})
			return
		}
		top = n
	}
	c.JSON(http.StatusOK, g.services.History.Stats(c.Request.Context(), top))
}

func (g *Gateway) internalError(c *gin.Context, msg string, err error) {
	g.logger.Error(msg, zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func loggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
