package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/annel0/army-battle/internal/army"
	"github.com/annel0/army-battle/internal/auth"
	"github.com/annel0/army-battle/internal/game"
	"github.com/annel0/army-battle/internal/logging"
	"github.com/annel0/army-battle/internal/middleware"
	"github.com/annel0/army-battle/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// RestServer представляет REST API сервер
type RestServer struct {
	router  *gin.Engine
	server  *http.Server
	users   storage.UserRepository
	armies  storage.ArmyRepository
	auth    *auth.Service
	factory *army.Factory
	games   *game.Manager
	metrics *ServerMetrics
	logger  *logging.Logger
}

// Config содержит зависимости REST сервера
type Config struct {
	Port        string                 // адрес вида ":8088"
	ServiceName string                 // имя сервиса для otelgin и метрик
	Users       storage.UserRepository // репозиторий пользователей
	Armies      storage.ArmyRepository // репозиторий армий
	Auth        *auth.Service
	Factory     *army.Factory
	Games       *game.Manager
	WebSocket   http.Handler // хаб /ws, может быть nil
	Registerer  prometheus.Registerer
	Gatherer    prometheus.Gatherer
}

// NewRestServer создает новый REST API сервер
func NewRestServer(config Config) *RestServer {
	if config.Port == "" {
		config.Port = ":8088"
	}
	if config.ServiceName == "" {
		config.ServiceName = "rest_api"
	}

	router := gin.New()
	router.Use(gin.Recovery())

	// Observability: trace span, затем логгер видит trace-id
	router.Use(otelgin.Middleware(config.ServiceName))
	router.Use(middleware.NewRequestLogger().Handler())

	promMw := middleware.NewPrometheusMiddleware("rest_api", config.Registerer)
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router, config.Gatherer)

	rs := &RestServer{
		router:  router,
		users:   config.Users,
		armies:  config.Armies,
		auth:    config.Auth,
		factory: config.Factory,
		games:   config.Games,
		metrics: NewServerMetrics(),
		logger:  logging.GetAPILogger(),
	}
	rs.server = &http.Server{
		Addr:              config.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	rs.setupRoutes()
	if config.WebSocket != nil {
		router.GET("/ws", gin.WrapH(config.WebSocket))
	}
	return rs
}

// Handler возвращает http.Handler сервера (для тестов и встраивания)
func (rs *RestServer) Handler() http.Handler {
	return rs.router
}

// setupRoutes настраивает маршруты REST API
func (rs *RestServer) setupRoutes() {
	rs.router.Use(corsMiddleware())

	api := rs.router.Group("/api")

	api.POST("/auth/login", rs.handleLogin)
	api.GET("/server", rs.handleServerInfo)

	jwt := rs.jwtMiddleware()

	users := api.Group("/users")
	{
		users.GET("/info", jwt, rs.handleUserInfo)
		users.GET("", rs.handleListUsers)
		users.POST("", rs.handleCreateUser)
		users.GET("/:id", rs.handleGetUser)
		users.PUT("/:id", rs.handleModifyUser)
		users.PATCH("/:id", rs.handleUpdateUser)
		users.DELETE("/:id", rs.handleDeleteUser)
		users.GET("/:id/armies", rs.handleListArmies)
		users.POST("/:id/armies", rs.handleCreateArmy)
		users.PATCH("/:id/armies/:armyId", rs.handleUpdateArmy)
	}

	games := api.Group("/games")
	{
		games.POST("", jwt, rs.handleStartGame)
		games.GET("", rs.handleListGames)
		games.GET("/:id", rs.handleGetGame)
		games.POST("/:id/stop", jwt, rs.handleStopGame)
	}

	admin := api.Group("/admin", jwt, rs.adminMiddleware())
	{
		admin.POST("/users", rs.handleAdminRegister)
	}

	rs.router.GET("/health", rs.handleHealth)
}

// GenericResponse представляет общий ответ API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Link - ссылка на созданный или измененный ресурс
type Link struct {
	Rel    string `json:"rel"`
	Action string `json:"action"`
	Href   string `json:"href"`
}

func resourceLink(c *gin.Context, rel, path string) []Link {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	return []Link{{Rel: rel, Action: http.MethodGet, Href: scheme + "://" + c.Request.Host + path}}
}

// LoginRequest представляет запрос на вход
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (rs *RestServer) handleLogin(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, "bad_request", "Email and password are required")
		return
	}

	res, err := rs.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Успешная авторизация",
		Data:    res,
	})
}

func (rs *RestServer) handleServerInfo(c *gin.Context) {
	stats := rs.metrics.Snapshot()
	if rs.games != nil {
		stats.ActiveGames = len(rs.games.List())
	}

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Информация о сервере",
		Data: gin.H{
			"name":        "Army Battle Server",
			"status":      "running",
			"stats":       stats,
			"server_time": time.Now().Unix(),
		},
	})
}

func (rs *RestServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().Unix(),
	})
}

// Start запускает HTTP сервер и блокируется до Stop
func (rs *RestServer) Start() error {
	rs.logger.Info("REST API слушает %s", rs.server.Addr)
	if err := rs.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop завершает сервер, дожидаясь активных запросов
func (rs *RestServer) Stop(ctx context.Context) error {
	return rs.server.Shutdown(ctx)
}
