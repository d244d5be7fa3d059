package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/leitor/internal/server/handlers"
)

// New wires the Gin engine with required routes and middlewares. The API is
// served both at the root and under /api, as production deployments proxy it.
func New(handler *handlers.APIHandler, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	register(r, handler)
	register(r.Group("/api"), handler)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	if logger != nil {
		logger.Info("router initialized")
	}

	return r
}

func register(routes gin.IRoutes, handler *handlers.APIHandler) {
	routes.GET("/", handler.Root)
	routes.GET("/produtos", handler.ListProducts)
	routes.POST("/produtos", handler.CreateProduct)
	routes.GET("/leituras", handler.ListScans)
	routes.POST("/leituras", handler.RecordScan)
	routes.GET("/relatorio", handler.Report)
	routes.POST("/start-stream", handler.StartStream)
	routes.POST("/stop-stream", handler.StopStream)
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
