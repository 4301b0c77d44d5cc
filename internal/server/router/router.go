package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yshioka/equipmatch/internal/server/handlers"
)

// New wires the Gin engine with required routes and middlewares.
func New(matchingH *handlers.MatchingHandler, assetH *handlers.AssetHandler, applicationH *handlers.ApplicationHandler, loanH *handlers.LoanHandler, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	sessions := r.Group("/matching/sessions")
	{
		sessions.POST("", matchingH.OpenSession)
		sessions.GET("/:id", matchingH.Session)
		sessions.DELETE("/:id", matchingH.CloseSession)
		sessions.POST("/:id/heartbeat", matchingH.Heartbeat)
		sessions.PUT("/:id/filters", matchingH.UpdateFilters)
		sessions.PUT("/:id/match-filter", matchingH.UpdateMatchFilter)
		sessions.PUT("/:id/selection", matchingH.UpdateSelection)
		sessions.GET("/:id/records", matchingH.Records)
		sessions.POST("/:id/confirm", matchingH.Confirm)
		sessions.POST("/:id/unconfirmed", matchingH.MarkUnconfirmed)
		sessions.POST("/:id/revert", matchingH.Revert)
		sessions.GET("/:id/downstream", matchingH.Downstream)
	}

	r.GET("/assets", assetH.Search)
	r.POST("/assets/select", assetH.Select)
	r.GET("/assets/bookmarks", assetH.Bookmarks)
	r.POST("/assets/bookmarks", assetH.SaveBookmark)
	r.DELETE("/assets/bookmarks/:id", assetH.DeleteBookmark)

	r.GET("/applications", applicationH.List)
	r.POST("/applications", applicationH.Create)
	r.POST("/applications/:id/submit", applicationH.Submit)
	r.POST("/applications/:id/approve", applicationH.Approve)
	r.POST("/applications/:id/reject", applicationH.Reject)

	r.GET("/loans", loanH.List)
	r.POST("/loans", loanH.Lend)
	r.POST("/loans/:id/return", loanH.Return)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	if logger != nil {
		logger.Info("router initialized")
	}

	return r
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
