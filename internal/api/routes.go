package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// NewRouter builds the gin engine serving spec §6's routes: "/" keyed by
// QueueUrl and "/<queue_name>" keyed by path, both GET and POST.
func NewRouter(h *Handler, log *logrus.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"*"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))
	router.Use(requestLogger(log))
	router.Use(gin.CustomRecoveryWithWriter(log.WriterLevel(logrus.ErrorLevel), recoveryHandler))

	router.GET("/health", handleHealthCheck)

	router.GET("/", h.HandleAction)
	router.POST("/", h.HandleAction)
	router.GET("/:queueName", h.HandleAction)
	router.POST("/:queueName", h.HandleAction)

	return router
}

func requestLogger(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"action":   c.Request.FormValue("Action"),
			"status":   c.Writer.Status(),
			"latency":  time.Since(start),
		}).Info("handled request")
	}
}

func recoveryHandler(c *gin.Context, err interface{}) {
	renderError(c, "AWS.SimpleQueueService.Unknown", "An internal error occurred.", 400)
	c.Abort()
}

func handleHealthCheck(c *gin.Context) {
	c.JSON(200, gin.H{"status": "ok"})
}
