package handlers

import (
	"net/http"
	"time"

	"restaurant-order/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewRouter wires the HTTP API. menu serves GET /menu straight from the source.
func NewRouter(sessions *services.SessionStore[string], menu services.MenuSource, corsOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	corsCfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "DELETE"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}
	if len(corsOrigins) == 0 || (len(corsOrigins) == 1 && corsOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = corsOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	r.GET("/menu", func(c *gin.Context) {
		m, err := menu.LoadMenu(c.Request.Context())
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, menuResponse(m, nil))
	})

	r.GET("/orders/:reference", GetOrder)

	h := NewSessionHandler(sessions)
	r.POST("/sessions", h.CreateSession)
	s := r.Group("/sessions/:sessionId")
	{
		s.DELETE("", h.DeleteSession)
		s.GET("/menu", h.GetMenu)
		s.POST("/menu/reload", h.ReloadMenu)
		s.GET("/cart", h.GetCart)
		s.POST("/items", h.AdjustItem)
		s.POST("/checkout", h.Checkout)
		s.POST("/back", h.Back)
		s.POST("/submit", h.Submit)
	}
	return r
}
