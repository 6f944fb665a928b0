package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

var startTime = time.Now()

const version = "1.0.0"

// HealthCheck returns server health status and how many sessions this node runs.
func HealthCheck(sessions func() int) gin.HandlerFunc {
	return func(c *gin.Context) {
		live := 0
		if sessions != nil {
			live = sessions()
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"service":  "minigolf-api",
			"version":  version,
			"uptime":   time.Since(startTime).String(),
			"sessions": live,
		})
	}
}
