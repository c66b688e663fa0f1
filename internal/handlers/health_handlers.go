package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/surgimedia/casesync/internal/config"
	"go.mongodb.org/mongo-driver/bson"
)

// HealthCheck godoc
// @Summary Health check
// @Description Reports service health and backing-store connectivity.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{} "Service healthy"
// @Failure 503 {object} map[string]interface{} "A backing store is unreachable"
// @Router /health [get]
func HealthCheck(c *gin.Context) {
	ctx := c.Request.Context()
	healthy := true
	checks := gin.H{}

	if config.MongoDB != nil {
		err := config.MongoDB.RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err()
		if err != nil {
			healthy = false
			checks["mongodb"] = "unreachable"
		} else {
			checks["mongodb"] = "ok"
		}
	}

	if config.Redis != nil {
		if err := config.Redis.Ping(ctx).Err(); err != nil {
			healthy = false
			checks["redis"] = "unreachable"
		} else {
			checks["redis"] = "ok"
		}
	}

	status := http.StatusOK
	state := "healthy"
	if !healthy {
		status = http.StatusServiceUnavailable
		state = "degraded"
	}
	c.JSON(status, gin.H{"status": state, "checks": checks})
}
