package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Pinger is satisfied by the database handle.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthController struct {
	service string
	db      Pinger
}

func NewHealthController(service string, db Pinger) *HealthController {
	return &HealthController{service: service, db: db}
}

// Health handles GET /health.
func (hc *HealthController) Health(ctx *gin.Context) {
	if hc.db != nil {
		if err := hc.db.Ping(ctx.Request.Context()); err != nil {
			ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "DEGRADED", "service": hc.service, "database": "unreachable"})
			return
		}
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "OK", "service": hc.service})
}
