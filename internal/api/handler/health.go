// Package handler contains the HTTP endpoint implementations.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Health reports liveness.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
