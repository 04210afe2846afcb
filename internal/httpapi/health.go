package httpapi

import "github.com/gin-gonic/gin"

// HealthResponse is the health check's JSON body.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// healthHandler godoc
// @Summary Health check
// @Description Reports that the REST surface is up; it does not probe
// @Description the chat event loop or the database connection pool.
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(200, HealthResponse{Status: "healthy", Service: "kcchat"})
}
