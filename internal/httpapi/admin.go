package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// snapshotHandler godoc
// @Summary Admin snapshot
// @Description Read-only point-in-time view of the chat loop's state:
// @Description connected sockets, connected users and the bot name.
// @Tags admin
// @Produce json
// @Security AdminKeyAuth
// @Success 200 {object} chat.Snapshot
// @Failure 401 {object} apierr.Response
// @Router /admin/snapshot [get]
func (s *Server) snapshotHandler(c *gin.Context) {
	c.JSON(http.StatusOK, s.chat.Snapshot())
}
