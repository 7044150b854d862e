package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

func (s *Server) dashboardSummary(c *gin.Context) {
	orgID, ok := mustOrg(c)
	if !ok {
		return
	}
	sum, err := s.dashboard.Summary(c.Request.Context(), orgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (s *Server) dashboardRevenue(c *gin.Context) {
	orgID, ok := mustOrg(c)
	if !ok {
		return
	}
	months, _ := strconv.Atoi(c.DefaultQuery("months", "6"))
	points, err := s.dashboard.Revenue(c.Request.Context(), orgID, months)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"revenue": points})
}
