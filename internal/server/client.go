package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	clientdomain "github.com/smallbiznis/billable/internal/client/domain"
	"github.com/smallbiznis/billable/internal/orgcontext"
)

func pathID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errBadRequest
	}
	return id, nil
}

func mustOrg(c *gin.Context) (int64, bool) {
	orgID, err := orgcontext.OrgID(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return 0, false
	}
	return orgID, true
}

func (s *Server) createClient(c *gin.Context) {
	orgID, ok := mustOrg(c)
	if !ok {
		return
	}
	var in clientdomain.UpsertInput
	if err := c.ShouldBindJSON(&in); err != nil {
		AbortWithError(c, errBadRequest)
		return
	}
	client, err := s.clients.Create(c.Request.Context(), orgID, in)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, client)
}

func (s *Server) listClients(c *gin.Context) {
	orgID, ok := mustOrg(c)
	if !ok {
		return
	}
	var f clientdomain.ListFilter
	if err := c.ShouldBindQuery(&f); err != nil {
		AbortWithError(c, errBadRequest)
		return
	}
	clients, total, err := s.clients.List(c.Request.Context(), orgID, f)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"clients": clients, "total": total})
}

func (s *Server) getClient(c *gin.Context) {
	orgID, ok := mustOrg(c)
	if !ok {
		return
	}
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	client, err := s.clients.Get(c.Request.Context(), orgID, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, client)
}

func (s *Server) updateClient(c *gin.Context) {
	orgID, ok := mustOrg(c)
	if !ok {
		return
	}
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var in clientdomain.UpsertInput
	if err := c.ShouldBindJSON(&in); err != nil {
		AbortWithError(c, errBadRequest)
		return
	}
	client, err := s.clients.Update(c.Request.Context(), orgID, id, in)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, client)
}

func (s *Server) deleteClient(c *gin.Context) {
	orgID, ok := mustOrg(c)
	if !ok {
		return
	}
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.clients.Delete(c.Request.Context(), orgID, id); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
