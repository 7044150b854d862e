package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	quotedomain "github.com/smallbiznis/billable/internal/quote/domain"
)

func (s *Server) createQuote(c *gin.Context) {
	orgID, ok := mustOrg(c)
	if !ok {
		return
	}
	var in quotedomain.CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		AbortWithError(c, errBadRequest)
		return
	}
	q, err := s.quotes.Create(c.Request.Context(), orgID, in)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, q)
}

func (s *Server) listQuotes(c *gin.Context) {
	orgID, ok := mustOrg(c)
	if !ok {
		return
	}
	var f quotedomain.ListFilter
	if err := c.ShouldBindQuery(&f); err != nil {
		AbortWithError(c, errBadRequest)
		return
	}
	quotes, total, err := s.quotes.List(c.Request.Context(), orgID, f)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quotes": quotes, "total": total})
}

func (s *Server) getQuote(c *gin.Context) {
	orgID, ok := mustOrg(c)
	if !ok {
		return
	}
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	q, err := s.quotes.Get(c.Request.Context(), orgID, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

func (s *Server) updateQuote(c *gin.Context) {
	orgID, ok := mustOrg(c)
	if !ok {
		return
	}
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var in quotedomain.UpdateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		AbortWithError(c, errBadRequest)
		return
	}
	q, err := s.quotes.Update(c.Request.Context(), orgID, id, in)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

func (s *Server) deleteQuote(c *gin.Context) {
	orgID, ok := mustOrg(c)
	if !ok {
		return
	}
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.quotes.Delete(c.Request.Context(), orgID, id); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) sendQuote(c *gin.Context) {
	s.transitionQuote(c, s.quotes.Send)
}

func (s *Server) acceptQuote(c *gin.Context) {
	s.transitionQuote(c, s.quotes.Accept)
}

func (s *Server) rejectQuote(c *gin.Context) {
	s.transitionQuote(c, s.quotes.Reject)
}

func (s *Server) transitionQuote(c *gin.Context, op func(ctx context.Context, orgID, id int64) (*quotedomain.Quote, error)) {
	orgID, ok := mustOrg(c)
	if !ok {
		return
	}
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	q, err := op(c.Request.Context(), orgID, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

func (s *Server) quotePDF(c *gin.Context) {
	orgID, ok := mustOrg(c)
	if !ok {
		return
	}
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	ctx := c.Request.Context()

	q, err := s.quotes.Get(ctx, orgID, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	client, err := s.clients.Get(ctx, orgID, q.ClientID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	org, err := s.orgs.Get(ctx, orgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	doc, err := s.pdf.RenderQuote(org, client, q)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.pdf", q.QuoteNumber))
	c.Data(http.StatusOK, "application/pdf", doc)
}
