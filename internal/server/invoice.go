package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	invoicedomain "github.com/smallbiznis/billable/internal/invoice/domain"
)

func (s *Server) createInvoice(c *gin.Context) {
	orgID, ok := mustOrg(c)
	if !ok {
		return
	}
	var in invoicedomain.CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		AbortWithError(c, errBadRequest)
		return
	}
	inv, err := s.invoices.Create(c.Request.Context(), orgID, in)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, inv)
}

func (s *Server) createInvoiceFromQuote(c *gin.Context) {
	orgID, ok := mustOrg(c)
	if !ok {
		return
	}
	var in invoicedomain.FromQuoteInput
	if err := c.ShouldBindJSON(&in); err != nil {
		AbortWithError(c, errBadRequest)
		return
	}
	inv, err := s.invoices.CreateFromQuote(c.Request.Context(), orgID, in)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, inv)
}

func (s *Server) listInvoices(c *gin.Context) {
	orgID, ok := mustOrg(c)
	if !ok {
		return
	}
	var f invoicedomain.ListFilter
	if err := c.ShouldBindQuery(&f); err != nil {
		AbortWithError(c, errBadRequest)
		return
	}
	invoices, total, err := s.invoices.List(c.Request.Context(), orgID, f)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invoices": invoices, "total": total})
}

func (s *Server) getInvoice(c *gin.Context) {
	orgID, ok := mustOrg(c)
	if !ok {
		return
	}
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	inv, err := s.invoices.Get(c.Request.Context(), orgID, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

func (s *Server) invoicePDF(c *gin.Context) {
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

	inv, err := s.invoices.Get(ctx, orgID, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	client, err := s.clients.Get(ctx, orgID, inv.ClientID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	org, err := s.orgs.Get(ctx, orgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	doc, err := s.pdf.RenderInvoice(org, client, inv)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.pdf", inv.InvoiceNumber))
	c.Data(http.StatusOK, "application/pdf", doc)
}
