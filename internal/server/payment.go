package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	invoicedomain "github.com/smallbiznis/billable/internal/invoice/domain"
)

func (s *Server) recordPayment(c *gin.Context) {
	orgID, ok := mustOrg(c)
	if !ok {
		return
	}
	invoiceID, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var in invoicedomain.PaymentInput
	if err := c.ShouldBindJSON(&in); err != nil {
		AbortWithError(c, errBadRequest)
		return
	}
	p, err := s.invoices.RecordPayment(c.Request.Context(), orgID, invoiceID, in)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.respondPayment(c, http.StatusCreated, orgID, p)
}

// respondPayment returns the payment together with the refreshed invoice
// so callers always see the new balance.
func (s *Server) respondPayment(c *gin.Context, status int, orgID int64, p *invoicedomain.Payment) {
	inv, err := s.invoices.Get(c.Request.Context(), orgID, p.InvoiceID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(status, gin.H{"payment": p, "invoice": inv})
}

func (s *Server) listPayments(c *gin.Context) {
	orgID, ok := mustOrg(c)
	if !ok {
		return
	}
	invoiceID, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	payments, err := s.invoices.ListPayments(c.Request.Context(), orgID, invoiceID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payments": payments})
}

func (s *Server) editPayment(c *gin.Context) {
	orgID, ok := mustOrg(c)
	if !ok {
		return
	}
	paymentID, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var in invoicedomain.PaymentInput
	if err := c.ShouldBindJSON(&in); err != nil {
		AbortWithError(c, errBadRequest)
		return
	}
	p, err := s.invoices.EditPayment(c.Request.Context(), orgID, paymentID, in)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.respondPayment(c, http.StatusOK, orgID, p)
}

func (s *Server) cancelPayment(c *gin.Context) {
	orgID, ok := mustOrg(c)
	if !ok {
		return
	}
	paymentID, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	p, err := s.invoices.CancelPayment(c.Request.Context(), orgID, paymentID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.respondPayment(c, http.StatusOK, orgID, p)
}
