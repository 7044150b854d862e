package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	authdomain "github.com/smallbiznis/billable/internal/auth/domain"
	clientdomain "github.com/smallbiznis/billable/internal/client/domain"
	invoicedomain "github.com/smallbiznis/billable/internal/invoice/domain"
	ledgerdomain "github.com/smallbiznis/billable/internal/ledger/domain"
	"github.com/smallbiznis/billable/internal/money"
	orgdomain "github.com/smallbiznis/billable/internal/organization/domain"
	"github.com/smallbiznis/billable/internal/orgcontext"
	quotedomain "github.com/smallbiznis/billable/internal/quote/domain"
	taxdomain "github.com/smallbiznis/billable/internal/tax/domain"
	"github.com/smallbiznis/billable/pkg/db"
)

var errForbidden = errors.New("forbidden")

// AbortWithError attaches err to the context; ErrorHandlingMiddleware
// turns it into the response.
func AbortWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		last := c.Errors.Last()
		if last == nil {
			return
		}
		status := mapError(last.Err)
		c.JSON(status, gin.H{"error": last.Err.Error()})
	}
}

func mapError(err error) int {
	switch {
	case errors.Is(err, authdomain.ErrInvalidCredentials),
		errors.Is(err, authdomain.ErrSessionNotFound),
		errors.Is(err, authdomain.ErrSessionExpired),
		errors.Is(err, orgcontext.ErrMissingOrg):
		return http.StatusUnauthorized

	case errors.Is(err, errForbidden):
		return http.StatusForbidden

	case errors.Is(err, clientdomain.ErrNotFound),
		errors.Is(err, quotedomain.ErrNotFound),
		errors.Is(err, invoicedomain.ErrNotFound),
		errors.Is(err, invoicedomain.ErrPaymentNotFound),
		errors.Is(err, orgdomain.ErrNotFound),
		errors.Is(err, taxdomain.ErrNotFound),
		errors.Is(err, db.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, quotedomain.ErrInvalidTransition),
		errors.Is(err, quotedomain.ErrQuoteExpired),
		errors.Is(err, quotedomain.ErrQuoteLocked),
		errors.Is(err, invoicedomain.ErrQuoteNotAccepted),
		errors.Is(err, invoicedomain.ErrQuoteAlreadyInvoiced),
		errors.Is(err, invoicedomain.ErrPaymentCanceled),
		errors.Is(err, authdomain.ErrEmailTaken),
		errors.Is(err, db.ErrDuplicate):
		return http.StatusConflict

	case errors.Is(err, invoicedomain.ErrOverpayment):
		return http.StatusUnprocessableEntity

	// A posting that fails validation or a conservation drift means the
	// service layer produced inconsistent books; neither is client error.
	case errors.Is(err, ledgerdomain.ErrUnbalanced),
		errors.Is(err, ledgerdomain.ErrEmptyPosting),
		errors.Is(err, ledgerdomain.ErrInvalidAmount),
		errors.Is(err, invoicedomain.ErrConservation):
		return http.StatusInternalServerError

	case errors.Is(err, money.ErrInvalidAmount),
		errors.Is(err, quotedomain.ErrEmptyQuote),
		errors.Is(err, quotedomain.ErrInvalidLineItem),
		errors.Is(err, quotedomain.ErrInvalidTaxRate),
		errors.Is(err, invoicedomain.ErrInvalidLineItem),
		errors.Is(err, invoicedomain.ErrInvalidTaxRate),
		errors.Is(err, invoicedomain.ErrInvalidPayment),
		errors.Is(err, clientdomain.ErrInvalidName),
		errors.Is(err, clientdomain.ErrInvalidEmail),
		errors.Is(err, orgdomain.ErrInvalidName),
		errors.Is(err, taxdomain.ErrInvalidRate),
		errors.Is(err, authdomain.ErrWeakPassword),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

var errBadRequest = errors.New("invalid_request")
