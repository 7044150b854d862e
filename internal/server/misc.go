package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	taxdomain "github.com/smallbiznis/billable/internal/tax/domain"
)

func (s *Server) getOrganization(c *gin.Context) {
	orgID, ok := mustOrg(c)
	if !ok {
		return
	}
	org, err := s.orgs.Get(c.Request.Context(), orgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, org)
}

func (s *Server) listTaxDefinitions(c *gin.Context) {
	orgID, ok := mustOrg(c)
	if !ok {
		return
	}
	defs, err := s.tax.List(c.Request.Context(), orgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tax_definitions": defs})
}

func (s *Server) setDefaultTax(c *gin.Context) {
	orgID, ok := mustOrg(c)
	if !ok {
		return
	}
	var in taxdomain.UpsertInput
	if err := c.ShouldBindJSON(&in); err != nil {
		AbortWithError(c, errBadRequest)
		return
	}
	def, err := s.tax.SetDefault(c.Request.Context(), orgID, in)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, def)
}

func (s *Server) listLedgerEntries(c *gin.Context) {
	orgID, ok := mustOrg(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "200"))
	entries, err := s.ledger.Entries(c.Request.Context(), orgID, limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func (s *Server) trialBalance(c *gin.Context) {
	orgID, ok := mustOrg(c)
	if !ok {
		return
	}
	balances, err := s.ledger.TrialBalance(c.Request.Context(), orgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"balances": balances})
}

func (s *Server) listAuditLogs(c *gin.Context) {
	orgID, ok := mustOrg(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	logs, err := s.audit.List(c.Request.Context(), orgID, limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"audit_logs": logs})
}
