package main

import (
	"go.uber.org/fx"

	"github.com/smallbiznis/billable/internal/audit"
	"github.com/smallbiznis/billable/internal/auth"
	"github.com/smallbiznis/billable/internal/authorization"
	"github.com/smallbiznis/billable/internal/client"
	"github.com/smallbiznis/billable/internal/clock"
	"github.com/smallbiznis/billable/internal/config"
	"github.com/smallbiznis/billable/internal/dashboard"
	"github.com/smallbiznis/billable/internal/invoice"
	"github.com/smallbiznis/billable/internal/ledger"
	"github.com/smallbiznis/billable/internal/logger"
	"github.com/smallbiznis/billable/internal/migration"
	"github.com/smallbiznis/billable/internal/observability"
	"github.com/smallbiznis/billable/internal/organization"
	"github.com/smallbiznis/billable/internal/providers/pdf"
	"github.com/smallbiznis/billable/internal/quote"
	"github.com/smallbiznis/billable/internal/ratelimit"
	"github.com/smallbiznis/billable/internal/seed"
	"github.com/smallbiznis/billable/internal/server"
	"github.com/smallbiznis/billable/internal/tax"
	"github.com/smallbiznis/billable/pkg/db"
)

func main() {
	fx.New(
		config.Module,
		logger.Module,
		clock.Module,
		db.Module,
		migration.Module,
		observability.Module,
		ratelimit.Module,

		organization.Module,
		audit.Module,
		tax.Module,
		client.Module,
		quote.Module,
		ledger.Module,
		invoice.Module,
		auth.Module,
		authorization.Module,
		dashboard.Module,
		pdf.Module,
		seed.Module,

		server.Module,
	).Run()
}
