package dashboard

import (
	"go.uber.org/fx"

	"github.com/smallbiznis/billable/internal/dashboard/service"
)

var Module = fx.Module("dashboard",
	fx.Provide(service.New),
)
