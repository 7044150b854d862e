package audit

import (
	"go.uber.org/fx"

	"github.com/smallbiznis/billable/internal/audit/service"
)

var Module = fx.Module("audit",
	fx.Provide(service.New),
)
