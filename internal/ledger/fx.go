package ledger

import (
	"go.uber.org/fx"

	"github.com/smallbiznis/billable/internal/ledger/service"
)

var Module = fx.Module("ledger",
	fx.Provide(service.New),
)
