package tax

import (
	"go.uber.org/fx"

	"github.com/smallbiznis/billable/internal/tax/repository"
	"github.com/smallbiznis/billable/internal/tax/service"
)

var Module = fx.Module("tax",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
