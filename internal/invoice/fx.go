package invoice

import (
	"go.uber.org/fx"

	"github.com/smallbiznis/billable/internal/invoice/repository"
	"github.com/smallbiznis/billable/internal/invoice/service"
)

var Module = fx.Module("invoice",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
