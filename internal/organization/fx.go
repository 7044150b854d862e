package organization

import (
	"go.uber.org/fx"

	"github.com/smallbiznis/billable/internal/organization/repository"
	"github.com/smallbiznis/billable/internal/organization/service"
)

var Module = fx.Module("organization",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
