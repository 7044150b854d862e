package quote

import (
	"go.uber.org/fx"

	"github.com/smallbiznis/billable/internal/quote/repository"
	"github.com/smallbiznis/billable/internal/quote/service"
)

var Module = fx.Module("quote",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
