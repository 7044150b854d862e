package client

import (
	"go.uber.org/fx"

	"github.com/smallbiznis/billable/internal/client/repository"
	"github.com/smallbiznis/billable/internal/client/service"
)

var Module = fx.Module("client",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
