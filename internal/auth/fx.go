package auth

import (
	"go.uber.org/fx"

	"github.com/smallbiznis/billable/internal/auth/repository"
	"github.com/smallbiznis/billable/internal/auth/service"
	"github.com/smallbiznis/billable/internal/auth/session"
)

var Module = fx.Module("auth",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Provide(session.NewManager),
)
