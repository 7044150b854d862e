package db

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
)

// Module provides the gorm connection and the snowflake id generator.
var Module = fx.Module("db",
	fx.Provide(Open),
	fx.Provide(func() (*snowflake.Node, error) {
		return snowflake.NewNode(1)
	}),
)
