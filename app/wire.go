//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package app

import (
	"context"

	"github.com/google/wire"
	"go.uber.org/zap"

	"skyrush/config"
)

// InitializeApp wires the bot from its configuration.
func InitializeApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, func(), error) {
	panic(wire.Build(ProviderSet))
}
