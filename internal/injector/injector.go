//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package injector

import (
	"github.com/google/wire"

	"github.com/lupine-engine/lupine/internal/core/log"
	"github.com/lupine-engine/lupine/internal/runtime"
)

func ProvideLogger() *log.Logger {
	wire.Build(log.Provide)
	return log.New(log.LevelDebug)
}

func provideOptions(logger *log.Logger) runtime.Options {
	return runtime.Options{Logger: logger}
}

func ProvideEngine() *runtime.Engine {
	wire.Build(log.Provide, provideOptions, runtime.New)
	return nil
}
