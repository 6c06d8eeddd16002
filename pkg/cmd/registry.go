// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"log/slog"
	"time"

	"github.com/Polleschnerjulian-creator/caelex-assessment-sub017/pkg/registry"
	"github.com/Polleschnerjulian-creator/caelex-assessment-sub017/pkg/workflows/authorization"
	"github.com/Polleschnerjulian-creator/caelex-assessment-sub017/pkg/workflows/incident"
)

// NewRegistry builds the workflow registry with every native workflow type:
// callbacks first, then the definitions that reference them.
func NewRegistry(logger *slog.Logger) *registry.Registry {
	callbacks := registry.NewCallbackRegistry()

	if err := authorization.RegisterCallbacks(callbacks, logger); err != nil {
		panic(err)
	}

	if err := incident.RegisterCallbacks(callbacks, logger, time.Now); err != nil {
		panic(err)
	}

	reg := registry.NewRegistry(logger, callbacks)

	if err := reg.Register(authorization.Definition()); err != nil {
		panic(err)
	}

	if err := reg.Register(incident.Definition()); err != nil {
		panic(err)
	}

	return reg
}
