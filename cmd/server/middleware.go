package main

import (
	"github.com/JaimeStill/form-intake/internal/infrastructure"
	"github.com/JaimeStill/form-intake/pkg/middleware"
)

func buildMiddleware(infra *infrastructure.Infrastructure) middleware.System {
	mw := middleware.New()
	mw.Use(middleware.TrimSlash())
	mw.Use(middleware.Logger(infra.Logger))
	return mw
}
