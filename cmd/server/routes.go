package main

import (
	"net/http"

	"github.com/JaimeStill/form-intake/internal/config"
	"github.com/JaimeStill/form-intake/internal/forms"
	"github.com/JaimeStill/form-intake/internal/infrastructure"
	"github.com/JaimeStill/form-intake/pkg/lifecycle"
	"github.com/JaimeStill/form-intake/pkg/routes"
)

func buildRouter(infra *infrastructure.Infrastructure, cfg *config.Config) routes.System {
	r := routes.New(infra.Logger)

	formsSys := forms.New(infra.Collections, infra.Storage, infra.Logger)
	formsHandler := forms.NewHandler(formsSys, infra.Logger, cfg.Storage.MaxUploadSizeBytes())
	r.RegisterGroup(formsHandler.Routes())

	r.RegisterRoute(routes.Route{
		Method:  http.MethodGet,
		Pattern: "/healthz",
		Handler: handleHealthCheck,
	})

	r.RegisterRoute(routes.Route{
		Method:  http.MethodGet,
		Pattern: "/readyz",
		Handler: func(w http.ResponseWriter, r *http.Request) {
			handleReadinessCheck(w, infra)
		},
	})

	return r
}

// handleHealthCheck reports that the process is serving requests.
func handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func handleReadinessCheck(w http.ResponseWriter, ready lifecycle.ReadinessChecker) {
	if !ready.Ready() {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("NOT READY"))
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("READY"))
}
