package utils

import (
	"fmt"
	"net/http"

	"github.com/airenas/go-app/pkg/goapp"

	_ "net/http/pprof"
)

// RunPerfEndpoint exposes pprof when debug.port is configured
func RunPerfEndpoint() {
	port := goapp.Config.GetInt("debug.port")
	if port <= 0 {
		goapp.Log.Info().Msg("no debug.port provided - skip perf endpoint")
		return
	}
	goapp.Log.Info().Int("port", port).Msg("Starting Debug http endpoint")
	if err := http.ListenAndServe(fmt.Sprintf(":%d", port), nil); err != nil {
		goapp.Log.Error().Err(err).Msg("can't start Debug endpoint")
	}
}
