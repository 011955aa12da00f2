package router

import (
	"net/http"
	"net/http/pprof"

	"github.com/prebid/prebid-mediation/endpoints"
)

// Admin serves the profiling and build endpoints on the admin port.
func Admin(version, revision string, networks []string) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	mux.Handle("/version", endpoints.NewVersionEndpoint(version, revision, networks))
	return mux
}
