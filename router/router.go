package router

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/didip/tollbooth"
	"github.com/didip/tollbooth/limiter"
	"github.com/golang/glog"
	"github.com/julienschmidt/httprouter"
	"github.com/prebid/prebid-mediation/adapters"
	"github.com/prebid/prebid-mediation/adapters/vungle"
	"github.com/prebid/prebid-mediation/config"
	"github.com/prebid/prebid-mediation/endpoints"
	metricsConf "github.com/prebid/prebid-mediation/metrics/config"
	"github.com/prebid/prebid-mediation/openrtb_ext"
	"github.com/rs/cors"
)

var schemaDirectory = "static/bidder-params"

// NewJsonDirectoryServer is used to serve .json files from a directory as a single blob. For example,
// given a directory containing the files "a.json" and "b.json", this returns a Handle which serves JSON like:
//
//	{
//	  "a": { ... content from the file a.json ... },
//	  "b": { ... content from the file b.json ... }
//	}
//
// This function stores the file contents in memory, and should not be used on large directories.
// If the root directory, or any of the files in it, cannot be read, then the program will exit.
func NewJsonDirectoryServer(schemaDirectory string, validator openrtb_ext.BidderParamValidator) httprouter.Handle {
	files, err := os.ReadDir(schemaDirectory)
	if err != nil {
		glog.Fatalf("Failed to read directory %s: %v", schemaDirectory, err)
	}

	data := make(map[string]json.RawMessage, len(files))
	for _, file := range files {
		network := strings.TrimSuffix(file.Name(), ".json")
		name, isValid := openrtb_ext.GetBidderName(network)
		if !isValid {
			glog.Fatalf("Schema exists for an unknown network: %s", network)
		}
		data[network] = json.RawMessage(validator.Schema(name))
	}

	response, err := json.Marshal(data)
	if err != nil {
		glog.Fatalf("Failed to marshal network param JSON-schema: %v", err)
	}

	return func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
		w.Header().Add("Content-Type", "application/json")
		w.Write(response)
	}
}

type NoCache struct {
	Handler http.Handler
}

func (m NoCache) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Add("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Add("Pragma", "no-cache")
	w.Header().Add("Expires", "0")
	m.Handler.ServeHTTP(w, r)
}

type Router struct {
	*httprouter.Router
	MetricsEngine *metricsConf.DetailedMetricsEngine
	// Networks lists the mediation networks with routes, for the build report.
	Networks []string
	Shutdown func()
}

// New wires the mediation endpoints for every enabled network.
func New(cfg *config.Configuration, version, revision string) (r *Router, err error) {
	r = &Router{
		Router:   httprouter.New(),
		Shutdown: func() {},
	}

	paramsValidator, err := openrtb_ext.NewBidderParamsValidator(schemaDirectory)
	if err != nil {
		return nil, fmt.Errorf("Failed to create the network params validator: %v", err)
	}

	networks := make([]openrtb_ext.BidderName, 0, len(openrtb_ext.BidderMap))
	for _, name := range openrtb_ext.BidderMap {
		networks = append(networks, name)
	}
	r.MetricsEngine = metricsConf.NewMetricsEngine(cfg, networks)

	httpClient := adapters.NewHTTPClient(&adapters.HTTPAdapterConfig{
		IdleConnTimeout:       time.Duration(cfg.Client.IdleConnTimeout) * time.Second,
		MaxConns:              cfg.Client.MaxIdleConns,
		MaxConnsPerHost:       cfg.Client.MaxIdleConnsPerHost,
		MaxActiveConnsPerHost: cfg.Client.MaxConnsPerHost,
	})

	var lmt *limiter.Limiter
	if cfg.Mediation.MaxRequestsPerSecond > 0 {
		lmt = tollbooth.NewLimiter(cfg.Mediation.MaxRequestsPerSecond, nil)
		lmt.SetMessageContentType("application/json")
		lmt.SetMessage(`{"message":"too many requests"}`)
	}

	if vungleCfg, ok := cfg.Adapters[string(openrtb_ext.BidderVungle)]; ok && !vungleCfg.Disabled {
		rewarded := endpoints.NewRewardedEndpoint(vungle.Deps{
			SDK:         vungle.NewClient(httpClient, vungleCfg),
			Router:      vungle.NewRouter(cfg.Mediation.AdTTL(), cfg.Mediation.InitTTL()),
			Metrics:     r.MetricsEngine,
			Clock:       clock.New(),
			LoadTimeout: cfg.Mediation.LoadTimeout(),
		}, paramsValidator, cfg.Mediation.AdTTL())
		r.POST("/mediation/vungle/rewarded", limit(lmt, rewarded.Load))
		r.POST("/mediation/vungle/rewarded/:id/present", limit(lmt, rewarded.Present))
		r.Networks = append(r.Networks, string(openrtb_ext.BidderVungle))
	} else {
		glog.Infof("Network %s is disabled", openrtb_ext.BidderVungle)
	}

	r.GET("/bidders/params", NewJsonDirectoryServer(schemaDirectory, paramsValidator))
	r.GET("/status", endpoints.NewStatusEndpoint(cfg.StatusResponse))
	r.Handler("GET", "/version", endpoints.NewVersionEndpoint(version, revision, r.Networks))

	return r, nil
}

// limit applies the per client rate limit to handle. A nil limiter lets every request through.
func limit(lmt *limiter.Limiter, handle httprouter.Handle) httprouter.Handle {
	if lmt == nil {
		return handle
	}
	return func(w http.ResponseWriter, req *http.Request, ps httprouter.Params) {
		if httpError := tollbooth.LimitByRequest(lmt, w, req); httpError != nil {
			lmt.ExecOnLimitReached(w, req)
			w.Header().Add("Content-Type", lmt.GetMessageContentType())
			w.WriteHeader(httpError.StatusCode)
			w.Write([]byte(httpError.Message))
			return
		}
		handle(w, req, ps)
	}
}

// The mediation endpoints are called from app webviews on arbitrary origins.
func SupportCORS(handler http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowCredentials: true,
		AllowOriginFunc: func(string) bool {
			return true
		},
		AllowedHeaders: []string{"Origin", "X-Requested-With", "Content-Type", "Accept"}})
	return c.Handler(handler)
}
