package main

import (
	"flag"

	"github.com/golang/glog"
	"github.com/prebid/prebid-mediation/config"
	"github.com/prebid/prebid-mediation/router"
	"github.com/prebid/prebid-mediation/server"
	"github.com/spf13/viper"
)

// Rev holds binary revision string
// Set manually at build time using:
//
//	go build -ldflags "-X main.Rev=`git rev-parse --short HEAD` -X main.Version=`git describe --tags`"
var (
	Rev     string
	Version string
)

func main() {
	flag.Parse() // required for glog flags and testing package flags

	cfg, err := loadConfig()
	if err != nil {
		glog.Exitf("Configuration could not be loaded or did not pass validation: %v", err)
	}

	err = serve(Version, Rev, cfg)
	if err != nil {
		glog.Exitf("prebid-mediation failed: %v", err)
	}
}

const configFileName = "pbm"

func loadConfig() (*config.Configuration, error) {
	v := viper.New()
	config.SetupViper(v, configFileName)
	return config.New(v)
}

func serve(version, revision string, cfg *config.Configuration) error {
	r, err := router.New(cfg, version, revision)
	if err != nil {
		return err
	}

	corsRouter := router.SupportCORS(r)
	server.Listen(cfg, router.NoCache{Handler: corsRouter}, router.Admin(version, revision, r.Networks), r.MetricsEngine)

	r.Shutdown()
	glog.Flush()
	return nil
}
