package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang/glog"
	pkgerrors "github.com/pkg/errors"
	"github.com/prebid/prebid-mediation/errortypes"
	"github.com/prebid/prebid-mediation/openrtb_ext"
	"github.com/spf13/viper"
)

// Configuration specifies the static application config.
type Configuration struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// AdminPort serves pprof and /version. Zero disables the admin server.
	AdminPort  int  `mapstructure:"admin_port"`
	EnableGzip bool `mapstructure:"enable_gzip"`
	// StatusResponse is the string which will be returned by the /status endpoint when things are OK.
	// If empty, it will return a 204 with no content.
	StatusResponse string `mapstructure:"status_response"`

	Client    HTTPClient         `mapstructure:"http_client"`
	Metrics   Metrics            `mapstructure:"metrics"`
	Adapters  map[string]Adapter `mapstructure:"adapters"`
	Mediation Mediation          `mapstructure:"mediation"`
}

// HTTPClient configures the outgoing connections to ad networks.
type HTTPClient struct {
	MaxConnsPerHost     int `mapstructure:"max_connections_per_host"`
	MaxIdleConns        int `mapstructure:"max_idle_connections"`
	MaxIdleConnsPerHost int `mapstructure:"max_idle_connections_per_host"`
	IdleConnTimeout     int `mapstructure:"idle_connection_timeout_seconds"`
}

// Mediation holds the settings shared by every ad request.
type Mediation struct {
	// LoadTimeoutMS bounds how long an adapter waits for the network to answer a load.
	LoadTimeoutMS uint64 `mapstructure:"load_timeout_ms"`
	// AdTTLSeconds is how long a loaded ad, and the placement it holds, stays valid.
	AdTTLSeconds int `mapstructure:"ad_ttl_seconds"`
	// InitTTLSeconds is how long a successful network initialization is remembered per app ID.
	InitTTLSeconds int `mapstructure:"init_ttl_seconds"`
	// MaxRequestsPerSecond limits load and present calls per client IP. Zero disables the limit.
	MaxRequestsPerSecond float64 `mapstructure:"max_requests_per_second"`
}

func (m Mediation) LoadTimeout() time.Duration {
	return time.Duration(m.LoadTimeoutMS) * time.Millisecond
}

func (m Mediation) AdTTL() time.Duration {
	return time.Duration(m.AdTTLSeconds) * time.Second
}

func (m Mediation) InitTTL() time.Duration {
	return time.Duration(m.InitTTLSeconds) * time.Second
}

func (m Mediation) validate(errs []error) []error {
	if m.LoadTimeoutMS == 0 {
		errs = append(errs, errors.New("mediation.load_timeout_ms must be positive"))
	}
	if m.AdTTLSeconds <= 0 {
		errs = append(errs, fmt.Errorf("mediation.ad_ttl_seconds must be positive. Got %d", m.AdTTLSeconds))
	}
	if m.InitTTLSeconds < 0 {
		errs = append(errs, fmt.Errorf("mediation.init_ttl_seconds must be >= 0. Got %d", m.InitTTLSeconds))
	}
	if m.MaxRequestsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("mediation.max_requests_per_second must be >= 0. Got %g", m.MaxRequestsPerSecond))
	}
	return errs
}

type Metrics struct {
	Influxdb   InfluxMetrics     `mapstructure:"influxdb"`
	Prometheus PrometheusMetrics `mapstructure:"prometheus"`
}

type InfluxMetrics struct {
	Host               string `mapstructure:"host"`
	Database           string `mapstructure:"database"`
	Measurement        string `mapstructure:"measurement"`
	Username           string `mapstructure:"username"`
	Password           string `mapstructure:"password"`
	AlignTimestamps    bool   `mapstructure:"align_timestamps"`
	MetricSendInterval int    `mapstructure:"metric_send_interval"`
}

func (cfg *InfluxMetrics) validate(errs []error) []error {
	if cfg.Host != "" && cfg.MetricSendInterval <= 0 {
		errs = append(errs, fmt.Errorf("metrics.influxdb.metric_send_interval must be positive. Got %d", cfg.MetricSendInterval))
	}
	return errs
}

type PrometheusMetrics struct {
	Port             int    `mapstructure:"port"`
	Namespace        string `mapstructure:"namespace"`
	Subsystem        string `mapstructure:"subsystem"`
	TimeoutMillisRaw int    `mapstructure:"timeout_ms"`
}

func (cfg *PrometheusMetrics) validate(errs []error) []error {
	if cfg.Port > 0 && cfg.TimeoutMillisRaw <= 0 {
		errs = append(errs, fmt.Errorf("metrics.prometheus.timeout_ms must be positive if metrics.prometheus.port is defined. Got timeout=%d and port=%d", cfg.TimeoutMillisRaw, cfg.Port))
	}
	return errs
}

func (m *PrometheusMetrics) Timeout() time.Duration {
	return time.Duration(m.TimeoutMillisRaw) * time.Millisecond
}

func (cfg *Configuration) validate() []error {
	var errs []error
	if cfg.Port <= 0 {
		errs = append(errs, fmt.Errorf("port must be positive. Got %d", cfg.Port))
	}
	if cfg.AdminPort != 0 && cfg.AdminPort == cfg.Port {
		errs = append(errs, fmt.Errorf("admin_port must differ from port. Got %d", cfg.AdminPort))
	}
	errs = cfg.Mediation.validate(errs)
	errs = cfg.Metrics.Influxdb.validate(errs)
	errs = cfg.Metrics.Prometheus.validate(errs)
	errs = validateAdapters(cfg.Adapters, errs)
	return errs
}

// New uses viper to get our server configurations.
func New(v *viper.Viper) (*Configuration, error) {
	var c Configuration
	if err := v.Unmarshal(&c); err != nil {
		return nil, pkgerrors.Wrap(err, "viper failed to unmarshal app config")
	}

	// Adapter keys are lower-cased by viper already; make the lookups from the network names explicit.
	c.Adapters = lowerCaseKeys(c.Adapters)

	glog.Infof("Resolved configuration: host=%q port=%d load_timeout_ms=%d ad_ttl_seconds=%d adapters=%d",
		c.Host, c.Port, c.Mediation.LoadTimeoutMS, c.Mediation.AdTTLSeconds, len(c.Adapters))

	if errs := c.validate(); len(errs) > 0 {
		return &c, errortypes.NewAggregateErrors("validation errors", errs)
	}
	return &c, nil
}

// SetupViper sets all the defaults. A config file named filename is read from the working
// directory or /etc/config when present; every key may be overridden from the environment
// with a PBM_ prefix.
func SetupViper(v *viper.Viper, filename string) {
	if filename != "" {
		v.SetConfigName(filename)
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/config")
	}

	v.SetDefault("host", "")
	v.SetDefault("port", 8000)
	v.SetDefault("admin_port", 6060)
	v.SetDefault("enable_gzip", false)
	v.SetDefault("status_response", "")
	v.SetDefault("http_client.max_connections_per_host", 0)
	v.SetDefault("http_client.max_idle_connections", 400)
	v.SetDefault("http_client.max_idle_connections_per_host", 10)
	v.SetDefault("http_client.idle_connection_timeout_seconds", 60)
	v.SetDefault("metrics.influxdb.host", "")
	v.SetDefault("metrics.influxdb.database", "")
	v.SetDefault("metrics.influxdb.measurement", "")
	v.SetDefault("metrics.influxdb.username", "")
	v.SetDefault("metrics.influxdb.password", "")
	v.SetDefault("metrics.influxdb.align_timestamps", false)
	v.SetDefault("metrics.influxdb.metric_send_interval", 20)
	v.SetDefault("metrics.prometheus.port", 0)
	v.SetDefault("metrics.prometheus.namespace", "")
	v.SetDefault("metrics.prometheus.subsystem", "")
	v.SetDefault("metrics.prometheus.timeout_ms", 10000)
	v.SetDefault("mediation.load_timeout_ms", 10000)
	v.SetDefault("mediation.ad_ttl_seconds", 3600)
	v.SetDefault("mediation.init_ttl_seconds", 86400)
	v.SetDefault("mediation.max_requests_per_second", 0)

	for _, bidder := range openrtb_ext.BidderMap {
		setAdapterDefaults(v, string(bidder))
	}

	v.SetEnvPrefix("PBM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if filename != "" {
		if err := v.ReadInConfig(); err != nil {
			glog.Warningf("Config file %s could not be read, using defaults and environment: %v", filename, err)
		}
	}
}

func setAdapterDefaults(v *viper.Viper, bidder string) {
	v.SetDefault("adapters."+bidder+".disabled", false)
	switch bidder {
	case string(openrtb_ext.BidderVungle):
		v.SetDefault("adapters.vungle.endpoint", "https://rtb.ads.vungle.com/bid/t")
		v.SetDefault("adapters.vungle.config_endpoint", "https://config.ads.vungle.com/config")
		v.SetDefault("adapters.vungle.xapi.endpoint_us_east", "")
		v.SetDefault("adapters.vungle.xapi.endpoint_eu", "")
		v.SetDefault("adapters.vungle.xapi.endpoint_apac", "")
	}
}

func lowerCaseKeys(adapters map[string]Adapter) map[string]Adapter {
	lowered := make(map[string]Adapter, len(adapters))
	for name, adapter := range adapters {
		lowered[strings.ToLower(name)] = adapter
	}
	return lowered
}
