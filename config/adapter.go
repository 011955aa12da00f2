package config

import (
	"fmt"

	validator "github.com/asaskevich/govalidator"
)

type Adapter struct {
	Endpoint string `mapstructure:"endpoint"` // Required
	// ConfigEndpoint is called once per app ID before the first load.
	ConfigEndpoint string      `mapstructure:"config_endpoint"`
	Disabled       bool        `mapstructure:"disabled"`
	XAPI           AdapterXAPI `mapstructure:"xapi"`
}

// AdapterXAPI holds the regional endpoints. An empty region falls back to Endpoint.
type AdapterXAPI struct {
	EndpointUSEast string `mapstructure:"endpoint_us_east"`
	EndpointEU     string `mapstructure:"endpoint_eu"`
	EndpointAPAC   string `mapstructure:"endpoint_apac"`
}

// validateAdapters validates every enabled adapter's endpoints
func validateAdapters(adapterMap map[string]Adapter, errs []error) []error {
	for adapterName, adapter := range adapterMap {
		if !adapter.Disabled {
			errs = validateAdapterEndpoint(adapter.Endpoint, adapterName, "endpoint", true, errs)
			errs = validateAdapterEndpoint(adapter.ConfigEndpoint, adapterName, "config_endpoint", false, errs)
			errs = validateAdapterEndpoint(adapter.XAPI.EndpointUSEast, adapterName, "xapi.endpoint_us_east", false, errs)
			errs = validateAdapterEndpoint(adapter.XAPI.EndpointEU, adapterName, "xapi.endpoint_eu", false, errs)
			errs = validateAdapterEndpoint(adapter.XAPI.EndpointAPAC, adapterName, "xapi.endpoint_apac", false, errs)
		}
	}
	return errs
}

// validateAdapterEndpoint makes sure that an adapter endpoint, when set, is a valid URL
func validateAdapterEndpoint(endpoint string, adapterName string, key string, required bool, errs []error) []error {
	if endpoint == "" {
		if required {
			return append(errs, fmt.Errorf("There's no default %s available for %s. Calls to this network will fail. "+
				"Please set adapters.%s.%s in your app config", key, adapterName, adapterName, key))
		}
		return errs
	}

	if !validator.IsURL(endpoint) {
		return append(errs, fmt.Errorf("The %s: '%s' for %s is not a valid URL", key, endpoint, adapterName))
	}
	return errs
}
