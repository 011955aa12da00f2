package endpoints

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/golang/glog"
)

const versionEndpointValueNotSet = "not-set"

type versionResponse struct {
	Revision string   `json:"revision"`
	Version  string   `json:"version"`
	Networks []string `json:"networks"`
}

// NewVersionEndpoint reports the build of this binary and the mediation networks it serves.
// version is the latest git tag and revision the commit hash the binary was built from.
func NewVersionEndpoint(version, revision string, networks []string) http.HandlerFunc {
	response, err := json.Marshal(newVersionResponse(version, revision, networks))
	if err != nil {
		glog.Fatalf("error creating /version endpoint response: %v", err)
	}

	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(response)
	}
}

func newVersionResponse(version, revision string, networks []string) versionResponse {
	if version == "" {
		version = versionEndpointValueNotSet
	}
	if revision == "" {
		revision = versionEndpointValueNotSet
	}

	sorted := append([]string{}, networks...)
	sort.Strings(sorted)
	return versionResponse{
		Revision: revision,
		Version:  version,
		Networks: sorted,
	}
}
