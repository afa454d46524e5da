package helpers

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/oksasatya/otp-auth-gateway/config"
)

// NewESClient creates the user search client from ELASTICSEARCH_* settings.
// It returns nil, nil when no address is configured; search is optional.
func NewESClient(cfg *config.Config) (*elasticsearch.Client, error) {
	addrs := cfg.ESAddrs()
	if len(addrs) == 0 {
		return nil, nil
	}
	return elasticsearch.NewClient(elasticsearch.Config{
		Addresses: addrs,
		Username:  cfg.ElasticsearchUser,
		Password:  cfg.ElasticsearchPass,
		Transport: &http.Transport{
			MaxIdleConnsPerHost:   10,
			ResponseHeaderTimeout: 5 * time.Second,
			TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
			DialContext:           (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
		},
	})
}
