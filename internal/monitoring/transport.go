package monitoring

import (
	"crypto/tls"
	"net/http"

	"github.com/prometheus/client_golang/api"
)

// bearerRoundTripper adds the service account token to every request.
type bearerRoundTripper struct {
	token string
	next  http.RoundTripper
}

func (rt *bearerRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+rt.token)
	return rt.next.RoundTrip(req)
}

func newRoundTripper(cfg Config) http.RoundTripper {
	var rt http.RoundTripper = api.DefaultRoundTripper

	if cfg.Insecure {
		transport := api.DefaultRoundTripper.(*http.Transport).Clone()
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // in-cluster self-signed certs
		rt = transport
	}

	if cfg.Token != "" {
		rt = &bearerRoundTripper{token: cfg.Token, next: rt}
	}

	return rt
}
