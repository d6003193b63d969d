package proxy

import "github.com/docker/go-metrics"

var (
	tokenExchanges   metrics.LabeledCounter
	storageRedirects metrics.Timer
)

func init() {
	ns := metrics.NewNamespace("regfront", "proxy", nil)
	tokenExchanges = ns.NewLabeledCounter("token_exchanges", "The total number of anonymous pull token exchanges", "outcome")
	for _, o := range []string{"issued", "denied", "error"} {
		tokenExchanges.WithValues(o).Inc(0)
	}
	storageRedirects = ns.NewTimer("storage_redirects", "The number of seconds it takes to follow a blob storage redirect")
	metrics.Register(ns)
}
