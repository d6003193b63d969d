package daemon

import "github.com/docker/go-metrics"

var requestActions metrics.LabeledTimer

func init() {
	ns := metrics.NewNamespace("regfront", "daemon", nil)
	requestActions = ns.NewLabeledTimer("request_actions", "The number of seconds it takes to serve each request kind", "action")
	for _, a := range []string{
		"manifests",
		"blobs",
		"tags",
		"registry",
		"token",
		"search",
		"root",
		"forward",
	} {
		requestActions.WithValues(a).Update(0)
	}
	metrics.Register(ns)
}
