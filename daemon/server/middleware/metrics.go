package middleware

import "github.com/docker/go-metrics"

var blockedRequests metrics.Counter

func init() {
	ns := metrics.NewNamespace("regfront", "http", nil)
	blockedRequests = ns.NewCounter("blocked_requests", "The total number of requests rejected by the user agent filter")
	metrics.Register(ns)
}
