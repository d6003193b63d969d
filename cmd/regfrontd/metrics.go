package main

import (
	"context"
	"net/http"
	"time"

	"github.com/containerd/log"
	"github.com/docker/go-connections/sockets"
	"github.com/docker/go-metrics"
	"github.com/pkg/errors"
)

func startMetricsServer(addr string) error {
	if addr == "" {
		return nil
	}
	l, err := sockets.NewTCPSocket(addr, nil)
	if err != nil {
		return errors.Wrap(err, "error setting up metrics listener")
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	go func() {
		log.G(context.TODO()).Infof("metrics API listening on %s", l.Addr())
		srv := &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Minute,
		}
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.G(context.TODO()).WithError(err).Error("error serving metrics API")
		}
	}()
	return nil
}
