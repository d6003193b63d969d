// Package daemon exposes the functions that implement the registry
// front: resolving every request to an upstream registry, brokering
// anonymous pull tokens and relaying traffic back to clients.
package daemon

import (
	"context"

	"github.com/containerd/log"

	"github.com/regfront/regfront/daemon/config"
	"github.com/regfront/regfront/daemon/pkg/registry"
	"github.com/regfront/regfront/daemon/proxy"
)

// Daemon holds information about the registry front.
type Daemon struct {
	config *config.Config
	table  *registry.Table
	engine *proxy.Engine
}

// NewDaemon sets up everything for the daemon to serve requests:
// the upstream route table and the forwarding engine.
func NewDaemon(ctx context.Context, conf *config.Config) (*Daemon, error) {
	table, err := registry.NewTable(conf.DefaultUpstream, conf.Upstreams)
	if err != nil {
		return nil, err
	}
	engine, err := proxy.NewEngine(conf, table)
	if err != nil {
		return nil, err
	}

	log.G(ctx).WithFields(log.Fields{
		"default-upstream": table.DefaultHost(),
		"auth-endpoint":    conf.AuthEndpoint,
	}).Info("Registry routing initialized")

	return &Daemon{
		config: conf,
		table:  table,
		engine: engine,
	}, nil
}

// Shutdown stops the daemon's outbound machinery. In-flight requests
// are drained by the API server before this is called.
func (d *Daemon) Shutdown(ctx context.Context) error {
	log.G(ctx).Debug("Closing upstream connections")
	d.engine.Close()
	return nil
}
