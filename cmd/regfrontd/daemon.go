package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/containerd/log"
	"github.com/docker/go-connections/tlsconfig"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"

	"github.com/regfront/regfront/daemon"
	"github.com/regfront/regfront/daemon/config"
	"github.com/regfront/regfront/daemon/listeners"
	"github.com/regfront/regfront/daemon/server"
	"github.com/regfront/regfront/daemon/server/middleware"
	registryrouter "github.com/regfront/regfront/daemon/server/router/registry"
)

// DaemonCli represents the daemon CLI.
type DaemonCli struct {
	*config.Config

	d      *daemon.Daemon
	server *server.Server
}

// NewDaemonCli returns a daemon CLI.
func NewDaemonCli() *DaemonCli {
	return &DaemonCli{}
}

func (cli *DaemonCli) start(opts *daemonOptions) (err error) {
	if cli.Config, err = loadDaemonCliConfig(opts); err != nil {
		return err
	}

	configureDaemonLogs(cli.Config)

	ctx := context.Background()
	log.G(ctx).Info("Starting up")

	if cli.Config.HTTPProxy != "" || cli.Config.HTTPSProxy != "" {
		log.G(ctx).WithFields(log.Fields{
			"http-proxy":  config.MaskCredentials(cli.Config.HTTPProxy),
			"https-proxy": config.MaskCredentials(cli.Config.HTTPSProxy),
			"no-proxy":    cli.Config.NoProxy,
		}).Info("Using proxies for upstream traffic")
	}

	if os.Getenv(otelServiceNameEnv) == "" {
		// resource.Default reads the service name from the environment.
		os.Setenv(otelServiceNameEnv, "regfrontd")
	}
	if tp, err := getTracerProvider(ctx, os.Getenv); err != nil {
		if !errors.Is(err, errTracingDisabled) {
			return errors.Wrap(err, "failed to configure tracing")
		}
		log.G(ctx).WithError(err).Debug("Not configuring tracing")
	} else {
		otel.SetTracerProvider(tp)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(shutdownCtx); err != nil {
				log.G(ctx).WithError(err).Warn("Failed to shut down tracer provider")
			}
		}()
	}

	tlsConfig, err := newTLSConfig(cli.Config)
	if err != nil {
		return err
	}

	cli.server = &server.Server{}

	hosts := cli.Config.Hosts
	if len(hosts) == 0 {
		hosts = []string{config.DefaultListenAddr}
	}
	for _, protoAddr := range hosts {
		proto, addr, ok := strings.Cut(protoAddr, "://")
		if !ok {
			return errors.Errorf("bad host format %s, expected PROTO://ADDR", protoAddr)
		}
		ls, err := listeners.Init(proto, addr, cli.Config.Group, tlsConfig)
		if err != nil {
			return err
		}
		log.G(ctx).Debugf("Listener created for HTTP on %s (%s)", proto, addr)
		cli.server.Accept(addr, ls...)
	}

	d, err := daemon.NewDaemon(ctx, cli.Config)
	if err != nil {
		return errors.Wrap(err, "failed to start daemon")
	}
	cli.d = d

	if err := startMetricsServer(cli.Config.MetricsAddress); err != nil {
		return errors.Wrap(err, "failed to start metrics server")
	}

	// The middleware registered last runs first: the user agent filter
	// must see blocked crawlers before CORS answers their preflight.
	cli.server.UseMiddleware(middleware.CORSMiddleware)
	cli.server.UseMiddleware(middleware.NewUserAgentFilter(cli.Config.EffectiveBlockedAgents()))
	cli.server.UseFallback(func(ctx context.Context, w http.ResponseWriter, r *http.Request, vars map[string]string) error {
		return d.ServeRegistry(ctx, w, r)
	})

	m := cli.server.CreateMux(registryrouter.NewRouter(d))

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, terminationSignals...)
	go func() {
		sig := <-stop
		log.G(ctx).Infof("Processing signal '%v'", sig)
		notifyStopping()
		cli.server.Shutdown(time.Duration(cli.Config.ShutdownTimeout) * time.Second)
	}()

	// ServeAPI does not return unless a listener fails; a graceful
	// Shutdown makes it return nil.
	serveAPIWait := make(chan error)
	go func() {
		serveAPIWait <- cli.server.ServeAPI(ctx, m)
	}()

	// after the server is wired up we can notify systemd
	notifyReady()
	log.G(ctx).Info("Daemon has completed initialization")

	errAPI := <-serveAPIWait
	if err := d.Shutdown(ctx); err != nil {
		log.G(ctx).WithError(err).Error("Error during daemon shutdown")
	}
	if errAPI != nil {
		return errors.Wrap(errAPI, "shutting down due to ServeAPI error")
	}
	log.G(ctx).Info("Daemon shutdown complete")
	return nil
}

// newTLSConfig builds the server TLS configuration when a certificate
// was configured.
func newTLSConfig(conf *config.Config) (*tls.Config, error) {
	if conf.TLSCert == "" {
		return nil, nil
	}
	tlsConfig, err := tlsconfig.Server(tlsconfig.Options{
		CertFile: conf.TLSCert,
		KeyFile:  conf.TLSKey,
	})
	if err != nil {
		return nil, errors.Wrap(err, "invalid TLS configuration")
	}
	return tlsConfig, nil
}
