package main

import (
	"os"
	"strings"

	"github.com/containerd/log"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/regfront/regfront/daemon/config"
	"github.com/regfront/regfront/internal/opts"
	"github.com/regfront/regfront/daemon/pkg/registry"
)

// defaultDaemonConfigFile is the default location of the daemon
// configuration file.
const defaultDaemonConfigFile = "/etc/regfront/daemon.json"

// installConfigFlags adds flags to the pflag.FlagSet to configure the
// daemon. Env vars back the browser-surface flags so containerized
// deployments can set them without a config file.
func installConfigFlags(conf *config.Config, flags *pflag.FlagSet) {
	flags.VarP(opts.NewNamedListOptsRef("hosts", &conf.Hosts, nil), "host", "H", "Daemon socket(s) to listen on")
	flags.StringVar(&conf.Group, "group", "regfront", "Group for the unix socket")
	flags.StringVar(&conf.TLSCert, "tlscert", "", "Path to TLS certificate file")
	flags.StringVar(&conf.TLSKey, "tlskey", "", "Path to TLS key file")
	flags.BoolVarP(&conf.Debug, "debug", "D", false, "Enable debug mode")
	flags.StringVarP(&conf.LogLevel, "log-level", "l", "info", `Set the logging level ("debug"|"info"|"warn"|"error"|"fatal")`)
	flags.StringVar(&conf.LogFormat, "log-format", conf.LogFormat, `Set the logging format ("text"|"json")`)
	flags.BoolVar(&conf.RawLogs, "raw-logs", false, "Full timestamps without ANSI coloring")
	flags.StringVar(&conf.MetricsAddress, "metrics-addr", "", "Set default address and port to serve the metrics api on")
	flags.IntVar(&conf.ShutdownTimeout, "shutdown-timeout", conf.ShutdownTimeout, "Set the default shutdown timeout")

	flags.StringVar(&conf.DefaultUpstream, "default-upstream", conf.DefaultUpstream, "Registry host unmatched requests are forwarded to")
	flags.Var(opts.NewNamedListOptsRef("upstreams", &conf.Upstreams, registry.ValidateUpstream), "upstream", "Extra hostname-prefix route in the form prefix=host")
	flags.StringVar(&conf.AuthEndpoint, "auth-endpoint", conf.AuthEndpoint, "Token service issuing anonymous pull tokens")
	flags.StringVar(&conf.IndexEndpoint, "index-endpoint", conf.IndexEndpoint, "Index endpoint backing the legacy search surface")

	flags.StringVar(&conf.RedirectURL, "redirect-url", os.Getenv("REGFRONT_REDIRECT_URL"), "Redirect browsers hitting the root page to this URL")
	flags.StringVar(&conf.OriginURL, "origin-url", os.Getenv("REGFRONT_ORIGIN_URL"), `Serve the root page from this origin ("nginx" serves a stock welcome page)`)
	if env := os.Getenv("REGFRONT_BLOCKED_UA"); env != "" {
		conf.BlockedUserAgents = append(conf.BlockedUserAgents, strings.Split(env, ",")...)
	}
	flags.Var(opts.NewNamedListOptsRef("blocked-user-agents", &conf.BlockedUserAgents, nil), "blocked-user-agent", "Refuse requests whose User-Agent contains this substring")

	flags.StringVar(&conf.HTTPProxy, "http-proxy", "", "HTTP proxy URL to use for outgoing traffic")
	flags.StringVar(&conf.HTTPSProxy, "https-proxy", "", "HTTPS proxy URL to use for outgoing traffic")
	flags.StringVar(&conf.NoProxy, "no-proxy", "", "Comma-separated list of hosts or IP addresses for which the proxy is skipped")
}

// loadDaemonCliConfig loads the daemon cli config and merges in the
// configuration file when one exists.
func loadDaemonCliConfig(opts *daemonOptions) (*config.Config, error) {
	conf := opts.daemonConfig
	flags := opts.flags

	if opts.configFile != "" {
		c, err := config.MergeDaemonConfigurations(conf, flags, opts.configFile)
		if err != nil {
			if flags.Changed(flagDaemonConfigFile) || !os.IsNotExist(err) {
				return nil, errors.Wrapf(err, "unable to configure the daemon with file %s", opts.configFile)
			}
		}
		// the merged configuration can be nil if the config file didn't exist.
		// leave the current configuration as it is if when that happens.
		if c != nil {
			conf = c
		}
	}

	if err := config.Validate(conf); err != nil {
		return nil, err
	}
	return conf, nil
}

// configureDaemonLogs sets the logrus logging level and formatting.
func configureDaemonLogs(conf *config.Config) {
	switch log.OutputFormat(conf.LogFormat) {
	case log.JSONFormat:
		logrus.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: log.RFC3339NanoFixed,
		})
	case log.TextFormat, "":
		logrus.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: log.RFC3339NanoFixed,
			DisableColors:   conf.RawLogs,
			FullTimestamp:   true,
		})
	}

	level := logrus.InfoLevel
	if conf.LogLevel != "" {
		var err error
		level, err = logrus.ParseLevel(conf.LogLevel)
		if err != nil {
			// Validate already vetted the level, keep the default.
			level = logrus.InfoLevel
		}
	}
	if conf.Debug {
		level = logrus.DebugLevel
	}
	logrus.SetLevel(level)
}
