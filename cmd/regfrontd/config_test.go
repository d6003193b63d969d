package main

import (
	"testing"

	"github.com/containerd/log"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/spf13/pflag"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
	"gotest.tools/v3/fs"

	"github.com/regfront/regfront/daemon/config"
	"github.com/regfront/regfront/daemon/pkg/registry"
)

func defaultOptions(t *testing.T, configFile string) *daemonOptions {
	opts := &daemonOptions{
		daemonConfig: config.New(),
		flags:        &pflag.FlagSet{},
	}
	installConfigFlags(opts.daemonConfig, opts.flags)
	opts.flags.StringVar(&opts.configFile, flagDaemonConfigFile, defaultDaemonConfigFile, "")
	opts.configFile = configFile
	err := opts.flags.Parse([]string{})
	assert.NilError(t, err)
	return opts
}

func TestLoadDaemonCliConfigWithoutOverriding(t *testing.T) {
	opts := defaultOptions(t, "")
	opts.daemonConfig.Debug = true

	loadedConfig, err := loadDaemonCliConfig(opts)
	assert.NilError(t, err)
	assert.Assert(t, loadedConfig != nil)
	assert.Check(t, loadedConfig.Debug)
}

func TestLoadDaemonCliConfigWithTLS(t *testing.T) {
	opts := defaultOptions(t, "")
	opts.daemonConfig.TLSCert = "/tmp/cert.pem"
	opts.daemonConfig.TLSKey = "/tmp/key.pem"

	loadedConfig, err := loadDaemonCliConfig(opts)
	assert.NilError(t, err)
	assert.Assert(t, loadedConfig != nil)
	assert.Check(t, is.Equal("/tmp/cert.pem", loadedConfig.TLSCert))
	assert.Check(t, is.Equal("/tmp/key.pem", loadedConfig.TLSKey))
}

func TestLoadDaemonCliConfigMissingFile(t *testing.T) {
	opts := defaultOptions(t, "/tmp/blabla/not/exists/daemon.json")

	loadedConfig, err := loadDaemonCliConfig(opts)
	assert.NilError(t, err)
	assert.Assert(t, loadedConfig != nil)
	assert.Check(t, is.Equal(registry.DefaultRegistryHost, loadedConfig.DefaultUpstream))
	assert.Check(t, is.Equal(config.DefaultShutdownTimeout, loadedConfig.ShutdownTimeout))
}

func TestLoadDaemonCliConfigExplicitMissingFile(t *testing.T) {
	configFile := "/tmp/blabla/not/exists/daemon.json"
	opts := defaultOptions(t, "")

	assert.Check(t, opts.flags.Set(flagDaemonConfigFile, configFile))

	_, err := loadDaemonCliConfig(opts)
	assert.Check(t, is.ErrorContains(err, "unable to configure the daemon with file "+configFile))
}

func TestLoadDaemonCliConfigWithConflicts(t *testing.T) {
	tempFile := fs.NewFile(t, "config", fs.WithContent(`{"upstreams": ["corp=a.example.com"]}`))
	defer tempFile.Remove()
	configFile := tempFile.Path()

	opts := defaultOptions(t, configFile)
	flags := opts.flags

	assert.Check(t, flags.Set(flagDaemonConfigFile, configFile))
	assert.Check(t, flags.Set("upstream", "corp=b.example.com"))

	_, err := loadDaemonCliConfig(opts)
	assert.Check(t, is.ErrorContains(err, "as a flag and in the configuration file: upstreams"))
}

func TestLoadDaemonCliConfigWithUnknownDirective(t *testing.T) {
	tempFile := fs.NewFile(t, "config", fs.WithContent(`{"bogus": true}`))
	defer tempFile.Remove()

	opts := defaultOptions(t, tempFile.Path())
	_, err := loadDaemonCliConfig(opts)
	assert.Check(t, is.ErrorContains(err, "the following directives don't match any configuration option: bogus"))
}

func TestLoadDaemonCliConfigWithLogLevel(t *testing.T) {
	tempFile := fs.NewFile(t, "config", fs.WithContent(`{"log-level": "warn"}`))
	defer tempFile.Remove()

	opts := defaultOptions(t, tempFile.Path())
	loadedConfig, err := loadDaemonCliConfig(opts)
	assert.NilError(t, err)
	assert.Assert(t, loadedConfig != nil)
	assert.Check(t, is.Equal("warn", loadedConfig.LogLevel))
}

func TestLoadDaemonCliConfigWithLogFormat(t *testing.T) {
	tempFile := fs.NewFile(t, "config", fs.WithContent(`{"log-format": "json"}`))
	defer tempFile.Remove()

	opts := defaultOptions(t, tempFile.Path())
	loadedConfig, err := loadDaemonCliConfig(opts)
	assert.NilError(t, err)
	assert.Assert(t, loadedConfig != nil)
	assert.Check(t, is.Equal(string(log.JSONFormat), loadedConfig.LogFormat))
}

func TestLoadDaemonCliConfigWithInvalidLogFormat(t *testing.T) {
	tempFile := fs.NewFile(t, "config", fs.WithContent(`{"log-format": "foo"}`))
	defer tempFile.Remove()

	opts := defaultOptions(t, tempFile.Path())
	_, err := loadDaemonCliConfig(opts)
	assert.Check(t, is.ErrorContains(err, "invalid log format: foo"))
}

func TestLoadDaemonCliConfigUpstreams(t *testing.T) {
	testCases := []struct {
		description       string
		configContent     string
		flagRoutes        []string
		expectedUpstreams []string
	}{
		{
			description:       "routes from the configuration file",
			configContent:     `{"upstreams": ["corp=registry.corp.example.com"]}`,
			expectedUpstreams: []string{"corp=registry.corp.example.com"},
		},
		{
			description:       "routes from flags",
			configContent:     `{}`,
			flagRoutes:        []string{"corp=registry.corp.example.com"},
			expectedUpstreams: []string{"corp=registry.corp.example.com"},
		},
		{
			description:       "empty config option returns no routes",
			configContent:     `{"upstreams": []}`,
			expectedUpstreams: nil,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			tempFile := fs.NewFile(t, "config", fs.WithContent(tc.configContent))
			defer tempFile.Remove()

			opts := defaultOptions(t, tempFile.Path())
			for _, route := range tc.flagRoutes {
				assert.Check(t, opts.flags.Set("upstream", route))
			}

			loadedConfig, err := loadDaemonCliConfig(opts)
			assert.NilError(t, err)

			assert.Check(t, is.DeepEqual(tc.expectedUpstreams, loadedConfig.Upstreams, cmpopts.EquateEmpty()))
		})
	}
}

func TestConfigureDaemonLogs(t *testing.T) {
	conf := &config.Config{}
	configureDaemonLogs(conf)
	assert.Check(t, is.Equal(log.InfoLevel, log.GetLevel()))

	// log level should not be changed when passing an invalid value
	conf.LogLevel = "foobar"
	configureDaemonLogs(conf)
	assert.Check(t, is.Equal(log.InfoLevel, log.GetLevel()))

	conf.LogLevel = "warn"
	configureDaemonLogs(conf)
	assert.Check(t, is.Equal(log.WarnLevel, log.GetLevel()))
}
