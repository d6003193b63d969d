package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"

	"dario.cat/mergo"
	"github.com/containerd/log"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/regfront/regfront/internal/opts"
	"github.com/regfront/regfront/daemon/pkg/registry"
)

const (
	// DefaultListenAddr is the listener used when no hosts are configured.
	DefaultListenAddr = "tcp://0.0.0.0:5000"
	// DefaultShutdownTimeout is the number of seconds the daemon waits for
	// in-flight requests to drain on shutdown.
	DefaultShutdownTimeout = 15
	// PlaceholderOrigin is the sentinel origin-url value that serves the
	// built-in welcome page instead of proxying a real origin.
	PlaceholderOrigin = "nginx"
)

// baseBlockedAgents is blocked regardless of configuration.
var baseBlockedAgents = []string{"netcraft"}

// Config defines the configuration of the regfront daemon. Field json
// tags double as the configuration-file keys and match the flag names
// (through NamedOption for list flags).
type Config struct {
	Hosts           []string `json:"hosts,omitempty"`
	Group           string   `json:"group,omitempty"`
	TLSCert         string   `json:"tlscert,omitempty"`
	TLSKey          string   `json:"tlskey,omitempty"`
	Debug           bool     `json:"debug,omitempty"`
	LogLevel        string   `json:"log-level,omitempty"`
	LogFormat       string   `json:"log-format,omitempty"`
	RawLogs         bool     `json:"raw-logs,omitempty"`
	MetricsAddress  string   `json:"metrics-addr,omitempty"`
	ShutdownTimeout int      `json:"shutdown-timeout,omitempty"`

	// Routing policy.
	DefaultUpstream string   `json:"default-upstream,omitempty"`
	Upstreams       []string `json:"upstreams,omitempty"`
	AuthEndpoint    string   `json:"auth-endpoint,omitempty"`
	IndexEndpoint   string   `json:"index-endpoint,omitempty"`

	// Browser-facing surface.
	RedirectURL       string   `json:"redirect-url,omitempty"`
	OriginURL         string   `json:"origin-url,omitempty"`
	BlockedUserAgents []string `json:"blocked-user-agents,omitempty"`

	// Outbound proxying for the upstream transports.
	HTTPProxy  string `json:"http-proxy,omitempty"`
	HTTPSProxy string `json:"https-proxy,omitempty"`
	NoProxy    string `json:"no-proxy,omitempty"`
}

// New returns a new fully initialized Config struct with default values.
func New() *Config {
	return &Config{
		LogFormat:       string(log.TextFormat),
		ShutdownTimeout: DefaultShutdownTimeout,
		DefaultUpstream: registry.DefaultRegistryHost,
		AuthEndpoint:    registry.DefaultAuthServer,
		IndexEndpoint:   registry.IndexServer,
	}
}

// Validate performs a semantic validation of the configuration. It is
// called after flags and the configuration file are merged.
func Validate(conf *Config) error {
	if conf.LogLevel != "" {
		if _, err := logrus.ParseLevel(conf.LogLevel); err != nil {
			return errors.Errorf("invalid logging level: %s", conf.LogLevel)
		}
	}
	switch log.OutputFormat(conf.LogFormat) {
	case log.TextFormat, log.JSONFormat, "":
	default:
		return errors.Errorf("invalid log format: %s", conf.LogFormat)
	}
	if conf.ShutdownTimeout < 0 {
		return errors.Errorf("invalid shutdown timeout: %d", conf.ShutdownTimeout)
	}
	if (conf.TLSCert == "") != (conf.TLSKey == "") {
		return errors.New("tlscert and tlskey must be set together")
	}

	if _, err := registry.ValidateHost(conf.DefaultUpstream); err != nil {
		return err
	}
	for _, route := range conf.Upstreams {
		if _, err := registry.ValidateUpstream(route); err != nil {
			return err
		}
	}
	for _, endpoint := range []string{conf.AuthEndpoint, conf.IndexEndpoint} {
		if _, err := registry.ValidateEndpoint(endpoint); err != nil {
			return err
		}
	}
	if conf.RedirectURL != "" {
		if _, err := registry.ValidateEndpoint(conf.RedirectURL); err != nil {
			return err
		}
	}
	if conf.OriginURL != "" && !conf.ServePlaceholder() {
		if _, err := registry.ValidateEndpoint(conf.OriginURL); err != nil {
			return err
		}
	}
	return nil
}

// ServePlaceholder reports whether the configured origin is the
// placeholder sentinel rather than a real URL.
func (conf *Config) ServePlaceholder() bool {
	return strings.EqualFold(conf.OriginURL, PlaceholderOrigin)
}

// EffectiveBlockedAgents returns the blocked User-Agent substrings: the
// built-in base entries plus configured extras, lowercased and
// deduplicated. The result is computed once at startup and handed to the
// filter; it is never mutated during request handling.
func (conf *Config) EffectiveBlockedAgents() []string {
	merged := make([]string, 0, len(baseBlockedAgents)+len(conf.BlockedUserAgents))
	seen := make(map[string]struct{}, cap(merged))
	for _, ua := range append(append([]string{}, baseBlockedAgents...), conf.BlockedUserAgents...) {
		ua = strings.ToLower(strings.TrimSpace(ua))
		if ua == "" {
			continue
		}
		if _, ok := seen[ua]; ok {
			continue
		}
		seen[ua] = struct{}{}
		merged = append(merged, ua)
	}
	return merged
}

// MaskCredentials masks credentials that are in an URL.
func MaskCredentials(rawURL string) string {
	parsedURL, err := url.Parse(rawURL)
	if err != nil || parsedURL.User == nil {
		return rawURL
	}
	parsedURL.User = url.UserPassword("xxxxx", "xxxxx")
	return parsedURL.String()
}

// MergeDaemonConfigurations reads a configuration file, loads the file
// configuration in an isolated structure, and merges the configuration
// provided from flags on top if there are no conflicts.
func MergeDaemonConfigurations(flagsConfig *Config, flags *pflag.FlagSet, configFile string) (*Config, error) {
	fileConfig, err := getConflictFreeConfiguration(configFile, flags)
	if err != nil {
		return nil, err
	}
	if err := mergo.Merge(fileConfig, flagsConfig); err != nil {
		return nil, err
	}
	if err := Validate(fileConfig); err != nil {
		return nil, errors.Wrap(err, "merged configuration validation from file")
	}
	return fileConfig, nil
}

// getConflictFreeConfiguration loads the configuration from a JSON file.
// It compares that configuration with the one provided by the flags,
// and returns an error if there are conflicts.
func getConflictFreeConfiguration(configFile string, flags *pflag.FlagSet) (*Config, error) {
	b, err := os.ReadFile(configFile)
	if err != nil {
		return nil, err
	}
	// Strip the UTF-8 BOM some editors prepend to JSON files.
	b = bytes.TrimPrefix(bytes.TrimSpace(b), []byte("\xef\xbb\xbf"))

	if flags != nil {
		var jsonConfig map[string]interface{}
		if err := json.Unmarshal(b, &jsonConfig); err != nil {
			return nil, err
		}
		if err := findConfigurationConflicts(jsonConfig, flags); err != nil {
			return nil, err
		}
	}

	var config Config
	if err := json.Unmarshal(b, &config); err != nil {
		return nil, err
	}
	return &config, nil
}

// findConfigurationConflicts iterates over the provided flags searching
// for conflicts with the configuration file. It returns an error with
// all the conflicts if it finds any.
func findConfigurationConflicts(config map[string]interface{}, flags *pflag.FlagSet) error {
	// 1. Search keys from the file that we don't recognize as flags.
	unknownKeys := make(map[string]interface{})
	for key, value := range config {
		if f := flags.Lookup(key); f == nil {
			unknownKeys[key] = value
		}
	}

	// 2. Discard values that implement NamedOption.
	// Their configuration name differs from their flag name, like `hosts` and `host`.
	if len(unknownKeys) > 0 {
		unknownNamedConflicts := func(f *pflag.Flag) {
			if namedOption, ok := f.Value.(opts.NamedOption); ok {
				delete(unknownKeys, namedOption.Name())
			}
		}
		flags.VisitAll(unknownNamedConflicts)
	}

	if len(unknownKeys) > 0 {
		var unknown []string
		for key := range unknownKeys {
			unknown = append(unknown, key)
		}
		return errors.Errorf("the following directives don't match any configuration option: %s", strings.Join(unknown, ", "))
	}

	var conflicts []string
	printConflict := func(name string, flagValue, fileValue interface{}) string {
		return fmt.Sprintf("%s: (from flag: %v, from file: %v)", name, flagValue, fileValue)
	}

	// 3. Search keys that are present as a flag and as a file option.
	duplicatedConflicts := func(f *pflag.Flag) {
		// search option name in the json configuration payload if the
		// value is a named option
		if namedOption, ok := f.Value.(opts.NamedOption); ok {
			if optsValue, ok := config[namedOption.Name()]; ok {
				conflicts = append(conflicts, printConflict(namedOption.Name(), f.Value.String(), optsValue))
			}
		} else {
			// search flag name in the json configuration payload
			for _, name := range []string{f.Name, f.Shorthand} {
				if value, ok := config[name]; ok {
					conflicts = append(conflicts, printConflict(name, f.Value.String(), value))
				}
			}
		}
	}
	flags.Visit(duplicatedConflicts)

	if len(conflicts) > 0 {
		return errors.Errorf("the following directives are specified both as a flag and in the configuration file: %s", strings.Join(conflicts, ", "))
	}
	return nil
}
