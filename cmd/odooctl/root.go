package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	odoo "github.com/odoojs/odoo.go"
	"github.com/odoojs/odoo.go/pkg/logger"
	"github.com/odoojs/odoo.go/pkg/metrics"
)

type app struct {
	configPath  string
	password    string
	openSecrets func() (secretStore, error)

	cfg    fileConfig
	logger zerolog.Logger

	metrics       *metrics.Collector
	metricsServer *http.Server
	metricsAddr   net.Addr
}

func newRootCmd(openSecrets func() (secretStore, error)) *cobra.Command {
	a := &app{openSecrets: openSecrets, logger: zerolog.Nop()}

	root := &cobra.Command{
		Use:           "odooctl",
		Short:         "Call an Odoo server's JSON-RPC API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(cmd); err != nil {
				return err
			}
			return a.serveMetrics()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.stopMetrics()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "path to the TOML config file")
	flags.String("host", "", "Odoo host name or base URL")
	flags.Int("port", 0, "Odoo port (default: scheme default)")
	flags.String("db", "", "database name")
	flags.String("user", "", "login")
	flags.StringVar(&a.password, "password", "", "password (prefer $"+passwordEnv+" or the keyring)")
	flags.Bool("secure", false, "use https/wss for a bare host")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.Duration("timeout", 0, "HTTP timeout per request")
	flags.String("metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9100")

	root.AddCommand(
		newLoginCmd(a),
		newSearchCmd(a),
		newReadCmd(a),
		newBrowseCmd(a),
		newCreateCmd(a),
		newWriteCmd(a),
		newUnlinkCmd(a),
		newCallCmd(a),
		newListenCmd(a),
		newPasswordCmd(a),
	)
	return root
}

func (a *app) load(cmd *cobra.Command) error {
	path, explicit := a.configPath, a.configPath != ""
	if !explicit {
		path = defaultConfigPath()
	}

	cfg, unknown, err := loadConfig(path, explicit)
	if err != nil {
		return err
	}
	if err := cfg.applyFlags(cmd.Flags()); err != nil {
		return err
	}

	logData, err := logger.New().FromBuffer(cmd.ErrOrStderr()).Level(cfg.LogLevel).Console().Make()
	if err != nil {
		return err
	}
	a.logger = logData.Logger
	for _, key := range unknown {
		a.logger.Warn().Str("key", key).Str("file", path).Msg("unknown config key")
	}

	a.cfg = cfg
	return nil
}

// client builds a client and logs in.
func (a *app) client(cmd *cobra.Command) (*odoo.Client, error) {
	if err := a.cfg.validate(); err != nil {
		return nil, err
	}

	password, err := resolvePassword(a.password, a.cfg.secretKey(), a.openSecrets)
	if err != nil {
		return nil, err
	}

	cfg := a.cfg.connectionConfig(password)
	cfg.Logger = &a.logger
	if a.metrics != nil {
		cfg.Observer = a.metrics
	}
	if d := a.cfg.timeout(); d > 0 {
		cfg.HTTPClient = &http.Client{Timeout: d}
	}

	client, err := odoo.New(cfg)
	if err != nil {
		return nil, err
	}

	res, err := client.Connect(cmd.Context())
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}
	if res == nil || res.Result == nil || res.Result.UID == 0 {
		return nil, fmt.Errorf("login failed: server returned no session")
	}
	return client, nil
}

func (a *app) serveMetrics() error {
	if a.cfg.MetricsAddr == "" {
		return nil
	}

	reg := prometheus.NewRegistry()
	a.metrics = metrics.NewCollector("")
	if err := a.metrics.Register(reg); err != nil {
		return err
	}

	ln, err := net.Listen("tcp", a.cfg.MetricsAddr)
	if err != nil {
		return fmt.Errorf("metrics listener: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	a.metricsServer = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	a.metricsAddr = ln.Addr()

	go func() {
		if err := a.metricsServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error().Err(err).Msg("metrics server stopped")
		}
	}()
	a.logger.Info().Stringer("addr", a.metricsAddr).Msg("serving metrics")
	return nil
}

func (a *app) stopMetrics() error {
	if a.metricsServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return a.metricsServer.Shutdown(ctx)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
