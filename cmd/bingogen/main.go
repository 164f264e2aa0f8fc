// Command bingogen generates climbing bingo cards from the command line, and
// can serve the same functionality over HTTP.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Parkreiner/climbingbingo/catalog"
	"github.com/Parkreiner/climbingbingo/config"
	"github.com/Parkreiner/climbingbingo/eventlogger"
	"github.com/Parkreiner/climbingbingo/game"
	"github.com/Parkreiner/climbingbingo/gridgen"
	"github.com/Parkreiner/climbingbingo/subscriptions"
)

const dispatchTimeout = 2 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app holds everything that was built from the resolved configuration.
type app struct {
	cfg    config.Config
	logger *logrus.Logger
}

// loader resolves the configuration once flags have been parsed.
type loader func() (*app, error)

func newRootCmd() *cobra.Command {
	v := config.New()
	var configPath string

	root := &cobra.Command{
		Use:           "bingogen",
		Short:         "Generate bingo cards of climbing problems",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "path to a config file (yaml, json or toml)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", config.LogFormatText, "log format (text or json)")
	flags.String("catalog", "", "path to a catalog file; the embedded catalog is used when empty")
	flags.String("event-log", "", "file that generation events are appended to")
	flags.Int("max-attempts", gridgen.DefaultMaxAttempts, "attempt budget for every generated grid")
	bindFlags(v, flags, map[string]string{
		config.KeyLogLevel:     "log-level",
		config.KeyLogFormat:    "log-format",
		config.KeyCatalogPath:  "catalog",
		config.KeyEventLogPath: "event-log",
		config.KeyMaxAttempts:  "max-attempts",
	})

	load := func() (*app, error) {
		if configPath != "" {
			if err := config.ReadFile(v, configPath); err != nil {
				return nil, err
			}
		}
		cfg, err := config.Load(v)
		if err != nil {
			return nil, err
		}
		logger := config.NewLogger(cfg)
		logger.SetOutput(os.Stderr)
		return &app{cfg: cfg, logger: logger}, nil
	}

	root.AddCommand(
		newGenerateCmd(v, load),
		newCatalogCmd(load),
		newServeCmd(v, load),
	)
	return root
}

// bindFlags binds config keys to flags, so that a flag only takes precedence
// over the config file and environment when it is set explicitly.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			panic(fmt.Sprintf("binding flag %q: %v", name, err))
		}
	}
}

func newCatalogSource(cfg config.Config) (catalog.Source, error) {
	if cfg.CatalogPath == "" {
		return catalog.NewEmbeddedStore(), nil
	}
	return catalog.NewFileStore(cfg.CatalogPath)
}

// newGameManager wires the catalog, the subscription manager, and (when
// configured) the event logger together. The returned cleanup function must
// always be called.
func newGameManager(rt *app) (*game.Manager, func(), error) {
	source, err := newCatalogSource(rt.cfg)
	if err != nil {
		return nil, nil, err
	}

	subs := subscriptions.New(dispatchTimeout)
	var eventLog *eventlogger.EventLogger
	var eventFile *os.File
	cleanup := func() {
		if eventLog != nil {
			_ = eventLog.Close()
		}
		if eventFile != nil {
			_ = eventFile.Close()
		}
		subs.Dispose()
	}

	if rt.cfg.EventLogPath != "" {
		eventFile, err = eventlogger.OpenFile(rt.cfg.EventLogPath)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		eventLog, err = eventlogger.New(eventlogger.Init{
			Subscriber: subs,
			Output:     eventFile,
		})
		if err != nil {
			cleanup()
			return nil, nil, err
		}
	}

	m, err := game.New(game.Init{
		Source:      source,
		Dispatcher:  subs,
		Logger:      rt.logger,
		MaxAttempts: rt.cfg.MaxAttempts,
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return m, cleanup, nil
}
