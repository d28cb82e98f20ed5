package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/stagehand/internal/cliconfig"
	"github.com/bft-labs/stagehand/internal/demo"
	"github.com/bft-labs/stagehand/internal/server"
	"github.com/bft-labs/stagehand/pkg/lifecycle"
	"github.com/bft-labs/stagehand/pkg/log"
	"github.com/bft-labs/stagehand/pkg/registry"
	"github.com/bft-labs/stagehand/plugins/configwatcher"
	"github.com/bft-labs/stagehand/plugins/health"
	"github.com/bft-labs/stagehand/plugins/metrics"
	"github.com/bft-labs/stagehand/plugins/mqttbridge"
	"github.com/bft-labs/stagehand/plugins/resourcegating"
)

const longHelp = `Drive a component through its lifecycle stages.

stagehand initializes and starts a lifecycle manager, runs the hooks declared
in the config file, serves health probes and metrics, and stops and shuts
down on SIGINT or SIGTERM. Stage changes can be mirrored to an MQTT broker.`

var exampleUsage = strings.TrimSpace(`
  stagehand --config $HOME/.stagehand/config.toml
  stagehand --name api --hook-timeout 5s --listen-addr :9090
  stagehand stages
`)

// shutdownGrace bounds Stop and Shutdown after a signal.
const shutdownGrace = 30 * time.Second

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath, envFile string

	root := &cobra.Command{
		Use:           "stagehand",
		Short:         "Drive a component through its lifecycle stages",
		Long:          longHelp,
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(cmd, &cfg, cfgPath, envFile); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg, resolveConfigPath(cfgPath))
		},
	}

	root.AddCommand(stagesCommand())

	root.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.stagehand/config.toml)")
	root.Flags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading STAGEHAND_* variables")
	root.Flags().StringVar(&cfg.Name, "name", cfg.Name, "manager name")
	root.Flags().BoolVar(&cfg.AutoEmit, "auto-emit", cfg.AutoEmit, "emit lifecycle:<stage> events on every transition")
	root.Flags().DurationVar(&cfg.HookTimeout, "hook-timeout", cfg.HookTimeout, "per-hook timeout (0 disables)")
	root.Flags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	root.Flags().StringVar(&cfg.ListenAddr, "listen-addr", cfg.ListenAddr, "admin server address for probes and metrics (empty disables)")
	root.Flags().IntVar(&cfg.StartAttempts, "start-attempts", cfg.StartAttempts, "attempts for start before giving up")
	root.Flags().DurationVar(&cfg.RetryInterval, "retry-interval", cfg.RetryInterval, "initial delay between start attempts")
	root.Flags().BoolVar(&cfg.WatchConfig, "watch-config", cfg.WatchConfig, "reload hook_timeout when the config file changes")
	root.Flags().Float64Var(&cfg.GateCPU, "gate-cpu", cfg.GateCPU, "refuse to start above this CPU usage fraction (0 disables)")
	root.Flags().Float64Var(&cfg.GateMemory, "gate-memory", cfg.GateMemory, "refuse to start above this memory usage fraction (0 disables)")

	root.Flags().StringVar(&cfg.MQTTBroker, "mqtt-broker", cfg.MQTTBroker, "MQTT broker URL; enables the stage bridge")
	root.Flags().StringVar(&cfg.MQTTClientID, "mqtt-client-id", cfg.MQTTClientID, "MQTT client ID")
	root.Flags().StringVar(&cfg.MQTTUsername, "mqtt-username", cfg.MQTTUsername, "MQTT username")
	root.Flags().StringVar(&cfg.MQTTPassword, "mqtt-password", cfg.MQTTPassword, "MQTT password")
	root.Flags().StringVar(&cfg.MQTTTopicPrefix, "mqtt-topic-prefix", cfg.MQTTTopicPrefix, "first MQTT topic level")
	root.Flags().IntVar(&cfg.MQTTQoS, "mqtt-qos", cfg.MQTTQoS, "MQTT QoS for stage messages")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "stagehand:", err)
		os.Exit(1)
	}
}

func resolveConfigPath(p string) string {
	if p != "" {
		return p
	}
	return cliconfig.DefaultConfigPath()
}

// loadConfig applies file, then environment, then flags.
func loadConfig(cmd *cobra.Command, cfg *cliconfig.Config, cfgPath, envFile string) error {
	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	if err := cliconfig.LoadEnvFile(envFile); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}

	cfgFile := resolveConfigPath(cfgPath)
	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(cfg, fc, changed); err != nil {
			return err
		}
	} else if cfgPath != "" {
		return fmt.Errorf("config file %s not found", cfgPath)
	}

	if err := cliconfig.ApplyEnvConfig(cfg, changed); err != nil {
		return err
	}
	return cfg.Validate()
}

func run(ctx context.Context, cfg cliconfig.Config, cfgFile string) error {
	logger := log.NewZerologAdapter(log.ParseLevel(cfg.LogLevel))

	mx := metrics.New(metrics.DefaultConfig())
	opts := []lifecycle.Option{
		lifecycle.WithName(cfg.Name),
		lifecycle.WithAutoEmitEvents(cfg.AutoEmit),
		lifecycle.WithTimeout(cfg.HookTimeout),
		lifecycle.WithLogger(logger),
		lifecycle.WithObserver(mx.Observer(cfg.Name)),
	}

	// The bridge exists before the manager so rollbacks reach it as an observer.
	var bridge *mqttbridge.Bridge
	if cfg.MQTTBroker != "" {
		client, err := mqttbridge.NewClient(mqttbridge.Config{
			Broker:      cfg.MQTTBroker,
			ClientID:    cfg.MQTTClientID,
			Username:    cfg.MQTTUsername,
			Password:    cfg.MQTTPassword,
			TopicPrefix: cfg.MQTTTopicPrefix,
			QoS:         byte(cfg.MQTTQoS),
		})
		if err != nil {
			return err
		}
		if err := client.Connect(ctx); err != nil {
			return err
		}
		defer client.Close()
		bridge = mqttbridge.New(client,
			mqttbridge.WithPrefix(cfg.MQTTTopicPrefix),
			mqttbridge.WithQoS(byte(cfg.MQTTQoS)),
			mqttbridge.WithLogger(logger),
		)
		opts = append(opts, lifecycle.WithObserver(bridge))
	}

	m := lifecycle.NewManager(opts...)

	if bridge != nil {
		bridge.Attach(m)
		defer bridge.Detach()
		logger.Info("mqtt bridge attached", log.String("topic", bridge.Topic()))
	}

	services := registry.New()
	if err := m.RegisterIn(services); err != nil {
		return err
	}

	demo.Register(m, cfg.Hooks, logger)

	if cfg.GateCPU > 0 || cfg.GateMemory > 0 {
		resourcegating.Bind(m, resourcegating.New(resourcegating.Config{
			CPUThreshold:    cfg.GateCPU,
			MemoryThreshold: cfg.GateMemory,
			Logger:          logger,
		}))
	}

	if cfg.ListenAddr != "" {
		probes := health.NewMetricsHandler(mx.Registry, "stagehand", m)
		admin := server.New(cfg.ListenAddr, server.NewRouter(services, probes, mx.Handler()), logger)
		if err := admin.Start(); err != nil {
			return fmt.Errorf("start admin server: %w", err)
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = admin.Shutdown(sctx)
		}()
	}

	if cfg.WatchConfig && cfgFile != "" && cliconfig.FileExists(cfgFile) {
		watcher := configwatcher.New(configwatcher.Config{
			Path:   cfgFile,
			Load:   cliconfig.LoadHookTimeout,
			Logger: logger,
		}, m)
		configwatcher.Bind(m, watcher)
		defer watcher.Close()
	}

	if err := m.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	var err error
	if cfg.StartAttempts > 1 {
		retryPolicy := lifecycle.NewBackOff(cfg.RetryInterval, 10*cfg.RetryInterval, uint64(cfg.StartAttempts-1))
		err = lifecycle.Retry(ctx, m.Start, retryPolicy)
	} else {
		err = m.Start(ctx)
	}
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}

	logger.Info("ready, waiting for signal")
	<-ctx.Done()
	logger.Info("received signal, stopping")

	sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	if err := m.Stop(sctx); err != nil {
		return fmt.Errorf("stop: %w", err)
	}
	if err := m.Shutdown(sctx); err != nil {
		if errors.Is(err, lifecycle.ErrHookTimeout) {
			logger.Warn("shutdown hooks timed out")
		}
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func stagesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stages",
		Short: "Print the lifecycle stages and their allowed transitions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "STAGE\tDESCRIPTION\tNEXT")
			for _, s := range lifecycle.Stages() {
				next := make([]string, 0, 3)
				for _, n := range lifecycle.AllowedTransitions(s) {
					next = append(next, n.String())
				}
				if len(next) == 0 {
					next = append(next, "-")
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", s, s.Description(), strings.Join(next, ", "))
			}
			return w.Flush()
		},
	}
}
