package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"turtle-navigation/turtle_nav"
)

var (
	configPath string
	liveAddr   string
	outputAddr string
	hz         float64
	verbose    bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "turtle",
	Short: "Mode arbiter and velocity controller for a line/tag following robot",
	Long: `turtle reads line, stop-sign, marker and obstacle-avoidance detections over UDP,
picks the active behavior with dwell-time hysteresis, and sends one
linear/angular velocity command per tick to the drive.`,
	SilenceUsage: true,
	RunE:         runLive,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the live control loop (default)",
	RunE:  runLive,
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the config and print the effective settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		cfg.Stop = cfg.Stop.Effective()
		out, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.json", "Path to JSON or YAML config.")
	rootCmd.PersistentFlags().StringVar(&liveAddr, "live-addr", "", "Override live UDP listen addr (host:port).")
	rootCmd.PersistentFlags().StringVar(&outputAddr, "output-addr", "", "Override output UDP addr (host:port).")
	rootCmd.PersistentFlags().Float64Var(&hz, "hz", 0, "Override tick rate.")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log every tick.")
	rootCmd.AddCommand(runCmd, validateCmd)
}

// loadConfig reads the config file, applies flag overrides and validates.
func loadConfig() (turtle_nav.AppConfig, error) {
	cfg, err := turtle_nav.LoadConfig(configPath)
	if err != nil {
		return cfg, fmt.Errorf("load config %q: %w", configPath, err)
	}
	if liveAddr != "" {
		cfg.Live.UDPAddr = liveAddr
	}
	if outputAddr != "" {
		cfg.Output.UDPAddr = outputAddr
	}
	if hz > 0 {
		cfg.Hz = hz
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %q: %w", configPath, err)
	}
	return cfg, nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err = turtle_nav.NewLogger(cfg.Log, verbose)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return turtle_nav.RunLive(ctx, turtle_nav.LiveRunConfig{App: cfg, Logger: logger})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
