package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/stellarlinkco/remindme/internal/config"
	"github.com/stellarlinkco/remindme/internal/gateway"
	"github.com/stellarlinkco/remindme/internal/skill"
	"github.com/stellarlinkco/remindme/internal/store"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "remindme",
		Short:        "remindme - voice reminder skill",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.remindme/config.json)")

	resolve := func() string {
		if configPath == "" {
			return config.ConfigPath()
		}
		return configPath
	}
	load := func() (*config.Config, error) {
		cfg, err := config.LoadConfigFrom(resolve())
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		return cfg, nil
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the skill endpoint and deliver due reminders",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	var eventFile string
	invokeCmd := &cobra.Command{
		Use:   "invoke",
		Short: "Dispatch one event (JSON from --file or stdin) and print the reply",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			in := cmd.InOrStdin()
			if eventFile != "" && eventFile != "-" {
				f, err := os.Open(eventFile)
				if err != nil {
					return fmt.Errorf("open event: %w", err)
				}
				defer f.Close()
				in = f
			}
			return runInvoke(cmd.Context(), cfg, in, cmd.OutOrStdout())
		},
	}
	invokeCmd.Flags().StringVarP(&eventFile, "file", "f", "", "Event JSON file, - for stdin")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "Deliver due reminders once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			return runSweep(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}

	onboardCmd := &cobra.Command{
		Use:   "onboard",
		Short: "Initialize config and data directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnboard(resolve(), cmd.OutOrStdout())
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show remindme status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Config: error (%v)\n", err)
				return nil
			}
			return runStatus(cmd.Context(), resolve(), cfg, cmd.OutOrStdout())
		},
	}

	root.AddCommand(serveCmd, invokeCmd, sweepCmd, onboardCmd, statusCmd)
	return root
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	zcfg.Sampling = nil
	return zcfg.Build()
}

func runServe(ctx context.Context, cfg *config.Config) error {
	logger, err := newLogger(cfg.Log.Level)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	gw, err := gateway.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("create gateway: %w", err)
	}
	return gw.Run(ctx)
}

func runInvoke(ctx context.Context, cfg *config.Config, in io.Reader, out io.Writer) error {
	var ev skill.Event
	if err := json.NewDecoder(in).Decode(&ev); err != nil {
		return fmt.Errorf("decode event: %w", err)
	}
	if ev.Request.RequestID == "" {
		ev.Request.RequestID = uuid.NewString()
	}
	if ev.Session != nil && ev.Session.SessionID == "" {
		ev.Session.SessionID = uuid.NewString()
	}

	logger, err := newLogger(cfg.Log.Level)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	// Delivery belongs to serve; invoke only handles the one event.
	cfg.Scheduler.Enabled = false
	gw, err := gateway.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("create gateway: %w", err)
	}
	defer gw.Shutdown() //nolint:errcheck

	env, err := gw.Dispatch(ctx, &ev)
	if err != nil {
		return err
	}
	if env == nil {
		return nil
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(env)
}

func runSweep(ctx context.Context, cfg *config.Config, out io.Writer) error {
	logger, err := newLogger(cfg.Log.Level)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	cfg.Scheduler.Enabled = true
	gw, err := gateway.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("create gateway: %w", err)
	}
	defer gw.Shutdown() //nolint:errcheck

	n, err := gw.Sweep(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Delivered: %d\n", n)
	return nil
}

func runOnboard(cfgPath string, out io.Writer) error {
	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		if err := config.SaveConfigTo(cfgPath, config.DefaultConfig()); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		fmt.Fprintf(out, "Created config: %s\n", cfgPath)
	} else {
		fmt.Fprintf(out, "Config already exists: %s\n", cfgPath)
	}

	cfg, err := config.LoadConfigFrom(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	st, err := store.Open(cfg.Store.DBPath)
	if err != nil {
		return fmt.Errorf("create store: %w", err)
	}
	_ = st.Close()
	fmt.Fprintf(out, "Store ready: %s\n", cfg.Store.DBPath)

	fmt.Fprintln(out, "\nNext steps:")
	fmt.Fprintf(out, "  1. Edit %s to set skill.appId and a notification channel\n", cfgPath)
	fmt.Fprintln(out, "  2. Or set REMINDME_APP_ID / REMINDME_TELEGRAM_TOKEN")
	fmt.Fprintln(out, "  3. Run 'remindme serve'")
	return nil
}

func runStatus(ctx context.Context, cfgPath string, cfg *config.Config, out io.Writer) error {
	fmt.Fprintf(out, "Config: %s\n", cfgPath)
	if cfg.Skill.AppID != "" {
		fmt.Fprintf(out, "App ID: %s\n", cfg.Skill.AppID)
	} else {
		fmt.Fprintln(out, "App ID: not set (any caller accepted)")
	}
	fmt.Fprintf(out, "Notify target: %s\n", targetDisplay(cfg.Notify.Target))
	fmt.Fprintf(out, "Telegram: enabled=%v token=%s\n", cfg.Notify.Telegram.Enabled, maskToken(cfg.Notify.Telegram.Token))
	fmt.Fprintf(out, "Scheduler: enabled=%v interval=%s\n", cfg.Scheduler.Enabled, cfg.Scheduler.SweepInterval())
	fmt.Fprintf(out, "Gateway: %s\n", cfg.Gateway.Addr())

	if _, err := os.Stat(cfg.Store.DBPath); err != nil {
		fmt.Fprintln(out, "Store: not found (run 'remindme onboard')")
		return nil
	}
	st, err := store.Open(cfg.Store.DBPath)
	if err != nil {
		fmt.Fprintf(out, "Store: error (%v)\n", err)
		return nil
	}
	defer st.Close()
	pending, err := st.PendingReminders(ctx)
	if err != nil {
		fmt.Fprintf(out, "Store: error (%v)\n", err)
		return nil
	}
	fmt.Fprintf(out, "Store: %s\n", cfg.Store.DBPath)
	fmt.Fprintf(out, "Pending reminders: %d\n", pending)
	return nil
}

func targetDisplay(t string) string {
	if t == "" {
		return "user phone number"
	}
	return t
}

func maskToken(token string) string {
	switch {
	case token == "":
		return "not set"
	case len(token) > 8:
		return token[:4] + "..." + token[len(token)-4:]
	default:
		return "set"
	}
}
