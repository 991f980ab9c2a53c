package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"pulsebridge/internal/daemonctl"
	"pulsebridge/internal/daemonrun"
)

const (
	startWaitTimeout = 5 * time.Second
	stopGracePeriod  = 5 * time.Second
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var logLevel string
	var bridges int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the bridge daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
				LogLevel: logLevel,
				Bridges:  bridges,
			})
		},
	}

	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override the configured log level (debug, info, warn, error)")
	cmd.Flags().IntVar(&bridges, "bridges", 1, "Number of bridge instances to register")
	return cmd
}

func newStartCommand(ctx *commandContext) *cobra.Command {
	var logLevel string
	var bridges int

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the bridge daemon in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			exe, err := os.Executable()
			if err != nil {
				return fmt.Errorf("resolve executable: %w", err)
			}
			waitCtx, cancel := context.WithTimeout(cmd.Context(), startWaitTimeout)
			defer cancel()
			ctl := daemonctl.NewController(ctx.socketPath(), nil)
			result, err := ctl.Start(waitCtx, exe, daemonctl.LaunchOptions{
				ConfigPath: ctx.configFlagValue(),
				LogLevel:   logLevel,
				Bridges:    bridges,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if result.Launched {
				fmt.Fprintf(out, "Daemon started (pid %d)\n", result.PID)
			} else {
				fmt.Fprintf(out, "Daemon already running (pid %d)\n", result.PID)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override the configured log level (debug, info, warn, error)")
	cmd.Flags().IntVar(&bridges, "bridges", 1, "Number of bridge instances to register")
	return cmd
}

func newStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _ := ctx.ensureConfig()
			ctl := daemonctl.NewController(ctx.socketPath(), cfg)
			result, err := ctl.Stop(cmd.Context(), stopGracePeriod)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(cmd.OutOrStdout(), "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if result.Killed {
				fmt.Fprintf(out, "Daemon killed (pid %d)\n", result.PID)
				return nil
			}
			fmt.Fprintln(out, "Daemon stopped")
			return nil
		},
	}
}
