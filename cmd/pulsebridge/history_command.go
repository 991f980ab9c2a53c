package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"pulsebridge/internal/playlistlog"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var follow bool
	var path string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show archived playlist callbacks",
		RunE: func(cmd *cobra.Command, args []string) error {
			archive := strings.TrimSpace(path)
			if archive == "" {
				cfg, err := ctx.ensureConfig()
				if err != nil {
					return err
				}
				archive = cfg.Bridge.PlaylistLogPath
			}

			out := cmd.OutOrStdout()
			runCtx := cmd.Context()
			if runCtx == nil {
				runCtx = context.Background()
			}
			result, err := playlistlog.Tail(runCtx, archive, playlistlog.TailOptions{Offset: -1, Limit: limit})
			if err != nil {
				return err
			}
			printEntries(out, result.Entries)
			if !follow {
				if len(result.Entries) == 0 {
					fmt.Fprintf(out, "No playlist callbacks recorded in %s\n", archive)
				}
				return nil
			}

			offset := result.Offset
			for {
				result, err = playlistlog.Tail(runCtx, archive, playlistlog.TailOptions{Offset: offset, Follow: true, Wait: 2 * time.Second})
				if errors.Is(err, context.Canceled) {
					return nil
				}
				if err != nil {
					return err
				}
				printEntries(out, result.Entries)
				offset = result.Offset
			}
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of most recent entries to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new entries as they are archived")
	cmd.Flags().StringVar(&path, "path", "", "Archive path (defaults to bridge.playlist_log_path)")
	return cmd
}

func printEntries(w io.Writer, entries []playlistlog.Entry) {
	for _, e := range entries {
		fmt.Fprintf(w, "%s  %s\n", e.At.Format(playlistlog.TimestampLayout), e.Payload)
	}
}
