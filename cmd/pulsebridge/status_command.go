package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"pulsebridge/internal/ipc"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon and bridge status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				status, err := client.Status()
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, status)
				}
				fmt.Fprint(cmd.OutOrStdout(), renderStatus(cmd, status))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output status as JSON")
	return cmd
}

func renderStatus(cmd *cobra.Command, status *ipc.StatusResponse) string {
	out := cmd.OutOrStdout()
	daemon := renderKeyValues([][2]string{
		{"PID", strconv.Itoa(status.PID)},
		{"Started", status.StartedAt},
		{"MultiSync", yesNo(status.MultiSyncEnabled)},
		{"Control socket", status.ControlSocket},
	})

	rows := make([][]string, 0, len(status.Bridges))
	for _, b := range status.Bridges {
		bucket := "-"
		if b.HasBucket {
			bucket = strconv.FormatInt(b.LastBucket, 10)
		}
		rows = append(rows, []string{
			shortID(b.ID),
			yesNo(b.Enabled),
			b.SocketPath,
			strconv.Itoa(b.ConsecutiveFailures),
			bucket,
			b.PlaylistLogPath,
		})
	}
	bridges := renderTable(
		[]string{"Bridge", "Enabled", "Socket", "Failures", "Last Bucket", "Playlist Log"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
	)

	return heading(out, "Daemon") + "\n" + daemon + "\n\n" + heading(out, "Bridges") + "\n" + bridges + "\n"
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
