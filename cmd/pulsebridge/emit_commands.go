package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"pulsebridge/internal/ipc"
)

func newEmitCommand(ctx *commandContext) *cobra.Command {
	emitCmd := &cobra.Command{
		Use:   "emit",
		Short: "Send a host playback callback to the running daemon",
	}

	emitCmd.AddCommand(newEmitMediaCommand(ctx, "open", "Emit a media-open callback", (*ipc.Client).MediaOpen))
	emitCmd.AddCommand(newEmitMediaCommand(ctx, "start", "Emit a media sync-start callback", (*ipc.Client).MediaSyncStart))
	emitCmd.AddCommand(newEmitMediaCommand(ctx, "stop", "Emit a media sync-stop callback", (*ipc.Client).MediaSyncStop))
	emitCmd.AddCommand(newEmitSyncCommand(ctx))
	emitCmd.AddCommand(newEmitPlaylistCommand(ctx))

	return emitCmd
}

type mediaCall func(*ipc.Client, string) (*ipc.DispatchResponse, error)

func newEmitMediaCommand(ctx *commandContext, use, short string, call mediaCall) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <filename>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := call(client, args[0])
				if err != nil {
					return err
				}
				printDispatched(cmd, resp)
				return nil
			})
		},
	}
}

func newEmitSyncCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sync <filename> <seconds>",
		Short: "Emit a media position tick",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			seconds, err := strconv.ParseFloat(strings.TrimSpace(args[1]), 64)
			if err != nil {
				return fmt.Errorf("invalid seconds %q: %w", args[1], err)
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.MediaSync(args[0], seconds)
				if err != nil {
					return err
				}
				printDispatched(cmd, resp)
				return nil
			})
		},
	}
}

func newEmitPlaylistCommand(ctx *commandContext) *cobra.Command {
	var (
		name     string
		size     int
		rawJSON  string
		jsonFile string
		action   string
		section  string
		item     int
	)

	cmd := &cobra.Command{
		Use:   "playlist",
		Short: "Emit a playlist transition callback",
		Long: "Emit a playlist transition callback. The playlist document comes from --json,\n" +
			"--file, or is built from --name and --size.",
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := playlistDocument(cmd, name, size, rawJSON, jsonFile)
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.PlaylistEvent(doc, action, section, item)
				if err != nil {
					return err
				}
				printDispatched(cmd, resp)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Playlist name")
	cmd.Flags().IntVar(&size, "size", 0, "Number of playlist entries")
	cmd.Flags().StringVar(&rawJSON, "json", "", "Raw playlist JSON document")
	cmd.Flags().StringVar(&jsonFile, "file", "", "Read the playlist JSON document from a file")
	cmd.Flags().StringVar(&action, "action", "start", "Playlist action (start, playing, stop, ...)")
	cmd.Flags().StringVar(&section, "section", "MainPlaylist", "Playlist section")
	cmd.Flags().IntVar(&item, "item", 0, "Current playlist item index")
	return cmd
}

func playlistDocument(cmd *cobra.Command, name string, size int, rawJSON, jsonFile string) (json.RawMessage, error) {
	switch {
	case rawJSON != "" && jsonFile != "":
		return nil, errors.New("use only one of --json and --file")
	case rawJSON != "":
		return validJSON([]byte(rawJSON))
	case jsonFile != "":
		data, err := os.ReadFile(jsonFile)
		if err != nil {
			return nil, fmt.Errorf("read playlist file: %w", err)
		}
		return validJSON(data)
	}

	doc := map[string]any{}
	if cmd.Flags().Changed("name") {
		doc["name"] = name
	}
	if cmd.Flags().Changed("size") {
		doc["size"] = size
	}
	return json.Marshal(doc)
}

func validJSON(data []byte) (json.RawMessage, error) {
	if !json.Valid(data) {
		return nil, errors.New("playlist document is not valid JSON")
	}
	return json.RawMessage(data), nil
}

func printDispatched(cmd *cobra.Command, resp *ipc.DispatchResponse) {
	noun := "bridges"
	if resp.Bridges == 1 {
		noun = "bridge"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Dispatched to %d %s\n", resp.Bridges, noun)
}
