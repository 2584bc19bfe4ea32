package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"text/tabwriter"

	"github.com/cuemby/drbridge/pkg/client"
	"github.com/cuemby/drbridge/pkg/config"
	"github.com/cuemby/drbridge/pkg/types"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show readiness of a running bridge",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		status, err := c.Ready(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Status:  %s\n", status.Status)
		if status.Version != "" {
			fmt.Fprintf(out, "Version: %s\n", status.Version)
		}
		if status.Uptime != "" {
			fmt.Fprintf(out, "Uptime:  %s\n", status.Uptime)
		}
		if status.Message != "" {
			fmt.Fprintf(out, "Message: %s\n", status.Message)
		}

		names := make([]string, 0, len(status.Components))
		for name := range status.Components {
			names = append(names, name)
		}
		sort.Strings(names)

		fmt.Fprintln(out, "\nComponents:")
		for _, name := range names {
			fmt.Fprintf(out, "  %-8s %s\n", name, status.Components[name])
		}
		return nil
	},
}

var requestsCmd = &cobra.Command{
	Use:   "requests",
	Short: "Inspect data requests relayed by a running bridge",
}

var requestsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored data requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		state, _ := cmd.Flags().GetString("state")

		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		resp, err := c.ListRequests(cmd.Context(), types.DrState(state))
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSTATE\tDR TX HASH\tUPDATED")
		for _, r := range resp.Requests {
			hash := r.ResolutionHash
			if hash == "" {
				hash = "-"
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", r.ID, r.State, hash, r.UpdatedAt.Format("2006-01-02 15:04:05"))
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\n%d data request(s)\n", resp.Count)
		return nil
	},
}

var requestsGetCmd = &cobra.Command{
	Use:   "get ID",
	Short: "Show one stored data request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid id %q", args[0])
		}

		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		r, err := c.GetRequest(cmd.Context(), id)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "ID:         %d\n", r.ID)
		fmt.Fprintf(out, "State:      %s\n", r.State)
		fmt.Fprintf(out, "Payload:    %s\n", r.Payload)
		if r.ResolutionHash != "" {
			fmt.Fprintf(out, "DR tx hash: %s\n", r.ResolutionHash)
		}
		if r.ObservedAt != nil {
			fmt.Fprintf(out, "Observed:   %s\n", r.ObservedAt.Format("2006-01-02 15:04:05 MST"))
		}
		fmt.Fprintf(out, "Updated:    %s\n", r.UpdatedAt.Format("2006-01-02 15:04:05 MST"))
		return nil
	},
}

func init() {
	for _, cmd := range []*cobra.Command{statusCmd, requestsCmd} {
		cmd.PersistentFlags().String("addr", "", "Bridge HTTP address (default: http_addr from the config file)")
	}

	requestsListCmd.Flags().String("state", "", "Only show requests in this state (new|finished)")
	requestsCmd.AddCommand(requestsListCmd)
	requestsCmd.AddCommand(requestsGetCmd)
}

// newClient connects to --addr, falling back to http_addr from the config
// file and then to the default address
func newClient(cmd *cobra.Command) (*client.Client, error) {
	addr, err := resolveAddr(cmd)
	if err != nil {
		return nil, err
	}
	if cmd.Context() == nil {
		cmd.SetContext(context.Background())
	}
	return client.NewClient(addr)
}

func resolveAddr(cmd *cobra.Command) (string, error) {
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		return addr, nil
	}

	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	switch {
	case err == nil:
		return cfg.HTTPAddr, nil
	case errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("config"):
		return config.DefaultHTTPAddr, nil
	default:
		return "", err
	}
}
