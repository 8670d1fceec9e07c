package main

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/hazz-dev/pacprobe/internal/storage"
)

type historyStore interface {
	Recent(ctx context.Context, limit int) ([]storage.Probe, error)
}

func executeHistory(cmd *cobra.Command, db historyStore, limit int) error {
	out := cmd.OutOrStdout()
	probes, err := db.Recent(cmd.Context(), limit)
	if err != nil {
		return fmt.Errorf("querying history: %w", err)
	}

	if len(probes) == 0 {
		fmt.Fprintln(out, "No probe history. Run 'pacprobe --record' or 'pacprobe serve' first.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CHECKED\tOUTCOME\tSTATUS\tRESPONSE\tENDPOINT\tERROR")
	for _, p := range probes {
		status := "—"
		if p.StatusCode > 0 {
			status = strconv.Itoa(p.StatusCode)
		}
		resp := "—"
		if p.ResponseMs > 0 {
			resp = (time.Duration(p.ResponseMs) * time.Millisecond).String()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			p.CheckedAt.Local().Format("2006-01-02 15:04:05"),
			p.Outcome,
			status,
			resp,
			p.Endpoint,
			p.Error,
		)
	}
	w.Flush()
	return nil
}
