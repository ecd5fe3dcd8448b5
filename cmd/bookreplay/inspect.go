package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"bookreplay/infra/journal"
)

func inspectCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Verify the journal and count its records",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}

			counts := map[journal.RecordType]int{}
			var first, last int64
			lastSeq, err := journal.Replay(cfg.Journal.Dir, func(rec *journal.Record) error {
				if counts[journal.RecordDelta]+counts[journal.RecordTrade] == 0 {
					first = rec.Time
				}
				counts[rec.Type]++
				last = rec.Time
				return nil
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "journal %s\n", cfg.Journal.Dir)
			fmt.Fprintf(out, "  last seq  %d\n", lastSeq)
			fmt.Fprintf(out, "  %-9s %d\n", journal.RecordDelta, counts[journal.RecordDelta])
			fmt.Fprintf(out, "  %-9s %d\n", journal.RecordTrade, counts[journal.RecordTrade])
			fmt.Fprintf(out, "  span      %d .. %d us\n", first, last)
			return nil
		},
	}
}
