package main

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"bookreplay/infra/codec"
	"bookreplay/infra/journal"
)

func recordCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "record",
		Short: "Append JSON-line deltas and trades from stdin to the journal",
		Long: `Each input line is one JSON object:
  {"type":"delta","pair":"BTC-USD","price":10000,"amount":-1,"time":1}
  {"type":"trade","pair":"BTC-USD","price":10000,"amount":0.5,"time":2}`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			j, err := journal.Open(cfg.Journal)
			if err != nil {
				return err
			}
			defer j.Close()

			deltas, trades, err := recordLines(cmd.InOrStdin(), j)
			if err != nil {
				return err
			}
			log.Info().
				Int("deltas", deltas).
				Int("trades", trades).
				Uint64("last_seq", j.LastSeq()).
				Msg("journal appended")
			_, err = fmt.Fprintf(os.Stdout, "last seq %d\n", j.LastSeq())
			return err
		},
	}
}

// recordLines appends every non-blank line of r to j and syncs once at
// the end. Lines appended before a bad line stay in the journal.
func recordLines(r io.Reader, j *journal.Journal) (deltas, trades int, err error) {
	var ser codec.JSONSerializer
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		b := bytes.TrimSpace(sc.Bytes())
		if len(b) == 0 {
			continue
		}
		row, err := ser.Decode(b)
		if err != nil {
			return deltas, trades, fmt.Errorf("line %d: %w", line, err)
		}
		d, t, err := codec.ParseInput(row)
		if err != nil {
			return deltas, trades, fmt.Errorf("line %d: %w", line, err)
		}
		if d != nil {
			err = j.AppendDelta(*d)
			deltas++
		} else {
			err = j.AppendTrade(*t)
			trades++
		}
		if err != nil {
			return deltas, trades, fmt.Errorf("line %d: %w", line, err)
		}
	}
	if err := sc.Err(); err != nil {
		return deltas, trades, err
	}
	return deltas, trades, j.Sync()
}
