package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	bingo "github.com/Parkreiner/climbingbingo"
)

func newCatalogCmd(load loader) *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List every grade and how many problems are eligible for a mode",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			parsed, err := bingo.ParseMode(mode)
			if err != nil {
				return err
			}
			rt, err := load()
			if err != nil {
				return err
			}
			source, err := newCatalogSource(rt.cfg)
			if err != nil {
				return err
			}
			ds, err := source.DataSet(cmd.Context())
			if err != nil {
				return err
			}

			counts := ds.Counts(parsed)
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "CODE\tLABEL\tPROBLEMS")
			total := 0
			for _, code := range ds.GradeOrder {
				def, _ := ds.Grade(code)
				fmt.Fprintf(tw, "%s\t%s\t%d\n", code, def.Label, counts[code])
				total += counts[code]
			}
			fmt.Fprintf(tw, "\t%s total\t%d\n", parsed.Label(), total)
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&mode, "mode", string(bingo.ModeAdult), "which problems to count (kid or adult)")
	return cmd
}
