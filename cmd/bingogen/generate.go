package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	bingo "github.com/Parkreiner/climbingbingo"
	"github.com/Parkreiner/climbingbingo/catalog"
	"github.com/Parkreiner/climbingbingo/config"
	"github.com/Parkreiner/climbingbingo/game"
	"github.com/Parkreiner/climbingbingo/render"
)

type generateOptions struct {
	mode    string
	grades  string
	seed    int64
	pngPath string
	asJSON  bool
}

func newGenerateCmd(v *viper.Viper, load loader) *cobra.Command {
	var opts generateOptions

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a single bingo card",
		Example: "  bingogen generate --mode adult --grades 5-6,4 --size 3 --free\n" +
			"  bingogen generate --size 5 --seed 42 --png cards/",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := load()
			if err != nil {
				return err
			}
			m, cleanup, err := newGameManager(rt)
			if err != nil {
				return err
			}
			defer cleanup()

			req, err := opts.request(cmd, rt.cfg)
			if err != nil {
				return err
			}
			card, err := m.Deal(cmd.Context(), req)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch {
			case opts.pngPath != "":
				return writePNG(cmd.Context(), m, card, opts.pngPath, out)
			case opts.asJSON:
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(card)
			default:
				ds, err := m.DataSet(cmd.Context())
				if err != nil {
					return err
				}
				return printCard(out, ds, card)
			}
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.mode, "mode", string(bingo.ModeAdult), "which problems are eligible (kid or adult)")
	flags.StringVar(&opts.grades, "grades", strings.Join(catalog.DefaultGrades, ","), "comma-separated grade codes")
	flags.Int("size", 3, "grid size (3, 4 or 5)")
	flags.Bool("free", true, "place a FREE cell at the center of odd-sized grids")
	flags.Int64Var(&opts.seed, "seed", 0, "seed for a reproducible card; random when unset")
	flags.StringVar(&opts.pngPath, "png", "", "write the card as a PNG to this file or directory ('-' for stdout)")
	flags.BoolVar(&opts.asJSON, "json", false, "print the card as JSON")
	bindFlags(v, flags, map[string]string{
		config.KeyDefaultSize: "size",
		config.KeyDefaultFree: "free",
	})

	return cmd
}

func (o generateOptions) request(cmd *cobra.Command, cfg config.Config) (game.Request, error) {
	mode, err := bingo.ParseMode(o.mode)
	if err != nil {
		return game.Request{}, err
	}

	grades := catalog.ParseGradeList(o.grades)
	if grades == nil {
		grades = []bingo.GradeCode{}
	}

	req := game.Request{
		Mode:   mode,
		Grades: grades,
		Size:   cfg.DefaultSize,
		Free:   cfg.DefaultFree,
	}
	if cmd.Flags().Changed("seed") {
		seed := o.seed
		req.Seed = &seed
	}
	return req, nil
}

// printCard writes the card as an aligned text table, followed by the
// details needed to reproduce it.
func printCard(w io.Writer, ds *catalog.DataSet, card game.Card) error {
	fmt.Fprintln(w, card.ConditionText)
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, row := range card.Grid {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = cellLabel(ds, cell)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	_, err := fmt.Fprintf(w, "score: %d  attempts: %d  seed: %d  id: %s\n",
		card.Score, card.Stats.Attempts, card.Seed, card.ID)
	return err
}

func cellLabel(ds *catalog.DataSet, cell bingo.Cell) string {
	if cell.IsFree() {
		return "FREE"
	}
	label := ds.Labels([]bingo.GradeCode{cell.Grade})[0]
	return fmt.Sprintf("%s (%s)", cell.Key, label)
}

func writePNG(ctx context.Context, m *game.Manager, card game.Card, path string, stdout io.Writer) error {
	ds, err := m.DataSet(ctx)
	if err != nil {
		return err
	}
	opts := render.Options{
		ConditionText: card.ConditionText,
		GeneratedAt:   card.GeneratedAt,
	}

	if path == "-" {
		return render.PNG(stdout, ds, card.Grid, opts)
	}

	if info, err := os.Stat(path); (err == nil && info.IsDir()) || strings.HasSuffix(path, string(os.PathSeparator)) {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
		path = filepath.Join(path, render.FileName(card.Mode, card.Size))
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %q: %w", path, err)
	}
	if err := render.PNG(file, ds, card.Grid, opts); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}

	_, err = fmt.Fprintf(stdout, "%s\nwrote %s\n", card.ConditionText, path)
	return err
}
