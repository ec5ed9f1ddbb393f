package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/mlt/internal/cache"
	"github.com/sawpanic/mlt/internal/cv"
	"github.com/sawpanic/mlt/internal/experiment"
	"github.com/sawpanic/mlt/internal/frame"
	"github.com/sawpanic/mlt/internal/persistence"
)

// scheduleFold is one line of the printed fold schedule
type scheduleFold struct {
	persistence.FoldRecord
	Inner []cv.Split `json:"inner,omitempty"`
}

func newFoldsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "folds",
		Short: "Print the outer fold schedule",
		Long: `Prints every outer fold with its train/test date ranges and the rows
removed by purge and embargo. Schedules are cached (redis when
cache.redis_addr is set) keyed by splitter config and timestamps.`,
		RunE: runFolds,
	}

	addConfigFlag(cmd.Flags())
	cmd.Flags().Bool("inner", false, "Include the inner splits of every training window")
	cmd.Flags().Bool("json", false, "Print one JSON object per fold")

	return cmd
}

func runFolds(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	withInner, _ := cmd.Flags().GetBool("inner")
	asJSON, _ := cmd.Flags().GetBool("json")

	splits, err := s.schedule(cmd.Context(), cache.NewAuto(s.cfg.Cache.RedisAddr))
	if err != nil {
		return err
	}

	times, err := s.data.TimeColumn(s.cfg.Runner.TimeColumn)
	if err != nil {
		return err
	}

	folds := make([]scheduleFold, 0, len(splits))
	for _, split := range splits {
		f := scheduleFold{FoldRecord: persistence.FoldRecord{
			Index:     split.Index,
			TrainRows: len(split.Train),
			TestRows:  len(split.Test),
			Purged:    split.Purged,
			Embargoed: split.Embargoed,
		}}
		f.TrainStart, f.TrainEnd, _ = frame.Span(times, split.Train)
		f.TestStart, f.TestEnd, _ = frame.Span(times, split.Test)

		if withInner && s.inner != nil {
			if f.Inner, err = experiment.InnerSplits(s.inner, s.data, s.labels, split.Train); err != nil {
				return fmt.Errorf("fold %d: %w", split.Index, err)
			}
			f.InnerSplits = len(f.Inner)
		}
		folds = append(folds, f)
	}

	if asJSON {
		return printFoldsJSON(cmd.OutOrStdout(), folds)
	}
	printFoldsTable(cmd.OutOrStdout(), s.outer.Name(), folds)
	return nil
}

// schedule returns the outer splits, from the cache when the same config was
// already split over the same timestamps
func (s *session) schedule(ctx context.Context, c cache.Cache) ([]cv.Split, error) {
	var stamps []time.Time
	for _, name := range s.cfg.Outer.TimeColumns() {
		col, err := s.data.TimeColumn(name)
		if err != nil {
			return nil, err
		}
		stamps = append(stamps, col...)
	}
	key := cache.Key(s.outer.Name(), s.cfg.Outer.Fingerprint(), stamps)

	splits, hit, err := cache.GetOrCompute(ctx, c, key, s.cfg.Cache.TTL, func() ([]cv.Split, error) {
		folds, err := s.outer.Split(s.data, s.labels)
		if err != nil {
			return nil, err
		}
		return folds.Collect(), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to split dataset: %w", err)
	}

	log.Debug().Str("key", key).Bool("cache_hit", hit).Int("folds", len(splits)).Msg("Fold schedule ready")
	return splits, nil
}

func printFoldsJSON(w io.Writer, folds []scheduleFold) error {
	enc := json.NewEncoder(w)
	for _, f := range folds {
		if err := enc.Encode(f); err != nil {
			return fmt.Errorf("failed to encode fold %d: %w", f.Index, err)
		}
	}
	return nil
}

func printFoldsTable(w io.Writer, splitter string, folds []scheduleFold) {
	const layout = "2006-01-02 15:04"

	fmt.Fprintf(w, "%s: %d folds\n\n", splitter, len(folds))
	fmt.Fprintf(w, "%-5s %-35s %-35s %7s %6s %6s %8s %6s\n",
		"FOLD", "TRAIN", "TEST", "TRAIN#", "TEST#", "PURGE", "EMBARGO", "INNER")

	span := func(from, to time.Time, rows int) string {
		if rows == 0 {
			return "-"
		}
		return from.Format(layout) + " to " + to.Format(layout)
	}
	for _, f := range folds {
		fmt.Fprintf(w, "%-5d %-35s %-35s %7d %6d %6d %8d %6d\n",
			f.Index,
			span(f.TrainStart, f.TrainEnd, f.TrainRows),
			span(f.TestStart, f.TestEnd, f.TestRows),
			f.TrainRows, f.TestRows, f.Purged, f.Embargoed, f.InnerSplits)
	}
}
