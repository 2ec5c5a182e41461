package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"parley/internal/config"
	"parley/internal/recording"
	"parley/internal/store"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var title string
	var reprocess bool

	cmd := &cobra.Command{
		Use:   "process <file-or-id>...",
		Short: "Diarize recordings and reconcile their speakers",
		Long: `Process diarizes each recording chunk by chunk and keeps speaker labels
consistent across chunks. Arguments may be audio files, which are added
first, or identifiers (or unique prefixes) of existing recordings.

Recordings run in parallel up to workers.max_parallel_recordings.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(title) != "" && len(args) > 1 {
				return errors.New("--title can only be used with a single file")
			}
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				svc, err := ctx.recordingService(cfg, st, true)
				if err != nil {
					return err
				}
				targets, err := resolveTargets(cmd.Context(), svc, st, args, title)
				if err != nil {
					return err
				}
				return processAll(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), svc, targets, cfg.Workers.MaxParallelRecordings, reprocess)
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Title for a newly added file")
	cmd.Flags().BoolVar(&reprocess, "reprocess", false, "Discard stored output and process again")
	return cmd
}

// resolveTargets maps each argument to a recording. Existing files are
// registered first; anything else is looked up by identifier.
func resolveTargets(ctx context.Context, svc *recording.Service, st *store.Store, args []string, title string) ([]*store.Recording, error) {
	targets := make([]*store.Recording, 0, len(args))
	seen := make(map[string]struct{}, len(args))
	for _, arg := range args {
		var (
			rec *store.Recording
			err error
		)
		if info, statErr := os.Stat(arg); statErr == nil && !info.IsDir() {
			rec, err = svc.Add(ctx, arg, title)
		} else {
			rec, err = st.Resolve(ctx, arg)
		}
		if err != nil {
			return nil, err
		}
		if _, dup := seen[rec.ID]; dup {
			continue
		}
		seen[rec.ID] = struct{}{}
		targets = append(targets, rec)
	}
	return targets, nil
}

func processAll(ctx context.Context, stdout, stderr io.Writer, svc *recording.Service, targets []*store.Recording, limit int, reprocess bool) error {
	if limit <= 0 {
		limit = 1
	}
	var (
		mu     sync.Mutex
		failed int
	)
	report := func(w io.Writer, format string, args ...any) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(w, format, args...)
	}

	// Recordings are independent; one failure does not stop the others.
	var g errgroup.Group
	g.SetLimit(limit)
	for _, target := range targets {
		g.Go(func() error {
			run := svc.Process
			if reprocess {
				run = svc.Reprocess
			}
			rec, err := run(ctx, target.ID)
			if err != nil {
				mu.Lock()
				failed++
				mu.Unlock()
				if len(targets) > 1 {
					report(stderr, "Failed %s %s: %v\n", shortID(target.ID), target.Title, err)
				}
				return err
			}
			report(stdout, "Completed %s %s (%d chunks)\n", shortID(rec.ID), rec.Title, rec.ChunkCount)
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		return nil
	}
	if len(targets) == 1 {
		return err
	}
	return fmt.Errorf("%d of %d recordings failed; first error: %w", failed, len(targets), err)
}
