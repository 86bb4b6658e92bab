package cli

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/TrishulMallur/EchoKey/internal/storage"
)

// NewStatsCommand creates the stats command group.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show, reset and export usage statistics",
	}
	cmd.AddCommand(newStatsShowCommand(rootOpts))
	cmd.AddCommand(newStatsResetCommand(rootOpts))
	cmd.AddCommand(newStatsExportCommand(rootOpts))
	return cmd
}

type statsView struct {
	Total   int                `json:"total"`
	Today   int                `json:"today"`
	Snippet []snippetUsageView `json:"snippets"`
}

type snippetUsageView struct {
	Trigger string `json:"trigger"`
	storage.SnippetStat
}

func newStatsShowCommand(rootOpts *RootOptions) *cobra.Command {
	var top int
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show expansion counts",
		Long: `Show the total expansion count, today's count and the most used triggers.
A pending record left by a session that could not flush is folded in first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withStore(cmd, func(ctx context.Context, e *env) error {
				if err := e.svc.FlushPending(ctx); err != nil {
					return e.fail("merge pending stats", err)
				}
				st, daily, err := e.svc.Stats(ctx)
				if err != nil {
					return e.fail("read stats", err)
				}

				view := statsView{Total: st.Expansions}
				if daily.Date == storage.Today(time.Now()) {
					view.Today = daily.Count
				}
				for trigger, s := range st.PerSnippet {
					view.Snippet = append(view.Snippet, snippetUsageView{Trigger: trigger, SnippetStat: s})
				}
				slices.SortFunc(view.Snippet, func(a, b snippetUsageView) int {
					if c := cmp.Compare(b.Count, a.Count); c != 0 {
						return c
					}
					return cmp.Compare(a.Trigger, b.Trigger)
				})
				if top > 0 && len(view.Snippet) > top {
					view.Snippet = view.Snippet[:top]
				}
				return e.out.Success(view, formatStats(view, st))
			})
		},
	}
	cmd.Flags().IntVarP(&top, "top", "n", 10, "number of triggers to list (0 for all)")
	return cmd
}

func formatStats(view statsView, st storage.Stats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Expansions: %s total, %s today\n", humanize.Comma(int64(view.Total)), humanize.Comma(int64(view.Today)))
	if st.LastUsed != nil {
		fmt.Fprintf(&b, "Last used:  %s\n", humanize.Time(*st.LastUsed))
	}
	if len(view.Snippet) == 0 {
		return b.String()
	}
	b.WriteString("\n")
	for _, s := range view.Snippet {
		last := "never"
		if s.LastUsed != nil {
			last = humanize.Time(*s.LastUsed)
		}
		fmt.Fprintf(&b, "  %-20s %8s  %s\n", s.Trigger, humanize.Comma(int64(s.Count)), last)
	}
	return b.String()
}

func newStatsResetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Clear all usage statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withStore(cmd, func(ctx context.Context, e *env) error {
				if err := e.svc.ResetStats(ctx); err != nil {
					return e.fail("reset stats", err)
				}
				return e.out.Success(map[string]bool{"reset": true}, "Usage statistics cleared\n")
			})
		},
	}
}

func newStatsExportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Export usage statistics as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withStore(cmd, func(ctx context.Context, e *env) error {
				if err := e.svc.FlushPending(ctx); err != nil {
					return e.fail("merge pending stats", err)
				}
				export, err := e.svc.ExportStats(ctx)
				if err != nil {
					return e.fail("export stats", err)
				}
				data, err := json.MarshalIndent(export, "", "  ")
				if err != nil {
					return e.fail("encode stats", err)
				}
				data = append(data, '\n')
				if len(args) == 0 {
					_, err := cmd.OutOrStdout().Write(data)
					return err
				}
				if err := os.WriteFile(args[0], data, 0o644); err != nil {
					return e.fail("write stats", err)
				}
				return e.out.Success(map[string]string{"file": args[0]}, fmt.Sprintf("Exported statistics to %s\n", args[0]))
			})
		},
	}
}
