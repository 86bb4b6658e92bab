package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/TrishulMallur/EchoKey/internal/admin"
	"github.com/TrishulMallur/EchoKey/internal/snippets"
)

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Seed the factory snippets into a new store",
		Long: `Seed the factory managed snippets, the enabled flag, team settings and
empty usage records. A legacy single-tier store is migrated instead; a store
that is already current is left alone.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withStore(cmd, func(ctx context.Context, e *env) error {
				res, err := e.svc.Install(ctx)
				if err != nil {
					return e.fail("initialize store", err)
				}
				return e.out.Success(map[string]string{"result": res.String()}, fmt.Sprintf("Store %s\n", res))
			})
		},
	}
}

// NewSnippetsCommand creates the snippets command group.
func NewSnippetsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snippets",
		Short: "List and edit snippets",
	}
	cmd.AddCommand(newSnippetsListCommand(rootOpts))
	cmd.AddCommand(newSnippetsShowCommand(rootOpts))
	cmd.AddCommand(newSnippetsAddCommand(rootOpts))
	cmd.AddCommand(newSnippetsRemoveCommand(rootOpts))
	cmd.AddCommand(newSnippetsImportCommand(rootOpts))
	cmd.AddCommand(newSnippetsExportCommand(rootOpts))
	return cmd
}

// loadRegistry returns a registry loaded from the store.
func loadRegistry(ctx context.Context, e *env) (snippets.Registry, error) {
	reg := snippets.NewRegistry(e.store)
	if _, err := reg.Load(ctx); err != nil {
		return nil, err
	}
	return reg, nil
}

func newSnippetsListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list [filter]",
		Short: "List the effective snippets grouped by category",
		Long: `List the effective snippets: the managed tier merged with the user tier,
user entries winning. An optional filter keeps entries whose trigger or
expansion contains it.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withStore(cmd, func(ctx context.Context, e *env) error {
				reg, err := loadRegistry(ctx, e)
				if err != nil {
					return e.fail("load snippets", err)
				}
				m := reg.Mapping()
				if len(args) == 1 {
					m = filterSnippets(reg.List(), args[0])
				}
				return e.out.Success(m.Entries(), snippets.Catalog(m, e.cfg.Engine.Prefix))
			})
		},
	}
}

// filterSnippets keeps entries whose trigger or expansion contains query,
// ignoring case.
func filterSnippets(entries []snippets.Snippet, query string) snippets.Mapping {
	q := strings.ToLower(query)
	managed := map[string]string{}
	user := map[string]string{}
	for _, s := range entries {
		if !strings.Contains(strings.ToLower(s.Trigger), q) && !strings.Contains(strings.ToLower(s.Expansion), q) {
			continue
		}
		if s.Tier == snippets.TierUser {
			user[s.Trigger] = s.Expansion
		} else {
			managed[s.Trigger] = s.Expansion
		}
	}
	out, _ := snippets.Merge(managed, user)
	return out
}

func newSnippetsShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <trigger>",
		Short: "Show one snippet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withStore(cmd, func(ctx context.Context, e *env) error {
				reg, err := loadRegistry(ctx, e)
				if err != nil {
					return e.fail("load snippets", err)
				}
				s, err := reg.Find(args[0])
				if errors.Is(err, snippets.ErrNotFound) {
					msg := fmt.Sprintf("unknown trigger %s", args[0])
					if similar := snippets.Suggest(args[0], reg.Mapping(), 3); len(similar) > 0 {
						msg += fmt.Sprintf(" (did you mean: %s?)", strings.Join(similar, ", "))
					}
					return e.fail(msg, err)
				}
				if err != nil {
					return e.fail("find snippet", err)
				}
				text := fmt.Sprintf("%s (%s, %s)\n%s\n", s.Trigger, s.Tier, snippets.Category(s.Trigger, e.cfg.Engine.Prefix), s.Expansion)
				return e.out.Success(s, text)
			})
		},
	}
}

func newSnippetsAddCommand(rootOpts *RootOptions) *cobra.Command {
	var replace, managed bool
	cmd := &cobra.Command{
		Use:   "add <trigger> <expansion>",
		Short: "Add a user snippet",
		Long: `Add a snippet to the user tier, or to the managed tier with --managed.
A user snippet with the same trigger as a managed one overrides it. Triggers
that shadow, or are shadowed by, an existing trigger are saved with a warning.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withStore(cmd, func(ctx context.Context, e *env) error {
				add := e.svc.AddUserSnippet
				if managed {
					add = e.svc.AddManagedSnippet
				}
				warnings, err := add(ctx, args[0], args[1], replace)
				if err != nil {
					return e.fail("add snippet", err)
				}
				var text strings.Builder
				fmt.Fprintf(&text, "Saved %s\n", snippets.NormalizeTrigger(args[0]))
				for _, w := range warnings {
					fmt.Fprintf(&text, "Warning: %s\n", w)
				}
				return e.out.Success(map[string]any{
					"trigger":  snippets.NormalizeTrigger(args[0]),
					"warnings": warnings,
				}, text.String())
			})
		},
	}
	cmd.Flags().BoolVar(&replace, "replace", false, "replace an existing snippet in the same tier")
	cmd.Flags().BoolVar(&managed, "managed", false, "add to the managed tier")
	return cmd
}

func newSnippetsRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	var managed bool
	cmd := &cobra.Command{
		Use:   "remove <trigger>...",
		Short: "Remove user snippets",
		Long: `Remove one or more user snippets, or managed snippets with --managed.
Nothing is removed when any trigger is not in the tier.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withStore(cmd, func(ctx context.Context, e *env) error {
				remove := e.svc.RemoveUserSnippets
				if managed {
					remove = e.svc.RemoveManagedSnippets
				}
				if err := remove(ctx, args...); err != nil {
					return e.fail("remove snippets", err)
				}
				removed := make([]string, len(args))
				for i, a := range args {
					removed[i] = snippets.NormalizeTrigger(a)
				}
				return e.out.Success(map[string][]string{"removed": removed},
					fmt.Sprintf("Removed %s\n", strings.Join(removed, ", ")))
			})
		},
	}
	cmd.Flags().BoolVar(&managed, "managed", false, "remove from the managed tier")
	return cmd
}

func newSnippetsImportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import [file|dir]",
		Short: "Merge a snippet pack into the managed tier",
		Long: `Merge a snippet pack into the managed tier. The pack may be a JSON or YAML
file in pack format or a flat trigger map. A directory imports every pack
file in it. Without an argument the configured packs directory is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withStore(cmd, func(ctx context.Context, e *env) error {
				path := e.cfg.Packs.Dir
				if len(args) == 1 {
					path = args[0]
				}
				if path == "" {
					return e.out.Fail(ExitFailure, ErrCodeInvalid, "no pack given and packs.dir is not configured", nil)
				}

				info, err := os.Stat(path)
				if err != nil {
					return e.out.Fail(ExitFailure, ErrCodeNotFound, "read pack", err)
				}
				var res admin.ImportResult
				if info.IsDir() {
					res, err = e.svc.ImportPackDir(ctx, path)
				} else {
					var data []byte
					if data, err = os.ReadFile(path); err == nil {
						res, err = e.svc.ImportPack(ctx, data)
					}
				}
				if err != nil {
					return e.fail("import pack", err)
				}
				return e.out.Success(res, fmt.Sprintf("Imported: %d new, %d updated\n", res.Added, res.Updated))
			})
		},
	}
}

func newSnippetsExportCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		user     bool
		selected []string
	)
	cmd := &cobra.Command{
		Use:   "export [file]",
		Short: "Export the managed tier as a snippet pack",
		Long: `Export the managed tier as a snippet pack, or the user tier as a flat map
with --user. --trigger (repeatable) limits a user export to those entries.
Without a file the JSON is written to standard output.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withStore(cmd, func(ctx context.Context, e *env) error {
				var payload any
				var count int
				if user {
					m, err := e.svc.ExportUserSnippets(ctx, selected...)
					if err != nil {
						return e.fail("export user snippets", err)
					}
					payload, count = m, len(m)
				} else {
					if len(selected) > 0 {
						return e.out.Fail(ExitFailure, ErrCodeInvalid, "--trigger needs --user", nil)
					}
					pack, err := e.svc.ExportPack(ctx)
					if err != nil {
						return e.fail("export pack", err)
					}
					payload, count = pack, pack.Meta.SnippetCount
				}

				data, err := json.MarshalIndent(payload, "", "  ")
				if err != nil {
					return e.fail("encode pack", err)
				}
				data = append(data, '\n')
				if len(args) == 0 {
					_, err := cmd.OutOrStdout().Write(data)
					return err
				}
				if err := os.WriteFile(args[0], data, 0o644); err != nil {
					return e.fail("write pack", err)
				}
				return e.out.Success(map[string]any{"file": args[0], "snippets": count},
					fmt.Sprintf("Exported %d snippets to %s\n", count, args[0]))
			})
		},
	}
	cmd.Flags().BoolVar(&user, "user", false, "export the user tier instead")
	cmd.Flags().StringSliceVarP(&selected, "trigger", "t", nil, "export only these user triggers")
	return cmd
}
