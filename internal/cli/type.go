package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/TrishulMallur/EchoKey/internal/engine"
	"github.com/TrishulMallur/EchoKey/internal/snippets"
	"github.com/TrishulMallur/EchoKey/internal/surface"
)

// escapes lets keystrokes that are awkward on a command line be spelled out.
var escapes = strings.NewReplacer(`\t`, "\t", `\n`, "\n", `\\`, `\`)

type typeResult struct {
	Text       string `json:"text"`
	Expansions int    `json:"expansions"`
	Enabled    bool   `json:"enabled"`
}

// NewTypeCommand creates the type command.
func NewTypeCommand(rootOpts *RootOptions) *cobra.Command {
	var rich bool
	cmd := &cobra.Command{
		Use:   "type <text>",
		Short: "Type text into a field and print what it became",
		Long: `Type text one key at a time into an in-memory field watched by an
expansion session on the configured store, then print the field's value.
A trigger expands when followed by a space, tab (\t) or newline (\n).
Expansions count towards the usage statistics.`,
		Example: `  echokey type "Hello ;ab "
  echokey type --rich 'line one\n;sig\t'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withStore(cmd, func(ctx context.Context, e *env) error {
				s := engine.NewSession(engine.Options{
					Store:          e.store,
					Registry:       snippets.NewRegistry(e.store),
					Prefix:         e.cfg.Engine.Prefix,
					MaxBuffer:      e.cfg.Engine.MaxBuffer,
					MaxSuggestions: e.cfg.Engine.MaxSuggestions,
					Debounce:       e.cfg.Engine.Debounce.Duration(),
					FlushInterval:  -1,
				})
				if err := s.Init(ctx); err != nil {
					return e.fail("start session", err)
				}
				defer func() { _ = s.Dispose(ctx) }()

				var value func() string
				var target surface.Editor
				if rich {
					g := surface.NewRegion("")
					target, value = g, g.Text
				} else {
					f := surface.NewField("")
					target, value = f, f.Value
				}
				surface.Type(s, target, escapes.Replace(args[0]))

				n, _ := s.Stats().Pending()
				if err := s.Stats().Flush(ctx); err != nil {
					return e.fail("save stats", err)
				}
				res := typeResult{Text: value(), Expansions: n, Enabled: s.Enabled()}
				e.out.VerboseLog("Session %s: %d expansions", s.ID(), n)
				return e.out.Success(res, res.Text+"\n")
			})
		},
	}
	cmd.Flags().BoolVar(&rich, "rich", false, "type into a multi-line rich region instead of a plain field")
	return cmd
}
