package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TrishulMallur/EchoKey/internal/admin"
)

// NewSettingsCommand creates the settings command group.
func NewSettingsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show and change team settings",
	}
	cmd.AddCommand(newSettingsShowCommand(rootOpts))
	cmd.AddCommand(newSettingsSetCommand(rootOpts))
	return cmd
}

type settingsView struct {
	Enabled  bool `json:"enabled"`
	MinChars int  `json:"minChars"`
	Flash    bool `json:"flash"`
}

func newSettingsShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the expansion switch and team settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withStore(cmd, func(ctx context.Context, e *env) error {
				on, err := e.svc.Enabled(ctx)
				if err != nil {
					return e.fail("read settings", err)
				}
				minChars, flash, err := e.svc.TeamSettings(ctx)
				if err != nil {
					return e.fail("read settings", err)
				}
				view := settingsView{Enabled: on, MinChars: minChars, Flash: flash}
				text := fmt.Sprintf("Enabled:   %t\nMin chars: %d\nFlash:     %t\n", on, minChars, flash)
				return e.out.Success(view, text)
			})
		},
	}
}

func newSettingsSetCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		minChars int
		flash    bool
	)
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change team settings",
		Long: `Change the team settings. Flags left out keep their stored value.

  --min-chars  characters typed after the prefix before suggestions open (1-5)
  --flash      flash the field after an expansion`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withStore(cmd, func(ctx context.Context, e *env) error {
				curMin, curFlash, err := e.svc.TeamSettings(ctx)
				if err != nil {
					return e.fail("read settings", err)
				}
				if cmd.Flags().Changed("min-chars") {
					curMin = minChars
				}
				if cmd.Flags().Changed("flash") {
					curFlash = flash
				}
				if err := e.svc.SaveTeamSettings(ctx, curMin, curFlash); err != nil {
					return e.fail("save settings", err)
				}
				view := settingsView{MinChars: curMin, Flash: curFlash}
				return e.out.Success(view, fmt.Sprintf("Saved: min chars %d, flash %t\n", curMin, curFlash))
			})
		},
	}
	cmd.Flags().IntVar(&minChars, "min-chars", admin.DefaultMinChars, "autocomplete minimum characters (1-5)")
	cmd.Flags().BoolVar(&flash, "flash", admin.DefaultFlash, "show the feedback flash")
	return cmd
}

// sendCommand runs req through the command channel against the open store.
func sendCommand(ctx context.Context, e *env, req admin.Request) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	in := make(chan admin.Envelope)
	done := make(chan error, 1)
	go func() { done <- admin.NewHandler(e.svc).Serve(ctx, in) }()

	resp, err := admin.Send(ctx, in, req)
	close(in)
	if serveErr := <-done; serveErr != nil && err == nil {
		err = serveErr
	}
	if err != nil {
		return err
	}
	if !resp.OK {
		return errors.New(resp.Error)
	}
	return nil
}

// NewEnableCommand creates the enable command, or disable when on is false.
func NewEnableCommand(rootOpts *RootOptions, on bool) *cobra.Command {
	use, short, done := "enable", "Turn expansion on", "Expansion enabled\n"
	if !on {
		use, short, done = "disable", "Turn expansion off", "Expansion disabled\n"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Long: short + `. Running sessions on the same store pick the change up
immediately.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withStore(cmd, func(ctx context.Context, e *env) error {
				if err := sendCommand(ctx, e, admin.Request{Action: admin.ActionSetEnabled, Enabled: &on}); err != nil {
					return e.fail(use, err)
				}
				return e.out.Success(map[string]bool{"enabled": on}, done)
			})
		},
	}
}

// NewResetDefaultsCommand creates the reset-defaults command.
func NewResetDefaultsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-defaults",
		Short: "Restore the factory managed snippets",
		Long: `Restore the factory managed snippets. User snippets and the expansion
switch keep their values.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withStore(cmd, func(ctx context.Context, e *env) error {
				if err := sendCommand(ctx, e, admin.Request{Action: admin.ActionResetDefaults}); err != nil {
					return e.fail("reset defaults", err)
				}
				return e.out.Success(map[string]bool{"reset": true}, "Factory snippets restored\n")
			})
		},
	}
}
