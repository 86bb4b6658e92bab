package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/TrishulMallur/EchoKey/internal/snippets"
	"github.com/TrishulMallur/EchoKey/internal/stats"
	"github.com/TrishulMallur/EchoKey/internal/storage"
)

var (
	// ErrManaged is returned when a user-tier operation targets a trigger
	// that only exists in the managed tier.
	ErrManaged = errors.New("managed snippets are read-only")
	// ErrExists is returned when adding a snippet that already exists in the
	// target tier without asking to replace it.
	ErrExists = errors.New("snippet already exists")
	// ErrInvalidSetting is returned for out-of-range team settings.
	ErrInvalidSetting = errors.New("invalid setting")
)

// Default team settings written on install.
const (
	DefaultMinChars = 2
	DefaultFlash    = true
)

// minTriggerLen is the shortest trigger a user may add: the prefix plus two
// characters.
const minTriggerLen = 3

// InstallResult says what Install did.
type InstallResult int

const (
	// AlreadyCurrent means the store was already at the current schema.
	AlreadyCurrent InstallResult = iota
	// Installed means a fresh installation was seeded.
	Installed
	// Upgraded means a legacy single-tier store was migrated.
	Upgraded
)

func (r InstallResult) String() string {
	switch r {
	case Installed:
		return "installed"
	case Upgraded:
		return "upgraded"
	}
	return "current"
}

// ImportResult counts the managed entries an import touched.
type ImportResult struct {
	Added   int `json:"added"`
	Updated int `json:"updated"`
}

// StatsExport is the stats download format.
type StatsExport struct {
	Meta       StatsMeta          `json:"meta"`
	Stats      storage.Stats      `json:"stats"`
	DailyStats storage.DailyStats `json:"dailyStats"`
}

// StatsMeta describes a stats export.
type StatsMeta struct {
	ExportedAt time.Time `json:"exportedAt"`
	Source     string    `json:"source"`
	Type       string    `json:"type"`
}

// Service performs the administrative writes on an installation's store.
// Every change lands through storage.Write, so running sessions see it on
// their change feed.
type Service struct {
	store  storage.Store
	prefix string
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithPrefix sets the trigger prefix marker.
func WithPrefix(prefix string) Option {
	return func(s *Service) { s.prefix = prefix }
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService returns a service writing to store.
func NewService(store storage.Store, opts ...Option) *Service {
	s := &Service{store: store, prefix: snippets.DefaultPrefix, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Install seeds a fresh store, or migrates a legacy one, and is a no-op on a
// store already at the current schema.
//
// A legacy store's single snippet map becomes the user tier, minus entries
// identical to a factory default, and the managed tier is reset to the
// factory set.
func (s *Service) Install(ctx context.Context) (InstallResult, error) {
	raw, err := s.store.Get(ctx, storage.KeySchemaVersion, storage.KeyLegacySnippets)
	if err != nil {
		return AlreadyCurrent, fmt.Errorf("read schema: %w", err)
	}
	var version int
	hasVersion, err := storage.Decode(raw, storage.KeySchemaVersion, &version)
	if err != nil {
		slog.Warn("Ignoring unreadable schema version", "error", err)
	}
	if hasVersion && version >= storage.SchemaVersion {
		return AlreadyCurrent, nil
	}

	var legacy map[string]string
	hasLegacy, err := storage.Decode(raw, storage.KeyLegacySnippets, &legacy)
	if err != nil {
		slog.Warn("Ignoring unreadable legacy snippets", "error", err)
	}

	defaults := snippets.Defaults()
	if hasLegacy || hasVersion {
		user := make(map[string]string, len(legacy))
		for code, expansion := range legacy {
			code = snippets.NormalizeTrigger(code)
			if defaults[code] == expansion {
				continue
			}
			user[code] = expansion
		}
		if err := storage.Write(ctx, s.store, map[string]any{
			storage.KeyManagedSnippets: defaults,
			storage.KeyUserSnippets:    user,
			storage.KeySchemaVersion:   storage.SchemaVersion,
		}); err != nil {
			return AlreadyCurrent, fmt.Errorf("upgrade store: %w", err)
		}
		slog.Info("Upgraded snippet store",
			"from_version", version,
			"managed_snippets", len(defaults),
			"user_snippets", len(user),
		)
		return Upgraded, nil
	}

	minChars, flash := DefaultMinChars, DefaultFlash
	now := s.now()
	if err := storage.Write(ctx, s.store, map[string]any{
		storage.KeyManagedSnippets: defaults,
		storage.KeyUserSnippets:    map[string]string{},
		storage.KeyEnabled:         true,
		storage.KeySchemaVersion:   storage.SchemaVersion,
		storage.KeyStats:           storage.EmptyStats(),
		storage.KeyDailyStats:      storage.DailyStats{Date: storage.Today(now)},
		storage.KeyTeamSettings: storage.TeamSettings{
			AutocompleteMinChars: &minChars,
			ShowFeedbackFlash:    &flash,
		},
	}); err != nil {
		return AlreadyCurrent, fmt.Errorf("install: %w", err)
	}
	slog.Info("Installed factory snippets", "managed_snippets", len(defaults))
	return Installed, nil
}

// ResetDefaults restores the managed tier to the factory set. User snippets
// are untouched; the enabled flag is kept, defaulting to true when missing.
func (s *Service) ResetDefaults(ctx context.Context) error {
	raw, err := s.store.Get(ctx, storage.KeyEnabled)
	if err != nil {
		return fmt.Errorf("read enabled: %w", err)
	}
	enabled := true
	var stored bool
	ok, err := storage.Decode(raw, storage.KeyEnabled, &stored)
	if err != nil {
		slog.Warn("Ignoring unreadable enabled flag", "error", err)
	}
	if ok && !stored {
		enabled = false
	}

	defaults := snippets.Defaults()
	if err := storage.Write(ctx, s.store, map[string]any{
		storage.KeyManagedSnippets: defaults,
		storage.KeyEnabled:         enabled,
	}); err != nil {
		return fmt.Errorf("reset defaults: %w", err)
	}
	slog.Info("Managed snippets reset to defaults", "managed_snippets", len(defaults), "enabled", enabled)
	return nil
}

// Tiers reads both snippet tiers. A missing tier is an empty map.
func (s *Service) Tiers(ctx context.Context) (managed, user map[string]string, err error) {
	raw, err := s.store.Get(ctx, storage.KeyManagedSnippets, storage.KeyUserSnippets)
	if err != nil {
		return nil, nil, fmt.Errorf("read snippet tiers: %w", err)
	}
	if _, err := storage.Decode(raw, storage.KeyManagedSnippets, &managed); err != nil {
		return nil, nil, err
	}
	if _, err := storage.Decode(raw, storage.KeyUserSnippets, &user); err != nil {
		return nil, nil, err
	}
	if managed == nil {
		managed = map[string]string{}
	}
	if user == nil {
		user = map[string]string{}
	}
	return managed, user, nil
}

// AddUserSnippet saves a user-tier entry. An entry with the same trigger as a
// managed one is allowed and overrides it. The returned warnings list prefix
// shadowing against every existing trigger; they do not block the save.
func (s *Service) AddUserSnippet(ctx context.Context, trigger, expansion string, replace bool) ([]string, error) {
	trigger, err := s.checkEntry(trigger, expansion)
	if err != nil {
		return nil, err
	}
	managed, user, err := s.Tiers(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := user[trigger]; ok && !replace {
		return nil, fmt.Errorf("%w: %s", ErrExists, trigger)
	}
	warnings := snippets.Conflicts(trigger, triggers(managed, user))

	user[trigger] = expansion
	if err := storage.Write(ctx, s.store, map[string]any{storage.KeyUserSnippets: user}); err != nil {
		return nil, fmt.Errorf("save user snippet: %w", err)
	}
	_, override := managed[trigger]
	slog.Info("Saved user snippet", "trigger", trigger, "overrides_managed", override, "warnings", len(warnings))
	return warnings, nil
}

// AddManagedSnippet saves one managed-tier entry, the single-entry
// counterpart of ImportPack. A user entry with the same trigger keeps
// overriding it.
func (s *Service) AddManagedSnippet(ctx context.Context, trigger, expansion string, replace bool) ([]string, error) {
	trigger, err := s.checkEntry(trigger, expansion)
	if err != nil {
		return nil, err
	}
	managed, user, err := s.Tiers(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := managed[trigger]; ok && !replace {
		return nil, fmt.Errorf("%w: %s", ErrExists, trigger)
	}
	warnings := snippets.Conflicts(trigger, triggers(managed, user))

	managed[trigger] = expansion
	if err := storage.Write(ctx, s.store, map[string]any{storage.KeyManagedSnippets: managed}); err != nil {
		return nil, fmt.Errorf("save managed snippet: %w", err)
	}
	_, overridden := user[trigger]
	slog.Info("Saved managed snippet", "trigger", trigger, "overridden_by_user", overridden, "warnings", len(warnings))
	return warnings, nil
}

// checkEntry normalizes trigger and rejects entries that could never be
// typed or would expand to nothing.
func (s *Service) checkEntry(trigger, expansion string) (string, error) {
	trigger = snippets.NormalizeTrigger(trigger)
	if err := snippets.ValidateTrigger(trigger, s.prefix); err != nil {
		return "", err
	}
	if len([]rune(trigger)) < minTriggerLen {
		return "", fmt.Errorf("%w: %q is shorter than %d characters", snippets.ErrInvalidTrigger, trigger, minTriggerLen)
	}
	if expansion == "" {
		return "", fmt.Errorf("%w: empty expansion for %q", snippets.ErrInvalidTrigger, trigger)
	}
	return trigger, nil
}

// triggers lists every distinct trigger across both tiers.
func triggers(managed, user map[string]string) []string {
	out := make([]string, 0, len(managed)+len(user))
	for code := range managed {
		out = append(out, code)
	}
	for code := range user {
		if _, dup := managed[code]; !dup {
			out = append(out, code)
		}
	}
	return out
}

// RemoveUserSnippets deletes user-tier entries in one write. Removing an
// override brings the managed expansion back. Nothing is removed unless every
// trigger is a user entry.
func (s *Service) RemoveUserSnippets(ctx context.Context, codes ...string) error {
	managed, user, err := s.Tiers(ctx)
	if err != nil {
		return err
	}
	codes, err = pick(codes, user, func(code string) error {
		if _, ok := managed[code]; ok {
			return fmt.Errorf("%w: %s", ErrManaged, code)
		}
		return fmt.Errorf("%w: %s", snippets.ErrNotFound, code)
	})
	if err != nil {
		return err
	}
	for _, code := range codes {
		delete(user, code)
	}
	if err := storage.Write(ctx, s.store, map[string]any{storage.KeyUserSnippets: user}); err != nil {
		return fmt.Errorf("remove user snippets: %w", err)
	}
	slog.Info("Removed user snippets", "triggers", codes)
	return nil
}

// RemoveManagedSnippets deletes managed-tier entries in one write. User
// entries with the same triggers stay in effect. Nothing is removed unless
// every trigger is a managed entry.
func (s *Service) RemoveManagedSnippets(ctx context.Context, codes ...string) error {
	managed, _, err := s.Tiers(ctx)
	if err != nil {
		return err
	}
	codes, err = pick(codes, managed, func(code string) error {
		return fmt.Errorf("%w: %s", snippets.ErrNotFound, code)
	})
	if err != nil {
		return err
	}
	for _, code := range codes {
		delete(managed, code)
	}
	if err := storage.Write(ctx, s.store, map[string]any{storage.KeyManagedSnippets: managed}); err != nil {
		return fmt.Errorf("remove managed snippets: %w", err)
	}
	slog.Info("Removed managed snippets", "triggers", codes)
	return nil
}

// pick normalizes codes and checks each is in tier. missing builds the error
// for the first one that is not.
func pick(codes []string, tier map[string]string, missing func(code string) error) ([]string, error) {
	if len(codes) == 0 {
		return nil, fmt.Errorf("%w: no triggers given", snippets.ErrInvalidTrigger)
	}
	out := make([]string, 0, len(codes))
	for _, code := range codes {
		code = snippets.NormalizeTrigger(code)
		if _, ok := tier[code]; !ok {
			return nil, missing(code)
		}
		out = append(out, code)
	}
	return out, nil
}

// ImportPack merges pack data into the managed tier. Nothing is written when
// the data does not parse.
func (s *Service) ImportPack(ctx context.Context, data []byte) (ImportResult, error) {
	entries, err := snippets.ParsePack(data, s.prefix)
	if err != nil {
		return ImportResult{}, err
	}
	return s.mergeManaged(ctx, entries)
}

// ImportPackDir merges every pack file under dir into the managed tier.
func (s *Service) ImportPackDir(ctx context.Context, dir string) (ImportResult, error) {
	entries, err := snippets.LoadPackDir(dir, s.prefix)
	if err != nil {
		return ImportResult{}, fmt.Errorf("load packs from %s: %w", dir, err)
	}
	return s.mergeManaged(ctx, entries)
}

func (s *Service) mergeManaged(ctx context.Context, entries map[string]string) (ImportResult, error) {
	managed, _, err := s.Tiers(ctx)
	if err != nil {
		return ImportResult{}, err
	}
	var res ImportResult
	for code, expansion := range entries {
		if _, ok := managed[code]; ok {
			res.Updated++
		} else {
			res.Added++
		}
		managed[code] = expansion
	}
	if err := storage.Write(ctx, s.store, map[string]any{storage.KeyManagedSnippets: managed}); err != nil {
		return ImportResult{}, fmt.Errorf("save managed snippets: %w", err)
	}
	slog.Info("Imported snippet pack", "added", res.Added, "updated", res.Updated)
	return res, nil
}

// ExportPack wraps the managed tier for distribution.
func (s *Service) ExportPack(ctx context.Context) (snippets.Pack, error) {
	managed, _, err := s.Tiers(ctx)
	if err != nil {
		return snippets.Pack{}, err
	}
	return snippets.NewPack(managed, s.now()), nil
}

// ExportUserSnippets returns a copy of the user tier as a flat map, the
// layout ImportPack also accepts. With codes, only those entries are
// exported and each must exist.
func (s *Service) ExportUserSnippets(ctx context.Context, codes ...string) (map[string]string, error) {
	_, user, err := s.Tiers(ctx)
	if err != nil {
		return nil, err
	}
	if len(codes) == 0 {
		return maps.Clone(user), nil
	}
	out := make(map[string]string, len(codes))
	for _, code := range codes {
		code = snippets.NormalizeTrigger(code)
		expansion, ok := user[code]
		if !ok {
			return nil, fmt.Errorf("%w: %s", snippets.ErrNotFound, code)
		}
		out[code] = expansion
	}
	return out, nil
}

// Stats reads the usage records. Missing records read as empty ones.
func (s *Service) Stats(ctx context.Context) (storage.Stats, storage.DailyStats, error) {
	raw, err := s.store.Get(ctx, storage.KeyStats, storage.KeyDailyStats)
	if err != nil {
		return storage.Stats{}, storage.DailyStats{}, fmt.Errorf("read stats: %w", err)
	}
	st := storage.EmptyStats()
	if _, err := storage.Decode(raw, storage.KeyStats, &st); err != nil {
		return storage.Stats{}, storage.DailyStats{}, err
	}
	if st.PerSnippet == nil {
		st.PerSnippet = map[string]storage.SnippetStat{}
	}
	var daily storage.DailyStats
	if _, err := storage.Decode(raw, storage.KeyDailyStats, &daily); err != nil {
		return storage.Stats{}, storage.DailyStats{}, err
	}
	// A stale daily record reads as zero for today.
	if today := storage.Today(s.now()); daily.Date != today {
		daily = storage.DailyStats{Date: today}
	}
	return st, daily, nil
}

// ResetStats clears all usage records.
func (s *Service) ResetStats(ctx context.Context) error {
	if err := storage.Write(ctx, s.store, map[string]any{
		storage.KeyStats:      storage.EmptyStats(),
		storage.KeyDailyStats: storage.DailyStats{Date: storage.Today(s.now())},
	}); err != nil {
		return fmt.Errorf("reset stats: %w", err)
	}
	if err := s.store.Remove(ctx, storage.KeyStatsPending); err != nil {
		return fmt.Errorf("reset stats: %w", err)
	}
	slog.Info("Usage statistics reset")
	return nil
}

// ExportStats returns the usage records in the download format.
func (s *Service) ExportStats(ctx context.Context) (StatsExport, error) {
	st, daily, err := s.Stats(ctx)
	if err != nil {
		return StatsExport{}, err
	}
	return StatsExport{
		Meta: StatsMeta{
			ExportedAt: s.now().UTC(),
			Source:     snippets.PackSource,
			Type:       "stats",
		},
		Stats:      st,
		DailyStats: daily,
	}, nil
}

// SaveTeamSettings stores the team-wide engine settings.
func (s *Service) SaveTeamSettings(ctx context.Context, minChars int, flash bool) error {
	if minChars < 1 || minChars > 5 {
		return fmt.Errorf("%w: min characters must be between 1 and 5, got %d", ErrInvalidSetting, minChars)
	}
	if err := storage.Write(ctx, s.store, map[string]any{
		storage.KeyTeamSettings: storage.TeamSettings{
			AutocompleteMinChars: &minChars,
			ShowFeedbackFlash:    &flash,
		},
	}); err != nil {
		return fmt.Errorf("save team settings: %w", err)
	}
	slog.Info("Team settings saved", "min_chars", minChars, "flash", flash)
	return nil
}

// TeamSettings reads the stored team settings with defaults filled in.
func (s *Service) TeamSettings(ctx context.Context) (minChars int, flash bool, err error) {
	var ts storage.TeamSettings
	if _, err := storage.Read(ctx, s.store, storage.KeyTeamSettings, &ts); err != nil {
		return 0, false, err
	}
	minChars, flash = DefaultMinChars, DefaultFlash
	if ts.AutocompleteMinChars != nil {
		minChars = *ts.AutocompleteMinChars
	}
	if ts.ShowFeedbackFlash != nil {
		flash = *ts.ShowFeedbackFlash
	}
	return minChars, flash, nil
}

// SetEnabled flips the kill switch.
func (s *Service) SetEnabled(ctx context.Context, on bool) error {
	if err := storage.Write(ctx, s.store, map[string]any{storage.KeyEnabled: on}); err != nil {
		return fmt.Errorf("set enabled: %w", err)
	}
	slog.Info("Expansion toggled", "enabled", on)
	return nil
}

// Enabled reads the kill switch. A missing flag reads as enabled.
func (s *Service) Enabled(ctx context.Context) (bool, error) {
	on := true
	if _, err := storage.Read(ctx, s.store, storage.KeyEnabled, &on); err != nil {
		return false, err
	}
	return on, nil
}

// FlushPending folds a pending stats record left by a torn-down session into
// the usage records, as the next session would on load.
func (s *Service) FlushPending(ctx context.Context) error {
	return stats.New(s.store, stats.WithClock(s.now)).Recover(ctx)
}
