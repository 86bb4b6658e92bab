package snippets

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
)

func TestValidateTrigger(t *testing.T) {
	tests := []struct {
		trigger string
		valid   bool
	}{
		{";ab", true},
		{";4bpcmt", true},
		{"", false},
		{";", false},
		{"ab", false},
		{"; ab", false},
		{";a\tb", false},
	}
	for _, tt := range tests {
		t.Run(tt.trigger, func(t *testing.T) {
			err := ValidateTrigger(tt.trigger, DefaultPrefix)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidTrigger)
			}
		})
	}
}

func TestNormalizeTrigger(t *testing.T) {
	assert.Equal(t, ";abc", NormalizeTrigger("  ;ABc "))
}

func TestCategory(t *testing.T) {
	tests := map[string]string{
		";4bpcmt": "4B",
		";5bicsr": "5",
		";7pcgo":  "7",
		";8BTPV":  "8B",
		";9x":     "9",
		";hello":  "Other",
		";8c":     "Other",
	}
	for trigger, want := range tests {
		assert.Equal(t, want, Category(trigger, DefaultPrefix), trigger)
	}
}

func TestConflicts(t *testing.T) {
	existing := []string{";ab", ";abcd", ";x"}

	warnings := Conflicts(";abc", existing)
	assert.Len(t, warnings, 2, "shadowed by ;ab and shadows ;abcd")
	assert.Contains(t, warnings[0], ";ab")
	assert.Contains(t, warnings[1], ";abcd")

	assert.Empty(t, Conflicts(";AB", []string{";ab"}), "exact duplicates are not conflicts")
	assert.Empty(t, Conflicts(";q", existing))
}

func TestSuggest(t *testing.T) {
	m := FromMap(Defaults(), TierManaged)

	got := Suggest("pcmt", m, 3)
	assert.NotEmpty(t, got)
	assert.Contains(t, got, ";4bpcmt")
	assert.LessOrEqual(t, len(got), 3)

	assert.Empty(t, Suggest("zzzzzz", m, 3))
	assert.Nil(t, Suggest("pc", Mapping{}, 3))
	assert.Nil(t, Suggest("pc", m, 0))
}

func TestCatalog_Golden(t *testing.T) {
	m, _ := Merge(Defaults(), map[string]string{
		";7pcgo": "7: Mine",
		";hi":    "Hello there",
	})

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "catalog_with_user_tier", []byte(Catalog(m, DefaultPrefix)))
}
