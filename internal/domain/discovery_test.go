package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLedger_AddSeed(t *testing.T) {
	ledger := NewLedger()
	ledger.MarkProcessed("done")

	assert.True(t, ledger.AddSeed("a"))
	assert.False(t, ledger.AddSeed("a"), "duplicate seed")
	assert.False(t, ledger.AddSeed("done"), "processed artists are never re-seeded")
	assert.False(t, ledger.AddSeed(""))
	assert.Equal(t, []string{"a"}, ledger.PendingSeeds())
}

func TestLedger_MarkProcessed(t *testing.T) {
	ledger := NewLedger()
	ledger.AddSeed("b")
	ledger.AddSeed("a")

	assert.Equal(t, []string{"a", "b"}, ledger.PendingSeeds())

	ledger.MarkProcessed("a")

	assert.True(t, ledger.IsProcessed("a"))
	assert.Equal(t, []string{"b"}, ledger.PendingSeeds())
	assert.NotContains(t, ledger.Seed, "a")
}

func TestLedger_DropProcessedSeeds(t *testing.T) {
	ledger := NewLedger()
	ledger.Seed["x"] = struct{}{}
	ledger.Seed["y"] = struct{}{}
	ledger.Processed["x"] = struct{}{}

	assert.Equal(t, []string{"y"}, ledger.PendingSeeds())

	ledger.DropProcessedSeeds()

	assert.Len(t, ledger.Seed, 1)
	assert.Contains(t, ledger.Seed, "y")
}

func TestDiscoverySettings_Defaults(t *testing.T) {
	settings := DefaultDiscoverySettings()

	assert.Equal(t, 50, settings.PopularityThresholdArtist)
	assert.Equal(t, 30, settings.PopularityThresholdTrack)
	assert.Empty(t, settings.SeedGenres)
}

func TestDiscoverySettings_ChartLabels(t *testing.T) {
	settings := &DiscoverySettings{TopChartPlaylists: map[string]string{
		"Top 50 - Italia": "37i9dQZEVXbIQnj7RRhdSX",
		"Hot Hits":        "",
	}}

	assert.Equal(t, []string{"Hot Hits", "Top 50 - Italia"}, settings.ChartLabels())
}
