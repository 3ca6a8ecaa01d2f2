package domain

import "sort"

const (
	DefaultArtistPopularityThreshold = 50
	DefaultTrackPopularityThreshold  = 30
)

// DiscoverySettings is the settings document driving discovery
type DiscoverySettings struct {
	PopularityThresholdArtist int               `mapstructure:"popularity_threshold_artist" json:"popularity_threshold_artist"`
	PopularityThresholdTrack  int               `mapstructure:"popularity_threshold_track" json:"popularity_threshold_track"`
	SeedGenres                []string          `mapstructure:"seed_genres" json:"seed_genres"`
	TopChartPlaylists         map[string]string `mapstructure:"top_chart_playlists" json:"top_chart_playlists"` // label -> playlist id, empty id resolves by search
}

// DefaultDiscoverySettings returns settings with default thresholds
func DefaultDiscoverySettings() *DiscoverySettings {
	return &DiscoverySettings{
		PopularityThresholdArtist: DefaultArtistPopularityThreshold,
		PopularityThresholdTrack:  DefaultTrackPopularityThreshold,
		SeedGenres:                []string{},
		TopChartPlaylists:         map[string]string{},
	}
}

// ChartLabels returns the configured chart labels in sorted order
func (s *DiscoverySettings) ChartLabels() []string {
	labels := make([]string, 0, len(s.TopChartPlaylists))
	for label := range s.TopChartPlaylists {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// Ledger tracks seed artists and artists whose related-artist expansion
// already ran. Processed only grows; an id in Processed is never expanded again.
type Ledger struct {
	Seed      map[string]struct{}
	Processed map[string]struct{}
}

// NewLedger creates an empty ledger
func NewLedger() *Ledger {
	return &Ledger{
		Seed:      make(map[string]struct{}),
		Processed: make(map[string]struct{}),
	}
}

// IsProcessed checks if an artist was already expanded
func (l *Ledger) IsProcessed(id string) bool {
	_, ok := l.Processed[id]
	return ok
}

// AddSeed nominates an artist for expansion. Processed artists are refused.
func (l *Ledger) AddSeed(id string) bool {
	if id == "" || l.IsProcessed(id) {
		return false
	}
	if _, ok := l.Seed[id]; ok {
		return false
	}
	l.Seed[id] = struct{}{}
	return true
}

// MarkProcessed moves an artist from seed to processed
func (l *Ledger) MarkProcessed(id string) {
	delete(l.Seed, id)
	l.Processed[id] = struct{}{}
}

// PendingSeeds returns seeds not yet processed, sorted
func (l *Ledger) PendingSeeds() []string {
	pending := make([]string, 0, len(l.Seed))
	for id := range l.Seed {
		if !l.IsProcessed(id) {
			pending = append(pending, id)
		}
	}
	sort.Strings(pending)
	return pending
}

// DropProcessedSeeds removes seeds that are already processed
func (l *Ledger) DropProcessedSeeds() {
	for id := range l.Seed {
		if l.IsProcessed(id) {
			delete(l.Seed, id)
		}
	}
}

// LedgerStore loads and persists the discovery ledger
type LedgerStore interface {
	Load() (*Ledger, error)
	Save(ledger *Ledger) error
}
