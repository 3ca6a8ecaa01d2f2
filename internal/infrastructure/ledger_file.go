package infrastructure

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/yourusername/music-harvest-go/internal/domain"
)

// FileLedgerStore persists the discovery ledger as two line-delimited files,
// one artist id per line
type FileLedgerStore struct {
	seedPath      string
	processedPath string
}

// NewFileLedgerStore creates a ledger store over the seed and processed files
func NewFileLedgerStore(seedPath, processedPath string) *FileLedgerStore {
	return &FileLedgerStore{
		seedPath:      seedPath,
		processedPath: processedPath,
	}
}

// Load reads both files. A missing file is an empty set.
func (s *FileLedgerStore) Load() (*domain.Ledger, error) {
	seed, err := readIDSet(s.seedPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed artists: %w", err)
	}
	processed, err := readIDSet(s.processedPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read processed artists: %w", err)
	}
	return &domain.Ledger{Seed: seed, Processed: processed}, nil
}

// Save writes both files with ids sorted. Processed is written first so a
// crash between the two writes never loses an expansion record. Ids already
// processed on disk are merged in first, so a save from another process since
// Load is never undone; such ids also leave the seed set.
func (s *FileLedgerStore) Save(ledger *domain.Ledger) error {
	onDisk, err := readIDSet(s.processedPath)
	if err != nil {
		return fmt.Errorf("failed to read processed artists: %w", err)
	}
	for id := range onDisk {
		ledger.MarkProcessed(id)
	}

	if err := writeIDSet(s.processedPath, ledger.Processed); err != nil {
		return fmt.Errorf("failed to write processed artists: %w", err)
	}
	if err := writeIDSet(s.seedPath, ledger.Seed); err != nil {
		return fmt.Errorf("failed to write seed artists: %w", err)
	}
	return nil
}

func readIDSet(path string) (map[string]struct{}, error) {
	set := make(map[string]struct{})

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return set, nil
		}
		return nil, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if id := strings.TrimSpace(scanner.Text()); id != "" {
			set[id] = struct{}{}
		}
	}
	return set, scanner.Err()
}

func writeIDSet(path string, set map[string]struct{}) error {
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var b strings.Builder
	for _, id := range ids {
		b.WriteString(id)
		b.WriteByte('\n')
	}
	return writeFileAtomic(path, []byte(b.String()), 0644)
}
