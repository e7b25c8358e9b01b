package sqlite

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/mesh-intelligence/agencydesk/internal/sample"
	"github.com/mesh-intelligence/agencydesk/pkg/types"
)

// seedSamples writes the sample records of every collection that has no JSONL
// file yet. An existing file, even an empty one, is never overwritten, so a
// collection the user emptied stays empty.
func seedSamples(dataDir string) ([]string, error) {
	var seeded []string
	for _, name := range types.StandardCollectionNames() {
		path := collectionFile(dataDir, name)
		if _, err := os.Stat(path); err == nil {
			continue
		} else if !errors.Is(err, fs.ErrNotExist) {
			return seeded, fmt.Errorf("checking %s: %w", path, err)
		}
		records, err := sample.Records(name)
		if err != nil {
			return seeded, err
		}
		if err := writeJSONL(path, records); err != nil {
			return seeded, fmt.Errorf("seeding %s: %w", name, err)
		}
		seeded = append(seeded, name)
	}
	return seeded, nil
}
