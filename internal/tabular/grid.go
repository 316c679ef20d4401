// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tabular

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/oscal-engine/pkg/types"
)

// ReadGridCSV loads a CSV export into a grid. The first row is the header;
// the sheet name is taken from the file name since CSV carries none. Rows
// shorter than the header are padded so column indexes stay aligned.
func ReadGridCSV(path string) (types.Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return types.Grid{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return types.Grid{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(rows) == 0 {
		return types.Grid{}, fmt.Errorf("parsing %s: no header row", path)
	}

	grid := types.Grid{
		ArtifactPath: path,
		Sheet:        strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Headers:      rows[0],
	}
	for _, row := range rows[1:] {
		for len(row) < len(grid.Headers) {
			row = append(row, "")
		}
		grid.Rows = append(grid.Rows, row)
	}
	return grid, nil
}
