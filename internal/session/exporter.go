// Package session is the boundary to the external banking session layer
// that retrieves raw statement exports.
package session

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/finward/bankfeed/internal/common"
	"github.com/finward/bankfeed/internal/model"
)

// Exporter retrieves the raw OFX export for one account. The production
// implementation lives outside this repository (it drives the bank's web
// session); everything here treats it as an opaque collaborator.
type Exporter interface {
	Export(ctx context.Context, account model.Account) (string, error)
}

// DirExporter serves exports the session layer has already saved to disk,
// one <identifier>.ofx file per account. It lets the pipeline run against
// saved statements without the browser layer.
type DirExporter struct {
	dir string
}

// NewDirExporter creates an exporter reading from dir.
func NewDirExporter(dir string) *DirExporter {
	return &DirExporter{dir: dir}
}

// Export reads the saved export for the account.
func (e *DirExporter) Export(_ context.Context, account model.Account) (string, error) {
	path := filepath.Join(e.dir, account.Identifier+".ofx")
	data, err := os.ReadFile(path) // #nosec G304
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s (%s)", common.ErrNoExport, account.DisplayName(), path)
		}
		return "", fmt.Errorf("failed to read export for %s: %w", account.DisplayName(), err)
	}
	return string(data), nil
}
