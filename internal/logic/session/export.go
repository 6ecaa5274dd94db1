package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cjeanneret/BoothGo/internal/debug"
	"github.com/cjeanneret/BoothGo/internal/logic/capture"
)

// Exporter hands a finished batch to the outside world, one invocation per
// image, preserving batch order.
type Exporter interface {
	Export(batch []capture.Photo) ([]string, error)
}

// DirExporter writes each photo of a batch into a directory as
// <prefix>-<unix-millis>-<index>.png. The timestamp is shared by the whole
// batch so one export groups together on disk; the index is the photo's
// 1-based position within the batch.
type DirExporter struct {
	Dir    string
	Prefix string
}

// Export writes the batch. A failing photo does not stop the remaining
// ones; all failures are joined into the returned error.
func (e *DirExporter) Export(batch []capture.Photo) ([]string, error) {
	if err := os.MkdirAll(e.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	stamp := time.Now().UnixMilli()
	var paths []string
	var errs []error
	for _, p := range batch {
		name := fmt.Sprintf("%s-%d-%d.png", e.Prefix, stamp, p.Index)
		path := filepath.Join(e.Dir, name)
		if err := os.WriteFile(path, p.Data, 0o644); err != nil {
			errs = append(errs, fmt.Errorf("write %s: %w", name, err))
			continue
		}
		debug.Live("Exported %s (%d bytes)", name, len(p.Data))
		paths = append(paths, path)
	}
	return paths, errors.Join(errs...)
}
