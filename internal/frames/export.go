package frames

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dld-tools/dld/internal/imaging"
)

// ExportPNGs decodes every frame in the archive and writes them to dir as
// frame_0001.png, frame_0002.png, ... It reports how many frames were
// written.
func ExportPNGs(archive, dir string) (int, error) {
	r, err := Open(archive)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, err
	}

	n := 0
	for {
		img, err := r.Next()
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		n++
		name := filepath.Join(dir, fmt.Sprintf("frame_%04d.png", n))
		if err := imaging.Save(img, name); err != nil {
			return n, err
		}
	}
}
