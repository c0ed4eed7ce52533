package install

import (
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"oxitortoise/pkg/utils"
)

// DiskHost is the native fallback host: instead of
// instantiating the module into a live WebAssembly embedding, it writes
// the bytes to disk under a fresh uuid-derived name and allocates table
// slots from a monotonically increasing counter. Used for test-only
// round-trips and for `oxitortoise compile`'s artifact output.
type DiskHost struct {
	Dir string

	next    uint32
	written []string
}

// NewDiskHost creates the artifact directory if needed.
func NewDiskHost(dir string) (*DiskHost, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, utils.Wrap(err, "create artifact dir")
	}
	return &DiskHost{Dir: dir}, nil
}

func (d *DiskHost) InstantiateModule(bytes []byte) error {
	name := uuid.New().String() + ".wasm"
	path := filepath.Join(d.Dir, name)
	if err := os.WriteFile(path, bytes, 0o644); err != nil {
		return utils.Wrap(err, "write module artifact")
	}
	d.written = append(d.written, path)
	logrus.WithFields(logrus.Fields{"path": path, "bytes": len(bytes)}).Debug("install: module artifact written")
	return nil
}

func (d *DiskHost) GrowFunctionTable(n int) (uint32, bool) {
	first := d.next
	d.next += uint32(n)
	return first, true
}

// Artifacts lists the module files written so far, in install order.
func (d *DiskHost) Artifacts() []string {
	return append([]string(nil), d.written...)
}
