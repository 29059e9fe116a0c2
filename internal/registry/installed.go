package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"promptstock/internal/common/fsutil"
	"promptstock/pkg/types"
)

// Resolve builds the on-disk locations of model id inside dir. Files are
// stored flat by their catalog file names.
func Resolve(dir, id string) (types.InstalledModel, error) {
	m, err := Get(id)
	if err != nil {
		return types.InstalledModel{}, err
	}
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return types.InstalledModel{}, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return types.InstalledModel{}, fmt.Errorf("abs path: %w", err)
	}
	inst := types.InstalledModel{
		ModelID:       m.ID,
		WeightsPath:   filepath.Join(abs, m.Weights.Name),
		ProjectorPath: filepath.Join(abs, m.Projector.Name),
	}
	var newest time.Time
	for _, p := range []string{inst.WeightsPath, inst.ProjectorPath} {
		fi, err := os.Stat(p)
		if err != nil || !fi.Mode().IsRegular() {
			continue
		}
		inst.DiskUsage += fi.Size()
		if fi.ModTime().After(newest) {
			newest = fi.ModTime()
		}
	}
	inst.InstalledAt = newest.UTC()
	return inst, nil
}

// Verify returns the paths of m that are not regular files.
func Verify(m types.InstalledModel) []string {
	var missing []string
	for _, p := range []string{m.WeightsPath, m.ProjectorPath} {
		if !fsutil.IsFile(p) {
			missing = append(missing, p)
		}
	}
	return missing
}

// LoadDir lists the catalog models whose weights and projector are both
// present in dir. A missing directory yields an empty list.
func LoadDir(dir string) ([]types.InstalledModel, error) {
	var out []types.InstalledModel
	for _, m := range catalog {
		inst, err := Resolve(dir, m.ID)
		if err != nil {
			return nil, err
		}
		if len(Verify(inst)) == 0 {
			out = append(out, inst)
		}
	}
	return out, nil
}
