package apply

import (
	"fmt"
	"os"

	"github.com/spf13/afero"
)

// Writer is the abstraction over the live filesystem's write surface
// (spec.md §4.5.3): create/truncate/mode in one call, recursive mkdir,
// remove (file or recursive directory), and symlink creation. Reads
// still go through deststate.System; Writer is the write-only
// complement used only by the commit loop.
type Writer interface {
	MkdirAll(path string, mode os.FileMode) error
	OpenFileTruncate(path string, mode os.FileMode) (afero.File, error)
	Remove(path string) error
	RemoveAll(path string) error
	Symlink(oldname, newname string) error
}

// AferoWriter adapts an afero.Fs to Writer. Symlink creation requires
// the backing Fs to implement afero.Linker (afero.OsFs does); an Fs
// that does not (e.g. the in-memory Fs used by some tests) returns an
// error rather than silently no-op-ing.
type AferoWriter struct {
	fs afero.Fs
}

// NewAferoWriter wraps fs as a Writer.
func NewAferoWriter(fs afero.Fs) *AferoWriter { return &AferoWriter{fs: fs} }

func (w *AferoWriter) MkdirAll(path string, mode os.FileMode) error {
	return w.fs.MkdirAll(path, mode)
}

// OpenFileTruncate opens path for writing with create+truncate+mode in
// a single call, so there is never a window where the file exists with
// a different mode than intended (spec.md §4.5.3 step 2).
func (w *AferoWriter) OpenFileTruncate(path string, mode os.FileMode) (afero.File, error) {
	return w.fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
}

func (w *AferoWriter) Remove(path string) error    { return w.fs.Remove(path) }
func (w *AferoWriter) RemoveAll(path string) error { return w.fs.RemoveAll(path) }

func (w *AferoWriter) Symlink(oldname, newname string) error {
	linker, ok := w.fs.(afero.Linker)
	if !ok {
		return fmt.Errorf("apply: underlying filesystem does not support symlinks")
	}
	return linker.SymlinkIfPossible(oldname, newname)
}
