package deststate

import (
	"io/fs"

	"github.com/spf13/afero"

	"github.com/PaulYuuu/guisu/pkg/gpath"
)

// System is the abstraction over the live filesystem spec.md §4.3.2
// names: exists, metadata, read_file, read_link. It is satisfied by an
// afero.Fs in production (afero.NewOsFs()) and a fully in-memory
// afero.NewMemMapFs() in tests, the same afero-backed "System
// capability" pattern used at the filesystem layer the journal package
// applies at the storage layer.
type System interface {
	Exists(path gpath.AbsPath) bool
	Metadata(path gpath.AbsPath) (fs.FileInfo, error)
	ReadFile(path gpath.AbsPath) ([]byte, error)
	ReadLink(path gpath.AbsPath) (string, error)
}

// AferoSystem adapts an afero.Fs to the System interface.
type AferoSystem struct {
	fs afero.Fs
}

// NewAferoSystem wraps fs as a System.
func NewAferoSystem(fs afero.Fs) *AferoSystem { return &AferoSystem{fs: fs} }

func (s *AferoSystem) Exists(path gpath.AbsPath) bool {
	_, err := s.fs.Stat(path.String())
	return err == nil
}

func (s *AferoSystem) Metadata(path gpath.AbsPath) (fs.FileInfo, error) {
	if lstater, ok := s.fs.(afero.Lstater); ok {
		info, _, err := lstater.LstatIfPossible(path.String())
		return info, err
	}
	return s.fs.Stat(path.String())
}

func (s *AferoSystem) ReadFile(path gpath.AbsPath) ([]byte, error) {
	return afero.ReadFile(s.fs, path.String())
}

func (s *AferoSystem) ReadLink(path gpath.AbsPath) (string, error) {
	return afero.ReadlinkIfPossible(s.fs, path.String())
}
