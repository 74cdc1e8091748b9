package deststate

import "io/fs"

// modeSymlinkBit is the fs.FileMode bit afero/os report for symlinks;
// named for readability at the call site in deststate.go.
const modeSymlinkBit = fs.ModeSymlink

// modePtr extracts the Unix permission bits from info. It never returns
// nil: a filesystem that doesn't expose meaningful bits still yields a
// pointer (MemMapFs reports 0 perm bits for directories created
// implicitly, which is still a valid, if uninformative, mode).
func modePtr(info fs.FileInfo) *uint32 {
	m := uint32(info.Mode().Perm())
	return &m
}
