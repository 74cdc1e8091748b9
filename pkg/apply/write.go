package apply

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/PaulYuuu/guisu/pkg/content"
	"github.com/PaulYuuu/guisu/pkg/entry"
)

func toFileMode(mode uint32) os.FileMode { return os.FileMode(mode & 0o777) }

const (
	defaultFileMode = 0o600
	defaultDirMode  = 0o777 // umask-reduced by the OS, matching recursive mkdir convention
)

// writeEntry materializes one PlanEntry's Target against the
// destination through w, re-running the inline-decrypt pass on file
// content immediately before it touches disk (spec.md §4.5.3's "Inline
// decryption at write time"). It returns the final bytes written (files
// only, nil otherwise) and the effective mode, both needed by the
// caller to build the entry-state journal record.
func writeEntry(w Writer, absPath string, pe PlanEntry, processor *content.Processor) ([]byte, *uint32, error) {
	te := pe.Target

	switch te.Kind {
	case entry.KindFile:
		return writeFile(w, absPath, pe, processor)
	case entry.KindSymlink:
		return nil, nil, writeSymlink(w, absPath, pe)
	case entry.KindDirectory:
		return nil, nil, writeDirectory(w, absPath, pe)
	case entry.KindRemove:
		return nil, nil, removeEntry(w, absPath, pe.Dest)
	default:
		return nil, nil, fmt.Errorf("apply: unknown target kind %s for %s", te.Kind, te.TargetPath.String())
	}
}

func writeFile(w Writer, absPath string, pe PlanEntry, processor *content.Processor) ([]byte, *uint32, error) {
	if err := w.MkdirAll(filepath.Dir(absPath), defaultDirMode); err != nil {
		return nil, nil, fmt.Errorf("apply: creating parent directory for %s: %w", absPath, err)
	}

	data := pe.Target.Content
	if processor != nil {
		reencrypted, err := processor.ReEncryptInlineForWrite(data)
		if err != nil {
			return nil, nil, fmt.Errorf("apply: resolving inline secrets for %s: %w", absPath, err)
		}
		data = reencrypted
	}

	mode := effectiveFileMode(pe.Target.Mode, pe.Dest.Mode)

	f, err := w.OpenFileTruncate(absPath, toFileMode(mode))
	if err != nil {
		return nil, nil, fmt.Errorf("apply: opening %s: %w", absPath, err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return nil, nil, fmt.Errorf("apply: writing %s: %w", absPath, err)
	}
	if err := f.Close(); err != nil {
		return nil, nil, fmt.Errorf("apply: closing %s: %w", absPath, err)
	}

	return data, &mode, nil
}

func writeSymlink(w Writer, absPath string, pe PlanEntry) error {
	if err := w.MkdirAll(filepath.Dir(absPath), defaultDirMode); err != nil {
		return fmt.Errorf("apply: creating parent directory for %s: %w", absPath, err)
	}

	if err := clearExisting(w, absPath, pe.Dest); err != nil {
		return err
	}

	if err := w.Symlink(pe.Target.LinkTarget.String(), absPath); err != nil {
		return fmt.Errorf("apply: creating symlink %s: %w", absPath, err)
	}
	return nil
}

func writeDirectory(w Writer, absPath string, pe PlanEntry) error {
	if pe.Dest.Kind == entry.DestFile || pe.Dest.Kind == entry.DestSymlink {
		if err := w.Remove(absPath); err != nil {
			return fmt.Errorf("apply: removing conflicting non-directory %s: %w", absPath, err)
		}
	}

	mode := defaultDirMode
	if pe.Target.Mode != nil {
		mode = int(*pe.Target.Mode)
	}
	if err := w.MkdirAll(absPath, toFileMode(uint32(mode))); err != nil {
		return fmt.Errorf("apply: creating directory %s: %w", absPath, err)
	}
	return nil
}

func removeEntry(w Writer, absPath string, de entry.DestEntry) error {
	switch de.Kind {
	case entry.DestMissing:
		return nil
	case entry.DestDirectory:
		return w.RemoveAll(absPath)
	default:
		return w.Remove(absPath)
	}
}

// clearExisting removes whatever currently occupies absPath so a
// symlink can be created in its place: recursively if it is a real
// directory, else a plain unlink (spec.md §4.5.3's symlink-write rule).
func clearExisting(w Writer, absPath string, de entry.DestEntry) error {
	switch de.Kind {
	case entry.DestMissing:
		return nil
	case entry.DestDirectory:
		if err := w.RemoveAll(absPath); err != nil {
			return fmt.Errorf("apply: removing existing directory %s: %w", absPath, err)
		}
	default:
		if err := w.Remove(absPath); err != nil {
			return fmt.Errorf("apply: removing existing entry %s: %w", absPath, err)
		}
	}
	return nil
}

// effectiveFileMode resolves spec.md §4.5.3 step 1: explicit mode from
// the source entry, else the mode preserved from the existing
// destination file, else the private default.
func effectiveFileMode(explicit, preserved *uint32) uint32 {
	if explicit != nil {
		return *explicit
	}
	if preserved != nil {
		return *preserved
	}
	return defaultFileMode
}
