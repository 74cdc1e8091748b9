package addflow

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"filippo.io/age"
	"go.uber.org/zap"

	"github.com/PaulYuuu/guisu/pkg/ageio"
	"github.com/PaulYuuu/guisu/pkg/attr"
)

// EncryptionTarget supplies the recipients AddFile encrypts to when
// Options.Encrypt is set, resolved by the caller from guisuconfig's age
// section (derive vs explicit recipients is a config-layer decision,
// not this package's).
type EncryptionTarget interface {
	Recipients() ([]age.Recipient, error)
}

// Result reports what AddFile did for one imported path.
type Result struct {
	// Added is every destination-relative path written into the source
	// tree (more than one for a directory import).
	Added []string
	// Warnings carries non-fatal secret-scan findings (Secrets ==
	// SecretsWarning) for the caller to display.
	Warnings []string
}

// AddFile imports the file, symlink, or directory at destPath (an
// absolute path somewhere under destDir) into sourceDir's root_entry
// subdirectory (spec.md §4.5.6). variables is the merged template
// context AutoTemplateContent substitutes against when
// Options.Autotemplate is set.
func AddFile(sourceDir, destDir, rootEntry, destPath string, opts Options, variables map[string]any, enc EncryptionTarget, logger *zap.SugaredLogger) (Result, error) {
	var res Result

	resolved, err := canonicalizeInput(destPath)
	if err != nil {
		return res, err
	}

	relPath, err := filepath.Rel(destDir, resolved)
	if err != nil || relPath == ".." || strings.HasPrefix(relPath, ".."+string(filepath.Separator)) {
		return res, fmt.Errorf("addflow: %s is not under destination directory %s", destPath, destDir)
	}
	relPath = filepath.ToSlash(relPath)

	info, err := os.Lstat(resolved)
	if err != nil {
		return res, fmt.Errorf("addflow: reading metadata for %s: %w", resolved, err)
	}

	switch {
	case info.Mode()&os.ModeSymlink != 0:
		if err := addSymlink(sourceDir, rootEntry, relPath, resolved, opts.Force); err != nil {
			return res, err
		}
		res.Added = append(res.Added, relPath)
	case info.IsDir():
		added, warnings, err := addDirectory(sourceDir, destDir, rootEntry, relPath, resolved, opts, variables, enc, logger)
		if err != nil {
			return res, err
		}
		res.Added = append(res.Added, added...)
		res.Warnings = append(res.Warnings, warnings...)
	default:
		warnings, err := addRegularFile(sourceDir, rootEntry, relPath, resolved, opts, variables, enc, logger)
		if err != nil {
			return res, err
		}
		res.Added = append(res.Added, relPath)
		res.Warnings = append(res.Warnings, warnings...)
	}

	return res, nil
}

func addDirectory(sourceDir, destDir, rootEntry, relPath, dirAbs string, opts Options, variables map[string]any, enc EncryptionTarget, logger *zap.SugaredLogger) ([]string, []string, error) {
	sourceSubdir := filepath.Join(sourceDir, rootEntry, filepath.FromSlash(relPath))
	if err := os.MkdirAll(sourceSubdir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("addflow: creating directory %s: %w", sourceSubdir, err)
	}

	var added, warnings []string

	err := filepath.WalkDir(dirAbs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == dirAbs {
			return nil
		}

		entryRel, err := filepath.Rel(destDir, path)
		if err != nil {
			return fmt.Errorf("addflow: computing relative path for %s: %w", path, err)
		}
		entryRel = filepath.ToSlash(entryRel)

		entryInfo, err := d.Info()
		if err != nil {
			return fmt.Errorf("addflow: reading metadata for %s: %w", path, err)
		}

		switch {
		case entryInfo.Mode()&os.ModeSymlink != 0:
			if err := addSymlink(sourceDir, rootEntry, entryRel, path, opts.Force); err != nil {
				return err
			}
			added = append(added, entryRel)
		case entryInfo.IsDir():
			sub := filepath.Join(sourceDir, rootEntry, filepath.FromSlash(entryRel))
			if err := os.MkdirAll(sub, 0o755); err != nil {
				return fmt.Errorf("addflow: creating directory %s: %w", sub, err)
			}
		default:
			fileWarnings, err := addRegularFile(sourceDir, rootEntry, entryRel, path, opts, variables, enc, logger)
			if err != nil {
				return err
			}
			added = append(added, entryRel)
			warnings = append(warnings, fileWarnings...)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return added, warnings, nil
}

func addSymlink(sourceDir, rootEntry, relPath, linkAbs string, force bool) error {
	linkTarget, err := os.Readlink(linkAbs)
	if err != nil {
		return fmt.Errorf("addflow: reading symlink %s: %w", linkAbs, err)
	}

	existing, err := checkFileExistsInSource(sourceDir, rootEntry, relPath)
	if err != nil {
		return err
	}
	if existing != "" {
		if !force {
			return fmt.Errorf("addflow: %s is already managed as a symlink (%s); re-add with force to overwrite", relPath, existing)
		}
		if err := os.Remove(existing); err != nil {
			return fmt.Errorf("addflow: removing old symlink %s: %w", existing, err)
		}
	}

	sourceLinkPath := filepath.Join(sourceDir, rootEntry, filepath.FromSlash(relPath))
	if err := os.MkdirAll(filepath.Dir(sourceLinkPath), 0o755); err != nil {
		return fmt.Errorf("addflow: creating directory for %s: %w", sourceLinkPath, err)
	}
	if err := os.Symlink(linkTarget, sourceLinkPath); err != nil {
		return fmt.Errorf("addflow: creating symlink %s: %w", sourceLinkPath, err)
	}
	return nil
}

func addRegularFile(sourceDir, rootEntry, relPath, fileAbs string, opts Options, variables map[string]any, enc EncryptionTarget, logger *zap.SugaredLogger) ([]string, error) {
	content, err := os.ReadFile(fileAbs)
	if err != nil {
		return nil, fmt.Errorf("addflow: reading %s: %w", fileAbs, err)
	}

	var warnings []string
	if opts.Secrets != SecretsIgnore {
		if findings := DetectSecrets(fileAbs, content); len(findings) > 0 {
			msg := fmt.Sprintf("potential secrets detected in %s:\n  %s", relPath, strings.Join(findings, "\n  "))
			switch opts.Secrets {
			case SecretsError:
				return nil, fmt.Errorf("addflow: %s (add --secrets ignore to add anyway, or --encrypt to protect it)", msg)
			case SecretsWarning:
				warnings = append(warnings, msg)
				if logger != nil {
					logger.Warnf("addflow: %s", msg)
				}
			}
		}
	}

	isTemplate := opts.Template
	processed := content
	if opts.Autotemplate && !opts.Encrypt {
		templated, replaced := AutoTemplateContent(content, variables)
		if replaced {
			isTemplate = true
			processed = templated
		}
	}

	if opts.Encrypt && enc == nil {
		return nil, fmt.Errorf("addflow: --encrypt requires an age recipient, but none was configured")
	}

	attrs := attr.FileAttributes(0).WithTemplate(isTemplate).WithEncrypted(opts.Encrypt)
	sourceFilename := relPath + attr.EncodeSuffixes(attrs)

	existing, err := checkFileExistsInSource(sourceDir, rootEntry, relPath)
	if err != nil {
		return nil, err
	}
	if existing != "" {
		if !opts.Force {
			return nil, fmt.Errorf("addflow: %s is already managed by guisu (%s); re-add with --force to overwrite", relPath, existing)
		}
		wasTemplate := strings.Contains(filepath.Base(existing), ".j2")
		wasEncrypted := strings.HasSuffix(existing, ".age")
		if wasTemplate != isTemplate || wasEncrypted != opts.Encrypt {
			if err := os.Remove(existing); err != nil {
				return nil, fmt.Errorf("addflow: removing old variant %s: %w", existing, err)
			}
		}
	}

	sourceFilePath := filepath.Join(sourceDir, rootEntry, filepath.FromSlash(sourceFilename))
	if err := os.MkdirAll(filepath.Dir(sourceFilePath), 0o755); err != nil {
		return nil, fmt.Errorf("addflow: creating directory for %s: %w", sourceFilePath, err)
	}

	final := processed
	if opts.Encrypt {
		recipients, err := enc.Recipients()
		if err != nil {
			return nil, fmt.Errorf("addflow: resolving encryption recipients: %w", err)
		}
		encrypted, err := ageio.EncryptWholeFile(processed, recipients)
		if err != nil {
			return nil, fmt.Errorf("addflow: encrypting %s: %w", relPath, err)
		}
		final = encrypted
	}

	mode := os.FileMode(0o644)
	if srcInfo, err := os.Stat(fileAbs); err == nil {
		mode = srcInfo.Mode().Perm()
	}
	if err := os.WriteFile(sourceFilePath, final, mode); err != nil {
		return nil, fmt.Errorf("addflow: writing %s: %w", sourceFilePath, err)
	}

	return warnings, nil
}

// checkFileExistsInSource checks every suffix variant (plain, .j2,
// .age, .j2.age) of relPath under sourceDir/rootEntry, returning the
// first that exists or "" if none do (spec.md §4.5.6's force-overwrite
// check).
func checkFileExistsInSource(sourceDir, rootEntry, relPath string) (string, error) {
	variants := []string{relPath, relPath + ".j2", relPath + ".age", relPath + ".j2.age"}
	for _, v := range variants {
		p := filepath.Join(sourceDir, rootEntry, filepath.FromSlash(v))
		if _, err := os.Stat(p); err == nil {
			return p, nil
		} else if !os.IsNotExist(err) {
			return "", fmt.Errorf("addflow: checking %s: %w", p, err)
		}
	}
	return "", nil
}
