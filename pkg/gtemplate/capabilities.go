package gtemplate

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"text/template"

	"github.com/PaulYuuu/guisu/pkg/gpath"
)

// capabilityFuncs returns the functions that need Engine state (the
// source tree root for include/includeTemplate) or wrap an os/exec or
// os.Environ call, grounded on original_source/crates/template/src/
// functions.rs's env/os/arch/hostname/username/home_dir/joinPath/
// lookPath/include/includeTemplate.
func (e *Engine) capabilityFuncs() template.FuncMap {
	return template.FuncMap{
		"env":             envFunc,
		"os":              func() string { return runtime.GOOS },
		"arch":            func() string { return runtime.GOARCH },
		"hostname":        hostnameFunc,
		"username":        usernameFunc,
		"home_dir":        homeDirFunc,
		"joinPath":        joinPathFunc,
		"lookPath":        lookPathFunc,
		"include":         e.includeFunc,
		"includeTemplate": e.includeFunc,
	}
}

func envFunc(name string) string {
	return os.Getenv(name)
}

func hostnameFunc() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return h
}

func usernameFunc() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	if u := os.Getenv("USERNAME"); u != "" {
		return u
	}
	return "unknown"
}

func homeDirFunc() string {
	h, err := os.UserHomeDir()
	if err != nil {
		return "/home/unknown"
	}
	return h
}

func joinPathFunc(parts ...string) string {
	return filepath.Join(parts...)
}

// execNamePattern is the allow-list original_source enforces on
// lookPath's argument to prevent the executable name from doubling as a
// path-traversal or shell-injection vector.
var execNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

func lookPathFunc(name string) (string, error) {
	if !execNamePattern.MatchString(name) {
		return "", fmt.Errorf("gtemplate: invalid executable name %q: only alphanumeric, dash, underscore allowed", name)
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return "", nil
	}
	return path, nil
}

// includeFunc reads a file relative to the source tree root, rejecting
// absolute paths and ".." traversal; a symlink pointing outside the
// tree is resolved inside it (gpath.AbsPath.Join) rather than
// rejected. It backs both
// include() (raw text) and includeTemplate() -- the original engine's
// includeTemplate returns the raw file content for the *parent*
// template to re-render via text/template's own {{template}}/{{block}}
// mechanism, so the two share one implementation here too.
func (e *Engine) includeFunc(path string) (string, error) {
	if filepath.IsAbs(path) {
		return "", fmt.Errorf("gtemplate: invalid include path %q: absolute paths are not allowed", path)
	}

	rel, err := gpath.NewRelPath(path)
	if err != nil {
		return "", fmt.Errorf("gtemplate: invalid include path %q: %w", path, err)
	}

	resolved, err := e.sourceDir.Join(rel)
	if err != nil {
		return "", fmt.Errorf("gtemplate: include %q escapes source directory: %w", path, err)
	}

	data, err := os.ReadFile(resolved.String())
	if err != nil {
		return "", fmt.Errorf("gtemplate: include %q: %w", path, err)
	}
	return string(data), nil
}
