package gtemplate

import (
	"os"
	"path/filepath"
	"testing"

	"filippo.io/age"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PaulYuuu/guisu/pkg/gpath"
)

func newTestEngine(t *testing.T, sourceDir string) (*Engine, age.Identity) {
	t.Helper()
	id, err := age.GenerateX25519Identity()
	require.NoError(t, err)
	abs, err := gpath.NewAbsPath(sourceDir)
	require.NoError(t, err)
	return New(abs, []age.Identity{id}, id.Recipient(), nil), id
}

func TestRenderBasicVariables(t *testing.T) {
	e, _ := newTestEngine(t, t.TempDir())
	out, err := e.Render("greeting", "hello {{.Name}}", map[string]any{"Name": "world"})
	require.NoError(t, err)
	assert.Equal(t, "hello world", out)
}

func TestRenderEnvOsArch(t *testing.T) {
	e, _ := newTestEngine(t, t.TempDir())
	require.NoError(t, os.Setenv("GUISU_TEST_VAR", "present"))
	defer os.Unsetenv("GUISU_TEST_VAR")

	out, err := e.Render("t", `{{env "GUISU_TEST_VAR"}}/{{os}}/{{arch}}`, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "present/")
}

func TestIncludeReadsFileWithinSourceDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "shared.conf"), []byte("shared content"), 0o644))

	e, _ := newTestEngine(t, dir)
	out, err := e.Render("t", `{{include "shared.conf"}}`, nil)
	require.NoError(t, err)
	assert.Equal(t, "shared content", out)
}

func TestIncludeRejectsAbsoluteAndTraversal(t *testing.T) {
	dir := t.TempDir()
	e, _ := newTestEngine(t, dir)

	_, err := e.Render("t", `{{include "/etc/passwd"}}`, nil)
	assert.Error(t, err)

	_, err = e.Render("t", `{{include "../outside"}}`, nil)
	assert.Error(t, err)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	e, _ := newTestEngine(t, t.TempDir())
	out, err := e.Render("t", `{{"hunter2" | encrypt | decrypt}}`, nil)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", out)
}

func TestDecryptWithoutIdentityErrors(t *testing.T) {
	abs, err := gpath.NewAbsPath(t.TempDir())
	require.NoError(t, err)
	e := New(abs, nil, nil, nil)

	_, err = e.Render("t", `{{"age:AAAA" | decrypt}}`, nil)
	assert.Error(t, err)
}

func TestStringFilters(t *testing.T) {
	e, _ := newTestEngine(t, t.TempDir())

	out, err := e.Render("t", `{{quote "hi"}}`, nil)
	require.NoError(t, err)
	assert.Equal(t, `"hi"`, out)

	out, err = e.Render("t", `{{trim "  hi  "}}`, nil)
	require.NoError(t, err)
	assert.Equal(t, "hi", out)

	out, err = e.Render("t", `{{join (split "a,b,c" ",") "-"}}`, nil)
	require.NoError(t, err)
	assert.Equal(t, "a-b-c", out)

	out, err = e.Render("t", `{{regexMatch "hello123" "[0-9]+"}}`, nil)
	require.NoError(t, err)
	assert.Equal(t, "true", out)

	out, err = e.Render("t", `{{regexReplaceAll "a1b2" "[0-9]" "#"}}`, nil)
	require.NoError(t, err)
	assert.Equal(t, "a#b#", out)
}

func TestRegexMatchRejectsOversizedPattern(t *testing.T) {
	e, _ := newTestEngine(t, t.TempDir())
	big := ""
	for i := 0; i < 250; i++ {
		big += "a"
	}
	_, err := regexMatchFilter("x", big)
	assert.Error(t, err)
	_ = e
}

func TestLookPathRejectsInvalidName(t *testing.T) {
	_, err := lookPathFunc("../evil")
	assert.Error(t, err)
	_, err = lookPathFunc("rm -rf /")
	assert.Error(t, err)
}

func TestFromJsonFieldAccess(t *testing.T) {
	e, _ := newTestEngine(t, t.TempDir())
	out, err := e.Render("t", `{{(fromJson "{\"a\":1}").a}}`, nil)
	require.NoError(t, err)
	assert.Equal(t, "1", out)
}
