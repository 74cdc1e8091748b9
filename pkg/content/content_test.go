package content

import (
	"os"
	"path/filepath"
	"testing"

	"filippo.io/age"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PaulYuuu/guisu/pkg/ageio"
	"github.com/PaulYuuu/guisu/pkg/attr"
	"github.com/PaulYuuu/guisu/pkg/gpath"
	"github.com/PaulYuuu/guisu/pkg/gtemplate"
)

func writeFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, content, 0o644))
	return p
}

func newProcessor(t *testing.T, dir string, identities []age.Identity, recipient age.Recipient) *Processor {
	t.Helper()
	abs, err := gpath.NewAbsPath(dir)
	require.NoError(t, err)
	engine := gtemplate.New(abs, identities, recipient, nil)
	return New(identities, engine, true, nil)
}

func TestProcessFilePlainPassthrough(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "plain.txt", []byte("hello world"))
	proc := newProcessor(t, dir, nil, nil)

	out, err := proc.ProcessFile(p, "plain.txt", attr.FileAttributes(0), nil)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(out))
}

func TestProcessFileTemplate(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "tmpl.txt", []byte("hello {{.Name}}"))
	proc := newProcessor(t, dir, nil, nil)

	out, err := proc.ProcessFile(p, "tmpl.txt", attr.FileAttributes(0).WithTemplate(true), map[string]any{"Name": "guisu"})
	require.NoError(t, err)
	assert.Equal(t, "hello guisu", string(out))
}

func TestProcessFileEncryptedWholeFile(t *testing.T) {
	id, err := age.GenerateX25519Identity()
	require.NoError(t, err)

	dir := t.TempDir()
	ciphertext, err := ageio.EncryptWholeFile([]byte("top secret"), []age.Recipient{id.Recipient()})
	require.NoError(t, err)
	p := writeFile(t, dir, "secret.age", ciphertext)

	proc := newProcessor(t, dir, []age.Identity{id}, id.Recipient())
	out, err := proc.ProcessFile(p, "secret.age", attr.FileAttributes(0).WithEncrypted(true), nil)
	require.NoError(t, err)
	assert.Equal(t, "top secret", string(out))
}

func TestProcessFileInlineTokenDecryptedAfterRender(t *testing.T) {
	id, err := age.GenerateX25519Identity()
	require.NoError(t, err)
	token, err := ageio.EncryptInlineToken([]byte("hunter2"), []age.Recipient{id.Recipient()})
	require.NoError(t, err)

	dir := t.TempDir()
	p := writeFile(t, dir, "config.txt", []byte("password={{.Token}}\n"))

	proc := newProcessor(t, dir, []age.Identity{id}, id.Recipient())
	out, err := proc.ProcessFile(p, "config.txt", attr.FileAttributes(0).WithTemplate(true), map[string]any{"Token": token})
	require.NoError(t, err)
	assert.Equal(t, "password=hunter2\n", string(out))
}

func TestProcessFileBatchErrorIsolation(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.txt", []byte("fine"))
	bad := writeFile(t, dir, "bad.txt", []byte("{{.Unclosed"))
	proc := newProcessor(t, dir, nil, nil)

	_, errBad := proc.ProcessFile(bad, "bad.txt", attr.FileAttributes(0).WithTemplate(true), nil)
	assert.Error(t, errBad)

	outGood, errGood := proc.ProcessFile(good, "good.txt", attr.FileAttributes(0), nil)
	require.NoError(t, errGood)
	assert.Equal(t, "fine", string(outGood))
}

func TestReEncryptInlineForWriteSkipsWhenNoIdentities(t *testing.T) {
	dir := t.TempDir()
	proc := newProcessor(t, dir, nil, nil)
	out, err := proc.ReEncryptInlineForWrite([]byte("age:not-real"))
	require.NoError(t, err)
	assert.Equal(t, "age:not-real", string(out))
}
