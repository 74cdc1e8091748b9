package hooks

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PaulYuuu/guisu/pkg/hash"
	"github.com/PaulYuuu/guisu/pkg/journal"
)

func writeScript(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o755))
	return path
}

func TestApplyDefaultsFillsInOrderModeFailfast(t *testing.T) {
	h := ApplyDefaults(Hook{Name: "x", Cmd: "true"})
	assert.Equal(t, DefaultOrder, h.Order)
	assert.Equal(t, ModeAlways, h.Mode)
	assert.True(t, h.IsFailfast())
}

func TestApplyDefaultsPreservesExplicitFailfastFalse(t *testing.T) {
	f := false
	h := ApplyDefaults(Hook{Name: "x", Cmd: "true", Failfast: &f})
	assert.False(t, h.IsFailfast())
}

func TestValidateRejectsBothCmdAndScript(t *testing.T) {
	h := Hook{Name: "x", Cmd: "true", Script: "run.sh"}
	assert.Error(t, h.Validate())
}

func TestValidateRejectsNeitherCmdNorScript(t *testing.T) {
	h := Hook{Name: "x"}
	assert.Error(t, h.Validate())
}

func TestValidateRejectsBadEnvName(t *testing.T) {
	h := Hook{Name: "x", Cmd: "true", Env: map[string]string{"1BAD": "v"}}
	assert.Error(t, h.Validate())
}

func TestShouldRunOnEmptyPlatformsMeansAll(t *testing.T) {
	h := Hook{}
	assert.True(t, h.ShouldRunOn("linux"))
	assert.True(t, h.ShouldRunOn("windows"))
}

func TestShouldRunOnRestrictsToListedPlatforms(t *testing.T) {
	h := Hook{Platforms: []string{"linux", "darwin"}}
	assert.True(t, h.ShouldRunOn("linux"))
	assert.False(t, h.ShouldRunOn("windows"))
}

func TestExpandEnvVarsSubstitutesKnownVars(t *testing.T) {
	out := ExpandEnvVars("hello ${NAME}, home=${HOME}", map[string]string{"NAME": "guisu"})
	assert.Equal(t, "hello guisu, home=${HOME}", out)
}

func TestExpandEnvVarsNoReferencesReturnsUnchanged(t *testing.T) {
	out := ExpandEnvVars("plain text", map[string]string{"NAME": "guisu"})
	assert.Equal(t, "plain text", out)
}

func TestResolveInterpreterFollowsEnvShebang(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, "run.py", "#!/usr/bin/env python3\nprint('hi')\n")
	interp, err := ResolveInterpreter(script)
	require.NoError(t, err)
	assert.Equal(t, "python3", interp.Program)
}

func TestResolveInterpreterFollowsDirectShebang(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, "run.sh", "#!/bin/bash -e\necho hi\n")
	interp, err := ResolveInterpreter(script)
	require.NoError(t, err)
	assert.Equal(t, "bash", interp.Program)
	assert.Equal(t, []string{"-e"}, interp.Args)
}

func TestResolveInterpreterInfersFromExtension(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, "run.py", "print('hi')\n")
	interp, err := ResolveInterpreter(script)
	require.NoError(t, err)
	assert.Equal(t, "python3", interp.Program)
}

func TestResolveInterpreterUnrecognizedExtensionErrors(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, "run.xyz", "whatever\n")
	_, err := ResolveInterpreter(script)
	assert.Error(t, err)
}

func TestRunStageSkipsOnceHookAlreadyExecuted(t *testing.T) {
	dir := t.TempDir()
	store := journal.NewMemStore()

	h := Hook{Name: "setup", Cmd: "true", Mode: ModeOnce}
	rec := journal.HookRecord{Executed: true}
	raw, err := journal.EncodeHookRecord(rec)
	require.NoError(t, err)
	require.NoError(t, store.Set(journal.BucketHookState, "setup", raw))

	var ran int
	var mu sync.Mutex
	runner := NewRunner(dir, map[string]string{}, store, nil, nil)
	runner.execHookForTest = func(Hook) error {
		mu.Lock()
		ran++
		mu.Unlock()
		return nil
	}

	require.NoError(t, runner.RunStage([]Hook{h}))
	assert.Equal(t, 0, ran)
}

func TestRunStageRunsOnceHookFirstTimeAndPersists(t *testing.T) {
	dir := t.TempDir()
	store := journal.NewMemStore()

	h := Hook{Name: "setup", Cmd: "true", Mode: ModeOnce}
	runner := NewRunner(dir, map[string]string{}, store, nil, nil)

	var ran int
	runner.execHookForTest = func(Hook) error { ran++; return nil }

	require.NoError(t, runner.RunStage([]Hook{h}))
	assert.Equal(t, 1, ran)

	raw, found, err := store.Get(journal.BucketHookState, "setup")
	require.NoError(t, err)
	require.True(t, found)
	rec, ok := journal.DecodeHookRecord(raw, nil)
	require.True(t, ok)
	assert.True(t, rec.Executed)

	// second stage run within the same process must also skip, via
	// session-local tracking, without re-reading the store.
	require.NoError(t, runner.RunStage([]Hook{h}))
	assert.Equal(t, 1, ran)
}

func TestRunStageSkipsOnChangeHookWhenContentHashMatches(t *testing.T) {
	dir := t.TempDir()
	store := journal.NewMemStore()

	h := Hook{Name: "migrate", Cmd: "echo same", Mode: ModeOnChange}
	rec := journal.HookRecord{DefinitionHash: hashOfContentForTest(h.Content())}
	raw, err := journal.EncodeHookRecord(rec)
	require.NoError(t, err)
	require.NoError(t, store.Set(journal.BucketHookState, "migrate", raw))

	var ran int
	runner := NewRunner(dir, map[string]string{}, store, nil, nil)
	runner.execHookForTest = func(Hook) error { ran++; return nil }

	require.NoError(t, runner.RunStage([]Hook{h}))
	assert.Equal(t, 0, ran)
}

func TestRunStageRunsOnChangeHookWhenContentHashDiffers(t *testing.T) {
	dir := t.TempDir()
	store := journal.NewMemStore()

	h := Hook{Name: "migrate", Cmd: "echo different", Mode: ModeOnChange}
	rec := journal.HookRecord{DefinitionHash: "stale-hash"}
	raw, err := journal.EncodeHookRecord(rec)
	require.NoError(t, err)
	require.NoError(t, store.Set(journal.BucketHookState, "migrate", raw))

	var ran int
	runner := NewRunner(dir, map[string]string{}, store, nil, nil)
	runner.execHookForTest = func(Hook) error { ran++; return nil }

	require.NoError(t, runner.RunStage([]Hook{h}))
	assert.Equal(t, 1, ran)
}

func TestRunStageAbortsOnFailfastFailure(t *testing.T) {
	dir := t.TempDir()
	runner := NewRunner(dir, map[string]string{}, journal.NewMemStore(), nil, nil)

	failing := Hook{Name: "first", Cmd: "false", Order: 1}
	later := Hook{Name: "second", Cmd: "true", Order: 2}

	var secondRan bool
	runner.execHookForTest = func(h Hook) error {
		if h.Name == "first" {
			return assertError()
		}
		secondRan = true
		return nil
	}

	err := runner.RunStage([]Hook{failing, later})
	assert.Error(t, err)
	assert.False(t, secondRan)
}

func TestRunStageContinuesPastNonFailfastFailure(t *testing.T) {
	dir := t.TempDir()
	runner := NewRunner(dir, map[string]string{}, journal.NewMemStore(), nil, nil)

	f := false
	failing := Hook{Name: "first", Cmd: "false", Order: 1, Failfast: &f}
	later := Hook{Name: "second", Cmd: "true", Order: 2}

	var secondRan bool
	runner.execHookForTest = func(h Hook) error {
		if h.Name == "first" {
			return assertError()
		}
		secondRan = true
		return nil
	}

	err := runner.RunStage([]Hook{failing, later})
	assert.NoError(t, err)
	assert.True(t, secondRan)
}

func TestRunStageRunsSameOrderGroupConcurrently(t *testing.T) {
	dir := t.TempDir()
	runner := NewRunner(dir, map[string]string{}, journal.NewMemStore(), nil, nil)

	var mu sync.Mutex
	var names []string
	runner.execHookForTest = func(h Hook) error {
		mu.Lock()
		names = append(names, h.Name)
		mu.Unlock()
		return nil
	}

	hooks := []Hook{
		{Name: "a", Cmd: "true", Order: 5},
		{Name: "b", Cmd: "true", Order: 5},
	}
	require.NoError(t, runner.RunStage(hooks))
	assert.ElementsMatch(t, []string{"a", "b"}, names)
}

func TestRunStageSkipsHookForWrongPlatform(t *testing.T) {
	dir := t.TempDir()
	runner := NewRunner(dir, map[string]string{}, journal.NewMemStore(), nil, nil)

	var ran int
	runner.execHookForTest = func(Hook) error { ran++; return nil }

	h := Hook{Name: "windows-only", Cmd: "true", Platforms: []string{"an-unknown-os"}}
	require.NoError(t, runner.RunStage([]Hook{h}))
	assert.Equal(t, 0, ran)
}

func assertError() error { return errHookFailed }

var errHookFailed = &hookTestError{"hook failed"}

type hookTestError struct{ msg string }

func (e *hookTestError) Error() string { return e.msg }

func hashOfContentForTest(content string) string {
	// Mirrors markExecuted's hashing so the fixture's persisted
	// DefinitionHash matches what the runner recomputes.
	return hash.Of([]byte(content)).String()
}
