package hooks

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/google/shlex"
	"go.uber.org/zap"

	"github.com/PaulYuuu/guisu/pkg/hash"
	"github.com/PaulYuuu/guisu/pkg/journal"
)

// Renderer renders a hook's own script content before execution, used
// only for `.j2` scripts (spec.md §4.5.4).
type Renderer interface {
	Render(name, templateText string) (string, error)
}

// Runner executes one stage's hooks against a source tree, consulting
// store for Once/OnChange history and persisting updates after each
// hook completes (spec.md §4.5.4).
type Runner struct {
	sourceDir string
	env       map[string]string
	store     journal.Store
	renderer  Renderer
	logger    *zap.SugaredLogger

	mu              sync.Mutex
	sessionOnce     map[string]bool
	sessionOnChange map[string]string

	// execHookForTest, when set, replaces the real exec.Command dispatch
	// in execute -- tests exercise scheduling, skip semantics, and
	// failfast behavior without spawning real processes.
	execHookForTest func(Hook) error
}

// NewRunner builds a Runner rooted at sourceDir, inheriting baseEnv as
// the parent environment every hook's own env map is overlaid onto.
func NewRunner(sourceDir string, baseEnv map[string]string, store journal.Store, renderer Renderer, logger *zap.SugaredLogger) *Runner {
	return &Runner{
		sourceDir:       sourceDir,
		env:             baseEnv,
		store:           store,
		renderer:        renderer,
		logger:          logger,
		sessionOnce:     make(map[string]bool),
		sessionOnChange: make(map[string]string),
	}
}

// RunStage runs every hook in hooks for the current platform, grouped
// by order (lower first), parallel within a group (spec.md §4.5.4's
// scheduling rule). A failfast hook's failure aborts the stage; a
// non-failfast hook's failure is recorded and the stage continues.
func (r *Runner) RunStage(hooks []Hook) error {
	groups := groupByOrder(hooks, runtime.GOOS)

	orders := make([]int32, 0, len(groups))
	for o := range groups {
		orders = append(orders, o)
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i] < orders[j] })

	for _, order := range orders {
		if err := r.runGroup(groups[order]); err != nil {
			return err
		}
	}
	return nil
}

func groupByOrder(hooks []Hook, platform string) map[int32][]Hook {
	groups := make(map[int32][]Hook)
	for _, h := range hooks {
		h = ApplyDefaults(h)
		if !h.ShouldRunOn(platform) {
			continue
		}
		groups[h.Order] = append(groups[h.Order], h)
	}
	return groups
}

func (r *Runner) runGroup(hooks []Hook) error {
	type outcome struct {
		hook Hook
		err  error
	}
	results := make([]outcome, len(hooks))

	sem := make(chan struct{}, runtime.NumCPU())
	var wg sync.WaitGroup
	for i, h := range hooks {
		skip, _ := r.shouldSkip(h)
		if skip {
			continue
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, h Hook) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = outcome{hook: h, err: r.execute(h)}
		}(i, h)
	}
	wg.Wait()

	for _, res := range results {
		if res.hook.Name == "" {
			continue // skipped
		}
		if res.err == nil {
			r.markExecuted(res.hook)
			continue
		}
		if r.logger != nil {
			r.logger.Warnf("hooks: %s failed: %v", res.hook.Name, res.err)
		}
		if res.hook.IsFailfast() {
			return fmt.Errorf("hooks: hook %q failed: %w", res.hook.Name, res.err)
		}
		r.markExecuted(res.hook)
	}
	return nil
}

// shouldSkip implements spec.md §4.5.4's mode semantics.
func (r *Runner) shouldSkip(h Hook) (bool, error) {
	switch h.Mode {
	case ModeAlways:
		return false, nil

	case ModeOnce:
		r.mu.Lock()
		ran := r.sessionOnce[h.Name]
		r.mu.Unlock()
		if ran {
			return true, nil
		}
		if r.store != nil {
			rec, found, err := r.store.Get(journal.BucketHookState, h.Name)
			if err != nil {
				return false, err
			}
			if found {
				decoded, ok := journal.DecodeHookRecord(rec, r.logger)
				if ok && decoded.Executed {
					return true, nil
				}
			}
		}
		return false, nil

	case ModeOnChange:
		current := hash.Of([]byte(h.Content())).String()
		r.mu.Lock()
		sessionHash, seen := r.sessionOnChange[h.Name]
		r.mu.Unlock()
		if seen && sessionHash == current {
			return true, nil
		}
		if r.store != nil {
			rec, found, err := r.store.Get(journal.BucketHookState, h.Name)
			if err != nil {
				return false, err
			}
			if found {
				decoded, ok := journal.DecodeHookRecord(rec, r.logger)
				if ok && decoded.DefinitionHash == current {
					return true, nil
				}
			}
		}
		return false, nil

	default:
		return false, nil
	}
}

func (r *Runner) markExecuted(h Hook) {
	rec := journal.HookRecord{LastRunUnix: timeNowUnix()}

	switch h.Mode {
	case ModeOnce:
		rec.Executed = true
		r.mu.Lock()
		r.sessionOnce[h.Name] = true
		r.mu.Unlock()
	case ModeOnChange:
		rec.DefinitionHash = hash.Of([]byte(h.Content())).String()
		r.mu.Lock()
		r.sessionOnChange[h.Name] = rec.DefinitionHash
		r.mu.Unlock()
	default:
		return
	}

	if r.store == nil {
		return
	}
	raw, err := journal.EncodeHookRecord(rec)
	if err != nil {
		return
	}
	if err := r.store.Set(journal.BucketHookState, h.Name, raw); err != nil && r.logger != nil {
		r.logger.Warnf("hooks: failed to persist state for %q: %v", h.Name, err)
	}
}

// timeNowUnix is a seam so this package, like the rest of the engine,
// never calls time.Now() where a deterministic replay matters -- here
// it is only informational, so a direct call is appropriate.
func timeNowUnix() int64 { return time.Now().Unix() }

func (r *Runner) execute(h Hook) error {
	if r.execHookForTest != nil {
		return r.execHookForTest(h)
	}
	if h.Script != "" && filepath.Ext(h.Script) == ".j2" {
		return r.executeTemplateScript(h)
	}

	env := r.mergedEnv(h)
	ctx, cancel := r.timeoutContext(h.Timeout)
	defer cancel()

	if h.Cmd != "" {
		return r.runCommand(ctx, ExpandEnvVars(h.Cmd, r.env), env)
	}
	return r.runScript(ctx, r.resolveScriptPath(h.Script), env)
}

func (r *Runner) executeTemplateScript(h Hook) error {
	scriptPath := r.resolveScriptPath(h.Script)
	content, err := os.ReadFile(scriptPath)
	if err != nil {
		return fmt.Errorf("hooks: reading template script %s: %w", scriptPath, err)
	}

	rendered := string(content)
	if r.renderer != nil {
		rendered, err = r.renderer.Render(h.Name, string(content))
		if err != nil {
			return fmt.Errorf("hooks: rendering template script %s: %w", scriptPath, err)
		}
	}

	tmp, err := os.CreateTemp("", "guisu-hook-*")
	if err != nil {
		return fmt.Errorf("hooks: creating temp script: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(rendered); err != nil {
		tmp.Close()
		return fmt.Errorf("hooks: writing temp script: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("hooks: closing temp script: %w", err)
	}
	if runtime.GOOS != "windows" {
		if err := os.Chmod(tmp.Name(), 0o700); err != nil {
			return fmt.Errorf("hooks: chmod temp script: %w", err)
		}
	}

	env := r.mergedEnv(h)
	ctx, cancel := r.timeoutContext(h.Timeout)
	defer cancel()
	return r.runScript(ctx, tmp.Name(), env)
}

func (r *Runner) resolveScriptPath(script string) string {
	if filepath.IsAbs(script) {
		return script
	}
	return filepath.Join(r.sourceDir, script)
}

func (r *Runner) mergedEnv(h Hook) map[string]string {
	if len(h.Env) == 0 {
		return r.env
	}
	merged := make(map[string]string, len(r.env)+len(h.Env))
	for k, v := range r.env {
		merged[k] = v
	}
	for k, v := range h.Env {
		merged[k] = ExpandEnvVars(v, r.env)
	}
	return merged
}

func (r *Runner) timeoutContext(timeoutSeconds uint64) (context.Context, context.CancelFunc) {
	if timeoutSeconds == 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), time.Duration(timeoutSeconds)*time.Second)
}

func (r *Runner) runCommand(ctx context.Context, cmdStr string, env map[string]string) error {
	parts, err := shlex.Split(cmdStr)
	if err != nil {
		return fmt.Errorf("hooks: parsing command %q: %w", cmdStr, err)
	}
	if len(parts) == 0 {
		return fmt.Errorf("hooks: empty command")
	}
	return r.runArgv(ctx, parts[0], parts[1:], env)
}

func (r *Runner) runScript(ctx context.Context, scriptPath string, env map[string]string) error {
	interp, err := ResolveInterpreter(scriptPath)
	if err != nil {
		return err
	}
	args := append(append([]string{}, interp.Args...), scriptPath)
	if interp.Program == scriptPath {
		args = interp.Args
	}
	return r.runArgv(ctx, interp.Program, args, env)
}

func (r *Runner) runArgv(ctx context.Context, program string, args []string, env map[string]string) error {
	cmd := exec.CommandContext(ctx, program, args...)
	cmd.Dir = r.sourceDir

	cmd.Env = os.Environ()
	for k, v := range env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("hooks: %s timed out: %s", program, out.String())
		}
		return fmt.Errorf("hooks: %s failed: %w: %s", program, err, out.String())
	}
	return nil
}
