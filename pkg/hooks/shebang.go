package hooks

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Interpreter is an inferred or parsed command line that should execute
// a script: a program plus any leading arguments contributed by the
// shebang itself (e.g. "-e" from "#!/bin/bash -e").
type Interpreter struct {
	Program string
	Args    []string
}

var extensionInterpreters = map[string]string{
	"sh":   "sh",
	"bash": "bash",
	"zsh":  "zsh",
	"py":   "python3",
	"rb":   "ruby",
	"pl":   "perl",
	"js":   "node",
}

// ResolveInterpreter determines how to execute scriptPath: its shebang
// line if present, else an extension-based guess, else -- if the file
// is itself executable -- the file run directly (spec.md §4.5.4).
func ResolveInterpreter(scriptPath string) (Interpreter, error) {
	first, err := firstLine(scriptPath)
	if err != nil {
		return Interpreter{}, fmt.Errorf("hooks: reading script %s: %w", scriptPath, err)
	}

	if strings.HasPrefix(first, "#!") {
		return parseShebang(first)
	}
	return inferFromExtension(scriptPath)
}

func firstLine(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	return "", scanner.Err()
}

// parseShebang handles both "#!/path/to/interp [args]" and
// "#!/usr/bin/env interp [args]" forms.
func parseShebang(line string) (Interpreter, error) {
	shebang := strings.TrimSpace(line[2:])
	fields := strings.Fields(shebang)
	if len(fields) == 0 {
		return Interpreter{}, fmt.Errorf("hooks: empty shebang line %q", line)
	}

	if fields[0] == "/usr/bin/env" || fields[0] == "/bin/env" {
		if len(fields) < 2 {
			return Interpreter{}, fmt.Errorf("hooks: invalid env shebang %q", line)
		}
		return Interpreter{Program: fields[1], Args: fields[2:]}, nil
	}

	program := filepath.Base(fields[0])
	return Interpreter{Program: program, Args: fields[1:]}, nil
}

func inferFromExtension(scriptPath string) (Interpreter, error) {
	ext := strings.TrimPrefix(filepath.Ext(scriptPath), ".")

	if program, ok := extensionInterpreters[ext]; ok {
		return Interpreter{Program: program}, nil
	}

	if ext == "" {
		if runtime.GOOS != "windows" {
			info, err := os.Stat(scriptPath)
			if err != nil {
				return Interpreter{}, fmt.Errorf("hooks: stat %s: %w", scriptPath, err)
			}
			if info.Mode()&0o111 != 0 {
				return Interpreter{Program: scriptPath}, nil
			}
		}
		return Interpreter{Program: "sh"}, nil
	}

	return Interpreter{}, fmt.Errorf("hooks: cannot infer an interpreter for script %s (extension %q)", scriptPath, ext)
}
