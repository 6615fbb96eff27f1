// Package source reads assembly input and materializes include
// directives. The loader owns all file I/O: text includes are spliced
// into the line stream recursively and include_bytes payloads are read
// here, so later passes never touch the filesystem.
package source

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"rvasm/internal/diag"
)

// Line is one logical source line with its origin. IsBytes marks a line
// produced by include_bytes; its Data carries the file's raw contents.
type Line struct {
	Pos     diag.Pos
	Text    string
	IsBytes bool
	Data    []byte
	Path    string // original path operand for include_bytes lines
}

// Config controls include resolution.
type Config struct {
	// SearchPath lists directories consulted for include operands, in
	// order, after the including file's own directory.
	SearchPath []string
}

// Load reads the entry file and returns its lines with every include
// directive replaced by the included file's lines.
func Load(entry string, cfg Config, reporter *diag.Reporter) ([]Line, error) {
	l := &loader{cfg: cfg, reporter: reporter, inProgress: map[string]bool{}}
	data, err := os.ReadFile(entry)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	abs, err := filepath.Abs(entry)
	if err != nil {
		abs = entry
	}
	return l.expand(entry, abs, string(data))
}

// LoadString behaves like Load for in-memory source, using "<string>" as
// the file name. Includes resolve against the configured search path
// only.
func LoadString(src string, cfg Config, reporter *diag.Reporter) ([]Line, error) {
	l := &loader{cfg: cfg, reporter: reporter, inProgress: map[string]bool{}}
	return l.expand("<string>", "", src)
}

type loader struct {
	cfg        Config
	reporter   *diag.Reporter
	inProgress map[string]bool
	chain      []string
}

func (l *loader) expand(name, abs, content string) ([]Line, error) {
	if abs != "" {
		if l.inProgress[abs] {
			return nil, fmt.Errorf("circular include: %s", strings.Join(append(l.chain, name), " -> "))
		}
		l.inProgress[abs] = true
		l.chain = append(l.chain, name)
		defer func() {
			delete(l.inProgress, abs)
			l.chain = l.chain[:len(l.chain)-1]
		}()
	}

	var out []Line
	for i, text := range strings.Split(content, "\n") {
		pos := diag.Pos{File: name, Line: i + 1}
		directive, operand := includeDirective(text)
		switch directive {
		case "include":
			if operand == "" {
				l.reporter.Error(pos, "include requires a file operand")
				continue
			}
			path, err := l.resolve(name, operand)
			if err != nil {
				l.reporter.Errorf(pos, "%v", err)
				continue
			}
			data, err := os.ReadFile(path)
			if err != nil {
				l.reporter.Errorf(pos, "read include: %v", err)
				continue
			}
			absPath, err := filepath.Abs(path)
			if err != nil {
				absPath = path
			}
			lines, err := l.expand(path, absPath, string(data))
			if err != nil {
				l.reporter.Errorf(pos, "%v", err)
				continue
			}
			out = append(out, lines...)
		case "include_bytes":
			if operand == "" {
				l.reporter.Error(pos, "include_bytes requires a file operand")
				continue
			}
			path, err := l.resolve(name, operand)
			if err != nil {
				l.reporter.Errorf(pos, "%v", err)
				continue
			}
			data, err := os.ReadFile(path)
			if err != nil {
				l.reporter.Errorf(pos, "read include_bytes: %v", err)
				continue
			}
			out = append(out, Line{Pos: pos, IsBytes: true, Data: data, Path: operand})
		default:
			out = append(out, Line{Pos: pos, Text: text})
		}
	}
	return out, nil
}

// includeDirective recognizes include / include_bytes lines and returns
// the directive name and its path operand. Comments are stripped before
// the operand is taken, so paths may not contain '#'.
func includeDirective(text string) (string, string) {
	trimmed := strings.TrimSpace(text)
	lower := strings.ToLower(trimmed)
	var directive string
	switch {
	case strings.HasPrefix(lower, "include_bytes"):
		directive = "include_bytes"
	case strings.HasPrefix(lower, "include"):
		directive = "include"
	default:
		return "", ""
	}
	rest := trimmed[len(directive):]
	if rest != "" && !strings.ContainsAny(rest[:1], " \t") {
		// identifier merely starting with "include"
		return "", ""
	}
	if idx := strings.IndexByte(rest, '#'); idx >= 0 {
		rest = rest[:idx]
	}
	return directive, strings.TrimSpace(rest)
}

// resolve finds an include operand first relative to the including
// file's directory, then along the search path. The first hit wins.
func (l *loader) resolve(from, operand string) (string, error) {
	var candidates []string
	if from != "<string>" && from != "" {
		candidates = append(candidates, filepath.Join(filepath.Dir(from), operand))
	}
	for _, dir := range l.cfg.SearchPath {
		candidates = append(candidates, filepath.Join(dir, operand))
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c, nil
		}
	}
	return "", fmt.Errorf("file not found on search path: %s", operand)
}
