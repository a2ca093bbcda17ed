// Package parser turns raw solver logs and run outcomes into attribute
// values. Three sources merge, later ones winning: attributes derived
// from the run record, values matched by log patterns, and the
// properties.json file written by custom post-processing commands.
package parser

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strconv"

	"github.com/planbench/planbench/internal/attr"
	"github.com/planbench/planbench/internal/runner"
)

// Pattern extracts one attribute from a solver log. The first capture
// group is parsed as a float; a pattern without capture groups records
// presence as 1.
type Pattern struct {
	Attribute string
	Regexp    *regexp.Regexp
}

// Parser scans run artifacts for attribute values.
type Parser struct {
	patterns []Pattern
	logger   *slog.Logger
}

// New creates a parser with the given patterns.
func New(patterns ...Pattern) *Parser {
	return &Parser{patterns: patterns}
}

// NewDefault creates a parser with the built-in planner log patterns.
func NewDefault() *Parser {
	return New(DefaultPatterns()...)
}

// AddPattern registers an additional pattern. The pattern text must
// compile; invalid patterns are programming errors surfaced immediately.
func (p *Parser) AddPattern(attribute, pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("pattern for %q: %w", attribute, err)
	}
	p.patterns = append(p.patterns, Pattern{Attribute: attribute, Regexp: re})
	return nil
}

// SetLogger directs parse warnings to the given logger.
func (p *Parser) SetLogger(logger *slog.Logger) {
	p.logger = logger
}

// Extract merges all attribute values for one run result.
func (p *Parser) Extract(res runner.Result) map[string]float64 {
	props := Derived(res)

	if res.LogPath != "" {
		fromLog, err := p.ParseLog(res.LogPath)
		if err != nil {
			p.warn("could not parse run log", "log", res.LogPath, "error", err)
		}
		for name, v := range fromLog {
			props[name] = v
		}
	}

	fromFile, err := ReadProperties(res.Task.Dir)
	if err != nil {
		p.warn("could not read properties.json", "dir", res.Task.Dir, "error", err)
	}
	for name, v := range fromFile {
		props[name] = v
	}

	return props
}

// ParseLog scans a log file line by line and returns every matched
// attribute. When a pattern matches multiple times, the last match wins
// (planner logs report refined values as search progresses).
func (p *Parser) ParseLog(path string) (map[string]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	props := make(map[string]float64)
	scanner := bufio.NewScanner(f)
	// Solver logs can contain long lines (e.g. echoed configurations).
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		for _, pat := range p.patterns {
			m := pat.Regexp.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			if len(m) == 1 {
				props[pat.Attribute] = 1
				continue
			}
			v, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				p.warn("pattern matched a non-numeric value",
					"attribute", pat.Attribute, "value", m[1])
				continue
			}
			props[pat.Attribute] = v
		}
	}
	if err := scanner.Err(); err != nil {
		return props, fmt.Errorf("scan %s: %w", path, err)
	}
	return props, nil
}

// Derived computes the baseline attributes every run contributes from
// its run record alone, regardless of what the log contains.
func Derived(res runner.Result) map[string]float64 {
	props := map[string]float64{
		attr.Coverage:    0,
		attr.Error:       0,
		attr.OutOfMemory: 0,
		attr.OutOfTime:   0,
	}

	switch res.Status {
	case runner.StatusSuccess:
		props[attr.Coverage] = 1
		// Timings are only meaningful for solved runs.
		props[attr.RunTime] = res.WallTime
		if res.MemoryKB > 0 {
			props[attr.Memory] = float64(res.MemoryKB)
		}
	case runner.StatusTimeout:
		props[attr.OutOfTime] = 1
	case runner.StatusOutOfMemory:
		props[attr.OutOfMemory] = 1
	case runner.StatusCrash:
		props[attr.Error] = 1
	}

	return props
}

func (p *Parser) warn(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}
