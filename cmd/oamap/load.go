package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/llxisdsh/oamap"
	"github.com/mitchellh/go-homedir"
)

const maxLineSize = 1 << 20

type Load struct {
	mapFlags
	File        string `short:"f" long:"file" description:"read lines from this file instead of stdin"`
	DeleteEvery int    `long:"delete-every" description:"afterwards delete every n-th inserted key"`
}

type loadReport struct {
	Lines    int
	Inserted int
	Updated  int
	Deleted  int
	// Failures counts failed operations by error kind.
	Failures map[string]int
	// Resizes counts committed mutations whose triggered resize failed.
	Resizes int
}

func (x *Load) Execute(args []string) error {
	in := io.Reader(os.Stdin)
	if x.File != "" && x.File != "-" {
		path, err := homedir.Expand(filepath.Clean(x.File))
		if err != nil {
			return err
		}
		file, err := os.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()
		in = file
	}
	if x.DeleteEvery < 0 {
		return fmt.Errorf("--delete-every must not be negative, got %d", x.DeleteEvery)
	}

	m, err := newMap[string](&x.mapFlags)
	if err != nil {
		return err
	}
	report, err := loadLines(m, in, x.DeleteEvery)
	if err != nil {
		return err
	}
	report.print(stdout)
	fmt.Fprint(stdout, m.Stats().ToString())
	return nil
}

// parseLine splits a `key` or `key=value` line. Blank lines and lines
// starting with '#' are skipped.
func parseLine(line string) (key, value string, skip bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", "", true
	}
	key, value, _ = strings.Cut(line, "=")
	return strings.TrimSpace(key), strings.TrimSpace(value), false
}

// loadLines inserts every line of r into m, then deletes every
// deleteEvery-th newly inserted key. Map failures are counted, not
// returned; only read errors abort the load.
func loadLines(m *oamap.Map[string], r io.Reader, deleteEvery int) (*loadReport, error) {
	report := &loadReport{Failures: make(map[string]int)}
	var inserted []string

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64<<10), maxLineSize)
	for scanner.Scan() {
		key, value, skip := parseLine(scanner.Text())
		if skip {
			continue
		}
		report.Lines++
		existed := m.Has(key)
		if err := m.Set(key, value); !report.record(err) {
			log.Debugf("line %d: %v", report.Lines, err)
			continue
		}
		if existed {
			report.Updated++
		} else {
			report.Inserted++
			inserted = append(inserted, key)
		}
	}
	if err := scanner.Err(); err != nil {
		return report, fmt.Errorf("read input: %w", err)
	}

	if deleteEvery > 0 {
		for i := deleteEvery - 1; i < len(inserted); i += deleteEvery {
			if err := m.Delete(inserted[i]); report.record(err) {
				report.Deleted++
			}
		}
	}
	return report, nil
}

// record counts err and reports whether the operation took effect.
func (r *loadReport) record(err error) bool {
	if err == nil {
		return true
	}
	var re *oamap.ResizeError
	if errors.As(err, &re) {
		log.Warning(err)
		r.Resizes++
		return true
	}
	r.Failures[failureName(err)]++
	return false
}

func (r *loadReport) print(w io.Writer) {
	headerColor.Fprintln(w, "load")
	fmt.Fprintf(w, "  lines:    %d\n", r.Lines)
	fmt.Fprintf(w, "  inserted: %d\n", r.Inserted)
	fmt.Fprintf(w, "  updated:  %d\n", r.Updated)
	fmt.Fprintf(w, "  deleted:  %d\n", r.Deleted)
	if r.Resizes > 0 {
		failColor.Fprintf(w, "  failed resizes: %d\n", r.Resizes)
	}
	if len(r.Failures) == 0 {
		okColor.Fprintln(w, "  no failures")
		return
	}
	for _, kind := range sortedKeys(r.Failures) {
		failColor.Fprintf(w, "  %s: %d\n", kind, r.Failures[kind])
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
