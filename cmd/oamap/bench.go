package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/icrowley/fake"
	"github.com/llxisdsh/oamap"
)

var (
	headerColor = color.New(color.FgCyan, color.Bold)
	okColor     = color.New(color.FgGreen)
	failColor   = color.New(color.FgRed)
)

type Bench struct {
	mapFlags
	Keys  int   `short:"n" long:"keys" default:"100000" description:"number of distinct keys"`
	Seed  int64 `long:"seed" default:"1" description:"seed for the key generator"`
	Stats bool  `short:"s" long:"stats" description:"print map statistics after every phase"`
}

type benchPhase struct {
	name string
	run  func(i int, key string) error
}

func (x *Bench) Execute(args []string) error {
	if x.Keys <= 0 {
		return fmt.Errorf("--keys must be positive, got %d", x.Keys)
	}
	m, err := newMap[int](&x.mapFlags)
	if err != nil {
		return err
	}
	keys := generateKeys(x.Keys, x.Seed)
	log.Infof("generated %d keys with seed %d", len(keys), x.Seed)

	phases := []benchPhase{
		{"set", func(i int, key string) error {
			return m.Set(key, i)
		}},
		{"get", func(i int, key string) error {
			v, err := m.Get(key)
			if err == nil && v != i {
				return fmt.Errorf("get %q: got %d, want %d", key, v, i)
			}
			return err
		}},
		{"delete", func(i int, key string) error {
			return m.Delete(key)
		}},
	}

	headerColor.Fprintf(stdout, "%-8s %10s %14s %12s  %s\n", "phase", "ops", "elapsed", "ns/op", "result")
	for _, phase := range phases {
		failures := make(map[string]int)
		start := time.Now()
		for i, key := range keys {
			err := phase.run(i, key)
			if err == nil {
				continue
			}
			var re *oamap.ResizeError
			if errors.As(err, &re) {
				log.Warningf("%s %q: %v", phase.name, key, err)
				continue
			}
			failures[failureName(err)]++
		}
		elapsed := time.Since(start)
		printPhase(stdout, phase.name, len(keys), elapsed, failures)
		if x.Stats {
			fmt.Fprint(stdout, m.Stats().ToString())
		}
	}
	if !x.Stats {
		fmt.Fprint(stdout, m.Stats().ToString())
	}
	return nil
}

// generateKeys returns n distinct keys built from fake words. The same
// seed always yields the same keys.
func generateKeys(n int, seed int64) []string {
	fake.Seed(seed)
	keys := make([]string, n)
	for i := range keys {
		keys[i] = strings.ToLower(fake.Word()) + "-" + strconv.Itoa(i)
	}
	return keys
}

func failureName(err error) string {
	if kind := oamap.KindOf(err); kind != 0 {
		return kind.String()
	}
	return "mismatch"
}

func printPhase(w io.Writer, name string, ops int, elapsed time.Duration, failures map[string]int) {
	perOp := float64(elapsed.Nanoseconds()) / float64(ops)
	fmt.Fprintf(w, "%-8s %10d %14s %12.1f  ", name, ops, elapsed.Round(time.Microsecond), perOp)
	if len(failures) == 0 {
		okColor.Fprintln(w, "ok")
		return
	}
	parts := make([]string, 0, len(failures))
	for _, kind := range sortedKeys(failures) {
		parts = append(parts, fmt.Sprintf("%d %s", failures[kind], kind))
	}
	failColor.Fprintln(w, strings.Join(parts, ", "))
}
