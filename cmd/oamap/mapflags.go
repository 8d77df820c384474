package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/llxisdsh/oamap"
	"github.com/mitchellh/go-homedir"
)

// mapFlags are the map construction options shared by bench and load.
type mapFlags struct {
	Capacity   int    `short:"c" long:"capacity" default:"16" description:"initial number of slots"`
	Fixed      bool   `long:"fixed" description:"never resize; inserts fail once every slot is taken"`
	Hasher     string `long:"hasher" default:"fnv1a" choice:"fnv1a" choice:"xxhash" description:"key hash function"`
	PolicyFile string `short:"p" long:"policy" description:"YAML resize policy; omitted fields keep their defaults"`
}

func (f *mapFlags) options() ([]func(*oamap.MapConfig), error) {
	name := f.Hasher
	if name == "" {
		name = "fnv1a"
	}
	hash, ok := oamap.HasherByName(name)
	if !ok {
		return nil, fmt.Errorf("unknown hasher %q", f.Hasher)
	}
	options := []func(*oamap.MapConfig){oamap.WithHasher(hash)}
	if f.PolicyFile != "" {
		p, err := loadPolicyFile(f.PolicyFile)
		if err != nil {
			return nil, err
		}
		options = append(options, oamap.WithPolicy(p))
	}
	return options, nil
}

func newMap[V any](f *mapFlags) (*oamap.Map[V], error) {
	options, err := f.options()
	if err != nil {
		return nil, err
	}
	m, err := oamap.New[V](f.Capacity, !f.Fixed, options...)
	if err != nil {
		return nil, err
	}
	log.Infof("new map: capacity %d, resizable %t, hasher %s", m.Cap(), m.Resizable(), f.Hasher)
	return m, nil
}

func loadPolicyFile(name string) (oamap.Policy, error) {
	path, err := homedir.Expand(filepath.Clean(name))
	if err != nil {
		return oamap.Policy{}, err
	}
	file, err := os.Open(path)
	if err != nil {
		return oamap.Policy{}, err
	}
	defer file.Close()
	p, err := oamap.LoadPolicy(file)
	if err != nil {
		return p, fmt.Errorf("%s: %w", path, err)
	}
	log.Debugf("loaded policy from %s", path)
	return p, nil
}
