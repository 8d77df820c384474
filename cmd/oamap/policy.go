package main

import (
	"fmt"

	"github.com/llxisdsh/oamap"
)

type PolicyCmd struct {
	PolicyFile string `short:"p" long:"policy" description:"YAML policy to validate and print with defaults filled in"`
}

func (x *PolicyCmd) Execute(args []string) error {
	p := oamap.DefaultPolicy()
	if x.PolicyFile != "" {
		var err error
		if p, err = loadPolicyFile(x.PolicyFile); err != nil {
			return err
		}
	}
	data, err := p.YAML()
	if err != nil {
		return err
	}
	_, err = stdout.Write(data)
	return err
}

type VersionCmd struct{}

func (x *VersionCmd) Execute(args []string) error {
	_, err := fmt.Fprintln(stdout, "oamap", oamap.Version)
	return err
}
