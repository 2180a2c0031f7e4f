// File: cmd/clusterseqd/main.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// clusterseqd runs a sequencer node and sends operator control
// commands to a running node through the shared toggle file.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:           "clusterseqd",
		Short:         "Consensus cluster sequencer node",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCommand())
	root.AddCommand(newControlCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "clusterseqd:", err)
		os.Exit(1)
	}
}
