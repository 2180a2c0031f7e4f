// File: cmd/clusterseqd/control.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/momentics/clusterseq/control"
)

func newControlCommand() *cobra.Command {
	var toggleFile string

	cmd := &cobra.Command{
		Use:   "control <neutral|suspend|resume|snapshot|shutdown|abort>",
		Short: "Send a control command to a running node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := control.ParseToggle(args[0])
			if err != nil {
				return err
			}
			mapped, err := control.OpenMappedToggle(toggleFile)
			if err != nil {
				return fmt.Errorf("open control toggle: %w", err)
			}
			defer mapped.Close()

			operator := control.NewClusterControl(mapped)
			if code == control.ToggleNeutral {
				operator.Reset()
				fmt.Println("toggle reset to NEUTRAL")
				return nil
			}
			if !operator.Request(code) {
				return fmt.Errorf("toggle busy: %s still pending", operator.Pending())
			}
			fmt.Println("requested", code)
			return nil
		},
	}
	cmd.Flags().StringVarP(&toggleFile, "toggle-file", "t", "clusterseq.toggle", "shared toggle counter file")
	return cmd
}
