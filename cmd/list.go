// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"

	"wavefield/internal/capture"
	"wavefield/internal/tui"

	"github.com/spf13/cobra"
)

func newListCommand() *cobra.Command {
	var interactive bool
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := capture.Initialize(); err != nil {
				return err
			}
			defer capture.Terminate()

			if !interactive {
				return capture.ListDevices(cmd.OutOrStdout())
			}
			sel, err := tui.StartDeviceListUI()
			if err != nil || sel == nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "--device %d --sample-rate %.0f\n", sel.Device.ID, sel.SampleRate)
			return nil
		},
	}
	listCmd.Flags().BoolVarP(&interactive, "interactive", "I", false,
		"Browse devices and print the flags for the chosen input")
	return listCmd
}
