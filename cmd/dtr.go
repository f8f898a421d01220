/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/allbin/go-serialport"
)

// dtrCmd represents the dtr command
var dtrCmd = &cobra.Command{
	Use:   "dtr <port> <state>",
	Short: "Control DTR (Data Terminal Ready) signal",
	Long: `Manually set the DTR (Data Terminal Ready) signal state.

The DTR signal indicates that the terminal is ready for communication.
RTS is left asserted unless --rts says otherwise.

Examples:
  serialport dtr /dev/ttyUSB0 high
  serialport dtr /dev/ttyUSB0 low
  serialport dtr /dev/ttyUSB0 on --rts off
  serialport dtr /dev/ttyUSB0 off

Valid states: high, low, on, off, true, false, 1, 0`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		portPath := args[0]

		state, err := parseSignalState(args[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		other, err := parseSignalState(dtrOtherLine)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: --rts: %v\n", err)
			os.Exit(1)
		}

		lines := serialport.DefaultSetOptions()
		lines.DTR = state
		lines.RTS = other

		if err := setControlLines(portPath, lines); err != nil {
			fmt.Fprintf(os.Stderr, "Error setting DTR: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("DTR set to %s on %s\n", formatSignalState(state), portPath)
	},
}

var dtrOtherLine string

func init() {
	rootCmd.AddCommand(dtrCmd)

	dtrCmd.Flags().StringVar(&dtrOtherLine, "rts", "high", "State applied to RTS at the same time")
}
