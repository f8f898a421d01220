/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/allbin/go-serialport"
)

// rtsCmd represents the rts command
var rtsCmd = &cobra.Command{
	Use:   "rts <port> <state>",
	Short: "Control RTS (Request To Send) signal",
	Long: `Manually set the RTS (Request To Send) signal state.

The RTS signal tells the other end that the terminal wants to transmit.
DTR is left asserted unless --dtr says otherwise.

Examples:
  serialport rts /dev/ttyUSB0 high
  serialport rts /dev/ttyUSB0 low
  serialport rts /dev/ttyUSB0 on --dtr off
  serialport rts /dev/ttyUSB0 off

Valid states: high, low, on, off, true, false, 1, 0`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		portPath := args[0]

		state, err := parseSignalState(args[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		other, err := parseSignalState(rtsOtherLine)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: --dtr: %v\n", err)
			os.Exit(1)
		}

		lines := serialport.DefaultSetOptions()
		lines.RTS = state
		lines.DTR = other

		if err := setControlLines(portPath, lines); err != nil {
			fmt.Fprintf(os.Stderr, "Error setting RTS: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("RTS set to %s on %s\n", formatSignalState(state), portPath)
	},
}

var rtsOtherLine string

func parseSignalState(state string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(state)) {
	case "high", "on", "true", "1":
		return true, nil
	case "low", "off", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid state: %s (valid: high, low, on, off, true, false, 1, 0)", state)
	}
}

// setControlLines opens portPath and applies lines to it.
func setControlLines(portPath string, lines serialport.SetOptions) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	port, err := openPort(ctx, portPath)
	if err != nil {
		return err
	}
	defer closePort(port)

	return port.SetContext(ctx, lines)
}

func init() {
	rootCmd.AddCommand(rtsCmd)

	rtsCmd.Flags().StringVar(&rtsOtherLine, "dtr", "high", "State applied to DTR at the same time")
}
