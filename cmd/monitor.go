/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/allbin/go-serialport"
)

var (
	monitorSignals  []string
	monitorInterval time.Duration
	monitorTimeout  time.Duration
)

// signalMask selects modem status signals
type signalMask uint8

const (
	signalCTS signalMask = 1 << iota
	signalDSR
	signalDCD
)

// monitorCmd represents the monitor command
var monitorCmd = &cobra.Command{
	Use:   "monitor <port>",
	Short: "Monitor modem signal changes",
	Long: `Monitor modem status signal changes in real-time.

Polls the specified signals and reports when they change state. Press Ctrl+C to stop.

Examples:
  serialport monitor /dev/ttyUSB0
  serialport monitor /dev/ttyUSB0 --signals cts,dsr
  serialport monitor /dev/ttyUSB0 --signals dcd --timeout 30s --interval 10ms

Available signals: cts, dsr, dcd`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		portPath := args[0]

		// Parse signal mask from flags
		mask, err := parseSignalMask(monitorSignals)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing signals: %v\n", err)
			os.Exit(1)
		}
		if monitorInterval <= 0 {
			fmt.Fprintf(os.Stderr, "Error: --interval must be positive\n")
			os.Exit(1)
		}

		// Stop on Ctrl+C
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		port, err := openPort(ctx, portPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening port: %v\n", err)
			os.Exit(1)
		}
		defer closePort(port)

		fmt.Printf("Monitoring signals on %s (signals: %s)\n", portPath, strings.Join(monitorSignals, ", "))
		fmt.Println("Press Ctrl+C to stop")

		// Show initial state
		last, err := port.GetContext(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading initial signals: %v\n", err)
			os.Exit(1)
		}
		printSignalState("Initial", last, mask)

		// Monitor loop
		for {
			var signals serialport.ModemStatus
			var changed signalMask

			if monitorTimeout > 0 {
				timeoutCtx, timeoutCancel := context.WithTimeout(ctx, monitorTimeout)
				signals, changed, err = waitForSignalChange(timeoutCtx, port, last, mask, monitorInterval)
				timeoutCancel()
			} else {
				signals, changed, err = waitForSignalChange(ctx, port, last, mask, monitorInterval)
			}

			if err != nil {
				if errors.Is(err, context.Canceled) {
					fmt.Println("\nStopping monitor...")
					return
				}
				if errors.Is(err, context.DeadlineExceeded) {
					fmt.Printf("[%s] Timeout - no signal changes\n", time.Now().Format("15:04:05"))
					continue
				}
				fmt.Fprintf(os.Stderr, "Error waiting for signal change: %v\n", err)
				os.Exit(1)
			}

			printSignalChange(signals, changed)
			last = signals
		}
	},
}

// waitForSignalChange polls the port every interval until one of the
// signals in mask differs from last.
func waitForSignalChange(ctx context.Context, port *serialport.Port, last serialport.ModemStatus, mask signalMask, interval time.Duration) (serialport.ModemStatus, signalMask, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return last, 0, ctx.Err()
		case <-ticker.C:
		}

		status, err := port.GetContext(ctx)
		if err != nil {
			return last, 0, err
		}
		if changed := diffSignals(last, status) & mask; changed != 0 {
			return status, changed, nil
		}
	}
}

// diffSignals returns the signals whose state differs between a and b
func diffSignals(a, b serialport.ModemStatus) signalMask {
	var changed signalMask
	if a.CTS != b.CTS {
		changed |= signalCTS
	}
	if a.DSR != b.DSR {
		changed |= signalDSR
	}
	if a.DCD != b.DCD {
		changed |= signalDCD
	}
	return changed
}

func parseSignalMask(signalNames []string) (signalMask, error) {
	if len(signalNames) == 0 {
		return signalCTS | signalDSR | signalDCD, nil
	}

	var mask signalMask
	for _, name := range signalNames {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "cts":
			mask |= signalCTS
		case "dsr":
			mask |= signalDSR
		case "dcd":
			mask |= signalDCD
		default:
			return 0, fmt.Errorf("unknown signal: %s (valid: cts, dsr, dcd)", name)
		}
	}
	return mask, nil
}

func printSignalState(prefix string, signals serialport.ModemStatus, mask signalMask) {
	timestamp := time.Now().Format("15:04:05")
	fmt.Printf("[%s] %s state:\n", timestamp, prefix)
	printSignals(signals, mask)
}

func printSignalChange(signals serialport.ModemStatus, changed signalMask) {
	timestamp := time.Now().Format("15:04:05")
	fmt.Printf("[%s] Signal change detected:\n", timestamp)
	printSignals(signals, changed)
}

func printSignals(signals serialport.ModemStatus, mask signalMask) {
	if mask&signalCTS != 0 {
		fmt.Printf("  CTS: %s\n", formatSignalState(signals.CTS))
	}
	if mask&signalDSR != 0 {
		fmt.Printf("  DSR: %s\n", formatSignalState(signals.DSR))
	}
	if mask&signalDCD != 0 {
		fmt.Printf("  DCD: %s\n", formatSignalState(signals.DCD))
	}
	fmt.Println()
}

func init() {
	rootCmd.AddCommand(monitorCmd)

	monitorCmd.Flags().StringSliceVarP(&monitorSignals, "signals", "s", []string{"cts", "dsr", "dcd"},
		"Signals to monitor (comma-separated: cts,dsr,dcd)")
	monitorCmd.Flags().DurationVarP(&monitorInterval, "interval", "i", 50*time.Millisecond,
		"How often the signals are polled")
	monitorCmd.Flags().DurationVarP(&monitorTimeout, "timeout", "t", 0,
		"Report a timeout when nothing changes for this long (0 = no timeout)")
}
