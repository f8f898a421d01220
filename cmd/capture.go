/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/allbin/go-serialport"
)

// captureCmd represents the capture command
var captureCmd = &cobra.Command{
	Use:   "capture <port> <output-file>",
	Short: "Capture serial data to a file",
	Long: `Capture incoming serial data to a file for later parsing.

Everything read from the port is appended to the output file unchanged, so a
capture can be resumed without overwriting earlier data. The capture runs
until interrupted (Ctrl+C), until the device goes away, or until the
--duration or --max-bytes limit is reached.

Example usage:
  serialport capture /dev/ttyUSB0 data.log
  serialport capture /dev/ttyUSB0 output.txt --baud 9600
  serialport capture /dev/ttyUSB0 capture.log --console --duration 10m`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		var opts captureOptions
		opts.bufferSize, _ = cmd.Flags().GetInt("buffer")
		opts.console, _ = cmd.Flags().GetBool("console")
		opts.duration, _ = cmd.Flags().GetDuration("duration")
		opts.maxBytes, _ = cmd.Flags().GetInt64("max-bytes")

		if err := runCapture(args[0], args[1], opts); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(captureCmd)

	captureCmd.Flags().Int("buffer", 4096, "Read buffer size")
	captureCmd.Flags().BoolP("console", "c", false, "Display incoming data on console while capturing")
	captureCmd.Flags().Duration("duration", 0, "Stop after this long (0 runs until interrupted)")
	captureCmd.Flags().Int64("max-bytes", 0, "Stop after this many bytes (0 for no limit)")
}

type captureOptions struct {
	bufferSize int
	console    bool
	duration   time.Duration
	maxBytes   int64
}

func runCapture(portPath, outputPath string, opts captureOptions) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if opts.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.duration)
		defer cancel()
	}

	file, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open output file: %w", err)
	}
	defer file.Close()

	var out io.Writer = file
	if opts.console {
		out = io.MultiWriter(file, os.Stdout)
	}

	port, err := newPort(portPath, serialport.WithListener(serialport.EventDisconnect, func(ev serialport.Event) {
		fmt.Fprintf(os.Stderr, "\nDevice disconnected: %v\n", ev.Err)
	}))
	if err != nil {
		return err
	}
	if err := port.OpenContext(ctx); err != nil {
		return fmt.Errorf("failed to open port: %w", err)
	}
	defer closePort(port)

	fmt.Fprintf(os.Stderr, "Capturing data from %s to %s\n", portPath, outputPath)
	fmt.Fprintf(os.Stderr, "Press Ctrl+C to stop\n\n")

	started := time.Now()
	n, err := copyFromPort(ctx, port, out, opts.bufferSize, opts.maxBytes)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "\nCapture complete: %d bytes written in %v\n", n, time.Since(started).Round(time.Millisecond))
	return file.Sync()
}

// copyFromPort copies what port reads into w until ctx is done, the port
// closes or, with a positive limit, limit bytes were copied. Data read past
// the limit is discarded. It returns the number of bytes copied.
func copyFromPort(ctx context.Context, port *serialport.Port, w io.Writer, bufferSize int, limit int64) (int64, error) {
	buf := make([]byte, max(bufferSize, 1))
	var total int64
	for limit <= 0 || total < limit {
		n, err := port.ReadContext(ctx, buf)
		if limit > 0 && total+int64(n) > limit {
			n = int(limit - total)
		}
		if n > 0 {
			written, werr := w.Write(buf[:n])
			total += int64(written)
			if werr != nil {
				return total, fmt.Errorf("write error: %w", werr)
			}
		}

		switch {
		case err == nil:
		case ctx.Err() != nil, errors.Is(err, io.EOF):
			return total, nil
		default:
			return total, fmt.Errorf("read error: %w", err)
		}
	}
	return total, nil
}
