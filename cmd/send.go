/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send [data] <port>",
	Short: "Send data to a serial port",
	Long: `Send data to a serial port and wait until it has been transmitted.

The data is taken from the first argument, from stdin when it is a pipe, or
prompted for. With --hex it is read as hex bytes ("48 65 6C", "0x48:0x65"),
otherwise it is sent as text, optionally followed by a newline.

Example usage:
  serialport send "Hello World" /dev/ttyUSB0
  serialport send "AT+GMR" /dev/ttyUSB0 --newline
  serialport send --hex "DE AD BE EF" /dev/ttyUSB0
  echo "test" | serialport send /dev/ttyUSB0
  serialport send /dev/ttyUSB0  # Interactive mode`,
	Args: cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		addNewline, _ := cmd.Flags().GetBool("newline")
		hexMode, _ := cmd.Flags().GetBool("hex")
		timeout, _ := cmd.Flags().GetDuration("timeout")

		portPath := args[len(args)-1]
		var data string
		if len(args) == 2 {
			data = args[0]
		} else {
			var err error
			if data, err = readInput(os.Stdin); err != nil {
				fmt.Fprintf(os.Stderr, "Error reading from stdin: %v\n", err)
				os.Exit(1)
			}
		}

		payload, err := buildPayload(data, hexMode, addNewline)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid data: %v\n", err)
			os.Exit(1)
		}

		if err := sendData(portPath, payload, timeout); err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", errorMark.Render("✗"), err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().BoolP("newline", "n", false, "Add newline character to the end of data")
	sendCmd.Flags().BoolP("hex", "x", false, "Interpret data as hexadecimal (e.g., '48656c6c6f' for 'Hello')")
	sendCmd.Flags().DurationP("timeout", "t", 5*time.Second, "Timeout for opening the port and sending")
}

// readInput reads all of a piped stdin, or prompts for one line when stdin is
// a terminal. Trailing line breaks are dropped.
func readInput(stdin *os.File) (string, error) {
	if stat, err := stdin.Stat(); err == nil && stat.Mode()&os.ModeCharDevice == 0 {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", err
		}
		return strings.TrimRight(string(data), "\r\n"), nil
	}

	fmt.Print(infoMark.Render("Enter data to send: "))
	scanner := bufio.NewScanner(stdin)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	return "", scanner.Err()
}

// buildPayload turns the send input into the bytes written. The newline is
// only added to text.
func buildPayload(data string, hexMode, addNewline bool) ([]byte, error) {
	if hexMode {
		return parseHexString(data)
	}
	if data == "" && !addNewline {
		return nil, errors.New("nothing to send")
	}
	if addNewline {
		data += "\n"
	}
	return []byte(data), nil
}

// parseHexString converts hex text to bytes. Spaces, colons and 0x prefixes
// are ignored, so "48 65 6C", "0x48 0x65" and "48656c" are all accepted.
func parseHexString(hexStr string) ([]byte, error) {
	clean := strings.NewReplacer(" ", "", ":", "", "0x", "", "0X", "").Replace(strings.TrimSpace(hexStr))
	if len(clean) == 0 {
		return nil, errors.New("empty input")
	}
	if len(clean)%2 != 0 {
		return nil, fmt.Errorf("hex string must have even number of digits (got %d)", len(clean))
	}

	out := make([]byte, 0, len(clean)/2)
	for i := 0; i < len(clean); i += 2 {
		b, err := strconv.ParseUint(clean[i:i+2], 16, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid hex byte %q", clean[i:i+2])
		}
		out = append(out, byte(b))
	}
	return out, nil
}

// sendData opens the port, writes data and waits for the driver to transmit
// it, all within timeout.
func sendData(portPath string, data []byte, timeout time.Duration) error {
	fmt.Printf("%s Opening %s...\n", infoMark.Render("⚡"), portPath)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	port, err := openPort(ctx, portPath)
	if err != nil {
		return err
	}
	defer closePort(port)

	cfg := port.Config()
	fmt.Printf("%s Connected (%s)\n", successMark.Render("✓"), cfg.Mode())

	n, err := port.WriteContext(ctx, data)
	if err != nil {
		return fmt.Errorf("failed to send data: %w", err)
	}
	if err := port.DrainContext(ctx); err != nil {
		return fmt.Errorf("failed to drain port: %w", err)
	}

	fmt.Printf("%s Sent %d bytes: %s\n", successMark.Render("✓"), n, previewData(data, 50))
	return nil
}

// previewData renders up to limit bytes of data for display, replacing
// non-printable bytes with a middle dot.
func previewData(data []byte, limit int) string {
	truncated := len(data) > limit
	if truncated {
		data = data[:limit]
	}

	var b strings.Builder
	for _, c := range data {
		if c < 32 || c > 126 {
			b.WriteRune('·')
		} else {
			b.WriteByte(c)
		}
	}
	if truncated {
		b.WriteString("...")
	}
	return b.String()
}
