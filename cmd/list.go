/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/evertras/bubble-table/table"
	"github.com/spf13/cobra"

	"github.com/allbin/go-serialport"
	"github.com/allbin/go-serialport/internal/tui/colors"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available serial ports",
	Long: `List all available serial ports on the system.

This command asks the binding for communication-capable serial devices including:
- USB serial adapters (ttyUSB*)
- USB CDC/ACM devices (ttyACM*)
- Standard serial ports (ttyS*)
- ARM/Raspberry Pi ports (ttyAMA*)
- And other platform-specific serial devices

USB devices carry vendor/product IDs, serial numbers and manufacturer
names when the platform reports them.

Examples:
  serialport list
  serialport list --table --type usb
  serialport list --filter FTDI --json`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ports, err := serialport.ListContext(context.Background(), newBinding(""))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing ports: %v\n", err)
			os.Exit(1)
		}

		filter, _ := cmd.Flags().GetString("filter")
		portType, _ := cmd.Flags().GetString("type")
		tableFormat, _ := cmd.Flags().GetBool("table")
		jsonFormat, _ := cmd.Flags().GetBool("json")

		filtered := filterPorts(ports, filter, portType)

		if jsonFormat {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(filtered); err != nil {
				fmt.Fprintf(os.Stderr, "Error encoding ports: %v\n", err)
				os.Exit(1)
			}
			return
		}

		if len(filtered) == 0 {
			if filter != "" || portType != "" {
				fmt.Println("No serial ports found matching filter")
			} else {
				fmt.Println("No serial ports found")
			}
			return
		}

		if tableFormat {
			fmt.Printf("Found %d serial port(s):\n\n", len(filtered))
			fmt.Println(renderTable(filtered))
		} else {
			renderSimple(filtered)
		}
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringP("filter", "f", "", "Only show ports with a field containing this text")
	listCmd.Flags().String("type", "", "Filter by port type: usb, standard, arm, all")
	listCmd.Flags().BoolP("table", "t", false, "Display output in a styled table format")
	listCmd.Flags().Bool("json", false, "Print the ports as JSON")
}

// filterPorts keeps the ports matching the text filter and the port type
func filterPorts(ports []serialport.PortInfo, filter, portType string) []serialport.PortInfo {
	filtered := make([]serialport.PortInfo, 0, len(ports))
	for _, port := range ports {
		if !port.Matches(filter) {
			continue
		}
		if !matchesType(port.Path, portType) {
			continue
		}
		filtered = append(filtered, port)
	}
	return filtered
}

func matchesType(path, portType string) bool {
	name := strings.ToLower(filepath.Base(path))
	switch strings.ToLower(portType) {
	case "", "all":
		return true
	case "usb":
		return strings.HasPrefix(name, "ttyusb") || strings.HasPrefix(name, "ttyacm")
	case "standard":
		return strings.HasPrefix(name, "ttys")
	case "arm":
		return strings.HasPrefix(name, "ttyama")
	default:
		return false
	}
}

const (
	columnKeyPort         = "port"
	columnKeyType         = "type"
	columnKeyDescription  = "description"
	columnKeyManufacturer = "manufacturer"
	columnKeySerial       = "serial"
	columnKeyUSB          = "usb"
)

// portRows converts ports to bubble-table rows
func portRows(ports []serialport.PortInfo) []table.Row {
	rows := make([]table.Row, 0, len(ports))
	for _, info := range ports {
		usb := ""
		if info.VendorID != "" || info.ProductID != "" {
			usb = info.VendorID + ":" + info.ProductID
		}
		rows = append(rows, table.NewRow(table.RowData{
			columnKeyPort:         info.Path,
			columnKeyType:         getPortType(info.Path),
			columnKeyDescription:  serialport.Description(info),
			columnKeyManufacturer: info.Manufacturer,
			columnKeySerial:       info.SerialNumber,
			columnKeyUSB:          usb,
		}))
	}
	return rows
}

// renderTable renders the port list as a static bubble-table
func renderTable(ports []serialport.PortInfo) string {
	columns := []table.Column{
		table.NewColumn(columnKeyPort, "Port", 18),
		table.NewColumn(columnKeyType, "Type", 16),
		table.NewColumn(columnKeyDescription, "Description", 24),
		table.NewColumn(columnKeyManufacturer, "Manufacturer", 16),
		table.NewColumn(columnKeySerial, "Serial", 14),
		table.NewColumn(columnKeyUSB, "VID:PID", 10),
	}

	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(colors.Mauve)

	baseStyle := lipgloss.NewStyle().
		Foreground(colors.Text).
		BorderForeground(colors.Surface2).
		Align(lipgloss.Left)

	t := table.New(columns).
		WithRows(portRows(ports)).
		HeaderStyle(headerStyle).
		WithBaseStyle(baseStyle)

	return t.View()
}

// renderSimple renders the port list in simple text format
func renderSimple(ports []serialport.PortInfo) {
	for _, port := range ports {
		fmt.Println(port.Path)
	}
}

// getPortType returns a more specific type classification for the port
func getPortType(path string) string {
	name := strings.ToLower(filepath.Base(path))
	switch {
	case strings.HasPrefix(name, "ttyusb"):
		return "USB Serial"
	case strings.HasPrefix(name, "ttyacm"):
		return "USB CDC/ACM"
	case strings.HasPrefix(name, "ttyama"):
		return "ARM Serial"
	case strings.HasPrefix(name, "ttymxc"):
		return "i.MX Serial"
	case strings.HasPrefix(name, "ttysac"):
		return "Samsung Serial"
	case strings.HasPrefix(name, "ttyths"):
		return "Tegra Serial"
	case strings.HasPrefix(name, "ttyo"):
		return "OMAP Serial"
	case strings.HasPrefix(name, "ttys"):
		return "Standard Serial"
	default:
		return "Serial Port"
	}
}
