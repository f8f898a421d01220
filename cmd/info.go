/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/allbin/go-serialport"
)

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:   "info <port>",
	Short: "Display detailed information about a serial port",
	Long: `Display detailed information about a serial port including USB metadata.

Examples:
  serialport info /dev/ttyUSB0
  serialport info /dev/ttyACM0

For USB devices, this displays vendor/product IDs, serial numbers, the
manufacturer, the USB location and the persistent by-id name.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		portPath := args[0]

		ports, err := serialport.ListContext(context.Background(), newBinding(portPath))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error getting port info: %v\n", err)
			os.Exit(1)
		}

		info, ok := findPort(ports, portPath)
		if !ok {
			fmt.Fprintf(os.Stderr, "Error getting port info: %s: %v\n", portPath, serialport.ErrPortMissing)
			os.Exit(1)
		}

		fmt.Printf("Port Information: %s\n\n", info.Path)
		fmt.Printf("  Name:        %s\n", filepath.Base(info.Path))
		fmt.Printf("  Description: %s\n", serialport.Description(info))
		if info.LocationID != "" {
			fmt.Printf("  Location:    %s\n", info.LocationID)
		}
		if info.PnpID != "" {
			fmt.Printf("  PnP ID:      %s\n", info.PnpID)
		}

		// USB Device Information
		if info.VendorID != "" || info.ProductID != "" {
			fmt.Println("\nUSB Device Information:")
			if info.VendorID != "" {
				fmt.Printf("  Vendor ID:    %s\n", info.VendorID)
			}
			if info.ProductID != "" {
				fmt.Printf("  Product ID:   %s\n", info.ProductID)
			}
		}
		if info.SerialNumber != "" {
			fmt.Printf("  Serial:       %s\n", info.SerialNumber)
		}
		if info.Manufacturer != "" {
			fmt.Printf("  Manufacturer: %s\n", info.Manufacturer)
		}
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

// findPort looks up path in ports, also accepting a bare device name.
func findPort(ports []serialport.PortInfo, path string) (serialport.PortInfo, bool) {
	for _, info := range ports {
		if info.Path == path || filepath.Base(info.Path) == path {
			return info, true
		}
	}
	return serialport.PortInfo{}, false
}
