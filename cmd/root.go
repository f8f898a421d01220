/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/allbin/go-serialport"
	"github.com/allbin/go-serialport/binding/mock"
	"github.com/allbin/go-serialport/binding/native"
	"github.com/allbin/go-serialport/logger"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "serialport",
	Short: "Inspect and talk to serial ports",
	Long: `serialport lists serial devices, reads and writes data and drives modem
control lines through the go-serialport controller.

Port settings apply to every command and can also be set in
$HOME/.serialport.yaml or through SERIALPORT_* environment variables:

  serialport listen /dev/ttyUSB0 --baud 9600 --parity even
  SERIALPORT_BAUD=57600 serialport send "AT" /dev/ttyACM0 -n

Use --mock to run any command against an in-memory device that echoes
everything written to it.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.serialport.yaml)")
	flags.Bool("mock", false, "Use an in-memory echoing device instead of real hardware")
	flags.IntP("baud", "b", 115200, "Baud rate")
	flags.Int("data-bits", 8, "Data bits: 5, 6, 7 or 8")
	flags.String("stop-bits", "1", "Stop bits: 1, 1.5 or 2")
	flags.String("parity", "none", "Parity: none, even, odd, mark or space")
	flags.Bool("no-lock", false, "Allow other handles to open the device at the same time")
	flags.String("log-level", "warn", "Log level: debug, info, warn or error")

	for _, name := range []string{"mock", "baud", "data-bits", "stop-bits", "parity", "no-lock", "log-level"} {
		cobra.CheckErr(viper.BindPFlag(name, flags.Lookup(name)))
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".serialport")
	}

	viper.SetEnvPrefix("SERIALPORT")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		newLogger().Debug("using config file", "file", viper.ConfigFileUsed())
	}
}

// newLogger builds the stderr logger for the configured --log-level.
func newLogger() logger.Logger {
	level, ok := logger.ParseLevel(viper.GetString("log-level"))
	if !ok {
		level = logger.WarnLevel
	}
	return logger.NewSlogWriter(os.Stderr, level, false)
}

// mockDevice is registered by --mock when a command names no port.
const mockDevice = "/dev/ttyMOCK0"

// newBinding returns the backend commands talk to. Under --mock path is
// registered on a fresh mock binding as an echoing device.
func newBinding(path string) serialport.Binding {
	if !viper.GetBool("mock") {
		return native.New()
	}

	if path == "" {
		path = mockDevice
	}
	b := mock.New()
	b.CreatePort(path, mock.CreatePortOptions{
		Echo:         true,
		Record:       true,
		Manufacturer: "go-serialport",
		SerialNumber: "MOCK0001",
	})
	return b
}

// portOptions translates the global port flags into controller options.
func portOptions() ([]serialport.Option, error) {
	stopBits, err := serialport.ParseStopBits(viper.GetString("stop-bits"))
	if err != nil {
		return nil, err
	}
	parity, err := serialport.ParseParity(viper.GetString("parity"))
	if err != nil {
		return nil, err
	}

	return []serialport.Option{
		serialport.WithBaudRate(viper.GetInt("baud")),
		serialport.WithDataBits(viper.GetInt("data-bits")),
		serialport.WithStopBits(stopBits),
		serialport.WithParity(parity),
		serialport.WithLock(!viper.GetBool("no-lock")),
		serialport.WithAutoOpen(false),
		serialport.WithLogger(newLogger()),
	}, nil
}

// newPort creates an unopened controller for path with the global settings
// plus extra.
func newPort(path string, extra ...serialport.Option) (*serialport.Port, error) {
	opts, err := portOptions()
	if err != nil {
		return nil, err
	}
	return serialport.New(newBinding(path), path, append(opts, extra...)...)
}

// openPort creates a controller for path and opens it.
func openPort(ctx context.Context, path string) (*serialport.Port, error) {
	port, err := newPort(path)
	if err != nil {
		return nil, err
	}
	if err := port.OpenContext(ctx); err != nil {
		return nil, err
	}
	return port, nil
}

// closePort closes port and reports a failure on stderr.
func closePort(port *serialport.Port) {
	err := port.CloseContext(context.Background())
	if err != nil && !errors.Is(err, serialport.ErrPortNotOpen) && !serialport.IsClosedError(err) {
		fmt.Fprintf(os.Stderr, "Warning: closing %s: %v\n", port.Path(), err)
	}
}
