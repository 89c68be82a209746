package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/otkit/tempdeck/pkg/config"
	"github.com/otkit/tempdeck/pkg/tempdeck"
)

type appFlags struct {
	configPath string
	port       string
	location   string
	timeout    time.Duration
	mock       bool
	verbose    bool
}

func rootCmd() *cobra.Command {
	flags := &appFlags{}

	root := &cobra.Command{
		Use:           "tempdeckctl",
		Short:         "Control an Opentrons Tempdeck over USB serial",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "tempdeck.yaml", "configuration file path")
	pf.StringVarP(&flags.port, "port", "p", "", "serial port name (default: first tempdeck found)")
	pf.StringVarP(&flags.location, "location", "L", "", "USB physical location of the device to open")
	pf.DurationVar(&flags.timeout, "timeout", 0, "response timeout override")
	pf.BoolVar(&flags.mock, "mock", false, "drive a simulated device instead of real hardware")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "log wire traffic to stderr")

	root.AddCommand(
		listCmd(flags),
		statusCmd(flags),
		setCmd(flags),
		offCmd(flags),
		promptCmd(flags),
	)
	return root
}

func listCmd(flags *appFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List serial ports of attached tempdecks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			devices, err := tempdeck.ListConnectedDevices()
			if err != nil {
				return err
			}
			if len(devices) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "No tempdecks found")
				return nil
			}
			for _, dev := range devices {
				if dev.USBLocation != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", dev.PortName, dev.USBLocation)
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), dev.PortName)
				}
			}
			return nil
		},
	}
}

func statusCmd(flags *appFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Read back current and target temperature",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(flags)
			if err != nil {
				return err
			}
			defer sess.Close()
			return printStatus(cmd, sess)
		},
	}
}

func setCmd(flags *appFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "set TEMP",
		Short: "Activate temperature control with the given target (°C)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			temp, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("invalid temperature %q: %w", args[0], err)
			}
			sess, err := openSession(flags)
			if err != nil {
				return err
			}
			defer sess.Close()
			return setTarget(cmd, sess, temp)
		},
	}
}

func offCmd(flags *appFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "off",
		Short: "Deactivate temperature control",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(flags)
			if err != nil {
				return err
			}
			defer sess.Close()
			if err := sess.Deactivate(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Temperature control deactivated")
			return nil
		},
	}
}

func promptCmd(flags *appFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "prompt",
		Short: "Prompt for a target temperature and set it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprint(cmd.OutOrStdout(), "Enter target temperature (\"off\" to deactivate): ")
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil {
				return fmt.Errorf("reading input: %w", err)
			}
			input := strings.ToLower(strings.TrimSpace(line))

			sess, err := openSession(flags)
			if err != nil {
				return err
			}
			defer sess.Close()

			if input == "off" {
				if err := sess.Deactivate(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Temperature control deactivated")
				return nil
			}
			temp, err := strconv.ParseFloat(input, 64)
			if err != nil {
				return fmt.Errorf("invalid temperature %q: %w", input, err)
			}
			return setTarget(cmd, sess, temp)
		},
	}
}

// openSession builds a session from config file and flag overrides. Flag
// precedence: --port wins over --location, which wins over discovery.
func openSession(flags *appFlags) (*tempdeck.Session, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	if flags.port != "" {
		cfg.Serial.Port = flags.port
		cfg.Serial.USBLocation = ""
	}
	if flags.location != "" {
		cfg.Serial.USBLocation = flags.location
		if flags.port == "" {
			cfg.Serial.Port = ""
		}
	}
	if flags.timeout > 0 {
		cfg.Serial.ReadTimeout = flags.timeout
	}

	opts := []tempdeck.Option{
		tempdeck.WithReadTimeout(cfg.Serial.ReadTimeout),
		tempdeck.WithBaudRate(cfg.Serial.BaudRate),
		tempdeck.WithVIDPID(cfg.Device.VID, cfg.Device.PID),
		tempdeck.WithLogger(newLogger(flags.verbose)),
	}

	switch {
	case flags.mock:
		return tempdeck.NewSession(tempdeck.NewMock(&cfg.Mock), opts...)
	case cfg.Serial.Port != "":
		return tempdeck.FromSerialPortname(cfg.Serial.Port, opts...)
	case cfg.Serial.USBLocation != "":
		return tempdeck.FromUSBLocation(cfg.Serial.USBLocation, opts...)
	default:
		return tempdeck.OpenFirstDevice(opts...)
	}
}

func newLogger(verbose bool) zerolog.Logger {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if !verbose {
		logger = logger.Level(zerolog.WarnLevel)
	}
	return logger
}

func setTarget(cmd *cobra.Command, sess *tempdeck.Session, temp float64) error {
	if err := sess.SetTargetTemp(temp); err != nil {
		return err
	}
	target, active, err := sess.GetTargetTemp()
	if err != nil {
		return err
	}
	if !active {
		return fmt.Errorf("device reports deactivated after setting target")
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Target set to %.2f °C\n", target)
	return nil
}

func printStatus(cmd *cobra.Command, sess *tempdeck.Session) error {
	reading, err := sess.GetTemps()
	if err != nil {
		return err
	}
	target := "(deactivated)"
	if reading.Active {
		target = fmt.Sprintf("%.2f °C", reading.Target)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Device:  %s %s (fw %s)\n", sess.ModelName(), sess.SerialNo(), sess.FWVersion())
	fmt.Fprintf(cmd.OutOrStdout(), "Target:  %s\n", target)
	fmt.Fprintf(cmd.OutOrStdout(), "Current: %.2f °C\n", reading.Current)
	return nil
}
