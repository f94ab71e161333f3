// SPDX-License-Identifier: MIT
package cmd

import (
	"biotune/internal/config"
	"biotune/pkg/build"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// One-off commands that do not start the pipeline.
const (
	CommandList    = "list"
	CommandCatalog = "catalog"
)

// Options holds what the command line asked for. Flag values only override the
// loaded configuration when the flag was actually given.
type Options struct {
	Run        bool   // Start the pipeline.
	Command    string // One-off command, see CommandList and CommandCatalog.
	ConfigPath string
	Port       string
	Baud       int
	Record     bool
	OutputDir  string
	Verbose    bool

	changed map[string]bool
}

// ParseArgs parses args (without the program name).
func ParseArgs(args []string) (*Options, error) {
	options := &Options{changed: make(map[string]bool)}
	rootCmd := newRootCommand(options)

	// Execute the CLI
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}

	rootCmd.PersistentFlags().VisitAll(func(f *pflag.Flag) {
		if f.Changed {
			options.changed[f.Name] = true
		}
	})

	return options, nil
}

func newRootCommand(options *Options) *cobra.Command {
	buildInfo := build.GetBuildFlags()

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			options.Run = true
			return nil
		},
	}

	rootCmd.SetVersionTemplate(buildInfo.String() + "\n")

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	// List command
	listCmd := &cobra.Command{
		Use:   CommandList,
		Short: "List serial devices that look like the sensor controller",
		Run: func(cmd *cobra.Command, args []string) {
			options.Command = CommandList
		},
	}
	rootCmd.AddCommand(listCmd)

	// Catalog command
	catalogCmd := &cobra.Command{
		Use:   CommandCatalog,
		Short: "Print the song catalog",
		Run: func(cmd *cobra.Command, args []string) {
			options.Command = CommandCatalog
		},
	}
	rootCmd.AddCommand(catalogCmd)

	flags := rootCmd.PersistentFlags()

	flags.StringVar(&options.ConfigPath, "config", "",
		"Path to a YAML config file. Defaults to ./config.yaml when present.")

	// Serial Configuration
	flags.StringVarP(&options.Port, "port", "p", config.DefaultSerialPort,
		"Serial device of the sensor controller. Empty auto-detects; use 'list' to see candidates.")
	flags.IntVarP(&options.Baud, "baud", "b", config.DefaultBaudRate,
		"Serial line speed")

	// Recording Configuration
	flags.BoolVarP(&options.Record, "record", "r", false,
		"Record the raw sample stream to a WAV file")
	flags.StringVarP(&options.OutputDir, "output", "o", config.DefaultRecordingDir,
		"Directory for recordings. Files are named session-DD-MM-YYYY-HHMMSS.wav")

	// Debug Configuration
	flags.BoolVarP(&options.Verbose, "verbose", "v", false,
		"Show verbose output")

	return rootCmd
}

// Apply copies the flags that were given onto cfg.
func (o *Options) Apply(cfg *config.Config) {
	if o.changed["port"] {
		cfg.Serial.Port = o.Port
	}
	if o.changed["baud"] {
		cfg.Serial.BaudRate = o.Baud
	}
	if o.changed["record"] {
		cfg.Recording.Enabled = o.Record
	}
	if o.changed["output"] {
		cfg.Recording.OutputDir = o.OutputDir
	}
	if o.Verbose {
		cfg.Debug = true
		cfg.LogLevel = "debug"
	}
}
