package main

import (
	"fmt"
	"os"
	"path/filepath"

	"tshot-runtime/internal/config"
	"tshot-runtime/internal/lang"
	"tshot-runtime/internal/observability"
	"tshot-runtime/internal/validate"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"
)

var (
	flagBackend       string
	flagShowGenerated bool
)

func main() {
	var rootCmd = &cobra.Command{
		Use:     "tshot",
		Short:   "Hot-code-reloading runtime for annotated TypeScript programs",
		Long:    "Compile a restricted TypeScript program to a native binary whose @hotreload methods can be edited and swapped live while the rest of the execution state persists.",
		Version: version,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return runFile(cmd, args)
		},
	}
	rootCmd.Flags().StringVar(&flagBackend, "backend", "", "execution backend: native or interp")
	rootCmd.Flags().BoolVar(&flagShowGenerated, "show-generated", false, "print the generated C++ main unit to stderr before execution")

	var runCmd = &cobra.Command{
		Use:   "run [file]",
		Short: "Build, launch, and live-patch a program",
		Long:  "Compile the program with the native toolchain, launch it, and watch the source file; edits to @hotreload method bodies are recompiled and swapped into the running process.",
		Args:  cobra.ExactArgs(1),
		RunE:  runFile,
	}
	runCmd.Flags().StringVar(&flagBackend, "backend", "", "execution backend: native or interp")
	runCmd.Flags().BoolVar(&flagShowGenerated, "show-generated", false, "print the generated C++ main unit to stderr before execution")

	var checkCmd = &cobra.Command{
		Use:   "check [file]",
		Short: "Validate a program without building it",
		Args:  cobra.ExactArgs(1),
		RunE:  checkFile,
	}

	var versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("tshot version %s\n", version)
		},
	}

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadOptions resolves options for a source file: defaults, then an optional
// tshot.json near the source, then the command-line flags.
func loadOptions(srcPath string) (*config.Options, error) {
	opts := config.GetDefaultOptions()
	if configPath, err := config.FindConfig(filepath.Dir(srcPath)); err == nil {
		opts, err = config.LoadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	if flagBackend != "" {
		opts.Backend = config.Backend(flagBackend)
	}
	if flagShowGenerated {
		opts.ShowGenerated = true
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

func runFile(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	srcPath, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}

	log := observability.NewLogger(observability.LogLevelInfo)
	opts, err := loadOptions(srcPath)
	if err != nil {
		log.Fatal("%v", err)
	}

	driver := NewDriver(opts, log)
	code, err := driver.Run(srcPath)
	if err != nil {
		log.Fatal("%v", err)
	}
	if code != 0 {
		os.Exit(code)
	}
	return nil
}

func checkFile(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	srcPath, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", srcPath, err)
	}

	log := observability.NewLogger(observability.LogLevelInfo)
	prog, err := lang.Parse(string(data))
	if err != nil {
		log.Fatal("%s: %v", srcPath, err)
	}
	if _, err := validate.Check(prog); err != nil {
		log.Fatal("%s: %v", srcPath, err)
	}
	fmt.Printf("%s: ok\n", srcPath)
	return nil
}
