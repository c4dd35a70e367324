package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/birchlake/pcodebind/arch"
	"github.com/birchlake/pcodebind/engine"
	_ "github.com/birchlake/pcodebind/engine/x86"
	"github.com/birchlake/pcodebind/logging"
)

var (
	specPath string
	langID   string

	logger = logging.New("pcodebind")
)

var rootCmd = &cobra.Command{
	Use:           "pcodebind",
	Short:         "Decode machine code to pcode",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&specPath, "spec", "",
		"path to an architecture description file")
	rootCmd.PersistentFlags().StringVar(&langID, "lang", "",
		fmt.Sprintf("built-in language identifier (one of %v)", arch.Languages()))

	rootCmd.AddCommand(disCmd)
	rootCmd.AddCommand(spacesCmd)
	rootCmd.AddCommand(regsCmd)
}

// Execute runs the root command.
func Execute() {
	_ = godotenv.Load()

	err := rootCmd.Execute()
	if err != nil {
		logger.Error("command failed", "err", err)
	}
	_ = logger.Close()
	if err != nil {
		os.Exit(1)
	}
}

// newEngine builds an engine from --spec or --lang, preferring --spec.
// fallback supplies a language identifier when neither flag is set.
func newEngine(fallback string) (*engine.Engine, error) {
	switch {
	case specPath != "":
		return engine.New(specPath)
	case langID != "":
		return engine.NewLanguage(langID)
	case fallback != "":
		return engine.NewLanguage(fallback)
	default:
		return nil, fmt.Errorf("one of --spec or --lang is required")
	}
}

// parseAddr accepts decimal, hex (0x), and octal (0) address forms.
func parseAddr(s string) (uint64, error) {
	addr, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", s, err)
	}
	return addr, nil
}
