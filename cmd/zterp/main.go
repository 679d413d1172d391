// Command zterp is the terminal front-end for the Z-machine core: it
// loads a story file, wires it to a Bubble Tea UI for interactive
// play, and offers a handful of non-interactive dump flags for
// inspecting a story without running it.
package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jrnilsson/infocore/zheader"
	"github.com/jrnilsson/infocore/zmachine"
	"github.com/spf13/cobra"
)

var (
	dumpHeaderFlag     bool
	dumpObjectsFlag    bool
	dumpDictionaryFlag bool
	traceFlag          bool
)

var rootCmd = &cobra.Command{
	Use:   "zterp <story-file>",
	Short: "Run an Infocom-era Z-machine story file",
	Long: `zterp - a terminal Z-machine interpreter

Loads a version 3, 4, 5 or 8 story file and runs it to completion,
mediating character I/O through an interactive terminal UI.

EXIT CODES:
  0  the story quit normally
  1  the story file couldn't be loaded, or a fatal runtime error occurred`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(args[0])
	},
}

func init() {
	rootCmd.Flags().BoolVar(&dumpHeaderFlag, "dump-header", false, "print the story's header fields and exit")
	rootCmd.Flags().BoolVar(&dumpObjectsFlag, "dump-objects", false, "print the story's object tree and exit")
	rootCmd.Flags().BoolVar(&dumpDictionaryFlag, "dump-dictionary", false, "print the story's dictionary and exit")
	rootCmd.Flags().BoolVar(&traceFlag, "trace", false, "log every decoded instruction and room transition to <story>.trace")
}

func run(romPath string) error {
	romBytes, err := os.ReadFile(romPath)
	if err != nil {
		return fmt.Errorf("zterp: %w", err)
	}

	m, err := zmachine.New(romBytes, zheader.DefaultCapabilities())
	if err != nil {
		return fmt.Errorf("zterp: %w", err)
	}

	if dumpHeaderFlag || dumpObjectsFlag || dumpDictionaryFlag {
		return runDumps(m)
	}

	var traceOut = os.Stderr
	if traceFlag {
		m.EnableInstructionLogs(true)
		f, err := os.Create(romPath + ".trace")
		if err != nil {
			return fmt.Errorf("zterp: %w", err)
		}
		defer f.Close()
		return runInteractive(m, romPath, f)
	}

	return runInteractive(m, romPath, traceOut)
}

func runDumps(m *zmachine.Machine) error {
	if dumpHeaderFlag {
		fmt.Print(dumpHeader(m))
	}
	if dumpObjectsFlag {
		maxObjects := 255
		if m.Version() >= 4 {
			maxObjects = 10000
		}
		fmt.Print(dumpObjects(m, maxObjects))
	}
	if dumpDictionaryFlag {
		fmt.Print(dumpDictionary(m))
	}
	return nil
}

func runInteractive(m *zmachine.Machine, romPath string, traceOut *os.File) error {
	model := newTerpModel(m, romPath, traceOut)
	program := tea.NewProgram(model)
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("zterp: %w", err)
	}
	if m.State() != zmachine.Halted {
		return fmt.Errorf("zterp: interrupted before the story quit")
	}
	if rerr := m.RuntimeError(); rerr != nil {
		return fmt.Errorf("zterp: %w", rerr)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
