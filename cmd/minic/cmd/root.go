// Package cmd implements the minic command-line interface.
package cmd

import (
	"fmt"
	"os"

	"github.com/rdkc4/minic/internal/compiler"
	"github.com/rdkc4/minic/internal/frontend"
	"github.com/spf13/cobra"
)

var (
	outputFile  string
	threads     int
	verbose     bool
	tokenStream bool
)

var rootCmd = &cobra.Command{
	Use:   "minic [file]",
	Short: "Compile a C-like source file to x86-64 assembly",
	Long: `minic compiles a small C-like procedural language to GNU-assembler
x86-64 Linux assembly (AT&T syntax).

The produced file is suitable for "as" and "ld"; the process exit code
of the resulting binary is main's return value.

Examples:
  # Compile a program
  minic program.c -o program.s

  # Dump the token stream instead of compiling
  minic program.c --tokens

  # Dump the analyzed AST and the optimized IR while compiling
  minic program.c -o program.s -v`,
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runCompile,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.Flags().StringVarP(&outputFile, "output", "o", "out.s", "output assembly file")
	rootCmd.Flags().IntVarP(&threads, "threads", "t", 0, "worker count for parallel passes (0 = number of CPUs)")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "dump the analyzed AST and optimized IR")
	rootCmd.Flags().BoolVar(&tokenStream, "tokens", false, "dump the token stream and exit")
}

func runCompile(_ *cobra.Command, args []string) error {
	content, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", args[0], err)
	}
	src := string(content)

	if tokenStream {
		ts, err := frontend.TokenStream(src)
		if err != nil {
			return err
		}
		fmt.Print(ts)
		return nil
	}

	code := compiler.Compile(src, outputFile, compiler.Options{
		Workers: threads,
		Verbose: verbose,
	})
	if code != compiler.NoError {
		os.Exit(int(code))
	}
	return nil
}
