package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/conifer-lang/conifer/internal/repl"
)

var (
	// Version info - set by ldflags during build
	Version = "dev"

	// Color output
	green = color.New(color.FgGreen).SprintFunc()
	red   = color.New(color.FgRed).SprintFunc()
	cyan  = color.New(color.FgCyan).SprintFunc()
)

func main() {
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		color.NoColor = true
	}

	versionFlag := flag.Bool("version", false, "Print version information")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("conifer %s\n", Version)
		return
	}

	if flag.NArg() == 0 {
		printHelp()
		return
	}

	switch flag.Arg(0) {
	case "repl":
		runREPL()

	case "make":
		dir := "."
		if flag.NArg() >= 2 {
			dir = flag.Arg(1)
		}
		if err := runMake(dir); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", red("Error"), err)
			os.Exit(1)
		}

	case "eval":
		if flag.NArg() < 2 {
			fmt.Fprintf(os.Stderr, "%s: missing expression\n", red("Error"))
			fmt.Println("Usage: conifer eval <expression>")
			os.Exit(1)
		}
		if err := runEval(flag.Arg(1)); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", red("Error"), err)
			os.Exit(1)
		}

	case "watch":
		dir := "."
		if flag.NArg() >= 2 {
			dir = flag.Arg(1)
		}
		if err := runWatch(dir); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", red("Error"), err)
			os.Exit(1)
		}

	default:
		fmt.Fprintf(os.Stderr, "%s: unknown command %q\n", red("Error"), flag.Arg(0))
		printHelp()
		os.Exit(1)
	}
}

func runREPL() {
	r, err := repl.New(Version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", red("Error"), err)
		os.Exit(1)
	}
	r.Start(os.Stdout)
}

func printHelp() {
	fmt.Println("conifer - an educational compiler for an Elm-family language")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  conifer repl              start an interactive session")
	fmt.Println("  conifer make [dir]        compile a project into an environment value")
	fmt.Println("  conifer eval <expr>       evaluate one expression")
	fmt.Println("  conifer watch [dir]       recompile on every source change")
	fmt.Println("  conifer --version         print version information")
}
