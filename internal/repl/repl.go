// Package repl implements the interactive loop over a persistent
// environment value: every submission either extends the environment or
// evaluates an expression against it.
package repl

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/peterh/liner"

	"github.com/conifer-lang/conifer/internal/pine"
	"github.com/conifer-lang/conifer/internal/pipeline"
)

// Color functions for pretty output
var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
	dim    = color.New(color.Faint).SprintFunc()
)

// REPL holds the session state.
type REPL struct {
	env       pine.Value
	history   []string
	sessionID string
	version   string
}

// New creates a REPL with a freshly bootstrapped environment.
func New(version string) (*REPL, error) {
	env, err := pipeline.NewEnvironment()
	if err != nil {
		return nil, err
	}
	if version == "" {
		version = "dev"
	}
	return &REPL{
		env:       env,
		sessionID: uuid.NewString(),
		version:   version,
	}, nil
}

// historyFile names this session's liner history file.
func (r *REPL) historyFile() string {
	return filepath.Join(os.TempDir(), ".conifer_history_"+r.sessionID)
}

// Start runs the loop until :quit or end of input.
func (r *REPL) Start(out io.Writer) {
	line := liner.NewLiner()
	defer line.Close()
	line.SetMultiLineMode(true)

	if f, err := os.Open(r.historyFile()); err == nil {
		_, _ = line.ReadHistory(f)
		f.Close()
	}

	line.SetCompleter(func(input string) (c []string) {
		if strings.HasPrefix(input, ":") {
			for _, cmd := range []string{":help", ":quit", ":reset", ":modules", ":history"} {
				if strings.HasPrefix(cmd, input) {
					c = append(c, cmd)
				}
			}
		}
		return
	})

	fmt.Fprintf(out, "%s %s\n", bold("Conifer"), bold(r.version))
	fmt.Fprintln(out, dim("Type :help for help, :quit to exit"))
	fmt.Fprintln(out)

	for {
		input, err := line.Prompt("> ")
		if err == io.EOF {
			fmt.Fprintln(out, green("\nGoodbye!"))
			break
		}
		if err != nil {
			fmt.Fprintf(out, "%s: %v\n", red("Error"), err)
			continue
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		line.AppendHistory(input)
		r.history = append(r.history, input)

		if strings.HasPrefix(input, ":") {
			if input == ":quit" || input == ":q" {
				fmt.Fprintln(out, green("Goodbye!"))
				break
			}
			r.handleCommand(input, out)
			continue
		}

		r.processSubmission(input, out)
	}

	if f, err := os.Create(r.historyFile()); err == nil {
		_, _ = line.WriteHistory(f)
		f.Close()
	}
}

// processSubmission compiles and evaluates one submission, keeping the
// environment on failure.
func (r *REPL) processSubmission(input string, out io.Writer) {
	env, response, err := pipeline.EvaluateSubmission(r.env, input)
	if err != nil {
		fmt.Fprintf(out, "%s: %v\n", red("Error"), err)
		return
	}
	r.env = env
	fmt.Fprintln(out, pipeline.DisplayText(response))
}

func (r *REPL) handleCommand(input string, out io.Writer) {
	switch input {
	case ":help":
		fmt.Fprintln(out, "Commands:")
		fmt.Fprintln(out, "  :help      show this help")
		fmt.Fprintln(out, "  :modules   list compiled modules and declarations")
		fmt.Fprintln(out, "  :history   show this session's submissions")
		fmt.Fprintln(out, "  :reset     rebuild a fresh environment")
		fmt.Fprintln(out, "  :quit      exit")

	case ":modules":
		modules, others, err := pipeline.DescribeEnvironment(r.env)
		if err != nil {
			fmt.Fprintf(out, "%s: %v\n", red("Error"), err)
			return
		}
		for _, name := range modules {
			fmt.Fprintln(out, cyan(name))
		}
		for _, name := range others {
			fmt.Fprintln(out, name)
		}

	case ":history":
		for i, entry := range r.history {
			fmt.Fprintf(out, "%3d  %s\n", i+1, entry)
		}

	case ":reset":
		env, err := pipeline.NewEnvironment()
		if err != nil {
			fmt.Fprintf(out, "%s: %v\n", red("Error"), err)
			return
		}
		r.env = env
		fmt.Fprintln(out, green("Environment reset"))

	default:
		fmt.Fprintf(out, "%s: unknown command %q\n", red("Error"), input)
	}
}
