package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/conifer-lang/conifer/internal/parser"
	"github.com/conifer-lang/conifer/internal/pine"
	"github.com/conifer-lang/conifer/internal/pipeline"
	"github.com/conifer-lang/conifer/internal/project"
	"github.com/conifer-lang/conifer/internal/syntax"
)

// runMake compiles a project directory into an environment value.
func runMake(dir string) error {
	result, cfg, err := compileProject(dir)
	if err != nil {
		return err
	}
	for _, added := range result.Added {
		fmt.Printf("%s %s\n", green("Compiled"), cyan(added.Name))
	}
	if cfg.Output == "" {
		return nil
	}
	out, err := os.Create(filepath.Join(dir, cfg.Output))
	if err != nil {
		return err
	}
	defer out.Close()
	if err := pine.WriteValue(out, result.Env); err != nil {
		return err
	}
	fmt.Printf("%s environment to %s\n", green("Wrote"), cfg.Output)
	return nil
}

func compileProject(dir string) (*pipeline.ExpandResult, *project.Config, error) {
	cfg, err := project.Load(dir)
	if err != nil {
		return nil, nil, err
	}
	paths, err := cfg.SourceFiles(dir)
	if err != nil {
		return nil, nil, err
	}
	var files []*syntax.File
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, err
		}
		file, err := parser.ParseFile(string(data))
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", path, err)
		}
		files = append(files, file)
	}

	env := pine.EmptyEvalContext()
	if cfg.WithCore() {
		env, err = pipeline.NewEnvironment()
		if err != nil {
			return nil, nil, err
		}
	}
	result, err := pipeline.ExpandEnvironmentWithModules(env, files)
	if err != nil {
		return nil, nil, err
	}
	return result, cfg, nil
}

// runEval bootstraps a fresh environment and evaluates one expression.
func runEval(expression string) error {
	env, err := pipeline.NewEnvironment()
	if err != nil {
		return err
	}
	display, err := pipeline.SubmissionEvaluation(env, nil, expression)
	if err != nil {
		return err
	}
	fmt.Println(display)
	return nil
}

// runWatch recompiles the project on every change to a source file.
func runWatch(dir string) error {
	cfg, err := project.Load(dir)
	if err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	for _, sourceDir := range cfg.SourceDirectories {
		if err := watcher.Add(filepath.Join(dir, sourceDir)); err != nil {
			return err
		}
	}

	compile := func() {
		start := time.Now()
		if _, _, err := compileProject(dir); err != nil {
			fmt.Printf("%s: %v\n", red("Error"), err)
			return
		}
		fmt.Printf("%s in %s\n", green("Compiled"), time.Since(start).Round(time.Millisecond))
	}
	compile()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(event.Name, ".elm") {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) {
				compile()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Printf("%s: %v\n", red("Error"), err)
		}
	}
}
