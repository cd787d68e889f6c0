// Package corelib embeds the source of the auto-imported core modules.
// A fresh environment is bootstrapped by compiling these with the same
// pipeline that compiles user code.
package corelib

import (
	"embed"
	"io/fs"
	"sort"
)

//go:embed src/*.elm
var sources embed.FS

// ModuleSources returns the embedded core module sources by file name,
// in sorted order.
func ModuleSources() ([]string, error) {
	entries, err := fs.ReadDir(sources, "src")
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, name := range names {
		data, err := fs.ReadFile(sources, "src/"+name)
		if err != nil {
			return nil, err
		}
		out = append(out, string(data))
	}
	return out, nil
}
