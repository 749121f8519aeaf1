// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package completion

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tombee/sluice/internal/engine"
)

const (
	maxTransformationFiles = 100
	maxSearchDepth         = 2
)

// SafeCompletionWrapper runs fn and turns panics and nil results into an
// empty completion.
func SafeCompletionWrapper(fn func() ([]string, cobra.ShellCompDirective)) (results []string, directive cobra.ShellCompDirective) {
	results = []string{}
	directive = cobra.ShellCompDirectiveNoFileComp

	defer func() {
		if r := recover(); r != nil {
			results = []string{}
			directive = cobra.ShellCompDirectiveNoFileComp
		}
	}()

	results, directive = fn()
	if results == nil {
		return []string{}, cobra.ShellCompDirectiveNoFileComp
	}
	return results, directive
}

type transformationFile struct {
	path    string
	modTime int64
}

// CompleteTransformationFiles completes the transformation argument with YAML
// files up to two directories deep that declare a name and steps, newest
// first.
func CompleteTransformationFiles(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return SafeCompletionWrapper(func() ([]string, cobra.ShellCompDirective) {
		if len(args) > 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}

		files, err := discoverTransformationFiles(".", maxSearchDepth)
		if err != nil || len(files) == 0 {
			return nil, cobra.ShellCompDirectiveDefault
		}

		sort.Slice(files, func(i, j int) bool {
			return files[i].modTime > files[j].modTime
		})
		if len(files) > maxTransformationFiles {
			files = files[:maxTransformationFiles]
		}

		paths := make([]string, 0, len(files))
		for _, f := range files {
			paths = append(paths, f.path)
		}
		return paths, cobra.ShellCompDirectiveDefault
	})
}

// CompleteStepNames completes --step and --preview values with the steps of
// the transformation given as first argument.
func CompleteStepNames(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return completeSteps(args, "")
}

// CompleteBreakpointSteps completes the step part of --breakpoint values.
func CompleteBreakpointSteps(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if strings.Contains(toComplete, ":") {
		return SafeCompletionWrapper(func() ([]string, cobra.ShellCompDirective) {
			return nil, cobra.ShellCompDirectiveNoFileComp
		})
	}
	results, _ := completeSteps(args, ":")
	return results, cobra.ShellCompDirectiveNoSpace | cobra.ShellCompDirectiveNoFileComp
}

func completeSteps(args []string, suffix string) ([]string, cobra.ShellCompDirective) {
	return SafeCompletionWrapper(func() ([]string, cobra.ShellCompDirective) {
		if len(args) == 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		def, err := engine.LoadDefinition(args[0])
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}

		var names []string
		for _, step := range def.Steps {
			names = append(names, step.Name+suffix+"\t"+string(step.Type))
		}
		return names, cobra.ShellCompDirectiveNoFileComp
	})
}

// RegisterDebugFlags wires step name completion into the debug flags of cmd
// that exist.
func RegisterDebugFlags(cmd *cobra.Command) {
	cmd.ValidArgsFunction = CompleteTransformationFiles
	for _, name := range []string{"step", "preview"} {
		if cmd.Flags().Lookup(name) != nil {
			_ = cmd.RegisterFlagCompletionFunc(name, CompleteStepNames)
		}
	}
	if cmd.Flags().Lookup("breakpoint") != nil {
		_ = cmd.RegisterFlagCompletionFunc("breakpoint", CompleteBreakpointSteps)
	}
}

func discoverTransformationFiles(root string, maxDepth int) ([]transformationFile, error) {
	var files []transformationFile

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}

		relPath, _ := filepath.Rel(root, path)
		if strings.Count(relPath, string(filepath.Separator)) > maxDepth {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if d.IsDir() && strings.HasPrefix(d.Name(), ".") && path != root {
			return fs.SkipDir
		}
		if d.IsDir() || (!strings.HasSuffix(path, ".yaml") && !strings.HasSuffix(path, ".yml")) {
			return nil
		}
		if !isSafeFile(path) || !isTransformationFile(path) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		files = append(files, transformationFile{path: path, modTime: info.ModTime().Unix()})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// isSafeFile rejects symlinks.
func isSafeFile(path string) bool {
	info, err := os.Lstat(path)
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeSymlink == 0
}

// isTransformationFile reports whether path holds a YAML mapping with name
// and steps keys.
func isTransformationFile(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return false
	}
	_, hasName := doc["name"]
	_, hasSteps := doc["steps"]
	return hasName && hasSteps
}
