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

package shared

import (
	"fmt"
	"os"
	"path/filepath"
)

// ResolveTransformationPath resolves a transformation argument to a file.
// Resolution order:
//  1. arg as an existing file
//  2. arg as a directory holding transformation.yaml
//  3. arg.yaml, then arg.yml
func ResolveTransformationPath(arg string) (string, error) {
	info, err := os.Stat(arg)
	if err == nil {
		if !info.IsDir() {
			return arg, nil
		}
		inDir := filepath.Join(arg, "transformation.yaml")
		if _, err := os.Stat(inDir); err == nil {
			return inDir, nil
		}
		return "", fmt.Errorf("directory %q exists but does not contain transformation.yaml", arg)
	}

	tried := []string{arg}
	for _, ext := range []string{".yaml", ".yml"} {
		candidate := arg + ext
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		tried = append(tried, candidate)
	}
	return "", fmt.Errorf("transformation not found: tried %q", tried)
}
