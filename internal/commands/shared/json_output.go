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
	"encoding/json"
	"io"

	pkgerrors "github.com/tombee/sluice/pkg/errors"
)

// JSONResponse is the base envelope for all JSON output
type JSONResponse struct {
	Version string `json:"@version"`
	Command string `json:"command"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`

	// ErrorType classifies Error (validation, config, capture, ...)
	ErrorType string `json:"error_type,omitempty"`
}

// StepStats reports the rows a step wrote over all its copies
type StepStats struct {
	Step        string `json:"step"`
	Copies      int    `json:"copies"`
	RowsWritten int64  `json:"rows_written"`
}

// CapturedRows is the debug buffer of one step
type CapturedRows struct {
	Step    string           `json:"step"`
	Mode    string           `json:"mode"`
	Hits    int64            `json:"hits"`
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

// RunResponse is emitted by run, preview and debug with --json
type RunResponse struct {
	JSONResponse
	Transformation string         `json:"transformation"`
	Stopped        bool           `json:"stopped"`
	Steps          []StepStats    `json:"steps"`
	Captured       []CapturedRows `json:"captured,omitempty"`
	Query          any            `json:"query,omitempty"`
}

// EmitJSON marshals a response as indented JSON to w
func EmitJSON(w io.Writer, response any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

// NewJSONResponse builds the envelope for command
func NewJSONResponse(command string, err error) JSONResponse {
	resp := JSONResponse{
		Version: "1.0",
		Command: command,
		Success: err == nil,
	}
	if err != nil {
		resp.Error = err.Error()
		resp.ErrorType = pkgerrors.TypeOf(err)
	}
	return resp
}
