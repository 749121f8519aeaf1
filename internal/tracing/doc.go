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

/*
Package tracing sets up OpenTelemetry tracing for sluice.

Spans are written to a console exporter, which is enough to follow
breakpoint hits while developing a transformation:

	provider, err := tracing.NewProvider(tracing.Config{
	    ServiceName: "sluice",
	    Writer:      os.Stderr,
	})
	if err != nil {
	    return err
	}
	defer provider.Shutdown(ctx)

	td := debug.New(trans, debug.WithTracer(provider.Tracer("debug")))
*/
package tracing
