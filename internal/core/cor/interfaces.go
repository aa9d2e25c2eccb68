// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cor is a small Chain of Responsibility framework. Every workflow in
// the studio (generation, frame analysis, uploads) is a Chain of Commands that
// share a single Context. A command reads its input from the context, does one
// thing, and writes its output back; the chain pipes CtxOut of one command into
// CtxIn of the next and stops at the first recorded error unless told otherwise.
package cor

import (
	"context"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	// CtxIn is the default input key. The chain fills it with the previous
	// command's CtxOut value.
	CtxIn = "__IN__"
	// CtxOut is the default output key.
	CtxOut = "__OUT__"
)

// Context is the state shared by all commands of one workflow execution.
type Context interface {
	// SetContext replaces the Go context carried for cancellation and tracing.
	SetContext(ctx context.Context)

	// GetContext returns the carried Go context.
	GetContext() context.Context

	// Add stores a value under key and returns the Context for chaining.
	Add(key string, value any) Context

	// Get returns the value stored under key, or nil.
	Get(key string) any

	// Remove deletes key.
	Remove(key string)

	// AddError records err against the name of the command that produced it.
	AddError(key string, err error)

	// GetErrors returns every recorded error keyed by command name.
	GetErrors() map[string]error

	// HasErrors reports whether any command recorded an error.
	HasErrors() bool

	// Err joins all recorded errors in command order, or returns nil.
	Err() error

	// AddTempFile registers a file for removal on Close.
	AddTempFile(file string)

	// GetTempFiles lists the registered temporary files.
	GetTempFiles() []string

	// Close removes registered temporary files. Workflows defer it.
	Close()
}

// Executable is anything that can run against a Context.
type Executable interface {
	Execute(context Context)
}

// Command is a named, instrumented unit of work in a Chain.
type Command interface {
	Executable

	GetName() string

	// GetInputParam is the context key the command reads its input from.
	GetInputParam() string

	// GetOutputParam is the context key the command writes its output to.
	GetOutputParam() string

	// IsExecutable is checked by the chain before Execute.
	IsExecutable(context Context) bool

	GetTracer() trace.Tracer
	GetMeter() metric.Meter
	GetSuccessCounter() metric.Int64Counter
	GetErrorCounter() metric.Int64Counter
}

// Chain is a Command that runs an ordered list of Commands.
type Chain interface {
	Command

	// ContinueOnFailure keeps the chain running after a command records an error.
	ContinueOnFailure(bool) Chain

	// AddCommand appends a command to the sequence.
	AddCommand(command Command) Chain
}
