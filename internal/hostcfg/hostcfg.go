// Package hostcfg loads the host's HCL configuration file: where the module
// directory lives, how to log, and which sample invocations the driver
// should exercise once the registry is built.
package hostcfg

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/vk/modgate/internal/ctxlog"
)

// Invocation is one configured driver call: a module name and the raw body
// to submit to its invoker.
type Invocation struct {
	Module  string
	RawBody any
}

// Model is the decoded host configuration.
type Model struct {
	ModulesPath string
	LogLevel    string
	LogFormat   string
	Invocations []Invocation
}

// fileConfig mirrors the HCL file layout.
type fileConfig struct {
	ModulesPath string             `hcl:"modules_path,optional"`
	LogLevel    string             `hcl:"log_level,optional"`
	LogFormat   string             `hcl:"log_format,optional"`
	Invocations []*invocationBlock `hcl:"invoke,block"`
}

type invocationBlock struct {
	Module  string         `hcl:"module,label"`
	RawBody hcl.Expression `hcl:"raw_body,optional"`
}

// Load parses and decodes the configuration file at path. Invocation bodies
// are literal expressions evaluated up front into native Go values.
func Load(ctx context.Context, path string) (*Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading host configuration.", "path", path)

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, diags)
	}

	var raw fileConfig
	if diags := gohcl.DecodeBody(file.Body, nil, &raw); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode config file %s: %w", path, diags)
	}

	model := &Model{
		ModulesPath: raw.ModulesPath,
		LogLevel:    raw.LogLevel,
		LogFormat:   raw.LogFormat,
	}
	for _, block := range raw.Invocations {
		rawBody, err := evalRawBody(block.RawBody)
		if err != nil {
			return nil, fmt.Errorf("invalid raw_body for invoke %q: %w", block.Module, err)
		}
		model.Invocations = append(model.Invocations, Invocation{
			Module:  block.Module,
			RawBody: rawBody,
		})
	}

	logger.Debug("Host configuration loaded.", "invocations", len(model.Invocations))
	return model, nil
}

// evalRawBody evaluates a raw_body expression in a literal-only context and
// converts the result to its native Go form.
func evalRawBody(expr hcl.Expression) (any, error) {
	if expr == nil {
		return nil, nil
	}
	value, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, diags
	}
	return ctyToNative(value)
}
