// Package registry builds the per-directory mapping from module name to
// compiled invoker.
//
// Build drives the whole pipeline: a recursive walk discovers every module
// source file, and each one independently goes through extraction, sandboxed
// recompilation, and invoker wrapping. A module that fails anywhere along
// the way still gets a registry entry, just with an absent invoker, so one
// bad module never aborts the scan. The registry is constructed once and is
// read-only afterwards.
package registry
