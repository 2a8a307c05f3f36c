// Package extract pulls the two conventional top-level bindings out of a
// handler module's source text: the `body` schema expression and the
// `handler` block. It is a line-prefix scanner, not a Lua parser; modules
// that stray from the convention produce undefined fragments.
package extract
