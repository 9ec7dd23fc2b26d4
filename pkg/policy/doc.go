// Package policy implements Rego-based admission control for compiled plans.
// Built-in policies guard live execution; operators can layer their own
// .rego files on top, with hot reload on file change.
package policy
