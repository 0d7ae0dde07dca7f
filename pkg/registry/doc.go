// Package registry provides a generic, thread-safe name to item registry.
// harnesssync keeps its target definitions and the adapters bound to them
// in registries so lookups and listings are ordered and race free.
package registry
