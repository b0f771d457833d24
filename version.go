// Package codemod runs named source-to-source transforms over a project
// through an external engine.
package codemod

// Version is the codemod release, overridden at build time with -ldflags.
var Version = "dev"
