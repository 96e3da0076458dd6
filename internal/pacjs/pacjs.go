// Package pacjs holds the JavaScript side of PAC evaluation: the support
// library loaded ahead of every client script, syntax checking, and helpers
// for pulling line numbers out of engine diagnostics.
package pacjs

import (
	_ "embed"
	"regexp"
	"strconv"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

// Library is the PAC helper library (dnsDomainIs, isInNet, shExpMatch, ...).
//
//go:embed routines.js
var Library string

// Origins used when compiling, so diagnostics name the failing script.
const (
	LibraryOrigin = "pacrunner.js"
	ScriptOrigin  = "proxy.pac"
)

// SyntaxError is a parse failure found by Check.
type SyntaxError struct {
	File    string
	Line    int
	Column  int
	Message string
}

func (e *SyntaxError) Error() string {
	return e.File + ":" + strconv.Itoa(e.Line) + ":" + strconv.Itoa(e.Column) + ": " + e.Message
}

// Check parses source without running it. It returns nil or the first
// *SyntaxError.
func Check(source, file string) error {
	result := api.Transform(source, api.TransformOptions{
		Loader:     api.LoaderJS,
		Sourcefile: file,
		LogLevel:   api.LogLevelSilent,
	})
	if len(result.Errors) == 0 {
		return nil
	}
	msg := result.Errors[0]
	se := &SyntaxError{File: file, Message: msg.Text}
	if msg.Location != nil {
		se.Line = msg.Location.Line
		se.Column = msg.Location.Column
	}
	return se
}

var (
	// "proxy.pac:12:5" or "proxy.pac:12"
	locationRe = regexp.MustCompile(`:(\d+)(?::\d+)?$`)
	// first frame of a stack trace: "    at FindProxyForURL (proxy.pac:12)"
	stackRe = regexp.MustCompile(`:(\d+)(?::\d+)?\)?\s*$`)
	// a "use strict" directive, after leading comments and whitespace
	strictRe = regexp.MustCompile(`^(?:\s+|//[^\n]*(?:\n|$)|/\*[\s\S]*?\*/)*(?:'use strict'|"use strict")`)
)

// IsStrict reports whether source opens with a "use strict" directive.
func IsStrict(source string) bool {
	return strictRe.MatchString(source)
}

// LineFromLocation extracts the line from an "origin:line[:column]" location.
func LineFromLocation(loc string) int {
	m := locationRe.FindStringSubmatch(loc)
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

// LineFromStack returns the line of the first frame in a JavaScript stack
// trace that carries one.
func LineFromStack(stack string) int {
	for _, line := range strings.Split(stack, "\n") {
		if m := stackRe.FindStringSubmatch(line); m != nil {
			n, _ := strconv.Atoi(m[1])
			return n
		}
	}
	return 0
}
