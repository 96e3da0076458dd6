package pacjs

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLibraryParses(t *testing.T) {
	require.NoError(t, Check(Library, LibraryOrigin))
	for _, fn := range []string{
		"dnsDomainIs", "dnsDomainLevels", "isInNet", "isPlainHostName",
		"isResolvable", "localHostOrDomainIs", "shExpMatch",
		"weekdayRange", "dateRange", "timeRange", "convert_addr",
	} {
		assert.Contains(t, Library, "function "+fn+"(", fn)
	}
	assert.NotContains(t, Library, "function myIpAddress")
	assert.NotContains(t, Library, "function dnsResolve")
}

func TestCheck_Valid(t *testing.T) {
	src := `function FindProxyForURL(url, host) { return "DIRECT"; }`
	assert.NoError(t, Check(src, ScriptOrigin))
}

func TestCheck_SyntaxError(t *testing.T) {
	src := "function FindProxyForURL(url, host) {\n  return \"DIRECT\"\n  if (\n}\n"
	err := Check(src, ScriptOrigin)
	require.Error(t, err)

	var se *SyntaxError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, ScriptOrigin, se.File)
	assert.Equal(t, 4, se.Line)
	assert.NotEmpty(t, se.Message)
	assert.True(t, strings.HasPrefix(err.Error(), "proxy.pac:4:"), err.Error())
}

func TestLineFromLocation(t *testing.T) {
	tests := []struct {
		loc  string
		want int
	}{
		{"proxy.pac:12:5", 12},
		{"proxy.pac:7", 7},
		{"proxy.pac", 0},
		{"", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LineFromLocation(tt.loc), tt.loc)
	}
}

func TestLineFromStack(t *testing.T) {
	stack := "Error: boom\n    at FindProxyForURL (proxy.pac:3)\n    at <eval> (<input>:1)\n"
	assert.Equal(t, 3, LineFromStack(stack))

	v8stack := "Error: boom\n    at FindProxyForURL (proxy.pac:9:11)"
	assert.Equal(t, 9, LineFromStack(v8stack))

	assert.Equal(t, 0, LineFromStack(""))
	assert.Equal(t, 0, LineFromStack("boom"))
}

func TestIsStrict(t *testing.T) {
	tests := []struct {
		src  string
		want bool
	}{
		{`"use strict"; function FindProxyForURL(u, h) {}`, true},
		{"'use strict'\nfunction FindProxyForURL(u, h) {}", true},
		{"// corp proxy\n/* v2 */\n  \"use strict\";", true},
		{`function FindProxyForURL(u, h) { "use strict"; }`, false},
		{`var mode = "use strict";`, false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsStrict(tt.src); got != tt.want {
			t.Errorf("IsStrict(%q) = %v, want %v", tt.src, got, tt.want)
		}
	}
}
