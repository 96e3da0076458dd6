//go:build v8

package v8engine

import (
	"errors"
	"testing"
	"time"

	"github.com/cryguy/pacrunner/internal/core"
	"github.com/cryguy/pacrunner/internal/pacjs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const directPAC = `function FindProxyForURL(url, host) { return "DIRECT"; }`

func testFuncs() []core.HostFunc {
	return []core.HostFunc{
		{Name: "myIpAddress", Call: func([]string) (string, error) { return "192.168.1.20", nil }},
		{Name: "dnsResolve", Call: func(args []string) (string, error) {
			if len(args) == 1 && args[0] == "intranet.example" {
				return "10.0.0.5", nil
			}
			return "", errors.New("Failed to resolve")
		}},
	}
}

func newEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := New(core.EngineConfig{})
	require.NoError(t, err)
	t.Cleanup(e.Close)
	return e
}

func TestEngine_Direct(t *testing.T) {
	e := newEngine(t)
	require.NoError(t, e.Load(pacjs.Library, directPAC, testFuncs()))

	got, err := e.Call("http://example.com/", "example.com")
	require.NoError(t, err)
	assert.Equal(t, "DIRECT", got)
}

func TestEngine_GCHiddenFromScripts(t *testing.T) {
	e := newEngine(t)
	require.NoError(t, e.Load(pacjs.Library, `function FindProxyForURL(u, h) { return typeof gc + "," + typeof myIpAddress + "," + typeof dnsResolve; }`, testFuncs()))

	got, err := e.Call("http://x/", "x")
	require.NoError(t, err)
	assert.Equal(t, "undefined,function,function", got)
}

func TestEngine_LibraryAndHostFuncs(t *testing.T) {
	e := newEngine(t)
	require.NoError(t, e.Load(pacjs.Library, `
function FindProxyForURL(url, host) {
	if (isInNet(host, "10.0.0.0", "255.0.0.0")) return "PROXY internal:3128";
	try { dnsResolve(host); } catch (e) { return "caught:" + e; }
	return "DIRECT " + myIpAddress();
}`, testFuncs()))

	got, err := e.Call("http://intranet.example/", "intranet.example")
	require.NoError(t, err)
	assert.Equal(t, "PROXY internal:3128", got)

	got, err = e.Call("http://nowhere.test/", "nowhere.test")
	require.NoError(t, err)
	assert.Equal(t, "caught:Failed to resolve", got)
}

func TestEngine_ThrowCarriesLine(t *testing.T) {
	e := newEngine(t)
	require.NoError(t, e.Load(pacjs.Library, "function FindProxyForURL(url, host) {\n  if (host === 'bad')\n    throw new Error('boom');\n  return 'DIRECT';\n}", testFuncs()))

	_, err := e.Call("http://bad/", "bad")
	var se *core.ScriptError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 3, se.Line)
	assert.Contains(t, se.Message, "boom")

	got, err := e.Call("http://good/", "good")
	require.NoError(t, err)
	assert.Equal(t, "DIRECT", got)
}

func TestEngine_NonString(t *testing.T) {
	e := newEngine(t)
	require.NoError(t, e.Load(pacjs.Library, `function FindProxyForURL(u, h) { return 42; }`, testFuncs()))
	_, err := e.Call("http://x/", "x")
	assert.ErrorIs(t, err, core.ErrNotString)
}

func TestEngine_LoadFailures(t *testing.T) {
	tests := []struct {
		name    string
		script  string
		wantErr error
		phase   core.Phase
	}{
		{name: "missing entry", script: `var x = 1;`, wantErr: core.ErrNoEntryPoint},
		{name: "not callable", script: `var FindProxyForURL = 5;`, wantErr: core.ErrEntryNotCallable},
		{name: "syntax", script: `function FindProxyForURL(`, phase: core.PhaseCompile},
		{name: "throws", script: `throw "nope";`, phase: core.PhaseRun},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(t)
			err := e.Load(pacjs.Library, tt.script, testFuncs())
			require.Error(t, err)
			assert.False(t, e.Loaded())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			var se *core.ScriptError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, core.StageScript, se.Stage)
			assert.Equal(t, tt.phase, se.Phase)
		})
	}
}

func TestEngine_Interrupt(t *testing.T) {
	e := newEngine(t)
	require.NoError(t, e.Load(pacjs.Library, `function FindProxyForURL(u, h) { for (;;) {} }`, testFuncs()))

	timer := time.AfterFunc(50*time.Millisecond, e.Interrupt)
	defer timer.Stop()
	_, err := e.Call("http://x/", "x")
	assert.ErrorIs(t, err, core.ErrTimeout)
}

func TestEngine_CollectConverges(t *testing.T) {
	e := newEngine(t)
	require.NoError(t, e.Load(pacjs.Library, `
function FindProxyForURL(url, host) {
	var junk = [];
	for (var i = 0; i < 20000; i++) junk.push({i: i, s: "x" + i});
	return "DIRECT";
}`, testFuncs()))
	for i := 0; i < 20; i++ {
		_, err := e.Call("http://x/", "x")
		require.NoError(t, err)
	}

	steps := 0
	for e.Collect() {
		steps++
		require.Less(t, steps, 100, "collection must report completion")
	}
}
