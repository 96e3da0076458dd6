// Command pacrunner evaluates a PAC script for one or more URLs and prints
// the proxy directive chosen for each.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/url"
	"os"
	"strings"

	"github.com/cryguy/pacrunner"
	"github.com/cryguy/pacrunner/internal/config"
	"github.com/cryguy/pacrunner/internal/pacjs"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("pacrunner", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		configPath = fs.String("config", "", "YAML configuration file")
		script     = fs.String("script", "", "PAC script path or http(s) URL")
		iface      = fs.String("interface", "", "interface whose address myIpAddress() returns")
		engine     = fs.String("engine", "", "script engine: auto, "+strings.Join(pacrunner.Engines(), ", "))
		check      = fs.Bool("check", false, "only check the script for syntax errors")
		schema     = fs.Bool("schema", false, "print the configuration JSON Schema and exit")
	)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: pacrunner [flags] URL...")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	logger := log.New(stderr, "", 0)

	if *schema {
		b, err := config.Schema()
		if err != nil {
			logger.Printf("pacrunner: %v", err)
			return 1
		}
		fmt.Fprintln(stdout, string(b))
		return 0
	}

	cfg := &config.Config{}
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			logger.Printf("pacrunner: %v", err)
			return 1
		}
		cfg = loaded
	}
	if *script != "" {
		cfg.Script = *script
	}
	if *iface != "" {
		cfg.Interface = *iface
	}
	if *engine != "" {
		cfg.Engine = *engine
	}
	if err := cfg.Validate(); err != nil {
		logger.Printf("pacrunner: %v", err)
		return 1
	}

	fetchCtx, cancel := context.WithTimeout(ctx, cfg.FetchTimeout())
	source, err := loadScript(fetchCtx, cfg.Script, int64(cfg.MaxScriptSizeKB)*1024)
	cancel()
	if err != nil {
		logger.Printf("pacrunner: %v", err)
		return 1
	}

	if *check {
		if err := pacjs.Check(source, cfg.Script); err != nil {
			logger.Printf("pacrunner: %v", err)
			return 1
		}
		fmt.Fprintln(stdout, "ok")
		return 0
	}

	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	reg, plugins, err := initDrivers(cfg, logger)
	if err != nil {
		logger.Printf("pacrunner: %v", err)
		return 1
	}
	defer func() {
		for _, p := range plugins {
			p.Exit()
		}
	}()

	if err := reg.SetProxy(&pacrunner.Proxy{Interface: cfg.Interface, Script: source}); err != nil {
		logger.Printf("pacrunner: %v", err)
		return 1
	}

	status := 0
	for _, raw := range fs.Args() {
		host, err := hostOf(raw)
		if err != nil {
			logger.Printf("pacrunner: %v", err)
			status = 1
			continue
		}
		directive, ok := reg.Execute(raw, host)
		if !ok {
			logger.Printf("pacrunner: no proxy directive for %s", raw)
			status = 1
			continue
		}
		fmt.Fprintf(stdout, "%s\t%s\n", raw, directive)
	}
	return status
}

// initDrivers registers the engines selected by cfg.Engine.
func initDrivers(cfg *config.Config, logger *log.Logger) (*pacrunner.Registry, []*pacrunner.Plugin, error) {
	want := cfg.Engine
	if want == "" {
		want = "auto"
	}

	reg := pacrunner.NewRegistry()
	var plugins []*pacrunner.Plugin
	for _, p := range pacrunner.Builtins(cfg.EngineConfig(), pacrunner.WithLogf(logger.Printf)) {
		if want != "auto" && p.Name() != want {
			continue
		}
		if err := p.Init(reg); err != nil {
			for _, q := range plugins {
				q.Exit()
			}
			return nil, nil, err
		}
		plugins = append(plugins, p)
	}
	if len(plugins) == 0 {
		return nil, nil, fmt.Errorf("engine %q is not compiled in (have %s)", want, strings.Join(pacrunner.Engines(), ", "))
	}
	return reg, plugins, nil
}

// hostOf returns the host FindProxyForURL receives for rawURL.
func hostOf(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parsing %q: %w", rawURL, err)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("parsing %q: no host", rawURL)
	}
	return u.Hostname(), nil
}
