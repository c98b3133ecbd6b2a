// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strings"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
)

// Usage is printed for --help.
const Usage = `jarvis - chat with a local Ollama model

Usage:
  jarvis [flags]            Start an interactive chat
  jarvis [flags] MESSAGE    Send one message, print the reply and exit

Flags:
  -m, --model NAME      Model to use (overrides config)
      --host URL        Ollama server (overrides config)
  -c, --config PATH     Config file (default ~/.jarvis/config.toml)
      --project NAME    Project name sent with the first message
      --context FILE    Attach FILE as selected code
      --lines A-B       Attach only lines A through B of --context
      --no-color        Disable colors and markdown rendering
  -v, --verbose         Debug logging on stderr
      --version         Print version and exit
  -h, --help            Show this help

Type /help in a chat for the chat commands.
`

// Args holds parsed command-line arguments.
type Args struct {
	Model      string
	Host       string
	ConfigPath string
	Project    string
	Context    string
	Lines      string
	NoColor    bool
	Verbose    bool
	Version    bool
	Help       bool

	// Message is the one-shot message, empty for an interactive chat.
	Message string
}

// =============================================================================
// ARG PARSER
// =============================================================================

// ArgParser splits raw arguments into flags and positional arguments.
// It handles:
//   - Long flags: --flag value or --flag=value
//   - Short flags: -f value
//   - Boolean flags: --flag (no value needed)
//   - "--" ends flag parsing
//
// Flags that take no value must be declared so they do not swallow the
// argument after them.
type ArgParser struct {
	flags      map[string]string
	boolFlags  map[string]bool
	positional []string
}

// NewArgParser parses raw. boolNames lists the flags that take no value.
func NewArgParser(raw []string, boolNames ...string) (*ArgParser, error) {
	isBool := make(map[string]bool, len(boolNames))
	for _, n := range boolNames {
		isBool[n] = true
	}

	p := &ArgParser{
		flags:     make(map[string]string),
		boolFlags: make(map[string]bool),
	}

	for i := 0; i < len(raw); i++ {
		arg := raw[i]
		if arg == "--" {
			p.positional = append(p.positional, raw[i+1:]...)
			break
		}
		if !strings.HasPrefix(arg, "-") || arg == "-" {
			p.positional = append(p.positional, arg)
			continue
		}

		name := strings.TrimLeft(arg, "-")
		if n, v, ok := strings.Cut(name, "="); ok {
			if isBool[n] {
				p.boolFlags[n] = v == "true" || v == "1"
			} else {
				p.flags[n] = v
			}
			continue
		}

		if isBool[name] {
			p.boolFlags[name] = true
			continue
		}
		if i+1 >= len(raw) {
			return nil, fmt.Errorf("flag %s needs a value", arg)
		}
		p.flags[name] = raw[i+1]
		i++
	}
	return p, nil
}

// Flag returns the value of the first of names that is set.
func (p *ArgParser) Flag(names ...string) string {
	for _, n := range names {
		if v, ok := p.flags[n]; ok {
			return v
		}
	}
	return ""
}

// BoolFlag reports whether any of names is set.
func (p *ArgParser) BoolFlag(names ...string) bool {
	for _, n := range names {
		if p.boolFlags[n] {
			return true
		}
	}
	return false
}

// Positional returns all positional arguments.
func (p *ArgParser) Positional() []string {
	return p.positional
}

// known lists every flag ParseArgs accepts.
var known = map[string]bool{
	"m": true, "model": true, "host": true, "c": true, "config": true,
	"project": true, "context": true, "lines": true,
	"no-color": true, "v": true, "verbose": true, "version": true,
	"h": true, "help": true,
}

// ParseArgs parses the arguments after the program name.
func ParseArgs(raw []string) (Args, error) {
	p, err := NewArgParser(raw, "no-color", "v", "verbose", "version", "h", "help")
	if err != nil {
		return Args{}, err
	}
	for name := range p.flags {
		if !known[name] {
			return Args{}, fmt.Errorf("unknown flag --%s", name)
		}
	}
	for name := range p.boolFlags {
		if !known[name] {
			return Args{}, fmt.Errorf("unknown flag --%s", name)
		}
	}

	args := Args{
		Model:      p.Flag("model", "m"),
		Host:       p.Flag("host"),
		ConfigPath: p.Flag("config", "c"),
		Project:    p.Flag("project"),
		Context:    p.Flag("context"),
		Lines:      p.Flag("lines"),
		NoColor:    p.BoolFlag("no-color"),
		Verbose:    p.BoolFlag("verbose", "v"),
		Version:    p.BoolFlag("version"),
		Help:       p.BoolFlag("help", "h"),
		Message:    strings.TrimSpace(strings.Join(p.Positional(), " ")),
	}
	if args.Lines != "" && args.Context == "" {
		return Args{}, fmt.Errorf("--lines requires --context")
	}
	return args, nil
}
