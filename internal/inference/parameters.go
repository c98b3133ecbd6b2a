// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package inference

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Default parameter values.
const (
	DefaultTemperature       = 0.7
	DefaultTopP              = 0.9
	DefaultTopK              = 40
	DefaultRepeatPenalty     = 1.1
	DefaultContextWindowSize = 4096
)

// Parameters are the sampling settings sent with every chat request.
// Nil pointers mean "let the server decide".
type Parameters struct {
	Temperature       float64
	TopP              float64
	TopK              int
	MaxTokens         *int
	RepeatPenalty     float64
	Seed              *int
	ContextWindowSize int
	StopSequences     []string
	PresencePenalty   *float64
	FrequencyPenalty  *float64
}

// DefaultParameters returns the parameters a fresh model starts with.
func DefaultParameters() Parameters {
	return Parameters{
		Temperature:       DefaultTemperature,
		TopP:              DefaultTopP,
		TopK:              DefaultTopK,
		RepeatPenalty:     DefaultRepeatPenalty,
		ContextWindowSize: DefaultContextWindowSize,
	}
}

// Clone returns a deep copy.
func (p Parameters) Clone() Parameters {
	out := p
	if p.MaxTokens != nil {
		v := *p.MaxTokens
		out.MaxTokens = &v
	}
	if p.Seed != nil {
		v := *p.Seed
		out.Seed = &v
	}
	if p.PresencePenalty != nil {
		v := *p.PresencePenalty
		out.PresencePenalty = &v
	}
	if p.FrequencyPenalty != nil {
		v := *p.FrequencyPenalty
		out.FrequencyPenalty = &v
	}
	if p.StopSequences != nil {
		out.StopSequences = append([]string(nil), p.StopSequences...)
	}
	return out
}

// Assignment is one "-name value" pair of a parameter change.
type Assignment struct {
	Name  string
	Value string
}

// Set returns a copy of p with one parameter changed. On invalid input it
// returns p unchanged and a message describing the accepted values.
//
// Names are case-insensitive and accept a short alias.
func (p Parameters) Set(name, value string) (Parameters, string) {
	out := p.Clone()
	value = strings.TrimSpace(value)

	switch strings.ToLower(name) {
	case "temperature", "t":
		v, ok := parseFloatIn(value, 0, 2)
		if !ok {
			return p, "temperature must be between 0.0 and 2.0"
		}
		out.Temperature = v
	case "top_p", "p":
		v, ok := parseFloatIn(value, 0, 1)
		if !ok {
			return p, "top_p must be between 0.0 and 1.0"
		}
		out.TopP = v
	case "top_k", "k":
		v, ok := parseIntIn(value, 1, 100)
		if !ok {
			return p, "top_k must be between 1 and 100"
		}
		out.TopK = v
	case "max_tokens", "m":
		v, ok := parseIntIn(value, 1, 4096)
		if !ok {
			return p, "max_tokens must be between 1 and 4096"
		}
		out.MaxTokens = &v
	case "repeat_penalty", "r":
		v, ok := parseFloatIn(value, 0, 2)
		if !ok {
			return p, "repeat_penalty must be between 0.0 and 2.0"
		}
		out.RepeatPenalty = v
	case "seed", "s":
		v, err := strconv.Atoi(value)
		if err != nil {
			return p, "seed must be an integer"
		}
		out.Seed = &v
	case "num_ctx", "c":
		v, ok := parseIntIn(value, 512, 32768)
		if !ok {
			return p, "num_ctx must be between 512 and 32768"
		}
		out.ContextWindowSize = v
	case "stop":
		var stops []string
		for _, s := range strings.Split(value, ",") {
			if s = strings.TrimSpace(s); s != "" {
				stops = append(stops, s)
			}
		}
		out.StopSequences = stops
	case "presence_penalty", "pp":
		return p, "presence_penalty is not supported"
	case "frequency_penalty", "fp":
		return p, "frequency_penalty is not supported"
	default:
		return p, "unsupported parameter " + name
	}
	return out, ""
}

// Apply applies assignments in order and collects the errors of the ones
// that were rejected. Valid assignments are applied even when others fail.
func (p Parameters) Apply(assignments []Assignment) (Parameters, []string) {
	var errs []string
	for _, a := range assignments {
		next, msg := p.Set(a.Name, a.Value)
		if msg != "" {
			errs = append(errs, msg)
			continue
		}
		p = next
	}
	return p, errs
}

// Info renders the parameter table shown by /model.
func (p Parameters) Info() string {
	var b strings.Builder
	b.WriteString("  Inference parameters\n")
	fmt.Fprintf(&b, "    temperature        %s    Controls randomness\n", formatFloat(p.Temperature))
	fmt.Fprintf(&b, "    top_p              %s    Nucleus sampling threshold\n", formatFloat(p.TopP))
	fmt.Fprintf(&b, "    top_k              %d    Limits token candidates\n", p.TopK)
	fmt.Fprintf(&b, "    max_tokens         %s    Maximum output tokens\n", intOr(p.MaxTokens, "default"))
	fmt.Fprintf(&b, "    repeat_penalty     %s    Prevents repetition\n", formatFloat(p.RepeatPenalty))
	fmt.Fprintf(&b, "    seed               %s    For reproducible outputs\n", intOr(p.Seed, "random"))
	fmt.Fprintf(&b, "    num_ctx            %d    Context window size\n", p.ContextWindowSize)
	if len(p.StopSequences) > 0 {
		fmt.Fprintf(&b, "    stop               %s    Stop sequences\n", strings.Join(p.StopSequences, ", "))
	}
	fmt.Fprintf(&b, "    presence_penalty   %s    Penalizes repeated topics\n", formatFloat(floatOr(p.PresencePenalty)))
	fmt.Fprintf(&b, "    frequency_penalty  %s    Penalizes token frequency", formatFloat(floatOr(p.FrequencyPenalty)))
	return b.String()
}

func parseFloatIn(s string, lo, hi float64) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || v < lo || v > hi {
		return 0, false
	}
	return v, true
}

func parseIntIn(s string, lo, hi int) (int, bool) {
	v, err := strconv.Atoi(s)
	if err != nil || v < lo || v > hi {
		return 0, false
	}
	return v, true
}

// formatFloat always shows a decimal point: 1 renders as "1.0".
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}

func intOr(v *int, fallback string) string {
	if v == nil {
		return fallback
	}
	return strconv.Itoa(*v)
}

func floatOr(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
