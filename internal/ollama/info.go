// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"strings"
)

// contextLengthKey is the model_info entry holding the trained context size.
const contextLengthKey = "llama.context_length"

// FormatModelInfo renders a /api/show answer as a card in the style of
// `ollama show`.
func FormatModelInfo(info *ShowModelResponse) string {
	var b strings.Builder

	b.WriteString(" Model\n")
	if d := info.Details; d != nil {
		if d.Family != "" {
			b.WriteString("    architecture        " + d.Family + "\n")
		}
		if d.ParameterSize != "" {
			b.WriteString("    parameters          " + d.ParameterSize + "\n")
		}
		if d.QuantizationLevel != "" {
			b.WriteString("    quantization        " + d.QuantizationLevel + "\n")
		}
	}
	b.WriteString("\n")

	b.WriteString("  Parameters\n")
	if raw, ok := info.ModelInfo[contextLengthKey]; ok {
		b.WriteString("    context length      " + strings.Trim(string(raw), `"`) + "\n")
	}
	for _, line := range strings.Split(info.Parameters, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			b.WriteString("    " + line + "\n")
		}
	}
	b.WriteString("\n")

	if info.License != "" {
		first, _, _ := strings.Cut(info.License, "\n")
		b.WriteString("  License\n")
		b.WriteString("    " + first)
	}

	return strings.TrimRight(b.String(), " \t\r\n")
}
