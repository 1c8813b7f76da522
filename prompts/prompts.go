// Package prompts embeds the default agent instructions.
package prompts

import (
	_ "embed"
	"fmt"
	"os"
)

//go:embed agent_system_prompt.md
var defaultSystemPrompt string

// SystemPrompt returns the contents of path, or the built-in prompt when
// path is empty.
func SystemPrompt(path string) (string, error) {
	if path == "" {
		return defaultSystemPrompt, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read system prompt: %w", err)
	}
	return string(data), nil
}
