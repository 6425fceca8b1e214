package joke

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// PromptSpec mirrors prompts/joke.yaml.
type PromptSpec struct {
	System      string  `yaml:"system"`
	User        string  `yaml:"user"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

func DefaultPrompt() PromptSpec {
	return PromptSpec{
		System:      "You are a dad who loves telling classic dad jokes. Keep your responses short and focused on the joke only.",
		User:        "Tell me a short, clean dad joke that would make kids groan.",
		Temperature: 0.7,
		MaxTokens:   100,
	}
}

// LoadPrompt reads a prompt file, filling unset fields from DefaultPrompt.
// A missing file yields the defaults; a file that does not parse is an error.
func LoadPrompt(path string) (PromptSpec, error) {
	spec := DefaultPrompt()
	if path == "" {
		return spec, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return spec, nil
		}
		return spec, err
	}
	var file PromptSpec
	if err := yaml.Unmarshal(b, &file); err != nil {
		return spec, fmt.Errorf("parse %s: %w", path, err)
	}
	if file.System != "" {
		spec.System = file.System
	}
	if file.User != "" {
		spec.User = file.User
	}
	if file.Model != "" {
		spec.Model = file.Model
	}
	if file.Temperature > 0 {
		spec.Temperature = file.Temperature
	}
	if file.MaxTokens > 0 {
		spec.MaxTokens = file.MaxTokens
	}
	return spec, nil
}
