package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard and saves the result
// to path.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to llmli! Let's configure your local library.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Chat backend.
	providerPrompt := promptui.Select{
		Label: "Select local LLM backend",
		Items: []string{"ollama", "openai-compatible server"},
	}
	idx, _, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	if idx == 1 {
		cfg.Provider = ProviderOpenAI
		urlPrompt := promptui.Prompt{
			Label:   "Server base URL",
			Default: "http://127.0.0.1:8080/v1",
		}
		if cfg.BaseURL, err = urlPrompt.Run(); err != nil {
			return nil, fmt.Errorf("base url: %w", err)
		}
	}

	// 2. Model.
	modelPrompt := promptui.Prompt{
		Label:   "Chat model",
		Default: cfg.Model,
	}
	if cfg.Model, err = modelPrompt.Run(); err != nil {
		return nil, fmt.Errorf("model: %w", err)
	}

	// 3. Index location.
	dbPrompt := promptui.Prompt{
		Label:   "Index directory",
		Default: cfg.DBPath,
		Validate: func(s string) error {
			if strings.TrimSpace(s) == "" {
				return fmt.Errorf("index directory is required")
			}
			return nil
		},
	}
	if cfg.DBPath, err = dbPrompt.Run(); err != nil {
		return nil, fmt.Errorf("db path: %w", err)
	}
	if _, err := os.Stat(cfg.DBPath); os.IsNotExist(err) {
		fmt.Printf("\nNote: %s does not exist yet. Index a folder before asking questions.\n", cfg.DBPath)
	}

	// 4. Source link style.
	editorPrompt := promptui.Select{
		Label: "Open source links with",
		Items: []string{string(EditorFile), string(EditorVSCode), string(EditorCursor)},
	}
	_, editor, err := editorPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("editor selection: %w", err)
	}
	cfg.Editor = EditorScheme(editor)

	// 5. Extra catalog ignore patterns.
	ignorePrompt := promptui.Prompt{
		Label:   "Extra catalog ignore globs (comma-separated, leave blank for defaults)",
		Default: "",
	}
	ignoreStr, err := ignorePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("ignore patterns: %w", err)
	}
	if ignoreStr != "" {
		cfg.CatalogIgnore = append(append([]string(nil), DefaultCatalogIgnore...), splitAndTrim(ignoreStr)...)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}

// splitAndTrim splits a comma-separated string and trims whitespace.
func splitAndTrim(s string) []string {
	var result []string
	for _, part := range strings.Split(s, ",") {
		if token := strings.TrimSpace(part); token != "" {
			result = append(result, token)
		}
	}
	return result
}
