package catalog

import (
	"path/filepath"
	"strings"
)

// codeExtensions maps source-code extensions to language names. Markup,
// data and config formats are deliberately absent: they do not count as
// code activity.
var codeExtensions = map[string]string{
	".go":     "Go",
	".py":     "Python",
	".pyi":    "Python",
	".ipynb":  "Python",
	".ts":     "TypeScript",
	".tsx":    "TypeScript",
	".mts":    "TypeScript",
	".js":     "JavaScript",
	".jsx":    "JavaScript",
	".mjs":    "JavaScript",
	".cjs":    "JavaScript",
	".java":   "Java",
	".rs":     "Rust",
	".c":      "C",
	".h":      "C",
	".cpp":    "C++",
	".cc":     "C++",
	".cxx":    "C++",
	".hpp":    "C++",
	".cs":     "C#",
	".rb":     "Ruby",
	".php":    "PHP",
	".swift":  "Swift",
	".kt":     "Kotlin",
	".kts":    "Kotlin",
	".scala":  "Scala",
	".sh":     "Shell",
	".bash":   "Shell",
	".zsh":    "Shell",
	".sql":    "SQL",
	".lua":    "Lua",
	".r":      "R",
	".dart":   "Dart",
	".ex":     "Elixir",
	".exs":    "Elixir",
	".hs":     "Haskell",
	".pl":     "Perl",
	".vue":    "Vue",
	".svelte": "Svelte",
}

// Language returns the language of a code file, or "" for anything else.
func Language(path string) string {
	return codeExtensions[strings.ToLower(filepath.Ext(path))]
}

// IsCode reports whether path has a code extension.
func IsCode(path string) bool {
	return Language(path) != ""
}
