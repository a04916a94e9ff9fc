package schema

import (
	"path/filepath"
	"strings"
)

// Language is the closed set of languages the pipeline evaluates.
type Language string

// Supported languages. Unknown marks a file the pipeline skips.
const (
	Python     Language = "Python"
	Java       Language = "Java"
	Go         Language = "Go"
	Ruby       Language = "Ruby"
	Rust       Language = "Rust"
	CSharp     Language = "C#"
	CPP        Language = "C++"
	PHP        Language = "PHP"
	Terraform  Language = "Terraform"
	JavaScript Language = "JavaScript"
	Unknown    Language = "Unknown"
)

// extensionLanguages maps lower-case file extensions to a language.
// Dialects are folded into the language whose tooling reviews them.
var extensionLanguages = map[string]Language{
	".py":     Python,
	".java":   Java,
	".groovy": Java,
	".kt":     Java,
	".scala":  Java,
	".go":     Go,
	".rb":     Ruby,
	".rs":     Rust,
	".cs":     CSharp,
	".cpp":    CPP,
	".cc":     CPP,
	".c":      CPP,
	".h":      CPP,
	".hpp":    CPP,
	".php":    PHP,
	".tf":     Terraform,
	".js":     JavaScript,
	".ts":     JavaScript,
	".jsx":    JavaScript,
	".tsx":    JavaScript,
	".sh":     Unknown,
	".yaml":   Unknown,
	".xml":    Unknown,
}

// LanguageForExtension returns the language for an extension such as ".py".
func LanguageForExtension(ext string) Language {
	if lang, ok := extensionLanguages[strings.ToLower(ext)]; ok {
		return lang
	}
	return Unknown
}

// LanguageForPath returns the language of the file at path.
func LanguageForPath(path string) Language {
	return LanguageForExtension(filepath.Ext(path))
}

// Supported reports whether the pipeline evaluates this language.
func (l Language) Supported() bool {
	return l != Unknown && l != ""
}

// ExtensionKey returns the lower-case extension used for per-extension counters.
// Files without an extension are grouped under "(none)".
func ExtensionKey(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return "(none)"
	}
	return ext
}
