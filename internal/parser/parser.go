package parser

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LanguageParser defines the interface each language must implement
type LanguageParser interface {
	// Language returns the language name (e.g., "python")
	Language() string

	// Extensions returns file extensions this parser handles
	Extensions() []string

	// Parse builds the module representation of source code
	Parse(filename string, content []byte) (*Module, error)
}

// Registry holds all registered language parsers
type Registry struct {
	parsers   map[string]LanguageParser // language name -> parser
	extToLang map[string]string         // extension -> language name
}

// NewRegistry creates a new parser registry
func NewRegistry() *Registry {
	return &Registry{
		parsers:   make(map[string]LanguageParser),
		extToLang: make(map[string]string),
	}
}

// Register adds a language parser to the registry
func (r *Registry) Register(p LanguageParser) {
	lang := p.Language()
	r.parsers[lang] = p
	for _, ext := range p.Extensions() {
		r.extToLang[ext] = lang
	}
}

// GetParserForFile returns the appropriate parser for a file
func (r *Registry) GetParserForFile(filename string) (LanguageParser, bool) {
	ext := strings.ToLower(filepath.Ext(filename))
	lang, ok := r.extToLang[ext]
	if !ok {
		return nil, false
	}
	parser, ok := r.parsers[lang]
	return parser, ok
}

// SupportedExtensions returns all supported file extensions, sorted
func (r *Registry) SupportedExtensions() []string {
	exts := make([]string, 0, len(r.extToLang))
	for ext := range r.extToLang {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// ParseFile reads and parses a single file.
func (r *Registry) ParseFile(path string) (*Module, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return r.ParseSource(path, content)
}

// ParseSource parses content as if it were read from path.
func (r *Registry) ParseSource(path string, content []byte) (*Module, error) {
	parser, ok := r.GetParserForFile(path)
	if !ok {
		return nil, fmt.Errorf("unsupported file type %q (supported: %s)", filepath.Ext(path), strings.Join(r.SupportedExtensions(), ", "))
	}

	module, err := parser.Parse(path, content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	for i := range module.Statements {
		if def := module.Statements[i].Definition; def != nil {
			def.Calls = normalizeCallSites(def.Calls)
		}
	}
	module.Hash = hashContent(content)

	return module, nil
}

func hashContent(content []byte) string {
	h := sha256.New()
	h.Write(content)
	return hex.EncodeToString(h.Sum(nil))[:16] // short hash
}

// normalizeCallSites trims and drops empty or duplicate call sites, keeping
// source order so that call sets stay in first-occurrence order.
func normalizeCallSites(values []CallSite) []CallSite {
	if len(values) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(values))
	out := make([]CallSite, 0, len(values))
	for _, value := range values {
		value.Name = strings.TrimSpace(value.Name)
		value.Qualifier = strings.TrimSpace(value.Qualifier)
		if value.Name == "" {
			continue
		}

		key := strings.Join([]string{
			value.Name,
			value.Qualifier,
			fmt.Sprintf("%d", value.Line),
		}, "|")
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, value)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Line < out[j].Line
	})

	return out
}
