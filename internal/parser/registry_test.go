package parser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockParser struct {
	lang string
	exts []string
}

func (m mockParser) Language() string {
	return m.lang
}

func (m mockParser) Extensions() []string {
	return m.exts
}

func (m mockParser) Parse(filename string, content []byte) (*Module, error) {
	return &Module{
		Path:     filename,
		Language: m.lang,
		Source:   content,
		Statements: []Statement{
			{
				Kind: StatementFunction,
				Line: 1,
				Definition: &Definition{
					Name: "mock",
					Line: 1,
					Calls: []CallSite{
						{Name: "b", Line: 3},
						{Name: " a ", Line: 2},
						{Name: "b", Line: 3},
						{Name: "", Line: 4},
					},
				},
			},
		},
	}, nil
}

func TestRegistryGetParserForFile(t *testing.T) {
	r := NewRegistry()
	r.Register(mockParser{lang: "mock", exts: []string{".mock"}})

	p, ok := r.GetParserForFile("demo.MOCK")
	require.True(t, ok, "expected parser for .MOCK extension")
	assert.Equal(t, "mock", p.Language())

	_, ok = r.GetParserForFile("demo.txt")
	assert.False(t, ok)
}

func TestParseFileNormalizesCallsAndHashes(t *testing.T) {
	root := t.TempDir()
	r := NewRegistry()
	r.Register(mockParser{lang: "mock", exts: []string{".mock"}})

	path := filepath.Join(root, "demo.mock")
	mustWriteFile(t, path, "ok")

	module, err := r.ParseFile(path)
	require.NoError(t, err)
	assert.Len(t, module.Hash, 16)

	def := module.Statements[0].Definition
	require.NotNil(t, def)
	assert.Equal(t, []string{"a", "b"}, def.CallSet())
}

func TestParseFileRejectsUnsupportedExtension(t *testing.T) {
	root := t.TempDir()
	r := NewRegistry()
	r.Register(mockParser{lang: "mock", exts: []string{".mock"}})

	path := filepath.Join(root, "notes.txt")
	mustWriteFile(t, path, "x")

	_, err := r.ParseFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file type")
}

func TestCallSetSkipsQualifiedCalls(t *testing.T) {
	def := &Definition{Calls: []CallSite{
		{Name: "helper", Line: 1},
		{Name: "sum", Qualifier: "df", Line: 2},
		{Name: "helper", Line: 3},
		{Name: "other", Line: 4},
	}}
	assert.Equal(t, []string{"helper", "other"}, def.CallSet())

	var empty *Definition
	assert.Nil(t, empty.CallSet())
}

func TestModuleDefinitionsKeepsDeclarationOrder(t *testing.T) {
	first := &Definition{Name: "a", Source: "def a(): pass"}
	second := &Definition{Name: "b"}
	redefined := &Definition{Name: "a", Source: "def a(): return 1"}
	m := &Module{Statements: []Statement{
		{Kind: StatementFunction, Definition: first},
		{Kind: StatementImport},
		{Kind: StatementFunction, Definition: second},
		{Kind: StatementFunction, Definition: redefined},
	}}

	defs, order := m.Definitions()
	assert.Equal(t, []string{"a", "b"}, order)
	assert.Same(t, redefined, defs["a"])
	assert.Len(t, m.ImportStatements(), 1)
}

func mustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}
