package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/productsheet/backend/internal/domain"
	"github.com/productsheet/backend/internal/infrastructure/diagnostics"
)

var fixedNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

// mockExtractor returns a record named after the source text
type mockExtractor struct {
	mu    sync.Mutex
	calls int
	fail  string
}

func (m *mockExtractor) Extract(ctx context.Context, req domain.ExtractionRequest) (*domain.ExtractionResult, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.fail != "" && strings.Contains(req.Text, m.fail) {
		return nil, domain.ErrServiceUnavailable
	}
	record := domain.NewProductRecord()
	record.ProductName = req.Text
	return &domain.ExtractionResult{Record: record, Segments: 1}, nil
}

func readAsText(data []byte) (string, error) {
	if len(data) == 0 {
		return "", domain.ErrEmptyDocument
	}
	return string(data), nil
}

func execute(t *testing.T, deps Dependencies, args ...string) (string, error) {
	t.Helper()
	if deps.Now == nil {
		deps.Now = func() time.Time { return fixedNow }
	}
	root := NewRootCommand(deps)
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)

	err := root.Execute()
	return buf.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	root := NewRootCommand(Dependencies{})

	names := make([]string, 0)
	for _, cmd := range root.Commands() {
		names = append(names, cmd.Name())
	}
	assert.Contains(t, names, "extract")
	assert.Contains(t, names, "responses")

	responses, _, err := root.Find([]string{"responses"})
	require.NoError(t, err)
	sub := make([]string, 0)
	for _, cmd := range responses.Commands() {
		sub = append(sub, cmd.Name())
	}
	assert.ElementsMatch(t, []string{"list", "view", "clean"}, sub)
}

func TestExtractCmd(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	a := writeFile(t, in, "xc500.pdf", "XC500")
	b := writeFile(t, in, "xc600.pdf", "XC600")
	extractor := &mockExtractor{}

	output, err := execute(t, Dependencies{Extractor: extractor, ReadText: readAsText, OutputDir: out},
		"extract", a, b, "--parallel", "2")

	require.NoError(t, err)
	assert.Equal(t, 2, extractor.calls)
	assert.Contains(t, output, "2 documents extracted")

	data, err := os.ReadFile(filepath.Join(out, "xc500.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"product_name": "XC500"`)
	assert.FileExists(t, filepath.Join(out, "xc600.json"))
}

func TestExtractCmd_OutFlag(t *testing.T) {
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "records")
	a := writeFile(t, in, "fiche.pdf", "XC500")

	_, err := execute(t, Dependencies{Extractor: &mockExtractor{}, ReadText: readAsText, OutputDir: t.TempDir()},
		"extract", a, "-o", out)

	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(out, "fiche.json"))
}

func TestExtractCmd_FailuresDoNotStopOtherDocuments(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	good := writeFile(t, in, "good.pdf", "XC500")
	bad := writeFile(t, in, "bad.pdf", "BROKEN")
	empty := writeFile(t, in, "empty.pdf", "")
	extractor := &mockExtractor{fail: "BROKEN"}

	output, err := execute(t, Dependencies{Extractor: extractor, ReadText: readAsText, OutputDir: out},
		"extract", good, bad, empty, "--parallel", "1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 of 3 documents failed")
	assert.True(t, errors.Is(err, domain.ErrServiceUnavailable) || errors.Is(err, domain.ErrEmptyDocument))
	assert.FileExists(t, filepath.Join(out, "good.json"))
	assert.NoFileExists(t, filepath.Join(out, "bad.json"))
	assert.Contains(t, output, "✗ "+bad)
	assert.Equal(t, 2, extractor.calls)
}

func TestExtractCmd_Validation(t *testing.T) {
	tests := []struct {
		name    string
		deps    Dependencies
		args    []string
		wantErr string
	}{
		{
			name:    "requires a file",
			deps:    Dependencies{Extractor: &mockExtractor{}, ReadText: readAsText},
			args:    []string{"extract"},
			wantErr: "requires at least 1 arg(s)",
		},
		{
			name:    "pipeline not configured",
			deps:    Dependencies{},
			args:    []string{"extract", "a.pdf"},
			wantErr: "not configured",
		},
		{
			name:    "invalid parallelism",
			deps:    Dependencies{Extractor: &mockExtractor{}, ReadText: readAsText},
			args:    []string{"extract", "a.pdf", "--parallel", "0"},
			wantErr: "--parallel must be at least 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.deps, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func saveResponse(t *testing.T, store *diagnostics.FileStore, session string, attempt int, modTime time.Time) string {
	t.Helper()
	parsed := domain.NewProductRecord()
	parsed.ProductName = "XC500"
	parsed.Brand = "CoolTech"
	parsed.TechnicalSpecs["capacity"] = "500L"

	path, err := store.Save(context.Background(), domain.DiagnosticRecord{
		Metadata: domain.DiagnosticMetadata{
			SessionID: session,
			Timestamp: modTime.Format(time.RFC3339Nano),
			Model:     "llama3",
			Filename:  "fiche.pdf",
			Attempt:   attempt,
		},
		Prompt:      strings.Repeat("p", 250),
		RawResponse: `{"product_name": "XC500", "brand": "CoolTech"}`,
		ParsedData:  parsed,
		AnalysisInfo: domain.DiagnosticAnalysisInfo{
			PromptLength:      250,
			ResponseLength:    46,
			ParsedFieldsCount: 3,
			ModelUsed:         "llama3",
			Strategy:          "direct",
		},
	})
	require.NoError(t, err)
	require.NoError(t, os.Chtimes(path, modTime, modTime))
	return path
}

func TestResponsesListCmd(t *testing.T) {
	store := diagnostics.NewFileStore(t.TempDir())
	saveResponse(t, store, "session-a", 1, fixedNow.Add(-3*time.Hour))
	saveResponse(t, store, "session-b", 1, fixedNow.Add(-2*24*time.Hour))

	output, err := execute(t, Dependencies{Responses: store}, "responses", "list")

	require.NoError(t, err)
	assert.Contains(t, output, "AGE")
	assert.Contains(t, output, "session-a")
	assert.Contains(t, output, "3h")
	assert.Contains(t, output, "2d")
	assert.Less(t, strings.Index(output, "session-a"), strings.Index(output, "session-b"), "newest first")
	assert.Contains(t, output, "Total: 2 responses")
}

func TestResponsesListCmd_Empty(t *testing.T) {
	output, err := execute(t, Dependencies{Responses: diagnostics.NewFileStore(t.TempDir())}, "responses", "list")

	require.NoError(t, err)
	assert.Contains(t, output, "No model responses found")
}

func TestResponsesViewCmd(t *testing.T) {
	store := diagnostics.NewFileStore(t.TempDir())
	path := saveResponse(t, store, "session-a", 2, fixedNow)

	output, err := execute(t, Dependencies{Responses: store}, "responses", "view", path)

	require.NoError(t, err)
	assert.Contains(t, output, "Session:    session-a")
	assert.Contains(t, output, "attempt 2")
	assert.Contains(t, output, "Parsed:     3 fields (direct)")
	assert.Contains(t, output, "Brand:       CoolTech")
	assert.Contains(t, output, strings.Repeat("p", 200)+"...")
	assert.NotContains(t, output, strings.Repeat("p", 201))
	assert.Contains(t, output, "technical_specs.capacity: 500L")
}

func TestResponsesViewCmd_Missing(t *testing.T) {
	_, err := execute(t, Dependencies{Responses: diagnostics.NewFileStore(t.TempDir())}, "responses", "view", "nope.json")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no model response at nope.json")
}

func TestResponsesCleanCmd(t *testing.T) {
	store := diagnostics.NewFileStore(t.TempDir())
	old := saveResponse(t, store, "old", 1, fixedNow.Add(-10*24*time.Hour))
	recent := saveResponse(t, store, "recent", 1, fixedNow.Add(-24*time.Hour))

	output, err := execute(t, Dependencies{Responses: store}, "responses", "clean", "--days", "7")

	require.NoError(t, err)
	assert.Contains(t, output, "Deleted 1 responses")
	assert.NoFileExists(t, old)
	assert.FileExists(t, recent)
}

func TestResponsesCmd_NotConfigured(t *testing.T) {
	for _, args := range [][]string{{"responses", "list"}, {"responses", "view", "x.json"}, {"responses", "clean"}} {
		_, err := execute(t, Dependencies{}, args...)
		require.Error(t, err, args)
		assert.Contains(t, err.Error(), "not configured")
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 3))
	assert.Equal(t, "ab...", truncate("abc", 2))
	assert.Equal(t, "Ré...", truncate("Réfrigérateur", 2))
}
