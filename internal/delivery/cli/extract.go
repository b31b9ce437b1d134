package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/phuslu/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/productsheet/backend/internal/domain"
)

func newExtractCommand(deps Dependencies) *cobra.Command {
	var (
		parallel int
		outDir   string
	)

	cmd := &cobra.Command{
		Use:   "extract [file.pdf...]",
		Short: "Extract product records from PDF files",
		Long: `Runs the extraction pipeline on each document and writes the product
record to <out>/<name>.json. Documents are processed independently; a failing
document does not stop the others.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if deps.Extractor == nil || deps.ReadText == nil {
				return errors.New("extraction pipeline not configured")
			}
			if parallel < 1 {
				return fmt.Errorf("--parallel must be at least 1, got %d", parallel)
			}
			if outDir == "" {
				outDir = deps.OutputDir
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}
			return runExtract(cmd, deps, args, outDir, parallel)
		},
	}

	cmd.Flags().IntVarP(&parallel, "parallel", "p", 2, "Maximum number of documents processed at once")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Directory for the JSON records (default: storage.output_dir)")
	return cmd
}

func runExtract(cmd *cobra.Command, deps Dependencies, files []string, outDir string, parallel int) error {
	var (
		mu     sync.Mutex
		failed atomic.Int32
	)
	printf := func(format string, a ...any) {
		mu.Lock()
		defer mu.Unlock()
		cmd.Printf(format, a...)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	var g errgroup.Group
	g.SetLimit(parallel)

	for _, file := range files {
		g.Go(func() error {
			target, name, err := extractFile(ctx, deps, file, outDir)
			if err != nil {
				failed.Add(1)
				printf("✗ %s: %v\n", file, err)
				return fmt.Errorf("%s: %w", file, err)
			}
			printf("✓ %s -> %s (%s)\n", file, target, name)
			return nil
		})
	}

	err := g.Wait()
	if n := failed.Load(); n > 0 {
		return fmt.Errorf("%d of %d documents failed, first error: %w", n, len(files), err)
	}
	cmd.Printf("\n%d documents extracted\n", len(files))
	return nil
}

// extractFile runs one document through the pipeline and returns the record
// path and product name.
func extractFile(ctx context.Context, deps Dependencies, file, outDir string) (string, string, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return "", "", err
	}

	text, err := deps.ReadText(data)
	if err != nil {
		return "", "", err
	}

	sessionID := uuid.NewString()
	result, err := deps.Extractor.Extract(ctx, domain.ExtractionRequest{
		SessionID: sessionID,
		Filename:  filepath.Base(file),
		Text:      text,
	})
	if err != nil {
		return "", "", err
	}

	out, err := json.MarshalIndent(result.Record, "", "  ")
	if err != nil {
		return "", "", err
	}

	base := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	target := filepath.Join(outDir, base+".json")
	if err := os.WriteFile(target, out, 0o644); err != nil {
		return "", "", err
	}

	log.Info().Str("file", file).Str("session_id", sessionID).Int("segments", result.Segments).Msg("[CLI] Document extracted")

	name := result.Record.ProductName
	if name == "" {
		name = "sans nom"
	}
	return target, name, nil
}
