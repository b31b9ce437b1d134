package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/productsheet/backend/internal/domain"
	"github.com/productsheet/backend/internal/infrastructure/diagnostics"
)

const version = "1.0.0"

// Extractor runs the extraction pipeline on source text
type Extractor interface {
	Extract(ctx context.Context, req domain.ExtractionRequest) (*domain.ExtractionResult, error)
}

// ResponseStore gives access to stored diagnostic records
type ResponseStore interface {
	List() ([]diagnostics.Entry, error)
	Load(path string) (*domain.DiagnosticRecord, error)
	Clean(cutoff time.Time) (int, error)
}

// Dependencies wires the commands to the pipeline. Extractor and ReadText are
// only needed by extract, Responses only by the responses commands.
type Dependencies struct {
	Extractor Extractor
	ReadText  func(data []byte) (string, error)
	Responses ResponseStore
	OutputDir string
	Now       func() time.Time
}

// NewRootCommand builds the sheetctl command tree
func NewRootCommand(deps Dependencies) *cobra.Command {
	if deps.Now == nil {
		deps.Now = time.Now
	}

	root := &cobra.Command{
		Use:           "sheetctl",
		Short:         "Product sheet extraction tools",
		Long:          `Extract product records from PDF documents and inspect the model responses recorded during extraction.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newExtractCommand(deps))
	root.AddCommand(newResponsesCommand(deps))
	return root
}
