package cli

import (
	"errors"
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/productsheet/backend/internal/domain"
)

const (
	promptPreview   = 200
	responsePreview = 300
)

func newResponsesCommand(deps Dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "responses",
		Short: "Inspect recorded model responses",
		Long:  `List, view, or clean the diagnostic records written for every model attempt.`,
	}

	var days int
	clean := &cobra.Command{
		Use:   "clean",
		Short: "Delete model responses older than --days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if days < 0 {
				return fmt.Errorf("--days must not be negative, got %d", days)
			}
			return runResponsesClean(cmd, deps, days)
		},
	}
	clean.Flags().IntVarP(&days, "days", "d", 7, "Keep responses newer than this many days")

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List model responses, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResponsesList(cmd, deps)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "view [file]",
		Short: "Show a summary of one model response",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResponsesView(cmd, deps, args[0])
		},
	})
	cmd.AddCommand(clean)
	return cmd
}

func runResponsesList(cmd *cobra.Command, deps Dependencies) error {
	if deps.Responses == nil {
		return errors.New("response store not configured")
	}

	entries, err := deps.Responses.List()
	if err != nil {
		return fmt.Errorf("failed to list responses: %w", err)
	}
	if len(entries) == 0 {
		cmd.Println("No model responses found")
		return nil
	}

	now := deps.Now()
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "AGE\tSESSION\tFILE\tSIZE")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", formatAge(now.Sub(e.ModTime)), e.SessionID, filepath.Base(e.Path), e.Size)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	cmd.Printf("\nTotal: %d responses\n", len(entries))
	return nil
}

func runResponsesView(cmd *cobra.Command, deps Dependencies, path string) error {
	if deps.Responses == nil {
		return errors.New("response store not configured")
	}

	record, err := deps.Responses.Load(path)
	if err != nil {
		if errors.Is(err, domain.ErrDiagnosticNotFound) {
			return fmt.Errorf("no model response at %s", path)
		}
		return fmt.Errorf("failed to load response: %w", err)
	}

	meta := record.Metadata
	info := record.AnalysisInfo
	cmd.Printf("Response: %s\n\n", filepath.Base(path))
	cmd.Printf("  Session:    %s\n", meta.SessionID)
	cmd.Printf("  File:       %s\n", meta.Filename)
	cmd.Printf("  Timestamp:  %s\n", meta.Timestamp)
	cmd.Printf("  Model:      %s\n", meta.Model)
	cmd.Printf("  Segment:    %d  attempt %d", meta.Segment, meta.Attempt)
	if meta.Fallback {
		cmd.Print("  (fallback)")
	}
	cmd.Println()
	cmd.Printf("  Prompt:     %d chars\n", info.PromptLength)
	cmd.Printf("  Response:   %d chars\n", info.ResponseLength)
	cmd.Printf("  Parsed:     %d fields (%s)\n", info.ParsedFieldsCount, info.Strategy)

	parsed := record.ParsedData
	cmd.Println("\n  Product:")
	cmd.Printf("    Name:        %s\n", orDash(parsed.ProductName))
	cmd.Printf("    Brand:       %s\n", orDash(parsed.Brand))
	cmd.Printf("    Description: %s\n", orDash(parsed.Description))

	cmd.Printf("\n  Prompt preview:\n    %s\n", truncate(record.Prompt, promptPreview))
	cmd.Printf("\n  Response preview:\n    %s\n", truncate(record.RawResponse, responsePreview))

	cmd.Println("\n  Non-empty fields:")
	for _, name := range domain.ScalarFieldNames {
		if v := parsed.Scalar(name); v != "" {
			cmd.Printf("    %s: %s\n", name, v)
		}
	}
	for _, k := range slices.Sorted(maps.Keys(parsed.TechnicalSpecs)) {
		cmd.Printf("    %s.%s: %s\n", domain.FieldTechnicalSpecs, k, parsed.TechnicalSpecs[k])
	}
	for _, k := range slices.Sorted(maps.Keys(parsed.Dimensions)) {
		cmd.Printf("    %s.%s: %s\n", domain.FieldDimensions, k, parsed.Dimensions[k])
	}
	if len(parsed.Features) > 0 {
		cmd.Printf("    %s: %v\n", domain.FieldFeatures, parsed.Features)
	}
	if len(parsed.Certifications) > 0 {
		cmd.Printf("    %s: %v\n", domain.FieldCertifications, parsed.Certifications)
	}
	return nil
}

func runResponsesClean(cmd *cobra.Command, deps Dependencies, days int) error {
	if deps.Responses == nil {
		return errors.New("response store not configured")
	}

	cutoff := deps.Now().Add(-time.Duration(days) * 24 * time.Hour)
	cmd.Printf("Deleting responses older than %d days (before %s)\n", days, cutoff.Format("2006-01-02 15:04:05"))

	deleted, err := deps.Responses.Clean(cutoff)
	if err != nil {
		return fmt.Errorf("failed to clean responses: %w", err)
	}

	cmd.Printf("Deleted %d responses\n", deleted)
	return nil
}

func formatAge(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
