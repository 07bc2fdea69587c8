package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	domdoc "github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain/document"
	documentuc "github.com/Jhongjin/meta-faq-chatbot-sub001/internal/usecase/document"
)

func ingestCmd(with runWith) *cobra.Command {
	var id, title, url string

	cmd := &cobra.Command{
		Use:   "ingest <file|->",
		Short: "Index a text document",
		Long: "Chunks, embeds and stores a plain text document. Use - to read from stdin. " +
			"Re-ingesting an existing id replaces its chunks.",
		Args: cobra.ExactArgs(1),
		RunE: with(func(cmd *cobra.Command, args []string, s *services) error {
			text, name, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			req := documentuc.IndexRequest{
				ID:         id,
				Title:      title,
				SourceType: domdoc.SourceFile,
				URL:        url,
				Text:       text,
			}
			if req.Title == "" {
				req.Title = name
			}
			if url != "" {
				req.SourceType = domdoc.SourceURL
			}

			report, err := s.indexer.Index(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "document %s: %s (chunks=%d fallback=%d failed=%d)\n",
				report.DocumentID, report.Status, report.Chunks, report.Fallback, report.Failed)
			return nil
		}),
	}
	cmd.Flags().StringVar(&id, "id", "", "Document id (generated when empty)")
	cmd.Flags().StringVar(&title, "title", "", "Document title (defaults to the file name)")
	cmd.Flags().StringVar(&url, "url", "", "Source URL; marks the document as a url source")
	return cmd
}

// readInput returns the text and a display name for path, or stdin for "-".
func readInput(stdin io.Reader, path string) (string, string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), "", nil
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return "", "", fmt.Errorf("read %s: %w", path, err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return string(data), name, nil
}
