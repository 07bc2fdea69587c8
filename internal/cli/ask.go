package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Jhongjin/meta-faq-chatbot-sub001/internal/domain/answer"
)

type sourceOutput struct {
	Title      string  `json:"title"`
	URL        string  `json:"url,omitempty"`
	Similarity float64 `json:"similarity"`
	Excerpt    string  `json:"excerpt"`
}

type askOutput struct {
	Answer           string         `json:"answer"`
	Confidence       float64        `json:"confidence"`
	Model            string         `json:"model"`
	IsLLMGenerated   bool           `json:"is_llm_generated"`
	ProcessingTimeMs int64          `json:"processing_time_ms"`
	Sources          []sourceOutput `json:"sources"`
}

const excerptRunes = 120

func askCmd(with runWith) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question",
		Long:  "Answers a question from the indexed documents. Always prints an answer, even when every backend is down.",
		Args:  cobra.MinimumNArgs(1),
		RunE: with(func(cmd *cobra.Command, args []string, s *services) error {
			query := strings.TrimSpace(strings.Join(args, " "))
			if query == "" {
				return fmt.Errorf("question is empty")
			}
			resp := s.asker.Ask(cmd.Context(), query)
			return printAnswer(cmd.OutOrStdout(), resp, asJSON)
		}),
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the response as JSON")
	return cmd
}

func printAnswer(w io.Writer, resp answer.GenerationResponse, asJSON bool) error {
	out := askOutput{
		Answer:           resp.Answer,
		Confidence:       resp.Confidence,
		Model:            resp.Model,
		IsLLMGenerated:   resp.IsLLMGenerated,
		ProcessingTimeMs: resp.ProcessingTimeMs,
		Sources:          make([]sourceOutput, 0, len(resp.Sources)),
	}
	for _, src := range resp.Sources {
		out.Sources = append(out.Sources, sourceOutput{
			Title:      src.Title,
			URL:        src.URL,
			Similarity: src.Similarity,
			Excerpt:    truncateRunes(src.Content, excerptRunes),
		})
	}

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Fprintln(w, out.Answer)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "model: %s  confidence: %.2f  llm: %t  time: %dms\n",
		out.Model, out.Confidence, out.IsLLMGenerated, out.ProcessingTimeMs)
	for i, src := range out.Sources {
		fmt.Fprintf(w, "[%d] %s (%.3f)", i+1, src.Title, src.Similarity)
		if src.URL != "" {
			fmt.Fprintf(w, " %s", src.URL)
		}
		fmt.Fprintln(w)
	}
	return nil
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
