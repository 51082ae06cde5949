package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/net/html"

	"github.com/custodia-labs/sercha-answers/internal/core/domain"
	"github.com/custodia-labs/sercha-answers/internal/core/ports/driving"
)

// cliClientIP is the limiter identity for terminal requests.
const cliClientIP = "cli"

var (
	askDocs string
	askJSON bool
)

var askCmd = &cobra.Command{
	Use:   "ask [query]",
	Short: "Answer a query from a documents file",
	Long: `Runs the full answer pipeline for one query against the candidate
documents in a JSON file (an array of {id, title, url, excerpt, content,
type, published_at}). Use "-" to read the documents from stdin.

Bot detection is skipped for terminal requests. Rate limits, caching and
event logging still apply.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askDocs, "docs", "d", "", "documents JSON file (- for stdin)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the response as JSON")
	rootCmd.AddCommand(askCmd)
}

// documentFile is one entry of the --docs file.
type documentFile struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Excerpt     string `json:"excerpt"`
	Content     string `json:"content"`
	Type        string `json:"type"`
	PublishedAt string `json:"published_at"`
}

func runAsk(cmd *cobra.Command, args []string) error {
	if answerService == nil {
		return fmt.Errorf("answer %w", errNotConfigured)
	}

	docs, err := readDocuments(cmd, askDocs)
	if err != nil {
		return err
	}

	outcome := answerService.Answer(cmd.Context(), driving.AnswerRequest{
		Query:     args[0],
		Documents: docs,
		ClientIP:  cliClientIP,
	})
	resp := driving.NewAnswerResponse(outcome)

	if askJSON {
		data, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal response: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if !resp.Success {
		return fmt.Errorf("%s: %s", resp.Error, resp.Message)
	}
	outputAnswer(cmd, resp)
	return nil
}

func readDocuments(cmd *cobra.Command, path string) ([]domain.CandidateDocument, error) {
	if path == "" {
		return nil, nil
	}

	var r io.Reader
	if path == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open documents: %w", err)
		}
		defer f.Close()
		r = f
	}

	var entries []documentFile
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse documents: %w", err)
	}

	docs := make([]domain.CandidateDocument, len(entries))
	for i, e := range entries {
		docs[i] = domain.CandidateDocument{
			ID:          e.ID,
			Title:       e.Title,
			URL:         e.URL,
			Excerpt:     e.Excerpt,
			Content:     e.Content,
			Type:        e.Type,
			PublishedAt: domain.ParsePublishedAt(e.PublishedAt),
		}
	}
	return docs, nil
}

func outputAnswer(cmd *cobra.Command, resp driving.AnswerResponse) {
	cmd.Println(htmlToText(resp.AnswerHTML))
	if resp.CacheHit {
		cmd.Println("(cached)")
	}
	if len(resp.Results) == 0 {
		return
	}
	cmd.Println()
	cmd.Println("Sources:")
	for i, r := range resp.Results {
		title := r.Title
		if title == "" {
			title = r.ID
		}
		cmd.Printf("  [%d] %s\n", i+1, title)
		if r.URL != "" {
			cmd.Printf("      %s\n", r.URL)
		}
	}
}

// htmlToText renders answer HTML for a terminal: block elements become line
// breaks and list items get a bullet.
func htmlToText(s string) string {
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.TrimSpace(collapseBlankLines(b.String()))
		case html.TextToken:
			b.Write(z.Text())
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "br":
				b.WriteString("\n")
			case "li":
				b.WriteString("\n  - ")
			case "p", "h3", "h4", "ul", "ol":
				b.WriteString("\n\n")
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "p", "h3", "h4", "ul", "ol":
				b.WriteString("\n")
			}
		}
	}
}

func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	blank := false
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			if blank {
				continue
			}
			blank = true
			out = append(out, "")
			continue
		}
		blank = false
		out = append(out, strings.TrimRight(l, " "))
	}
	return strings.Join(out, "\n")
}
