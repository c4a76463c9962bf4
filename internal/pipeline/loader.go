package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gtext "github.com/yuin/goldmark/text"

	"rasoi-ai/internal/contextutil"
)

// RawPost is one scraped contextual Q&A record as produced by the scrapers.
type RawPost struct {
	Question       string `json:"question"`
	Answer         string `json:"answer"`
	SourcePlatform string `json:"source_platform"`
	SourceURL      string `json:"source_url"`
	Score          int    `json:"score"`
}

// validate checks the data-quality rules for one scraped record. Records
// failing validation are excluded from downstream processing, not retried.
func (p *RawPost) validate() error {
	if strings.TrimSpace(p.Question) == "" {
		return fmt.Errorf("question is empty")
	}
	if strings.TrimSpace(p.Answer) == "" {
		return fmt.Errorf("answer is empty")
	}
	if p.SourceURL == "" {
		return fmt.Errorf("source_url is empty")
	}
	parsed, err := url.Parse(p.SourceURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("source_url is not a valid URL: %q", p.SourceURL)
	}
	return nil
}

var markdownParser = goldmark.New()

// flattenMarkdown reduces the markdown that forum scrapers capture to plain
// text by walking the parsed AST and collecting text segments. Block
// boundaries become single spaces.
func flattenMarkdown(content string) string {
	source := []byte(content)
	doc := markdownParser.Parser().Parse(gtext.NewReader(source))

	var builder strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Text:
			builder.Write(node.Segment.Value(source))
			if node.SoftLineBreak() || node.HardLineBreak() {
				builder.WriteByte(' ')
			}
		case *ast.Paragraph, *ast.Heading, *ast.ListItem:
			if builder.Len() > 0 {
				builder.WriteByte(' ')
			}
		}
		return ast.WalkContinue, nil
	})

	return strings.Join(strings.Fields(builder.String()), " ")
}

// LoadRawPosts reads scraped contextual posts from a JSON file, flattens
// markdown in answers, and drops records that fail validation. A missing
// file is not an error; it returns an empty slice.
func LoadRawPosts(ctx context.Context, path string) ([]RawPost, error) {
	logger := contextutil.LoggerFromContext(ctx)

	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.WarnContext(ctx, "raw data file not found, skipping load", "path", path)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read raw data file: %w", err)
	}

	var raw []RawPost
	if err := json.Unmarshal(content, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode raw data file %s: %w", path, err)
	}

	posts := make([]RawPost, 0, len(raw))
	for _, post := range raw {
		if err := post.validate(); err != nil {
			logger.WarnContext(ctx, "skipping malformed record", "source_url", post.SourceURL, "error", err)
			continue
		}
		post.Answer = flattenMarkdown(post.Answer)
		posts = append(posts, post)
	}

	logger.InfoContext(ctx, "raw posts loaded", "path", path, "valid", len(posts), "skipped", len(raw)-len(posts))
	return posts, nil
}
