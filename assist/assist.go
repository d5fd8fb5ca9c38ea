// Package assist provides an Anthropic API backed hover provider that
// explains the word under the cursor.
package assist

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog"
	"go.lsp.dev/protocol"

	"github.com/lex00/wetwire-lsp-go/lsp"
)

// DefaultModel is the default model used by the hover provider.
const DefaultModel = "claude-sonnet-4-20250514"

// DefaultMaxTokens bounds the length of a hover explanation.
const DefaultMaxTokens = 512

const systemPrompt = "You explain identifiers in source files for an editor hover. " +
	"Answer in at most three sentences of Markdown. If the identifier is unclear from the context, say so briefly."

// Config contains configuration for the hover provider.
type Config struct {
	// APIKey for Anthropic (defaults to ANTHROPIC_API_KEY env var)
	APIKey string

	// Model defaults to DefaultModel
	Model string

	// MaxTokens defaults to DefaultMaxTokens
	MaxTokens int

	// Options are passed to the Anthropic client after the API key.
	Options []option.RequestOption

	Logger zerolog.Logger
}

// HoverProvider implements lsp.HoverProvider using the Anthropic API.
// Answers are cached per language and word.
type HoverProvider struct {
	client    anthropic.Client
	model     string
	maxTokens int
	logger    zerolog.Logger

	mu    sync.Mutex
	cache map[string]string
}

var _ lsp.HoverProvider = (*HoverProvider)(nil)

// New creates a new hover provider.
func New(config Config) (*HoverProvider, error) {
	apiKey := config.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
	}

	model := config.Model
	if model == "" {
		model = DefaultModel
	}
	maxTokens := config.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	opts := append([]option.RequestOption{option.WithAPIKey(apiKey)}, config.Options...)

	return &HoverProvider{
		client:    anthropic.NewClient(opts...),
		model:     model,
		maxTokens: maxTokens,
		logger:    config.Logger.With().Str("component", "assist").Logger(),
		cache:     make(map[string]string),
	}, nil
}

// Hover explains the identifier at pos. It returns nil when pos is not on
// an identifier or the model has nothing to say.
func (p *HoverProvider) Hover(ctx context.Context, doc *lsp.Document, pos protocol.Position) (*protocol.Hover, error) {
	word, rng := doc.WordAt(pos)
	if word == "" {
		return nil, nil
	}

	key := doc.LanguageID + "\x00" + word
	p.mu.Lock()
	text, ok := p.cache[key]
	p.mu.Unlock()

	if !ok {
		resp, err := p.client.Messages.New(ctx, p.buildParams(doc, word, int(pos.Line)))
		if err != nil {
			return nil, fmt.Errorf("API call failed: %w", err)
		}
		text = responseText(resp)

		p.mu.Lock()
		p.cache[key] = text
		p.mu.Unlock()
		p.logger.Debug().Str("word", word).Int("chars", len(text)).Msg("hover explanation fetched")
	}

	if text == "" {
		return nil, nil
	}
	return &protocol.Hover{
		Contents: protocol.MarkupContent{Kind: protocol.Markdown, Value: text},
		Range:    &rng,
	}, nil
}

// buildParams asks about word, quoting the surrounding lines as context.
func (p *HoverProvider) buildParams(doc *lsp.Document, word string, line int) anthropic.MessageNewParams {
	var excerpt strings.Builder
	for n := max(line-2, 0); n <= line+2 && n < doc.LineCount(); n++ {
		excerpt.WriteString(doc.Line(n))
		excerpt.WriteByte('\n')
	}

	language := doc.LanguageID
	if language == "" {
		language = "plain text"
	}
	prompt := fmt.Sprintf("In this %s excerpt from %s:\n\n```\n%s```\n\nWhat does `%s` mean?",
		language, doc.Filename(), excerpt.String(), word)

	return anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: int64(p.maxTokens),
		System:    []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages:  []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
	}
}

func responseText(resp *anthropic.Message) string {
	if resp == nil {
		return ""
	}
	var parts []string
	for _, block := range resp.Content {
		if block.Type == "text" && block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	return strings.TrimSpace(strings.Join(parts, "\n\n"))
}
