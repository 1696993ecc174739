package mention

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/hakimbdev/TeleMedicineAIHelper2-sub000/internal/domain/knowledge"
)

// LLMConfig configures the chat-completion backed extractor.
type LLMConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// LLMExtractor asks a chat-completion model to pick concept ids from the
// table. Ids the table does not know are discarded. When the model call
// fails or returns nothing usable it falls back to local matching.
type LLMExtractor struct {
	client *openai.Client
	model  string
	table  *knowledge.Table
	prompt string
	logger zerolog.Logger
}

func NewLLMExtractor(cfg LLMConfig, table *knowledge.Table, logger zerolog.Logger) *LLMExtractor {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &LLMExtractor{
		client: openai.NewClientWithConfig(oc),
		model:  model,
		table:  table,
		prompt: systemPrompt(table),
		logger: logger,
	}
}

func systemPrompt(table *knowledge.Table) string {
	var b strings.Builder
	b.WriteString("You map a patient's description of how they feel to symptom ids.\n")
	b.WriteString("Only use ids from this list:\n")
	for _, c := range table.Concepts() {
		fmt.Fprintf(&b, "- %s: %s", c.ID, c.Name)
		if len(c.Synonyms) > 0 {
			fmt.Fprintf(&b, " (%s)", strings.Join(c.Synonyms, ", "))
		}
		b.WriteString("\n")
	}
	b.WriteString(`Reply with JSON only, in the form {"mentions":[{"id":"...","phrase":"..."}]} where phrase is the words the patient used. Reply {"mentions":[]} if nothing matches.`)
	return b.String()
}

type llmReply struct {
	Mentions []struct {
		ID     string `json:"id"`
		Phrase string `json:"phrase"`
	} `json:"mentions"`
}

func (e *LLMExtractor) Extract(ctx context.Context, text string) (Result, error) {
	res, err := e.extract(ctx, text)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, ctxErr
		}
		e.logger.Warn().Err(err).Msg("model extraction failed, using local matcher")
		return Extract(text, e.table), nil
	}
	return res, nil
}

func (e *LLMExtractor) extract(ctx context.Context, text string) (Result, error) {
	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: e.prompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		Temperature: 0,
	})
	if err != nil {
		return Result{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Result{}, errors.New("chat completion returned no choices")
	}

	var reply llmReply
	if err := json.Unmarshal([]byte(stripFence(resp.Choices[0].Message.Content)), &reply); err != nil {
		return Result{}, fmt.Errorf("decode model reply: %w", err)
	}

	res := Result{Mentions: []Mention{}}
	seen := make(map[string]bool)
	for _, m := range reply.Mentions {
		c, ok := e.table.Concept(m.ID)
		if !ok || seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		phrase := m.Phrase
		if phrase == "" {
			phrase = c.Name
		}
		res.Mentions = append(res.Mentions, Mention{ConceptID: c.ID, Name: c.Name, MatchedPhrase: phrase, State: StatePresent})
	}
	res.IsObvious = len(res.Mentions) > 0
	return res, nil
}

// stripFence removes a surrounding ``` block, which some models add even
// when asked for bare JSON.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}
