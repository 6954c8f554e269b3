package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/sashabaranov/go-openai"
	log "github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

// SummarizerConfig selects and configures the LLM provider used for the
// summarizing stage.
type SummarizerConfig struct {
	Provider string // "openai" or "gemini"
	APIKey   string
	Model    string
	BaseURL  string // openai only; defaults to the DashScope compatible endpoint
	Prompt   string // system prompt
}

// NewSummarizer builds the configured provider. An empty API key yields a
// disabled summarizer whose calls fail, so the server can start without
// credentials and reject jobs at submission instead.
func NewSummarizer(cfg SummarizerConfig) (Summarizer, error) {
	switch cfg.Provider {
	case "openai":
		return newOpenAISummarizer(cfg), nil
	case "gemini":
		return newGeminiSummarizer(cfg)
	default:
		return nil, fmt.Errorf("unknown summarize provider %q", cfg.Provider)
	}
}

// openAISummarizer talks to any OpenAI-compatible chat completion endpoint.
// With the default base URL that is DashScope serving the qwen models.
type openAISummarizer struct {
	client *openai.Client
	model  string
	prompt string
}

func newOpenAISummarizer(cfg SummarizerConfig) *openAISummarizer {
	if cfg.APIKey == "" {
		log.Warn("no summarizer API key provided, summarization is disabled")
		return &openAISummarizer{}
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &openAISummarizer{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		prompt: cfg.Prompt,
	}
}

func (s *openAISummarizer) Summarize(ctx context.Context, transcript string) (string, error) {
	if s.client == nil {
		return "", fmt.Errorf("summarizer is not configured (missing API key)")
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: s.prompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf("Summarize the following transcript into study notes:\n\n%s", transcript)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no completion choices returned")
	}

	choice := resp.Choices[0]
	if choice.FinishReason == openai.FinishReasonContentFilter {
		// Not a failure: the model looked at the content and declined.
		// The explanation becomes the job's summary.
		msg := strings.TrimSpace(choice.Message.Content)
		if msg == "" {
			msg = "The model declined to summarize this content (content policy)."
		}
		return msg, nil
	}
	return choice.Message.Content, nil
}

// geminiSummarizer uses the Google Gemini API as an alternative provider.
type geminiSummarizer struct {
	client *genai.Client
	model  string
	prompt string
}

func newGeminiSummarizer(cfg SummarizerConfig) (*geminiSummarizer, error) {
	if cfg.APIKey == "" {
		log.Warn("no Gemini API key provided, summarization is disabled")
		return &geminiSummarizer{}, nil
	}
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("create Gemini client: %w", err)
	}
	return &geminiSummarizer{
		client: client,
		model:  cfg.Model,
		prompt: cfg.Prompt,
	}, nil
}

func (s *geminiSummarizer) Summarize(ctx context.Context, transcript string) (string, error) {
	if s.client == nil {
		return "", fmt.Errorf("summarizer is not configured (missing API key)")
	}

	model := s.client.GenerativeModel(s.model)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(s.prompt)}}

	resp, err := model.GenerateContent(ctx, genai.Text(fmt.Sprintf("Summarize the following transcript into study notes:\n\n%s", transcript)))
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockReasonUnspecified {
		return fmt.Sprintf("The model declined to summarize this content (%s).", resp.PromptFeedback.BlockReason), nil
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("no candidates returned")
	}
	if resp.Candidates[0].FinishReason == genai.FinishReasonSafety {
		return "The model declined to summarize this content (safety).", nil
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String(), nil
}
