package openai

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const DefaultModel = "gpt-4o-mini"

// messagePageSize is the largest page the messages endpoint accepts. A
// diagnosis thread holds two messages, so one page is always enough.
const messagePageSize = 100

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Client wraps the Assistants endpoints used by the diagnosis flow.
type Client struct {
	api   *openai.Client
	key   string
	Model string
}

func NewClient(cfg Config) *Client {
	key := sanitizeEnv(cfg.APIKey)
	oc := openai.DefaultConfig(key)
	if base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); base != "" {
		oc.BaseURL = base
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	return &Client{api: openai.NewClientWithConfig(oc), key: key, Model: model}
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool { return c.key != "" }

// CreateAssistant creates an assistant with the code interpreter tool and
// returns its ID.
func (c *Client) CreateAssistant(ctx context.Context, name, instructions string) (string, error) {
	a, err := c.api.CreateAssistant(ctx, openai.AssistantRequest{
		Model:        c.Model,
		Name:         &name,
		Instructions: &instructions,
		Tools:        []openai.AssistantTool{{Type: openai.AssistantToolTypeCodeInterpreter}},
	})
	if err != nil {
		return "", fmt.Errorf("create assistant: %w", err)
	}
	return a.ID, nil
}

func (c *Client) DeleteAssistant(ctx context.Context, assistantID string) error {
	if _, err := c.api.DeleteAssistant(ctx, assistantID); err != nil {
		return fmt.Errorf("delete assistant %s: %w", assistantID, err)
	}
	return nil
}

func (c *Client) CreateThread(ctx context.Context) (string, error) {
	th, err := c.api.CreateThread(ctx, openai.ThreadRequest{})
	if err != nil {
		return "", fmt.Errorf("create thread: %w", err)
	}
	return th.ID, nil
}

func (c *Client) AddUserMessage(ctx context.Context, threadID, content string) error {
	_, err := c.api.CreateMessage(ctx, threadID, openai.MessageRequest{
		Role:    openai.ChatMessageRoleUser,
		Content: content,
	})
	if err != nil {
		return fmt.Errorf("create message in %s: %w", threadID, err)
	}
	return nil
}

// StartRun runs the assistant against the thread and returns the run ID.
func (c *Client) StartRun(ctx context.Context, threadID, assistantID, instructions string) (string, error) {
	run, err := c.api.CreateRun(ctx, threadID, openai.RunRequest{
		AssistantID:  assistantID,
		Instructions: instructions,
	})
	if err != nil {
		return "", fmt.Errorf("create run in %s: %w", threadID, err)
	}
	return run.ID, nil
}

// RunStatus returns the current status of a run ("queued", "completed", ...).
func (c *Client) RunStatus(ctx context.Context, threadID, runID string) (string, error) {
	run, err := c.api.RetrieveRun(ctx, threadID, runID)
	if err != nil {
		return "", fmt.Errorf("retrieve run %s: %w", runID, err)
	}
	return string(run.Status), nil
}

func (c *Client) CancelRun(ctx context.Context, threadID, runID string) error {
	if _, err := c.api.CancelRun(ctx, threadID, runID); err != nil {
		return fmt.Errorf("cancel run %s: %w", runID, err)
	}
	return nil
}

// ThreadTexts returns the text parts of every message in thread order.
func (c *Client) ThreadTexts(ctx context.Context, threadID string) ([]string, error) {
	limit := messagePageSize
	order := "asc"
	list, err := c.api.ListMessage(ctx, threadID, &limit, &order, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("list messages in %s: %w", threadID, err)
	}
	var out []string
	for _, m := range list.Messages {
		for _, part := range m.Content {
			if part.Type == "text" && part.Text != nil {
				out = append(out, part.Text.Value)
			}
		}
	}
	return out, nil
}

// sanitizeEnv strips whitespace and one pair of matching surrounding quotes,
// which .env files and deployment dashboards tend to leave on secrets.
func sanitizeEnv(v string) string {
	v = strings.TrimSpace(v)
	if len(v) >= 2 {
		first, last := v[0], v[len(v)-1]
		if (first == '"' || first == '\'') && first == last {
			v = v[1 : len(v)-1]
		}
	}
	return v
}
