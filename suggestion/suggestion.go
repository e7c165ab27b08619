// Package suggestion asks the remote assistant for a repair suggestion for
// one diagnosis record.
package suggestion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"obd-backend/diagnosis"
	"obd-backend/pkg/log"
)

const (
	AssistantName = "Vehicle Diagnostic Assistant"
	Instructions  = "You are a vehicle diagnostic assistant. Provide the most accurate vehicle problem diagnosis and solutions. " +
		"In case of questions that are not related to your expertise as a vehicle diagnostic assistant answer just -Eu não posso te ajudar com isso-. " +
		"Your response should be less than or equal to 300 words."
	RunInstructions = "Please address the user as 'Mecânico'."

	// Fallback is returned when the run ends in any state but completed.
	Fallback = "An error occurred processing the request. Try again."

	StatusCompleted = "completed"
)

var (
	ErrServiceUnavailable = errors.New("suggestion service unavailable")
	ErrServiceTimeout     = fmt.Errorf("%w: deadline exceeded", ErrServiceUnavailable)
)

// pending run states; anything else is terminal.
var pending = map[string]bool{
	"queued":      true,
	"in_progress": true,
	"cancelling":  true,
}

// Assistant is the remote conversational service. *openai.Client implements it.
type Assistant interface {
	CreateAssistant(ctx context.Context, name, instructions string) (string, error)
	DeleteAssistant(ctx context.Context, assistantID string) error
	CreateThread(ctx context.Context) (string, error)
	AddUserMessage(ctx context.Context, threadID, content string) error
	StartRun(ctx context.Context, threadID, assistantID, instructions string) (string, error)
	RunStatus(ctx context.Context, threadID, runID string) (string, error)
	CancelRun(ctx context.Context, threadID, runID string) error
	ThreadTexts(ctx context.Context, threadID string) ([]string, error)
}

// Policy bounds the exchange with the assistant.
type Policy struct {
	// PollInterval is the wait between run status checks.
	PollInterval time.Duration
	// MaxWait is the deadline for the whole exchange, cleanup excluded.
	MaxWait time.Duration
	// PollRetries is how many consecutive failed status checks are tolerated.
	PollRetries int
	// FallbackOnError turns transport failures into the Fallback text
	// instead of returning ErrServiceUnavailable.
	FallbackOnError bool
}

func DefaultPolicy() Policy {
	return Policy{
		PollInterval: time.Second,
		MaxWait:      90 * time.Second,
		PollRetries:  3,
	}
}

const cleanupTimeout = 15 * time.Second

type Client struct {
	ai     Assistant
	policy Policy
}

func NewClient(ai Assistant, p Policy) *Client {
	d := DefaultPolicy()
	if p.PollInterval <= 0 {
		p.PollInterval = d.PollInterval
	}
	if p.MaxWait <= 0 {
		p.MaxWait = d.MaxWait
	}
	if p.PollRetries < 0 {
		p.PollRetries = 0
	}
	return &Client{ai: ai, policy: p}
}

func (c *Client) Policy() Policy { return c.policy }

// Suggest runs one assistant exchange for rec. A run that finishes in a
// non-success state yields Fallback with a nil error; transport failures
// return ErrServiceUnavailable (or ErrServiceTimeout) unless the policy
// folds them into Fallback.
func (c *Client) Suggest(ctx context.Context, rec diagnosis.Record) (string, error) {
	text, err := c.exchange(ctx, rec)
	if err != nil {
		if c.policy.FallbackOnError {
			log.Warn("suggestion failed, answering with fallback", zap.Error(err))
			return Fallback, nil
		}
		return "", err
	}
	return text, nil
}

func (c *Client) exchange(parent context.Context, rec diagnosis.Record) (string, error) {
	ctx, cancel := context.WithTimeout(parent, c.policy.MaxWait)
	defer cancel()

	assistantID, err := c.ai.CreateAssistant(ctx, AssistantName, Instructions)
	if err != nil {
		return "", unavailable(ctx, err)
	}
	defer c.release(ctx, assistantID)
	log.Debug("assistant created", zap.String("assistant", assistantID))

	threadID, err := c.ai.CreateThread(ctx)
	if err != nil {
		return "", unavailable(ctx, err)
	}
	if err := c.ai.AddUserMessage(ctx, threadID, Prompt(rec)); err != nil {
		return "", unavailable(ctx, err)
	}
	runID, err := c.ai.StartRun(ctx, threadID, assistantID, RunInstructions)
	if err != nil {
		return "", unavailable(ctx, err)
	}
	log.Debug("run started", zap.String("thread", threadID), zap.String("run", runID))

	status, err := c.await(ctx, threadID, runID)
	if err != nil {
		c.abandon(ctx, threadID, runID)
		return "", err
	}
	if status != StatusCompleted {
		log.Warn("run ended without completing", zap.String("run", runID), zap.String("status", status))
		return Fallback, nil
	}

	texts, err := c.ai.ThreadTexts(ctx, threadID)
	if err != nil {
		return "", unavailable(ctx, err)
	}
	return StripMarkdown(strings.Join(texts, "\n")), nil
}

// await polls the run until it leaves the pending states.
func (c *Client) await(ctx context.Context, threadID, runID string) (string, error) {
	ticker := time.NewTicker(c.policy.PollInterval)
	defer ticker.Stop()

	failures := 0
	for {
		status, err := c.ai.RunStatus(ctx, threadID, runID)
		switch {
		case err != nil && ctx.Err() != nil:
			return "", unavailable(ctx, err)
		case err != nil:
			failures++
			if failures > c.policy.PollRetries {
				return "", unavailable(ctx, err)
			}
			log.Debug("run status check failed", zap.String("run", runID), zap.Int("failures", failures), zap.Error(err))
		case !pending[status]:
			return status, nil
		default:
			failures = 0
		}

		select {
		case <-ctx.Done():
			return "", unavailable(ctx, ctx.Err())
		case <-ticker.C:
		}
	}
}

// release deletes the assistant even when ctx is already done.
func (c *Client) release(ctx context.Context, assistantID string) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()
	if err := c.ai.DeleteAssistant(cctx, assistantID); err != nil {
		log.Warn("assistant cleanup failed", zap.String("assistant", assistantID), zap.Error(err))
		return
	}
	log.Debug("assistant deleted", zap.String("assistant", assistantID))
}

// abandon cancels a run the caller stopped waiting for.
func (c *Client) abandon(ctx context.Context, threadID, runID string) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()
	if err := c.ai.CancelRun(cctx, threadID, runID); err != nil {
		log.Debug("run cancel failed", zap.String("run", runID), zap.Error(err))
	}
}

func unavailable(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrServiceTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
}
