package agents

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/courseforge/courseforge/internal/revision"
)

// Writer drafts section content. It implements revision.Drafter.
type Writer struct {
	client     LLMClient
	model      string
	guidelines string
	log        *zap.Logger
}

// NewWriter builds the drafting agent. Guidelines are the course-wide
// writing rules loaded at startup and repeated on every drafting pass.
func NewWriter(client LLMClient, model, guidelines string, log *zap.Logger) *Writer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Writer{client: client, model: model, guidelines: guidelines, log: log}
}

// Generate produces one draft. The returned text is the raw markdown body;
// code fences the model sometimes wraps the whole answer in are stripped.
func (w *Writer) Generate(ctx context.Context, req revision.DraftRequest) (string, error) {
	prompt := Prompt{System: writerSystemPrompt, User: renderDraftPrompt(req, w.guidelines)}
	w.log.Debug("drafting section",
		zap.String("section", req.Spec.ID),
		zap.Bool("revision_pass", req.Plan != nil),
	)
	raw, err := w.client.Complete(ctx, w.model, prompt)
	if err != nil {
		return "", fmt.Errorf("agents: draft %s: %w", req.Spec.ID, err)
	}
	content := stripFence(strings.TrimSpace(raw))
	if content == "" {
		return "", fmt.Errorf("agents: draft %s: model returned empty content", req.Spec.ID)
	}
	return content, nil
}

// stripFence removes a single markdown code fence wrapping the whole text.
func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	trimmed := strings.TrimSuffix(s, "```")
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		return strings.TrimSpace(trimmed[idx+1:])
	}
	return s
}
