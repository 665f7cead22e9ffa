package draft

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/evigdal/assayer/internal/model"
	"github.com/evigdal/assayer/internal/prompt"
	"github.com/evigdal/assayer/internal/provider"
	"github.com/evigdal/assayer/internal/redact"
)

// Template keys for the two draft kinds.
const (
	templateActionPlan = "action-plan"
	templateDpia       = "dpia-draft"
)

// Config controls generation behavior.
type Config struct {
	// LocalMode skips the external provider entirely and uses only the
	// deterministic fallback.
	LocalMode bool
	// PIIMasking redacts the serialized model input before it leaves the
	// process.
	PIIMasking bool
}

// Generator produces remediation drafts. Provider failures of any kind are
// recovered locally via the deterministic fallback; only guardrail
// violations propagate to the caller.
type Generator struct {
	provider  provider.JSONProvider
	templates *prompt.Repository
	cfg       Config
	logw      io.Writer
}

// New creates a Generator. templates may be backed by an empty directory;
// built-in defaults apply.
func New(p provider.JSONProvider, templates *prompt.Repository, cfg Config) *Generator {
	return &Generator{
		provider:  p,
		templates: templates,
		cfg:       cfg,
		logw:      os.Stderr,
	}
}

// GenerateActionPlan returns a validated remediation action plan for the
// given summary and findings, or ErrGuardrail.
func (g *Generator) GenerateActionPlan(ctx context.Context, summary *model.Summary, findings []model.FindingDraft) (*ActionPlan, error) {
	if err := enforceGuardrail(summary, findings); err != nil {
		return nil, err
	}

	fallback := fallbackActionPlan(findings)
	if err := validatePlan(fallback); err != nil {
		// The fallback is constructed to always pass; reaching this is a
		// programming-invariant violation, not a recoverable condition.
		return nil, fmt.Errorf("fallback action plan invalid: %w", err)
	}

	if g.cfg.LocalMode {
		return fallback, nil
	}

	plan, err := g.generatePlan(ctx, summary, findings)
	if err != nil {
		fmt.Fprintf(g.logw, "assayer: action plan generation failed, using deterministic fallback: %v\n", err)
		return fallback, nil
	}
	return plan, nil
}

// GenerateDpiaDraft returns a validated DPIA outline for the given summary
// and findings, or ErrGuardrail.
func (g *Generator) GenerateDpiaDraft(ctx context.Context, summary *model.Summary, findings []model.FindingDraft) (*DpiaDraft, error) {
	if err := enforceGuardrail(summary, findings); err != nil {
		return nil, err
	}

	fallback := fallbackDpia(summary, findings)
	if err := validateDpia(fallback); err != nil {
		return nil, fmt.Errorf("fallback DPIA draft invalid: %w", err)
	}

	if g.cfg.LocalMode {
		return fallback, nil
	}

	dpia, err := g.generateDpia(ctx, summary, findings)
	if err != nil {
		fmt.Fprintf(g.logw, "assayer: DPIA draft generation failed, using deterministic fallback: %v\n", err)
		return fallback, nil
	}
	return dpia, nil
}

func (g *Generator) generatePlan(ctx context.Context, summary *model.Summary, findings []model.FindingDraft) (*ActionPlan, error) {
	out, err := g.callProvider(ctx, templateActionPlan, summary, findings)
	if err != nil {
		return nil, err
	}

	var plan ActionPlan
	if err := json.Unmarshal([]byte(out), &plan); err != nil {
		return nil, fmt.Errorf("parse provider output: %w", err)
	}
	if err := validatePlan(&plan); err != nil {
		return nil, err
	}
	return &plan, nil
}

func (g *Generator) generateDpia(ctx context.Context, summary *model.Summary, findings []model.FindingDraft) (*DpiaDraft, error) {
	out, err := g.callProvider(ctx, templateDpia, summary, findings)
	if err != nil {
		return nil, err
	}

	var dpia DpiaDraft
	if err := json.Unmarshal([]byte(out), &dpia); err != nil {
		return nil, fmt.Errorf("parse provider output: %w", err)
	}
	if err := validateDpia(&dpia); err != nil {
		return nil, err
	}
	return &dpia, nil
}

// callProvider serializes the model input, redacts it when masking is on,
// renders the prompt pair, and calls the provider.
func (g *Generator) callProvider(ctx context.Context, templateKey string, summary *model.Summary, findings []model.FindingDraft) (string, error) {
	input, err := g.modelInput(summary, findings)
	if err != nil {
		return "", err
	}

	system := g.templates.SystemPrompt(templateKey)
	user := strings.ReplaceAll(g.templates.UserPrompt(templateKey), prompt.InputPlaceholder, input)

	return g.provider.GenerateJSON(ctx, templateKey, system, user)
}

func (g *Generator) modelInput(summary *model.Summary, findings []model.FindingDraft) (string, error) {
	payload, err := json.Marshal(struct {
		Summary  *model.Summary       `json:"summary"`
		Findings []model.FindingDraft `json:"findings"`
	}{summary, findings})
	if err != nil {
		return "", fmt.Errorf("marshal model input: %w", err)
	}

	input := string(payload)
	if g.cfg.PIIMasking {
		input = redact.Redact(input)
	}
	return input, nil
}
