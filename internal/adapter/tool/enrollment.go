package tool

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"trialmatch/internal/domain"
	"trialmatch/internal/infra/tracer"
	"trialmatch/internal/match"
)

// programSummary is the compact program view returned to the LLM.
type programSummary struct {
	ProgramID   string `json:"program_id"`
	ProgramName string `json:"program_name"`
	Phase       string `json:"phase"`
	Description string `json:"description"`
	Criteria    string `json:"criteria"`
}

// candidateSummary is the compact person view returned to the LLM.
// Clinical attributes stay out of tool output on purpose.
type candidateSummary struct {
	PersonID string `json:"person_id"`
	Name     string `json:"name"`
	Age      int    `json:"age"`
	Gender   string `json:"gender"`
}

func summarizeProgram(p domain.Program) programSummary {
	return programSummary{
		ProgramID:   p.ProgramID,
		ProgramName: p.ProgramName,
		Phase:       p.Phase,
		Description: p.Description,
		Criteria:    describeCriteria(p.Criteria),
	}
}

func summarizeCandidate(c domain.Candidate) candidateSummary {
	return candidateSummary{
		PersonID: c.PersonID,
		Name:     c.FullName(),
		Age:      c.Age,
		Gender:   c.Gender,
	}
}

// describeCriteria renders a criteria set as one human-readable line.
func describeCriteria(cr domain.Criteria) string {
	clauses := match.BuildClauses(cr)
	if len(clauses) == 0 {
		return "no eligibility restrictions"
	}
	parts := make([]string, 0, len(clauses))
	for _, cl := range clauses {
		parts = append(parts, cl.String())
	}
	return strings.Join(parts, "; ")
}

// ListProgramsTool returns every clinical program in the catalog.
type ListProgramsTool struct {
	src    domain.CatalogSource
	logger *slog.Logger
}

func NewListProgramsTool(src domain.CatalogSource, logger *slog.Logger) *ListProgramsTool {
	return &ListProgramsTool{src: src, logger: logger}
}

func (t *ListProgramsTool) Name() string { return "list_all_programs" }

func (t *ListProgramsTool) Description() string {
	return "List all clinical trial programs with their eligibility criteria"
}

func (t *ListProgramsTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters:  json.RawMessage(`{"type": "object", "properties": {}}`),
	}
}

func (t *ListProgramsTool) Execute(ctx context.Context, params json.RawMessage) (*domain.ToolResult, error) {
	return Execute(ctx, "tool.list_all_programs", t.logger, params,
		func(ctx context.Context, span trace.Span, _ struct{}) (any, error) {
			programs, err := t.src.Programs(ctx)
			if err != nil {
				return nil, err
			}
			span.SetAttributes(tracer.IntAttr("tool.programs", len(programs)))

			out := make([]programSummary, 0, len(programs))
			for _, p := range programs {
				out = append(out, summarizeProgram(p))
			}
			return out, nil
		},
	)
}

// FindProgramTool resolves a free-text program name to one program.
type FindProgramTool struct {
	finder *match.Finder
	logger *slog.Logger
}

func NewFindProgramTool(finder *match.Finder, logger *slog.Logger) *FindProgramTool {
	return &FindProgramTool{finder: finder, logger: logger}
}

func (t *FindProgramTool) Name() string { return "find_program_by_name" }

func (t *FindProgramTool) Description() string {
	return "Find a clinical trial program by (partial) name"
}

func (t *FindProgramTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"name": {"type": "string", "description": "Program name or a fragment of it"}
			},
			"required": ["name"]
		}`),
	}
}

type findByNameParams struct {
	Name string `json:"name"`
}

func (t *FindProgramTool) Execute(ctx context.Context, params json.RawMessage) (*domain.ToolResult, error) {
	return Execute(ctx, "tool.find_program_by_name", t.logger, params,
		func(ctx context.Context, span trace.Span, p findByNameParams) (any, error) {
			if err := RequireField("name", p.Name); err != nil {
				return nil, err
			}
			span.SetAttributes(tracer.StringAttr("tool.query", p.Name))

			program, score, err := t.finder.ProgramByName(ctx, p.Name)
			if errors.Is(err, domain.ErrNoNameMatch) {
				return ErrResult("no program matching %q", p.Name)
			}
			if err != nil {
				return nil, err
			}
			span.SetAttributes(tracer.IntAttr("tool.score", score))
			return summarizeProgram(*program), nil
		},
	)
}

// FindPersonTool resolves a free-text person name to one candidate.
type FindPersonTool struct {
	finder *match.Finder
	logger *slog.Logger
}

func NewFindPersonTool(finder *match.Finder, logger *slog.Logger) *FindPersonTool {
	return &FindPersonTool{finder: finder, logger: logger}
}

func (t *FindPersonTool) Name() string { return "find_person_by_name" }

func (t *FindPersonTool) Description() string {
	return "Find a person in the candidate pool by name, tolerating typos"
}

func (t *FindPersonTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"name": {"type": "string", "description": "Full name, e.g. \"John Smith\""}
			},
			"required": ["name"]
		}`),
	}
}

func (t *FindPersonTool) Execute(ctx context.Context, params json.RawMessage) (*domain.ToolResult, error) {
	return Execute(ctx, "tool.find_person_by_name", t.logger, params,
		func(ctx context.Context, span trace.Span, p findByNameParams) (any, error) {
			if err := RequireField("name", p.Name); err != nil {
				return nil, err
			}
			span.SetAttributes(tracer.StringAttr("tool.query", p.Name))

			c, score, err := t.finder.PersonByName(ctx, p.Name)
			if errors.Is(err, domain.ErrNoNameMatch) {
				return ErrResult("no person matching %q", p.Name)
			}
			if err != nil {
				return nil, err
			}
			span.SetAttributes(tracer.IntAttr("tool.score", score))
			return summarizeCandidate(*c), nil
		},
	)
}

// FindCandidatesTool screens the candidate pool against one program.
type FindCandidatesTool struct {
	matcher *match.Matcher
	logger  *slog.Logger
}

func NewFindCandidatesTool(matcher *match.Matcher, logger *slog.Logger) *FindCandidatesTool {
	return &FindCandidatesTool{matcher: matcher, logger: logger}
}

func (t *FindCandidatesTool) Name() string { return "find_candidates_for_program" }

func (t *FindCandidatesTool) Description() string {
	return "List every candidate eligible for a clinical trial program"
}

func (t *FindCandidatesTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"program_id": {"type": "string", "description": "Program id, e.g. \"CP001\""}
			},
			"required": ["program_id"]
		}`),
	}
}

type programIDParams struct {
	ProgramID string `json:"program_id"`
}

func (t *FindCandidatesTool) Execute(ctx context.Context, params json.RawMessage) (*domain.ToolResult, error) {
	return Execute(ctx, "tool.find_candidates_for_program", t.logger, params,
		func(ctx context.Context, span trace.Span, p programIDParams) (any, error) {
			if err := RequireField("program_id", p.ProgramID); err != nil {
				return nil, err
			}
			span.SetAttributes(tracer.StringAttr("tool.program_id", p.ProgramID))

			res, err := t.matcher.EligibleCandidates(ctx, p.ProgramID)
			if domain.IsNotFound(err) {
				return ErrResult("no program with id %q", p.ProgramID)
			}
			if err != nil {
				return nil, err
			}
			span.SetAttributes(tracer.IntAttr("tool.eligible", len(res.Eligible)))

			out := struct {
				Program  programSummary     `json:"program"`
				Screened int                `json:"screened"`
				Eligible []candidateSummary `json:"eligible"`
			}{
				Program:  summarizeProgram(res.Program),
				Screened: res.Screened,
				Eligible: make([]candidateSummary, 0, len(res.Eligible)),
			}
			for _, c := range res.Eligible {
				out.Eligible = append(out.Eligible, summarizeCandidate(c))
			}
			return out, nil
		},
	)
}

// FindProgramsTool screens one candidate against every program.
type FindProgramsTool struct {
	matcher *match.Matcher
	logger  *slog.Logger
}

func NewFindProgramsTool(matcher *match.Matcher, logger *slog.Logger) *FindProgramsTool {
	return &FindProgramsTool{matcher: matcher, logger: logger}
}

func (t *FindProgramsTool) Name() string { return "find_programs_for_candidate" }

func (t *FindProgramsTool) Description() string {
	return "List every clinical trial program a person is eligible for"
}

func (t *FindProgramsTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"person_id": {"type": "string", "description": "Person id, e.g. \"P010\""}
			},
			"required": ["person_id"]
		}`),
	}
}

type personIDParams struct {
	PersonID string `json:"person_id"`
}

func (t *FindProgramsTool) Execute(ctx context.Context, params json.RawMessage) (*domain.ToolResult, error) {
	return Execute(ctx, "tool.find_programs_for_candidate", t.logger, params,
		func(ctx context.Context, span trace.Span, p personIDParams) (any, error) {
			if err := RequireField("person_id", p.PersonID); err != nil {
				return nil, err
			}
			span.SetAttributes(tracer.StringAttr("tool.person_id", p.PersonID))

			res, err := t.matcher.EligiblePrograms(ctx, p.PersonID)
			if domain.IsNotFound(err) {
				return ErrResult("no person with id %q", p.PersonID)
			}
			if err != nil {
				return nil, err
			}
			span.SetAttributes(tracer.IntAttr("tool.eligible", len(res.Eligible)))

			out := struct {
				Candidate candidateSummary `json:"candidate"`
				Screened  int              `json:"screened"`
				Eligible  []programSummary `json:"eligible"`
			}{
				Candidate: summarizeCandidate(res.Candidate),
				Screened:  res.Screened,
				Eligible:  make([]programSummary, 0, len(res.Eligible)),
			}
			for _, p := range res.Eligible {
				out.Eligible = append(out.Eligible, summarizeProgram(p))
			}
			return out, nil
		},
	)
}

// RegisterEnrollmentTools builds and registers the five enrollment
// tools on the registry.
func RegisterEnrollmentTools(
	r *Registry,
	src domain.CatalogSource,
	matcher *match.Matcher,
	finder *match.Finder,
	logger *slog.Logger,
) error {
	tools := []domain.Tool{
		NewListProgramsTool(src, logger),
		NewFindProgramTool(finder, logger),
		NewFindPersonTool(finder, logger),
		NewFindCandidatesTool(matcher, logger),
		NewFindProgramsTool(matcher, logger),
	}
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			return err
		}
	}
	return nil
}
