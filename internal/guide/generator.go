package guide

import (
	"context"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/canbcare/counselor/internal/llm"
)

// Generator produces counseling guides. Safe for concurrent use.
type Generator struct {
	provider llm.Provider
	cfg      Config
	logger   *zap.Logger
}

// NewGenerator creates a guide generator.
func NewGenerator(provider llm.Provider, cfg Config, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{provider: provider, cfg: cfg, logger: logger}
}

type avoidSummaryOutput struct {
	Sections struct {
		Avoid   AvoidSection   `json:"avoid"`
		Summary SummarySection `json:"summary"`
	} `json:"sections"`
}

type dataOutput struct {
	Sections struct {
		Guide DataSection `json:"guide"`
	} `json:"sections"`
}

type behaviorOutput struct {
	Sections struct {
		Behavior BehaviorSection `json:"behavior"`
	} `json:"sections"`
}

type concludeOutput struct {
	Sections struct {
		Conclude ConcludeSection `json:"conclude"`
	} `json:"sections"`
}

// Generate runs the four section calls in parallel and merges them. Any
// section failure fails the whole guide.
func (g *Generator) Generate(ctx context.Context, in Input) (*Guide, error) {
	start := time.Now()

	data, err := buildStudentData(in)
	if err != nil {
		return nil, err
	}

	var (
		avoid    avoidSummaryOutput
		dataSec  dataOutput
		behavior behaviorOutput
		conclude concludeOutput
	)

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return g.section(ctx, "guide-avoid-summary", AvoidSummarySchema, buildUserMessage(in, data, avoidSummaryInstructions), &avoid)
	})
	eg.Go(func() error {
		return g.section(ctx, "guide-data", DataGuideSchema, buildUserMessage(in, data, dataInstructions(in.ExamName)), &dataSec)
	})
	eg.Go(func() error {
		return g.section(ctx, "guide-behavior", BehaviorSchema, buildUserMessage(in, data, behaviorInstructions), &behavior)
	})
	eg.Go(func() error {
		return g.section(ctx, "guide-conclude", ConcludeSchema, buildUserMessage(in, data, concludeInstructions), &conclude)
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	guide := &Guide{Sections: Sections{
		Avoid:    avoid.Sections.Avoid,
		Summary:  avoid.Sections.Summary,
		Guide:    dataSec.Sections.Guide,
		Behavior: behavior.Sections.Behavior,
		Conclude: conclude.Sections.Conclude,
	}}
	guide.Sections.Guide.Subjects = keepSubjects(guide.Sections.Guide.Subjects, SubjectsFor(in.ExamName))

	g.logger.Debug("guide generated",
		zap.String("member_code", in.MemberCode),
		zap.Strings("history_fields", historyFields(in)),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return guide, nil
}

func (g *Generator) section(ctx context.Context, purpose string, schema *llm.Schema, user string, out any) error {
	ctx = llm.WithPurpose(ctx, purpose)

	req := llm.Prompt(systemPrompt(g.cfg), user, schema, g.cfg.MaxTokens)
	req.Temperature = g.cfg.Temperature

	resp, err := g.provider.Generate(ctx, req)
	if err != nil {
		return fmt.Errorf("%s: %w", purpose, err)
	}
	if err := resp.Decode(out); err != nil {
		return fmt.Errorf("%s: %w", purpose, err)
	}
	return nil
}

// keepSubjects drops labels outside the allowed set and reorders the rest to
// match it. The first entry wins on duplicates.
func keepSubjects(got []LabeledText, allowed []string) []LabeledText {
	byLabel := make(map[string]LabeledText, len(got))
	for _, s := range got {
		if _, seen := byLabel[s.Label]; !seen && slices.Contains(allowed, s.Label) {
			byLabel[s.Label] = s
		}
	}
	out := make([]LabeledText, 0, len(byLabel))
	for _, label := range allowed {
		if s, ok := byLabel[label]; ok {
			out = append(out, s)
		}
	}
	return out
}
