package guide

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
)

const systemPromptTemplate = `You are an experienced English academy counselor preparing notes for a parent consultation. You write for an instructor who will speak with the parent, not for the parent directly.

Rules:
- Student Data is the primary source. Every statement must be traceable to it.
- The Case Guide only sets the tone and focus. Never mention the case code, case name or that the student was categorized.
- A zero count or an empty activity block means there was no recent activity in that area, not that data is missing.
- When first_evaluation is true this is the student's first exam. Do not describe score changes or trends.
- Score changes of %d points or more are meaningful. Smaller changes are described as stable.
- Write all text in %s. Keep subject labels exactly as given.`

func systemPrompt(cfg Config) string {
	return fmt.Sprintf(systemPromptTemplate, MeaningfulScoreChange, cfg.Language)
}

// SubjectsFor returns the subject labels the data section covers for an exam
// level. READi and Alex are always included.
func SubjectsFor(examName string) []string {
	name := strings.ToLower(examName)
	var subjects []string
	switch {
	case strings.Contains(name, "penta"):
		subjects = []string{SubjectPhonics, SubjectReading}
	case strings.Contains(name, "hexa"):
		subjects = []string{SubjectListening, SubjectReading, SubjectVocabulary}
	default:
		subjects = []string{SubjectListening, SubjectReading, SubjectVocabulary, SubjectGrammar}
	}
	return append(subjects, SubjectREADi, SubjectAlex)
}

// studentData is the neutral summary handed to every section call. It holds
// values only; no case labels.
type studentData struct {
	MemberCode      string         `json:"member_code"`
	Exam            examInfo       `json:"exam"`
	FirstEvaluation bool           `json:"first_evaluation,omitempty"`
	Period          *periodInfo    `json:"analysis_period,omitempty"`
	Features        any            `json:"features,omitempty"`
	History         map[string]any `json:"history,omitempty"`
	Summary         *Summary       `json:"summary,omitempty"`
}

type examInfo struct {
	TestCode string `json:"test_code"`
	Name     string `json:"name,omitempty"`
	Div      string `json:"div,omitempty"`
}

type periodInfo struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

func buildStudentData(in Input) (string, error) {
	d := studentData{
		MemberCode: in.MemberCode,
		Exam:       examInfo{TestCode: in.ExamTestCode, Name: in.ExamName, Div: in.ExamDiv},
	}
	if !in.Details.Empty() {
		d.Summary = Summarize(in)
	}
	if in.PeriodStart != "" || in.PeriodEnd != "" {
		d.Period = &periodInfo{Start: in.PeriodStart, End: in.PeriodEnd}
	}
	if in.Snapshot != nil {
		d.Features = in.Snapshot.Record()
		d.FirstEvaluation = in.Snapshot.FirstEvaluation()
	}
	if len(in.History) > 0 {
		d.History = make(map[string]any, len(in.History))
		for f, series := range in.History {
			d.History[string(f)] = series
		}
	}

	out, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode student data: %w", err)
	}
	return string(out), nil
}

func buildUserMessage(in Input, data, instructions string) string {
	var b strings.Builder

	b.WriteString("Case Guide:\n")
	if in.Case != nil {
		b.WriteString(fmt.Sprintf("Focus: %s\n", in.Case.Summary))
		if in.Case.Guideline != "" {
			b.WriteString(fmt.Sprintf("Guideline: %s\n", strings.TrimSpace(in.Case.Guideline)))
		}
	} else {
		b.WriteString("None. Rely on the data alone.\n")
	}
	if in.Classification != nil && in.Classification.Definition != nil {
		b.WriteString(fmt.Sprintf("Evidence strength: %s\n", in.Classification.ConfidenceTier))
	}

	b.WriteString("\nStudent Data:\n")
	b.WriteString(data)
	b.WriteString("\n")

	b.WriteString("\nInstructions:\n")
	b.WriteString(instructions)
	return b.String()
}

const avoidSummaryInstructions = `Fill the avoid and summary sections.
1. avoid_example: exactly 2 sentences a counselor might be tempted to say to this parent that would be unhelpful or discouraging given this data.
2. avoid_summary: 1-2 sentences on what kind of framing to avoid and why it would backfire with this student.
3. summary content: 5-6 lines, each starting with "- ". Cover performance level, direction of change, study routine and attendance. Wrap the single most important phrase of each line in **double asterisks**.`

func dataInstructions(examName string) string {
	subjects := SubjectsFor(examName)

	var b strings.Builder
	b.WriteString("Fill the guide section.\n")
	b.WriteString(fmt.Sprintf("1. subjects: one entry per label, in this order: %s. Use no other labels.\n", strings.Join(subjects, ", ")))
	b.WriteString(`2. Each content is 2-3 sentences interpreting that area's numbers. Quote the actual values. For READi and Alex describe reading and online activity; say "no recent activity" when the counts are zero.
3. counsel_point: 2-3 sentences on the one message the instructor should leave the parent with.`)
	return b.String()
}

const behaviorInstructions = `Fill the behavior section.
1. acts[0] label "` + LabelClassObserve + `": exactly 2 items, concrete things the instructor should watch for in class.
2. acts[1] label "` + LabelParentCheck + `": 1-2 items, questions to ask the parent about study at home.
Each item is one sentence.`

const concludeInstructions = `Fill the conclude section.
1. closing[0] label "` + LabelActivities + `": exactly 3 items. Each item has a short label and a one-sentence detail.
2. closing[1] label "` + LabelOnlineReading + `": exactly 3 items on online lessons and reading direction, same shape.
3. finalize content: one warm closing sentence the instructor can say to the parent.`

// historyFields lists fields with a supplied series, for log context.
func historyFields(in Input) []string {
	keys := make([]string, 0, len(in.History))
	for f := range maps.Keys(in.History) {
		keys = append(keys, string(f))
	}
	slices.Sort(keys)
	return keys
}
