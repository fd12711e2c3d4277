package guide

import (
	"maps"
	"slices"

	"github.com/canbcare/counselor/internal/llm"
)

// Section IDs, titles and fixed labels. Titles are pinned by the schemas so
// the merged guide always carries the same headings.
const (
	TitleAvoid    = "Expressions to avoid"
	TitleSummary  = "Overall assessment"
	TitleGuide    = "Data interpretation guide"
	TitleBehavior = "Behavior"
	TitleConclude = "Closing"

	LabelCounselPoint  = "Counseling point"
	LabelClassObserve  = "Class observation"
	LabelParentCheck   = "Parent check-in"
	LabelActivities    = "Recommended activities"
	LabelOnlineReading = "Online and reading focus"
	LabelClosingRemark = "Closing remark"
)

// Subject labels accepted in the data interpretation section.
const (
	SubjectPhonics    = "Phonics"
	SubjectListening  = "Listening"
	SubjectReading    = "Reading"
	SubjectVocabulary = "Vocabulary"
	SubjectGrammar    = "Grammar"
	SubjectREADi      = "READi"
	SubjectAlex       = "Alex"
)

func str() map[string]any { return map[string]any{"type": "string"} }

func constStr(v string) map[string]any {
	return map[string]any{"type": "string", "enum": []any{v}}
}

func enumStr(vs ...string) map[string]any {
	enum := make([]any, len(vs))
	for i, v := range vs {
		enum[i] = v
	}
	return map[string]any{"type": "string", "enum": enum}
}

func arrayOf(items map[string]any) map[string]any {
	return map[string]any{"type": "array", "items": items}
}

// object builds a closed object schema requiring every property, which is
// what strict structured output expects.
func object(props map[string]any) map[string]any {
	required := make([]any, 0, len(props))
	for _, k := range slices.Sorted(maps.Keys(props)) {
		required = append(required, k)
	}
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             required,
		"additionalProperties": false,
	}
}

// sectionsEnvelope wraps section schemas under a top-level "sections" key.
func sectionsEnvelope(sections map[string]any) map[string]any {
	return object(map[string]any{"sections": object(sections)})
}

func labeledText(label map[string]any) map[string]any {
	return object(map[string]any{"label": label, "content": str()})
}

// AvoidSummarySchema covers the avoid and summary sections.
var AvoidSummarySchema = &llm.Schema{
	Name:        "guide-avoid-summary",
	Description: "Expressions to avoid and the overall assessment",
	Definition: sectionsEnvelope(map[string]any{
		"avoid": object(map[string]any{
			"id":            constStr("avoid"),
			"title":         constStr(TitleAvoid),
			"avoid_example": arrayOf(str()),
			"avoid_summary": str(),
		}),
		"summary": object(map[string]any{
			"id":      constStr("summary"),
			"title":   constStr(TitleSummary),
			"content": str(),
		}),
	}),
}

// DataGuideSchema covers the per-subject data interpretation section.
var DataGuideSchema = &llm.Schema{
	Name:        "guide-data",
	Description: "Per-subject interpretation of the student's data with a counseling point",
	Definition: sectionsEnvelope(map[string]any{
		"guide": object(map[string]any{
			"id":    constStr("guide"),
			"title": constStr(TitleGuide),
			"subjects": arrayOf(labeledText(enumStr(
				SubjectPhonics, SubjectListening, SubjectReading, SubjectVocabulary,
				SubjectGrammar, SubjectREADi, SubjectAlex,
			))),
			"counsel_point": labeledText(constStr(LabelCounselPoint)),
		}),
	}),
}

// BehaviorSchema covers class observation and parent check-in prompts.
var BehaviorSchema = &llm.Schema{
	Name:        "guide-behavior",
	Description: "What to observe in class and what to ask parents",
	Definition: sectionsEnvelope(map[string]any{
		"behavior": object(map[string]any{
			"id":    constStr("behavior"),
			"title": constStr(TitleBehavior),
			"acts": arrayOf(object(map[string]any{
				"label": enumStr(LabelClassObserve, LabelParentCheck),
				"items": arrayOf(str()),
			})),
		}),
	}),
}

// ConcludeSchema covers recommended activities and the closing remark.
var ConcludeSchema = &llm.Schema{
	Name:        "guide-conclude",
	Description: "Recommended activities, online and reading focus, and a closing remark",
	Definition: sectionsEnvelope(map[string]any{
		"conclude": object(map[string]any{
			"id":    constStr("conclude"),
			"title": constStr(TitleConclude),
			"closing": arrayOf(object(map[string]any{
				"label": enumStr(LabelActivities, LabelOnlineReading),
				"items": arrayOf(object(map[string]any{"label": str(), "detail": str()})),
			})),
			"finalize": labeledText(constStr(LabelClosingRemark)),
		}),
	}),
}
