// Package guide generates the five-section counseling guide for a
// classified student.
package guide

import (
	"github.com/canbcare/counselor/internal/catalog"
	"github.com/canbcare/counselor/internal/classify"
	"github.com/canbcare/counselor/internal/feature"
	"github.com/canbcare/counselor/internal/intake"
)

// Input is everything the generator knows about one student.
type Input struct {
	MemberCode   string
	ExamTestCode string
	ExamName     string
	ExamDiv      string
	PeriodStart  string
	PeriodEnd    string

	Case           *catalog.Definition
	Classification *classify.Result
	Snapshot       *feature.Snapshot

	// History holds numeric series supplied in place of trend labels.
	History map[feature.Field][]float64

	// Details carries exam history, current exam scores and monthly
	// records. They reach the prompt only through the compact summary.
	Details intake.Details
}

// Guide is the merged output of the four section calls.
type Guide struct {
	Sections Sections `json:"sections"`
}

// Sections are keyed by stable section IDs.
type Sections struct {
	Avoid    AvoidSection    `json:"avoid"`
	Summary  SummarySection  `json:"summary"`
	Guide    DataSection     `json:"guide"`
	Behavior BehaviorSection `json:"behavior"`
	Conclude ConcludeSection `json:"conclude"`
}

// AvoidSection lists phrasings the counselor should not use.
type AvoidSection struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Examples []string `json:"avoid_example"`
	Summary  string   `json:"avoid_summary"`
}

// SummarySection is the overall assessment in bullet form.
type SummarySection struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// DataSection interprets each subject or activity.
type DataSection struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	Subjects     []LabeledText `json:"subjects"`
	CounselPoint LabeledText   `json:"counsel_point"`
}

// BehaviorSection suggests what to watch in class and at home.
type BehaviorSection struct {
	ID    string         `json:"id"`
	Title string         `json:"title"`
	Acts  []LabeledItems `json:"acts"`
}

// ConcludeSection closes with recommended activities and a final remark.
type ConcludeSection struct {
	ID       string         `json:"id"`
	Title    string         `json:"title"`
	Closing  []ClosingGroup `json:"closing"`
	Finalize LabeledText    `json:"finalize"`
}

type LabeledText struct {
	Label   string `json:"label"`
	Content string `json:"content"`
}

type LabeledItems struct {
	Label string   `json:"label"`
	Items []string `json:"items"`
}

type ClosingGroup struct {
	Label string        `json:"label"`
	Items []ClosingItem `json:"items"`
}

type ClosingItem struct {
	Label  string `json:"label"`
	Detail string `json:"detail"`
}
