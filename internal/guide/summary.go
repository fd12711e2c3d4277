package guide

import (
	"cmp"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/canbcare/counselor/internal/feature"
	"github.com/canbcare/counselor/internal/intake"
)

const (
	noData     = "no data"
	noAbsences = "no absences"

	// FullScoreRecommendation replaces per-subject guidance when every
	// subject of the current exam scored 100.
	FullScoreRecommendation = "Read Alex books from the next level up"

	mtTypeCode = "1007"
	ttTypeCode = "1010"
)

var (
	mtPattern    = regexp.MustCompile(`MT\s*([0-9]+)`)
	levelPattern = regexp.MustCompile(`(Penta|Hexa|Hepta|Octa|Nona)\s*([0-9]+)`)
	yearPattern  = regexp.MustCompile(`[0-9]{2,4}`)
	nonDigits    = regexp.MustCompile(`[^0-9]`)
)

var trendSubjects = []string{SubjectPhonics, SubjectListening, SubjectReading, SubjectVocabulary, SubjectGrammar}

// Summary is the compact view of exam history, current scores and monthly
// activity that every section call reads. Trends and overviews stop at the
// current exam.
type Summary struct {
	CurrentExam     string              `json:"current_exam_name"`
	MTTrend         string              `json:"total_mt_scores_trend"`
	TTTrend         string              `json:"total_tt_scores_trend"`
	LevelChange     string              `json:"level_group_variation"`
	SubjectsCurrent string              `json:"subjects_current"`
	SubjectTrends   map[string]string   `json:"subjects_scores_trend"`
	ReadiActivity   map[string]string   `json:"readi_activity"`
	ReadiScores     map[string]float64  `json:"readi_scores,omitempty"`
	ReadingOverview string              `json:"reading_overview"`
	AbsenceOverview string              `json:"absence_overview"`
	ExamRanks       map[string]string   `json:"exam_ranks,omitempty"`
	Recommendations map[string]string   `json:"learning_recommendation,omitempty"`
	WeakSkills      map[string][]string `json:"weak_skill,omitempty"`
}

// Summarize builds the compact summary for in. The request's exam name
// wins over the one inferred from the history.
func Summarize(in Input) *Summary {
	d := in.Details
	mt, tt := splitExams(d.Exams)

	var inferred string
	switch {
	case len(tt) > 0:
		inferred = tt[len(tt)-1].Name
	case len(mt) > 0:
		inferred = mt[len(mt)-1].Name
	}
	current := cmp.Or(in.ExamName, inferred)

	cutoff := cutoffDate(d.Exams, in.ExamName, inferred)
	var cutoffMonth string
	if cutoff != "" {
		cutoffMonth = cutoff[:6]
	}
	timeline := monthTimeline(in.PeriodStart, in.PeriodEnd)

	s := &Summary{
		CurrentExam:     cmp.Or(current, noData),
		MTTrend:         mtTrend(mt),
		TTTrend:         ttTrend(tt),
		LevelChange:     levelChange(d.Exams),
		SubjectsCurrent: subjectsCurrent(d.ExamScores),
		SubjectTrends:   make(map[string]string, len(trendSubjects)),
		ReadiActivity:   readiActivity(in.Snapshot, d.ActivityScores),
		ReadiScores:     readiScores(d.ActivityScores),
		ReadingOverview: monthlyOverview(d.ReadingRecords, bookCount, timeline, cutoffMonth, "books", noData),
		AbsenceOverview: monthlyOverview(d.AbsenceRecords, absenceCount, timeline, cutoffMonth, "absences", noAbsences),
		ExamRanks:       examRanks(d.Exams),
		Recommendations: recommendations(d.ExamScores, d.Guidances),
		WeakSkills:      weakSkills(d.ExamScores),
	}
	for _, subj := range trendSubjects {
		s.SubjectTrends[subj] = subjectTrend(d.Exams, subj, cutoff, current)
	}
	return s
}

// splitExams separates midterms from term tests by type code, falling back
// to exam names. Penta and Hexa have no term test; their MT3 plays that
// role.
func splitExams(exams []intake.Exam) (mt, tt []intake.Exam) {
	for _, ex := range exams {
		switch string(ex.TypeCode) {
		case mtTypeCode:
			mt = append(mt, ex)
		case ttTypeCode:
			tt = append(tt, ex)
		}
	}
	if len(mt) > 0 || len(tt) > 0 {
		return mt, tt
	}

	for _, ex := range exams {
		code := string(ex.TypeCode)
		switch {
		case (code == "1054" || code == "1055" || pentaOrHexa(ex.Name)) && strings.Contains(ex.Name, "MT3"):
			tt = append(tt, ex)
		case isTermTest(ex.Name):
			tt = append(tt, ex)
		case strings.Contains(ex.Name, "MT"):
			mt = append(mt, ex)
		}
	}
	return mt, tt
}

func pentaOrHexa(name string) bool {
	return strings.Contains(name, "Penta") || strings.Contains(name, "Hexa")
}

func isTermTest(name string) bool {
	return strings.Contains(name, "Term Test") || strings.Contains(name, "TT")
}

func midtermNumber(name string) string {
	if m := mtPattern.FindStringSubmatch(name); m != nil {
		return m[1]
	}
	return ""
}

func season(name string) string {
	switch {
	case strings.Contains(name, "여름학기"), strings.Contains(name, "Summer"):
		return "Summer"
	case strings.Contains(name, "가을학기"), strings.Contains(name, "Fall"):
		return "Fall"
	}
	return ""
}

// dateDigits normalizes a date-like value to YYYYMMDD, or "" when it has
// fewer than eight digits.
func dateDigits(v string) string {
	s := nonDigits.ReplaceAllString(v, "")
	if len(s) < 8 {
		return ""
	}
	return s[:8]
}

// cutoffDate finds the current exam's date: exact name match, then the
// best token match (midterm number, term test, season, year), then the
// inferred exam, then the latest date in the history.
func cutoffDate(exams []intake.Exam, requested, inferred string) string {
	exact := func(name string) string {
		for _, ex := range exams {
			if ex.Name == name {
				return dateDigits(ex.Date)
			}
		}
		return ""
	}

	if requested != "" {
		if d := exact(requested); d != "" {
			return d
		}

		req := examTokensOf(requested)
		var (
			best      int
			bestDate  string
			bestFound bool
		)
		for _, ex := range exams {
			score := req.match(examTokensOf(ex.Name))
			if score <= 0 {
				continue
			}
			date := dateDigits(ex.Date)
			if !bestFound || score > best || (score == best && date >= bestDate) {
				best, bestDate, bestFound = score, date, true
			}
		}
		if bestFound {
			return bestDate
		}
	}

	if inferred != "" {
		if d := exact(inferred); d != "" {
			return d
		}
	}

	var latest string
	for _, ex := range exams {
		latest = max(latest, dateDigits(ex.Date))
	}
	return latest
}

type examTokens struct {
	season string
	mt     string
	tt     bool
	year   string
}

func examTokensOf(name string) examTokens {
	t := examTokens{season: season(name), mt: midtermNumber(name), tt: isTermTest(name)}
	if y := yearPattern.FindString(name); y != "" {
		t.year = y[len(y)-2:]
	}
	return t
}

func (req examTokens) match(ex examTokens) int {
	score := 0
	if req.mt != "" && ex.mt == req.mt {
		score += 3
	}
	if req.season != "" && ex.season == req.season {
		score += 2
	}
	if req.tt && ex.tt {
		score += 3
	}
	if req.year != "" && ex.year == req.year {
		score++
	}
	return score
}

// mtTrend lists MT1 and MT2 totals in history order. MT3 belongs to the
// term test trend.
func mtTrend(mt []intake.Exam) string {
	var parts []string
	for _, ex := range mt {
		n := midtermNumber(ex.Name)
		if n != "1" && n != "2" {
			continue
		}
		parts = append(parts, labeled("MT"+n, ex.TotalScore))
	}
	return joinTrend(parts)
}

func ttTrend(tt []intake.Exam) string {
	if len(tt) == 0 {
		return noData
	}
	mt3AsTerm := slices.ContainsFunc(tt, func(ex intake.Exam) bool { return pentaOrHexa(ex.Name) })

	var picked []intake.Exam
	for _, ex := range tt {
		if (mt3AsTerm && strings.Contains(ex.Name, "MT3")) || (!mt3AsTerm && isTermTest(ex.Name)) {
			picked = append(picked, ex)
		}
	}
	if len(picked) == 0 {
		picked = slices.Clone(tt)
	}
	slices.SortStableFunc(picked, func(a, b intake.Exam) int { return strings.Compare(a.Date, b.Date) })

	parts := make([]string, 0, len(picked))
	for _, ex := range picked {
		prefix := "TT"
		if mt3AsTerm && strings.Contains(ex.Name, "MT3") {
			prefix = "MT3"
		}
		if s := season(ex.Name); s != "" {
			prefix = s + "_" + prefix
		}
		parts = append(parts, labeled(prefix, ex.TotalScore))
	}
	return joinTrend(parts)
}

// levelChange compares the level named by the earliest and latest exams,
// e.g. "Hepta1 -> Octa1".
func levelChange(exams []intake.Exam) string {
	var leveled []intake.Exam
	for _, ex := range exams {
		if levelPattern.MatchString(ex.Name) {
			leveled = append(leveled, ex)
		}
	}
	if len(leveled) == 0 {
		return noData
	}
	slices.SortStableFunc(leveled, func(a, b intake.Exam) int { return strings.Compare(a.Date, b.Date) })
	level := func(name string) string {
		m := levelPattern.FindStringSubmatch(name)
		return m[1] + m[2]
	}
	return level(leveled[0].Name) + " -> " + level(leveled[len(leveled)-1].Name)
}

func subjectsCurrent(scores []intake.SubjectScore) string {
	var parts []string
	for _, s := range scores {
		if s.Subject == "" || s.Percentage == nil {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s %s", s.Subject, num(float64(*s.Percentage))))
	}
	if len(parts) == 0 {
		return noData
	}
	return strings.Join(parts, ", ")
}

// subjectTrend lists one subject's percentage across exams up to the
// cutoff date. While the current exam is MT1 or MT2, MT3 and term tests are
// left out.
func subjectTrend(exams []intake.Exam, subject, cutoff, current string) string {
	n := midtermNumber(current)
	midtermOnly := n == "1" || n == "2"

	var parts []string
	for _, ex := range exams {
		if d := dateDigits(ex.Date); cutoff != "" && d != "" && d > cutoff {
			continue
		}
		if midtermOnly && (midtermNumber(ex.Name) == "3" || isTermTest(ex.Name)) {
			continue
		}
		label := ""
		if m := midtermNumber(ex.Name); m != "" {
			label = "MT" + m
		} else if isTermTest(ex.Name) {
			label = "TT"
		}
		for _, s := range ex.Subjects {
			if s.Name != subject {
				continue
			}
			score, ok := s.Score()
			if !ok {
				continue
			}
			v := num(score)
			if label != "" {
				v = label + " " + v
			}
			parts = append(parts, v)
		}
	}
	return joinTrend(parts)
}

func readiActivity(snap *feature.Snapshot, scores []intake.ActivityScore) map[string]string {
	out := map[string]string{"activity_rate": noData}
	if snap != nil {
		if rate, ok := snap.Number(feature.AsgnRate); ok {
			out["activity_rate"] = num(rate) + "%"
		}
	}
	for _, a := range scores {
		if a.SubjectType != "" && a.CompletionRate != nil {
			out[a.SubjectType] = num(float64(*a.CompletionRate)) + "%"
		}
	}
	return out
}

func readiScores(scores []intake.ActivityScore) map[string]float64 {
	out := make(map[string]float64)
	for _, a := range scores {
		if a.SubjectType != "" && a.AverageScore != nil {
			out[a.SubjectType] = float64(*a.AverageScore)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func bookCount(r intake.MonthlyRecord) *intake.Number    { return r.BookCount }
func absenceCount(r intake.MonthlyRecord) *intake.Number { return r.AbsenceCount }

// monthTimeline lists YYYYMM months from start to end inclusive.
func monthTimeline(start, end string) []string {
	s, e := dateDigits(start), dateDigits(end)
	if s == "" || e == "" {
		return nil
	}
	y, _ := strconv.Atoi(s[:4])
	m, _ := strconv.Atoi(s[4:6])
	ey, _ := strconv.Atoi(e[:4])
	em, _ := strconv.Atoi(e[4:6])

	var out []string
	for y < ey || (y == ey && m <= em) {
		out = append(out, fmt.Sprintf("%04d%02d", y, m))
		if m++; m == 13 {
			m, y = 1, y+1
		}
	}
	return out
}

// monthlyOverview renders month counts as "6: 4 books, 7: 10 books". A
// record's year comes from the analysis period when its month occurs there
// exactly once; such records after the cutoff month are dropped.
func monthlyOverview(recs []intake.MonthlyRecord, count func(intake.MonthlyRecord) *intake.Number,
	timeline []string, cutoffMonth, unit, empty string) string {
	type entry struct {
		key   string
		month int
		n     int
	}
	var entries []entry
	for _, r := range recs {
		c := count(r)
		if r.Month == nil || c == nil {
			continue
		}
		m := int(*r.Month)
		if float64(m) != float64(*r.Month) || m < 1 || m > 12 {
			continue
		}

		var candidates []string
		for _, ym := range timeline {
			if ym[4:6] == fmt.Sprintf("%02d", m) {
				candidates = append(candidates, ym)
			}
		}
		key := fmt.Sprintf("0000%02d", m)
		if len(candidates) == 1 {
			key = candidates[0]
			if cutoffMonth != "" && key > cutoffMonth {
				continue
			}
		}
		entries = append(entries, entry{key: key, month: m, n: int(*c)})
	}
	if len(entries) == 0 {
		return empty
	}

	slices.SortStableFunc(entries, func(a, b entry) int {
		return cmp.Or(strings.Compare(a.key, b.key), cmp.Compare(a.month, b.month))
	})
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = fmt.Sprintf("%d: %d %s", e.month, e.n, unit)
	}
	return strings.Join(parts, ", ")
}

func examRanks(exams []intake.Exam) map[string]string {
	out := make(map[string]string)
	for _, ex := range exams {
		if ex.Name == "" || ex.Rank == nil || ex.TotalStudents == nil {
			continue
		}
		out[ex.Name] = fmt.Sprintf("%s/%s", num(float64(*ex.Rank)), num(float64(*ex.TotalStudents)))
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// allFullScore reports whether the current exam has at least one scored
// subject and every scored subject is at 100.
func allFullScore(scores []intake.SubjectScore) bool {
	seen := false
	for _, s := range scores {
		if s.Subject == "" || s.Percentage == nil {
			continue
		}
		if *s.Percentage != 100 {
			return false
		}
		seen = true
	}
	return seen
}

// recommendations returns per-subject learning guidance, skipping subjects
// already at full score. A perfect exam gets a single general
// recommendation instead.
func recommendations(scores []intake.SubjectScore, guidances []intake.LearningGuidance) map[string]string {
	if allFullScore(scores) {
		return map[string]string{"General": FullScoreRecommendation}
	}
	full := make(map[string]bool)
	for _, s := range scores {
		if s.Subject != "" && s.Percentage != nil && *s.Percentage == 100 {
			full[s.Subject] = true
		}
	}

	out := make(map[string]string)
	for _, g := range guidances {
		rec := strings.TrimSpace(g.Recommendation)
		if g.Subject == "" || rec == "" || full[g.Subject] {
			continue
		}
		out[g.Subject] = rec
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func weakSkills(scores []intake.SubjectScore) map[string][]string {
	out := make(map[string][]string)
	for _, s := range scores {
		if s.Subject == "" {
			continue
		}
		for _, ws := range s.WeakSkills {
			if ws.Indicator == "" && ws.Skill == "" {
				continue
			}
			line := fmt.Sprintf("indicator: %s / skill: %s", cmp.Or(ws.Indicator, "-"), cmp.Or(ws.Skill, "-"))
			var details []string
			for _, d := range []struct {
				label string
				v     *intake.Number
			}{{"student", ws.Student}, {"average", ws.Average}, {"gap", ws.Gap}} {
				if d.v != nil {
					details = append(details, fmt.Sprintf("%s %s%%", d.label, num(float64(*d.v))))
				}
			}
			if len(details) > 0 {
				line += " (" + strings.Join(details, ", ") + ")"
			}
			out[s.Subject] = append(out[s.Subject], line)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func labeled(label string, v *intake.Number) string {
	if v == nil {
		return label
	}
	return label + " " + num(float64(*v))
}

func joinTrend(parts []string) string {
	if len(parts) == 0 {
		return noData
	}
	return strings.Join(parts, " -> ")
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
