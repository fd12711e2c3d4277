package feature

// Record is the wire form of a snapshot. Nil pointers mean the signal was
// not supplied; this is distinct from a zero value.
type Record struct {
	PCT            *float64 `json:"PCT,omitempty"`
	PCTTrend       *Trend   `json:"PCT_TR,omitempty"`
	DiffGap        *Level   `json:"DIFF_GAP,omitempty"`
	AsgnRate       *float64 `json:"ASGN_RATE,omitempty"`
	AsgnTrend      *Trend   `json:"ASGN_TR,omitempty"`
	ReadCount      *float64 `json:"READ_CNT,omitempty"`
	ReadTrend      *Trend   `json:"READ_TR,omitempty"`
	AbsCount       *float64 `json:"ABS_CNT,omitempty"`
	AbsTrend       *Trend   `json:"ABS_TR,omitempty"`
	SubjDiff       *float64 `json:"SUBJ_DIFF,omitempty"`
	SubjDiffTrend  *Trend   `json:"SUBJ_DIFF_TR,omitempty"`
	DeltaMean      *float64 `json:"DELTA_MEAN,omitempty"`
	ScoreChange    *float64 `json:"SCORE_CHG,omitempty"`
	ConsecImp      *int     `json:"CONSEC_IMP,omitempty"`
	OnlineGap      *float64 `json:"ONLINE_GAP,omitempty"`
	LowDiffErrRate *Level   `json:"LOW_DIFF_ERR_RATE,omitempty"`
	SessionDiff    *float64 `json:"SESSION_DIFF,omitempty"`
	SingleDrop     *bool    `json:"SINGLE_DROP,omitempty"`
	Pivot          Pivot    `json:"PIVOT"`
}

// Snapshot validates the record and returns the immutable snapshot.
func (r Record) Snapshot() (*Snapshot, error) {
	b := NewBuilder(r.Pivot.ExamCount).Pivot(r.Pivot.Below, r.Pivot.On, r.Pivot.Above)

	for f, p := range r.numberFields() {
		if p != nil {
			b.Number(f, *p)
		}
	}
	if r.ConsecImp != nil {
		b.Number(ConsecImp, float64(*r.ConsecImp))
	}
	for f, p := range r.trendFields() {
		if p != nil {
			b.Trend(f, *p)
		}
	}
	if r.DiffGap != nil {
		b.Level(DiffGap, *r.DiffGap)
	}
	if r.LowDiffErrRate != nil {
		b.Level(LowDiffErrRate, *r.LowDiffErrRate)
	}
	if r.SingleDrop != nil {
		b.Flag(SingleDrop, *r.SingleDrop)
	}
	return b.Build()
}

func (r *Record) numberFields() map[Field]*float64 {
	return map[Field]*float64{
		PCT:         r.PCT,
		AsgnRate:    r.AsgnRate,
		ReadCount:   r.ReadCount,
		AbsCount:    r.AbsCount,
		SubjDiff:    r.SubjDiff,
		DeltaMean:   r.DeltaMean,
		ScoreChange: r.ScoreChange,
		OnlineGap:   r.OnlineGap,
		SessionDiff: r.SessionDiff,
	}
}

func (r *Record) trendFields() map[Field]*Trend {
	return map[Field]*Trend{
		PCTTrend:      r.PCTTrend,
		AsgnTrend:     r.AsgnTrend,
		ReadTrend:     r.ReadTrend,
		AbsTrend:      r.AbsTrend,
		SubjDiffTrend: r.SubjDiffTrend,
	}
}

// Record returns the wire form of the snapshot. The returned value owns
// fresh pointers and may be modified freely.
func (s *Snapshot) Record() Record {
	r := Record{Pivot: s.pivot}

	num := func(f Field) *float64 {
		if v, ok := s.numbers[f]; ok {
			return &v
		}
		return nil
	}
	trend := func(f Field) *Trend {
		if v, ok := s.symbols[f]; ok {
			t := Trend(v)
			return &t
		}
		return nil
	}
	level := func(f Field) *Level {
		if v, ok := s.symbols[f]; ok {
			l := Level(v)
			return &l
		}
		return nil
	}

	r.PCT = num(PCT)
	r.PCTTrend = trend(PCTTrend)
	r.DiffGap = level(DiffGap)
	r.AsgnRate = num(AsgnRate)
	r.AsgnTrend = trend(AsgnTrend)
	r.ReadCount = num(ReadCount)
	r.ReadTrend = trend(ReadTrend)
	r.AbsCount = num(AbsCount)
	r.AbsTrend = trend(AbsTrend)
	r.SubjDiff = num(SubjDiff)
	r.SubjDiffTrend = trend(SubjDiffTrend)
	r.DeltaMean = num(DeltaMean)
	r.ScoreChange = num(ScoreChange)
	r.OnlineGap = num(OnlineGap)
	r.LowDiffErrRate = level(LowDiffErrRate)
	r.SessionDiff = num(SessionDiff)
	if v, ok := s.numbers[ConsecImp]; ok {
		n := int(v)
		r.ConsecImp = &n
	}
	if v, ok := s.flags[SingleDrop]; ok {
		r.SingleDrop = &v
	}
	return r
}
