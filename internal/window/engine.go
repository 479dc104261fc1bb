package window

import (
	"errors"
	"time"
)

// Field tags which form field the user most recently edited. It breaks ties
// when the start/end gap is violated and either endpoint could move.
type Field string

const (
	FieldStart       Field = "start"
	FieldEnd         Field = "end"
	FieldDisturbance Field = "disturbance_start"
	FieldNone        Field = "none"
)

// Selection is a candidate start/end/(optional) disturbance-start triple as
// read from the form. It lives for one correction pass and is not persisted.
type Selection struct {
	Start       time.Time  `json:"start"`
	End         time.Time  `json:"end"`
	Disturbance *time.Time `json:"disturbance_start,omitempty"`
	LastChanged Field      `json:"last_changed,omitempty"`
}

// Correction records one applied rule: which field moved and the
// user-visible explanation.
type Correction struct {
	Field   Field  `json:"field"`
	Message string `json:"message"`
}

// ErrIncompleteSelection is returned when a required instant is missing.
// This is the expected state while the form is still being populated, so
// callers skip validation rather than treating it as a failure.
var ErrIncompleteSelection = errors.New("selection is missing a required date/time")

// rule is one ordered predicate/effect pair. Rules carry the full corrected
// triple so applying one is a plain assignment.
type rule struct {
	applies        bool
	field          Field
	newStart       time.Time
	newEnd         time.Time
	newDisturbance *time.Time
	message        string
}

// Correct checks sel against the window and, if invalid, repeatedly applies
// the highest-priority violated rule until none remain, returning the
// corrected selection plus one Correction per applied rule.
//
// The rule list is re-derived from the current selection after every single
// application, because applying one rule can change which others are
// violated. Each pass applies at most the first violated rule; iteration is
// bounded by the rule count. A rule whose clamp would leave the selection
// unchanged is vacuous and skipped, which is what makes the engine
// idempotent: at a fixed point no rule applies and re-running is a no-op.
func (w TimeWindow) Correct(sel Selection) (Selection, []Correction, error) {
	if sel.Start.IsZero() || sel.End.IsZero() {
		return sel, nil, ErrIncompleteSelection
	}
	if sel.Disturbance != nil && sel.Disturbance.IsZero() {
		return sel, nil, ErrIncompleteSelection
	}

	cur := sel
	cur.Start = Normalize(cur.Start)
	cur.End = Normalize(cur.End)
	if cur.Disturbance != nil {
		d := Normalize(*cur.Disturbance)
		cur.Disturbance = &d
	}

	var applied []Correction
	maxPasses := len(w.rules(cur))
	for pass := 0; pass < maxPasses; pass++ {
		fired := false
		for _, r := range w.rules(cur) {
			if !r.applies {
				continue
			}
			next := cur
			next.Start = r.newStart
			next.End = r.newEnd
			if r.newDisturbance != nil {
				next.Disturbance = r.newDisturbance
			}
			if next.equal(cur) {
				continue
			}
			cur = next
			applied = append(applied, Correction{Field: r.field, Message: r.message})
			fired = true
			break
		}
		if !fired {
			break
		}
	}
	return cur, applied, nil
}

// rules derives the ordered rule list for the current selection.
//
// The gap rules prefer moving whichever endpoint the user touched last, but
// when the preferred endpoint is already pinned at a window bound the gap
// cannot open there, so the opposite endpoint takes over: that is why rule 5
// also fires when the end sits at the window max (and rule 6 when the start
// sits at the window min).
func (w TimeWindow) rules(s Selection) []rule {
	gap := w.Gap()
	gapViolated := s.End.Sub(s.Start) < gap
	prefersStart := s.LastChanged == FieldStart

	clampMin := func(t time.Time) time.Time {
		if t.Before(w.Min) {
			return w.Min
		}
		return t
	}
	clampMax := func(t time.Time) time.Time {
		if t.After(w.Max) {
			return w.Max
		}
		return t
	}

	rules := []rule{
		{
			applies:  s.Start.Before(w.Min),
			field:    FieldStart,
			newStart: w.Min,
			newEnd:   s.End,
			message:  "Start date/time has been adjusted to ensure it comes after the powerload start time.",
		},
		{
			applies:  s.Start.After(w.Max),
			field:    FieldStart,
			newStart: w.LatestStart(),
			newEnd:   s.End,
			message:  "Start date/time has been adjusted to ensure it comes before the powerload end time.",
		},
		{
			applies:  s.End.Before(w.Min),
			field:    FieldEnd,
			newStart: s.Start,
			newEnd:   w.EarliestEnd(),
			message:  "End date/time has been adjusted to ensure it comes after the powerload start time.",
		},
		{
			applies:  s.End.After(w.Max),
			field:    FieldEnd,
			newStart: s.Start,
			newEnd:   w.Max,
			message:  "End date/time has been adjusted to ensure it does not come after the powerload end time.",
		},
		{
			applies:  gapViolated && (prefersStart || s.End.Equal(w.Max)),
			field:    FieldStart,
			newStart: clampMin(ShiftEndpoint(s.End, -w.MinutesGap)),
			newEnd:   s.End,
			message:  "Start date/time has been adjusted to ensure it comes before the end time.",
		},
		{
			applies:  gapViolated && (!prefersStart || s.Start.Equal(w.Min)),
			field:    FieldEnd,
			newStart: s.Start,
			newEnd:   clampMax(ShiftEndpoint(s.Start, w.MinutesGap)),
			message:  "End date/time has been adjusted to ensure it comes after the start time.",
		},
	}

	if s.Disturbance != nil {
		dist := *s.Disturbance
		maxDisturbance := ShiftEndpoint(s.End, -w.MinutesGap)
		start := s.Start
		rules = append(rules,
			rule{
				applies:        dist.Before(start),
				field:          FieldDisturbance,
				newStart:       s.Start,
				newEnd:         s.End,
				newDisturbance: &start,
				message:        "Disturbance start date/time has been adjusted to ensure it does not come before the simulation start time.",
			},
			rule{
				applies:        dist.After(maxDisturbance),
				field:          FieldDisturbance,
				newStart:       s.Start,
				newEnd:         s.End,
				newDisturbance: &start,
				message:        "Disturbance start date/time has been adjusted to the simulation start time because it came after the latest allowable disturbance time.",
			},
		)
	}

	return rules
}

func (s Selection) equal(o Selection) bool {
	if !s.Start.Equal(o.Start) || !s.End.Equal(o.End) {
		return false
	}
	switch {
	case s.Disturbance == nil && o.Disturbance == nil:
		return true
	case s.Disturbance == nil || o.Disturbance == nil:
		return false
	default:
		return s.Disturbance.Equal(*o.Disturbance)
	}
}
