package join

import (
	"go.uber.org/zap"

	"honnef.co/go/shape/smg"
)

// opportunity is a field whose values could not be joined directly but might
// be reconciled by summarizing the objects holding them.
type opportunity struct {
	left, right smg.FieldEdge
}

// joinSubGraphs joins everything reachable from o1 and o2 into the
// destination object d. Both objects must already be mapped to d.
//
// If identical is set, o1, o2 and d share one handle, and the data fields of
// the inputs are copied without per-field work when both sides agree on them.
func (j *joiner) joinSubGraphs(st Status, o1, o2, d smg.ObjectID, ldiff int, identical bool) (Status, outcome) {
	st = alignFields(st, j.in1, j.in2, o1, o2)
	j.verify("field alignment")

	fields1 := j.in1.Fields(o1)
	copied := map[int64]bool{}
	if identical && d == o1 && d == o2 && sameFields(fields1, j.in2.Fields(o2)) {
		for _, e := range fields1 {
			if j.in1.IsPointer(e.Value) {
				continue
			}
			if _, ok := j.m1.Value(e.Value); ok {
				continue
			}
			if _, ok := j.m2.Value(e.Value); ok || j.dest.HasValue(e.Value) {
				continue
			}
			j.dest.AddValue(e.Value)
			j.m1.MapValue(e.Value, e.Value)
			j.m2.MapValue(e.Value, e.Value)
			j.dest.AddField(smg.FieldEdge{Object: d, Offset: e.Offset, Size: e.Size, Value: e.Value})
			copied[e.Offset] = true
		}
	}

	var opps []opportunity
	for _, e1 := range fields1 {
		at := j.in2.FieldsAt(o2, e1.Offset)
		if len(at) != 1 || at[0].Size != e1.Size || len(j.in1.FieldsAt(o1, e1.Offset)) != 1 {
			j.log.Debug("fields did not align", zap.Stringer("field", e1))
			return st, fatal
		}
		e2 := at[0]
		if copied[e1.Offset] {
			continue
		}

		lv1, lv2 := valueLevel(j.in1, e1.Value), valueLevel(j.in2, e2.Value)
		if _, ok := j.levels.Map(lv1, lv2); !ok {
			j.log.Debug("inconsistent levels", zap.Stringer("field", e1), zap.Int("left", lv1), zap.Int("right", lv2))
			return st, fatal
		}

		nst, v, out := j.joinValues(st, e1.Value, e2.Value, ldiff+lv1-lv2)
		switch out {
		case defined:
			st = nst
			j.dest.AddField(smg.FieldEdge{Object: d, Offset: e1.Offset, Size: e1.Size, Value: v})
		case recoverable:
			opps = append(opps, opportunity{e1, e2})
		case fatal:
			return st, fatal
		}
	}

	if len(opps) == 0 {
		return st, defined
	}
	if bound(j.in1, o1) || bound(j.in2, o2) {
		nst, ok := j.segmentAfter(st, o1, o2, d, opps, ldiff)
		if !ok {
			j.log.Debug("variables cannot be joined", zap.Stringer("left", o1), zap.Stringer("right", o2))
			return st, fatal
		}
		j.log.Debug("inserted segment after variable", zap.Stringer("object", d))
		return nst, defined
	}
	t, nst, ok := j.discover(st, o1, o2, d, opps, ldiff)
	if !ok {
		j.log.Debug("no abstraction candidate", zap.Stringer("left", o1), zap.Stringer("right", o2))
		return st, fatal
	}
	j.candidates = append(j.candidates, Candidate{Template: t})
	return nst, defined
}

func sameFields(a, b []smg.FieldEdge) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Offset != b[i].Offset || a[i].Size != b[i].Size || a[i].Value != b[i].Value {
			return false
		}
	}
	return true
}
