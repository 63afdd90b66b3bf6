package cdr

// IsSpam reports the IVR-artifact signature: time spent before the queue but the call
// never reached one.
func IsSpam(r *Record) bool {
	return r.InQueue == 0 && r.PreQueue > 0
}

// SplitSpam partitions recs into clean and spam, keeping input order in both.
func SplitSpam(recs []*Record) (clean, spam []*Record) {
	clean = make([]*Record, 0, len(recs))
	for _, r := range recs {
		if IsSpam(r) {
			spam = append(spam, r)
			continue
		}
		clean = append(clean, r)
	}
	return clean, spam
}
