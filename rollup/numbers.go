package rollup

// NumberFrequency tallies phone numbers within a group.
type NumberFrequency map[string]int

// Add counts n; empty numbers are ignored.
func (f NumberFrequency) Add(n string) {
	if n == "" {
		return
	}
	f[n]++
}

// Total is the number of counted occurrences.
func (f NumberFrequency) Total() int {
	t := 0
	for _, c := range f {
		t += c
	}
	return t
}

// distinct keeps first-seen order of non-empty values.
type distinct struct {
	seen map[string]struct{}
	list []string
}

func newDistinct() *distinct { return &distinct{seen: map[string]struct{}{}} }

func (d *distinct) add(v string) {
	if v == "" {
		return
	}
	if _, ok := d.seen[v]; ok {
		return
	}
	d.seen[v] = struct{}{}
	d.list = append(d.list, v)
}

func (d *distinct) values() []string {
	if len(d.list) == 0 {
		return []string{}
	}
	return append([]string(nil), d.list...)
}
