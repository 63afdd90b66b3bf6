package cdr

import "strings"

// Resolver maps team_name to a department. The table is data; callers build it from
// the embedded defaults, a lookup DB or a rules file.
type Resolver struct {
	teams map[string]Department
}

// NewResolver keys the table case-insensitively on the trimmed team name.
func NewResolver(teams map[string]Department) *Resolver {
	r := &Resolver{teams: make(map[string]Department, len(teams))}
	for team, dept := range teams {
		r.teams[teamKey(team)] = dept
	}
	return r
}

// Resolve falls back to DeptOther for empty or unmapped teams.
func (r *Resolver) Resolve(team string) Department {
	if d, ok := r.teams[teamKey(team)]; ok && team != "" {
		return d
	}
	return DeptOther
}

func (r *Resolver) Len() int { return len(r.teams) }

func teamKey(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
