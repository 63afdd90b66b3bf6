// Package lookup loads the team → department table from the embedded defaults and
// from an operator-maintained SQLite file.
package lookup

import (
	"database/sql"
	"embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/jalad-shrimali/cdr-rollup/cdr"
)

//go:embed data/*
var dataFS embed.FS

var ErrUnknownDepartment = errors.New("unknown department")

// Teams maps a team name to its department.
type Teams map[string]cdr.Department

func (t Teams) set(team, dept string) error {
	team = strings.TrimSpace(team)
	if team == "" {
		return nil
	}
	d, ok := cdr.ParseDepartment(dept)
	if !ok {
		return fmt.Errorf("%w %q for team %q", ErrUnknownDepartment, dept, team)
	}
	t[team] = d
	return nil
}

// Defaults returns the built-in table shipped in data/team_departments.csv.
func Defaults() (Teams, error) {
	f, err := dataFS.Open("data/team_departments.csv")
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readCSV(f)
}

func readCSV(r io.Reader) (Teams, error) {
	rdr := csv.NewReader(r)
	header, err := rdr.Read()
	if err != nil {
		return nil, fmt.Errorf("team table header: %w", err)
	}
	iTeam, iDept := -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "team_name", "team":
			iTeam = i
		case "department":
			iDept = i
		}
	}
	if iTeam < 0 || iDept < 0 {
		return nil, fmt.Errorf("team table needs team_name and department columns")
	}

	out := Teams{}
	for {
		rec, err := rdr.Read()
		if err == io.EOF {
			break
		}
		if err != nil || len(rec) <= iTeam || len(rec) <= iDept {
			continue
		}
		if err := out.set(rec[iTeam], rec[iDept]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// LoadSQLite reads team_departments(team_name, department) from a read-only
// database file.
func LoadSQLite(path string) (Teams, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=ro", path))
	if err != nil {
		return nil, fmt.Errorf("open lookup db %s: %w", path, err)
	}
	defer db.Close()

	const q = `
        SELECT team_name, department
          FROM team_departments
         ORDER BY team_name`
	rows, err := db.Query(q)
	if err != nil {
		return nil, fmt.Errorf("query lookup db %s: %w", path, err)
	}
	defer rows.Close()

	out := Teams{}
	for rows.Next() {
		var team, dept string
		if err := rows.Scan(&team, &dept); err != nil {
			return nil, err
		}
		if err := out.set(team, dept); err != nil {
			return nil, err
		}
	}
	return out, rows.Err()
}

// Merge layers tables left to right; later entries win. Team names compare
// case-insensitively.
func Merge(layers ...Teams) Teams {
	out := Teams{}
	for _, l := range layers {
		for k, v := range l {
			for old := range out {
				if strings.EqualFold(strings.TrimSpace(old), strings.TrimSpace(k)) {
					delete(out, old)
				}
			}
			out[k] = v
		}
	}
	return out
}
