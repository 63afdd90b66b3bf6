package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/jalad-shrimali/cdr-rollup/workbook"
)

// Processed re-ingests a workbook written by Upload and returns it narrowed to the
// form fields "department" (empty or "All" for every department) and
// "exclude_outside_hours".
func (h *Handler) Processed(w http.ResponseWriter, r *http.Request) {
	file, name, err := h.formFile(w, r)
	if err != nil {
		h.fail(w, err)
		return
	}
	defer file.Close()

	p, err := workbook.Load(file)
	if err != nil {
		h.fail(w, err)
		return
	}
	sel := workbook.Selection{
		Department:        r.FormValue("department"),
		BusinessHoursOnly: truthy(r.FormValue("exclude_outside_hours")),
	}
	filtered := p.Filter(sel)

	h.logger.Info().
		Str("file", name).
		Str("department", sel.Department).
		Bool("business_hours_only", sel.BusinessHoursOnly).
		Int("sheets", len(filtered.Sheets)).
		Msg("processed workbook filtered")

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "filtered_"+name))
	if err := workbook.WriteProcessed(w, filtered); err != nil {
		h.logger.Error().Err(err).Str("file", name).Msg("write filtered workbook")
	}
}

// Departments lists the departments of an uploaded processed workbook, "All" first.
func (h *Handler) Departments(w http.ResponseWriter, r *http.Request) {
	file, _, err := h.formFile(w, r)
	if err != nil {
		h.fail(w, err)
		return
	}
	defer file.Close()

	p, err := workbook.Load(file)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{
		"departments": append([]string{workbook.AllDepartments}, p.Departments()...),
	})
}

func truthy(s string) bool {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "on" || s == "yes" {
		return true
	}
	b, _ := strconv.ParseBool(s)
	return b
}
