package handlers

import (
	"net/http"
	"strconv"
	"time"

	"spendlog/internal/log"
	"spendlog/internal/models"
)

// Summary returns the caller's spending per category, largest first. The
// optional year and month query parameters restrict it to that year or
// month.
func (h *Handlers) Summary(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)

	from, to, err := summaryRange(r.URL.Query().Get("year"), r.URL.Query().Get("month"))
	if err != nil {
		writeValidationError(w, err.Error())
		return
	}

	totals, err := h.db.CategoryTotals(r.Context(), user.ID, from, to)
	if err != nil {
		h.logger(r, log.ComponentExpense).Error("Error summarizing expenses",
			log.FieldOperation, log.OpList, log.FieldUserID, user.ID, log.FieldError, err)
		writeText(w, http.StatusInternalServerError, "Error fetching expenses")
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

type summaryError string

func (e summaryError) Error() string { return string(e) }

// summaryRange turns year/month query values into a [from, to) date range.
// Both empty means no restriction.
func summaryRange(yearStr, monthStr string) (*models.Date, *models.Date, error) {
	if yearStr == "" && monthStr == "" {
		return nil, nil, nil
	}
	if yearStr == "" {
		return nil, nil, summaryError(`"year" is required when "month" is set`)
	}

	year, err := strconv.Atoi(yearStr)
	if err != nil || year < 1 || year >= 9999 {
		return nil, nil, summaryError(`"year" must be a valid year`)
	}

	if monthStr == "" {
		from := models.NewDate(year, time.January, 1)
		to := models.NewDate(year+1, time.January, 1)
		return &from, &to, nil
	}

	month, err := strconv.Atoi(monthStr)
	if err != nil || month < 1 || month > 12 {
		return nil, nil, summaryError(`"month" must be between 1 and 12`)
	}
	from := models.NewDate(year, time.Month(month), 1)
	to := models.Date{Time: from.AddDate(0, 1, 0)}
	return &from, &to, nil
}
