package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"spendlog/internal/log"
	"spendlog/internal/models"
	"spendlog/internal/storage"
	"spendlog/internal/validation"
)

// Categories lists the canonical expense categories.
func (h *Handlers) Categories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.Categories())
}

// CreateExpense validates and stores a new expense for the caller.
func (h *Handlers) CreateExpense(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	logger := h.logger(r, log.ComponentExpense).With(log.FieldOperation, log.OpCreate, log.FieldUserID, user.ID)

	body, err := readBody(w, r)
	if err != nil {
		writeValidationError(w, "invalid request body")
		return
	}
	in, err := validation.DecodeCreate(body)
	if err != nil {
		h.rejectExpense(w, r, user.ID, err.Error())
		return
	}
	if in.UserID == "" {
		in.UserID = validation.Scalar(strconv.FormatInt(user.ID, 10))
	}

	expense, err := h.validator.Create(in)
	if err != nil {
		var verr *validation.Error
		if errors.As(err, &verr) {
			h.rejectExpense(w, r, user.ID, verr.Message)
			return
		}
		logger.Error("Error validating expense", log.FieldError, err)
		writeText(w, http.StatusInternalServerError, "Error adding expense")
		return
	}
	if expense.UserID != user.ID {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	if err := h.db.CreateExpense(r.Context(), expense); err != nil {
		logger.Error("Error adding expense", log.FieldError, err)
		writeText(w, http.StatusInternalServerError, "Error adding expense")
		return
	}

	logger.Info("Expense added", log.FieldExpenseID, expense.ID)
	writeText(w, http.StatusOK, "Expense added successfully")
}

// ListExpenses returns the caller's expenses, optionally filtered by
// category and date.
func (h *Handlers) ListExpenses(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	q := r.URL.Query()

	if raw := q.Get("user_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeValidationError(w, `"user_id" must be a number`)
			return
		}
		if id != user.ID {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
	}

	filter := storage.ExpenseFilter{UserID: user.ID, Category: q.Get("category")}
	if raw := q.Get("date"); raw != "" {
		date, err := models.ParseDate(raw)
		if err != nil {
			writeValidationError(w, `"date" must be in ISO 8601 date format`)
			return
		}
		filter.Date = &date
	}

	expenses, err := h.db.ListExpenses(r.Context(), filter)
	if err != nil {
		h.logger(r, log.ComponentExpense).Error("Error fetching expenses",
			log.FieldOperation, log.OpList, log.FieldUserID, user.ID, log.FieldError, err)
		writeText(w, http.StatusInternalServerError, "Error fetching expenses")
		return
	}
	writeJSON(w, http.StatusOK, expenses)
}

// GetExpense returns one of the caller's expenses.
func (h *Handlers) GetExpense(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeText(w, http.StatusNotFound, "Expense not found")
		return
	}

	expense, err := h.db.GetExpense(r.Context(), id, user.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeText(w, http.StatusNotFound, "Expense not found")
			return
		}
		h.logger(r, log.ComponentExpense).Error("Error fetching expense",
			log.FieldOperation, log.OpRead, log.FieldExpenseID, id, log.FieldError, err)
		writeText(w, http.StatusInternalServerError, "Error fetching expense")
		return
	}
	writeJSON(w, http.StatusOK, expense)
}

// UpdateExpense overwrites one of the caller's expenses. Unknown ids are
// accepted without effect.
func (h *Handlers) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeText(w, http.StatusNotFound, "Expense not found")
		return
	}
	logger := h.logger(r, log.ComponentExpense).With(log.FieldOperation, log.OpUpdate, log.FieldExpenseID, id)

	body, err := readBody(w, r)
	if err != nil {
		writeValidationError(w, "invalid request body")
		return
	}
	in, err := validation.DecodeUpdate(body)
	if err != nil {
		h.rejectExpense(w, r, user.ID, err.Error())
		return
	}
	expense, err := h.validator.Update(in)
	if err != nil {
		var verr *validation.Error
		if errors.As(err, &verr) {
			h.rejectExpense(w, r, user.ID, verr.Message)
			return
		}
		logger.Error("Error validating expense", log.FieldError, err)
		writeText(w, http.StatusInternalServerError, "Error updating expense")
		return
	}
	expense.ID = id
	expense.UserID = user.ID

	if err := h.db.UpdateExpense(r.Context(), expense); err != nil {
		logger.Error("Error updating expense", log.FieldError, err)
		writeText(w, http.StatusInternalServerError, "Error updating expense")
		return
	}
	writeText(w, http.StatusOK, "Expense updated successfully")
}

// DeleteExpense removes one of the caller's expenses. Unknown ids are
// accepted without effect.
func (h *Handlers) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeText(w, http.StatusNotFound, "Expense not found")
		return
	}

	if err := h.db.DeleteExpense(r.Context(), id, user.ID); err != nil {
		h.logger(r, log.ComponentExpense).Error("Error deleting expense",
			log.FieldOperation, log.OpDelete, log.FieldExpenseID, id, log.FieldError, err)
		writeText(w, http.StatusInternalServerError, "Error deleting expense")
		return
	}
	writeText(w, http.StatusOK, "Expense deleted successfully")
}

// rejectExpense answers a schema violation with 400.
func (h *Handlers) rejectExpense(w http.ResponseWriter, r *http.Request, userID int64, msg string) {
	h.logger(r, log.ComponentExpense).Debug("Rejected expense",
		log.FieldOperation, log.OpValidate, log.FieldUserID, userID, log.FieldError, msg)
	writeValidationError(w, msg)
}
