package http

import (
	"net/http"
	"strconv"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// transactionRequest is the write payload. Amounts arrive as decimal
// strings ("12.34") and are stored as integer cents.
type transactionRequest struct {
	Type        string `json:"type"`
	Amount      string `json:"amount"`
	Date        string `json:"date"`
	Description string `json:"description"`
	CategoryID  *int64 `json:"category_id"`
	Paid        bool   `json:"paid"`
	DueDate     string `json:"due_date"`
	Notes       string `json:"notes"`

	IsRecurring         bool   `json:"is_recurring"`
	RecurrenceFrequency string `json:"recurrence_frequency"`
	RecurrenceStartDate string `json:"recurrence_start_date"`
	RecurrenceEndDate   string `json:"recurrence_end_date"`
}

type transactionView struct {
	ID          int64  `json:"id"`
	Type        string `json:"type"`
	Amount      string `json:"amount"`
	AmountCents int64  `json:"amount_cents"`
	Date        string `json:"date"`
	Description string `json:"description"`
	CategoryID  *int64 `json:"category_id,omitempty"`
	Paid        bool   `json:"paid"`
	DueDate     string `json:"due_date,omitempty"`
	Notes       string `json:"notes,omitempty"`
	Notified    bool   `json:"notified"`

	IsRecurring         bool   `json:"is_recurring"`
	RecurrenceFrequency string `json:"recurrence_frequency,omitempty"`
	RecurrenceStartDate string `json:"recurrence_start_date,omitempty"`
	RecurrenceEndDate   string `json:"recurrence_end_date,omitempty"`
	ParentID            *int64 `json:"parent_transaction_id,omitempty"`

	CalendarEventID string `json:"calendar_event_id,omitempty"`
}

func viewOf(t *core.Transaction) transactionView {
	v := transactionView{
		ID:          t.ID,
		Type:        string(t.Type),
		Amount:      core.FormatCents(t.Amount.Cents),
		AmountCents: t.Amount.Cents,
		Date:        t.Date.String(),
		Description: t.Description,
		CategoryID:  t.CategoryID,
		Paid:        t.Paid,
		Notes:       t.Notes,
		Notified:    t.Notified,

		IsRecurring:         t.IsRecurring,
		RecurrenceFrequency: string(t.RecurrenceFrequency),
		ParentID:            t.ParentID,
		CalendarEventID:     t.CalendarEventID,
	}
	if !t.DueDate.IsEmpty() {
		v.DueDate = t.DueDate.String()
	}
	if !t.RecurrenceStartDate.IsEmpty() {
		v.RecurrenceStartDate = t.RecurrenceStartDate.String()
	}
	if !t.RecurrenceEndDate.IsEmpty() {
		v.RecurrenceEndDate = t.RecurrenceEndDate.String()
	}
	return v
}

func viewsOf(ts []core.Transaction) []transactionView {
	views := make([]transactionView, len(ts))
	for i := range ts {
		views[i] = viewOf(&ts[i])
	}
	return views
}

func (req *transactionRequest) toTransaction(userID int64) (*core.Transaction, error) {
	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		return nil, err
	}

	date, err := core.ParseDate(req.Date)
	if err != nil {
		return nil, err
	}

	t := &core.Transaction{
		UserID:      userID,
		Type:        core.TransactionType(req.Type),
		Amount:      core.Money{Cents: cents},
		Date:        date,
		Description: req.Description,
		CategoryID:  req.CategoryID,
		Paid:        req.Paid,
		Notes:       req.Notes,
		IsRecurring: req.IsRecurring,
	}

	if req.DueDate != "" {
		if t.DueDate, err = core.ParseDate(req.DueDate); err != nil {
			return nil, err
		}
	}
	if req.IsRecurring {
		t.RecurrenceFrequency = core.Frequency(req.RecurrenceFrequency)
		if req.RecurrenceStartDate != "" {
			if t.RecurrenceStartDate, err = core.ParseDate(req.RecurrenceStartDate); err != nil {
				return nil, err
			}
		}
		if req.RecurrenceEndDate != "" {
			if t.RecurrenceEndDate, err = core.ParseDate(req.RecurrenceEndDate); err != nil {
				return nil, err
			}
		}
	}

	return t, nil
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	t, err := req.toTransaction(UserID(r.Context()))
	if err != nil {
		respondError(w, r, err)
		return
	}

	if err := s.transactions.Create(r.Context(), t); err != nil {
		respondError(w, r, err)
		return
	}

	s.invalidateSummaries(t.UserID)
	respondJSON(w, http.StatusCreated, viewOf(t))
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	t, err := s.transactions.Get(r.Context(), UserID(r.Context()), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, viewOf(t))
}

// parseFilter builds the list filter from query parameters. Bad values
// are ignored rather than rejected; the list degrades to unfiltered.
func parseFilter(r *http.Request) storage.TransactionFilter {
	q := r.URL.Query()
	f := storage.TransactionFilter{
		Text: q.Get("q"),
		Type: core.TransactionType(q.Get("type")),
	}

	if v, err := strconv.ParseInt(q.Get("category_id"), 10, 64); err == nil {
		f.CategoryID = &v
	}
	if d, err := core.ParseDate(q.Get("from")); err == nil {
		f.From = d
	}
	if d, err := core.ParseDate(q.Get("to")); err == nil {
		f.To = d
	}
	if cents, err := core.ParseDecimalToCents(q.Get("min_amount")); err == nil {
		f.MinCents = &cents
	}
	if cents, err := core.ParseDecimalToCents(q.Get("max_amount")); err == nil {
		f.MaxCents = &cents
	}
	if q.Has("paid") {
		paid := q.Get("paid") == "true"
		f.Paid = &paid
	}
	if q.Has("recurring") {
		recurring := q.Get("recurring") == "true"
		f.Recurring = &recurring
	}
	return f
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	list, err := s.transactions.List(r.Context(), UserID(r.Context()), parseFilter(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"transactions": viewsOf(list)})
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	var req transactionRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	userID := UserID(r.Context())
	t, err := req.toTransaction(userID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	t.ID = id

	// A child row must keep its parent link, or validation would let
	// an edit turn an occurrence into a recurring template.
	existing, err := s.transactions.Get(r.Context(), userID, id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	t.ParentID = existing.ParentID
	if t.ParentID != nil {
		t.IsRecurring = false
		t.RecurrenceFrequency = ""
		t.RecurrenceStartDate = core.Date{}
		t.RecurrenceEndDate = core.Date{}
	}

	if err := s.transactions.Update(r.Context(), t); err != nil {
		respondError(w, r, err)
		return
	}

	s.invalidateSummaries(userID)
	respondJSON(w, http.StatusOK, viewOf(t))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	userID := UserID(r.Context())
	if err := s.transactions.Delete(r.Context(), userID, id); err != nil {
		respondError(w, r, err)
		return
	}

	s.invalidateSummaries(userID)
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type futureUpdateRequest struct {
	Type        string `json:"type"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
	CategoryID  *int64 `json:"category_id"`
	Notes       string `json:"notes"`

	IsRecurring         bool   `json:"is_recurring"`
	RecurrenceFrequency string `json:"recurrence_frequency"`
	RecurrenceEndDate   string `json:"recurrence_end_date"`
}

func (s *Server) handleUpdateFuture(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	var req futureUpdateRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		respondError(w, r, err)
		return
	}
	typ := core.TransactionType(req.Type)
	if !typ.Valid() {
		respondError(w, r, core.ErrInvalidType)
		return
	}

	patch := storage.FuturePatch{
		Description:         req.Description,
		AmountCents:         cents,
		Type:                typ,
		CategoryID:          req.CategoryID,
		Notes:               req.Notes,
		IsRecurring:         req.IsRecurring,
		RecurrenceFrequency: core.Frequency(req.RecurrenceFrequency),
	}
	if req.RecurrenceEndDate != "" {
		if patch.RecurrenceEndDate, err = core.ParseDate(req.RecurrenceEndDate); err != nil {
			respondError(w, r, err)
			return
		}
	}

	userID := UserID(r.Context())
	if err := s.transactions.UpdateFuture(r.Context(), userID, id, patch); err != nil {
		respondError(w, r, err)
		return
	}

	s.invalidateSummaries(userID)
	respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (s *Server) handleDeleteFuture(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	userID := UserID(r.Context())
	deleted, err := s.transactions.DeleteFuture(r.Context(), userID, id)
	if err != nil {
		respondError(w, r, err)
		return
	}

	s.invalidateSummaries(userID)
	respondJSON(w, http.StatusOK, map[string]any{"status": "deleted", "count": deleted})
}

func (s *Server) handleTogglePaid(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	userID := UserID(r.Context())
	paid, err := s.transactions.TogglePaid(r.Context(), userID, id)
	if err != nil {
		respondError(w, r, err)
		return
	}

	s.invalidateSummaries(userID)
	respondJSON(w, http.StatusOK, map[string]any{"id": id, "paid": paid})
}

func (s *Server) handlePay(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	userID := UserID(r.Context())
	if err := s.transactions.Pay(r.Context(), userID, id); err != nil {
		respondError(w, r, err)
		return
	}

	s.invalidateSummaries(userID)
	respondJSON(w, http.StatusOK, map[string]any{"id": id, "paid": true})
}
