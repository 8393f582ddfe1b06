package transaction

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Nicolas-Jorq/budget-app-sub001/internal/database"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type TransactionDTO struct {
	ID          int             `json:"id"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Kind        string          `json:"kind"`
	Category    string          `json:"category,omitempty"`
	Date        string          `json:"date"`
	BudgetID    *int            `json:"budgetId,omitempty"`
	RecurringID *int            `json:"recurringId,omitempty"`
}

const dtoDateLayout = "2006-01-02"

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	log.Debug("Creating new transaction")
	w.Header().Set("Content-Type", "application/json")

	var dto TransactionDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	entry, err := DTOToTransaction(dto)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	created, err := h.service.Create(r.Context(), entry)
	if err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(TransactionToDTO(created)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	entry, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := json.NewEncoder(w).Encode(TransactionToDTO(entry)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	filter, err := filterFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	entries, err := h.service.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	dtos := make([]TransactionDTO, 0, len(entries))
	for _, entry := range entries {
		dtos = append(dtos, TransactionToDTO(entry))
	}
	if err := json.NewEncoder(w).Encode(dtos); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ok, err := h.service.Delete(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if !ok {
		http.Error(w, "Transaction not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func filterFromQuery(r *http.Request) (Filter, error) {
	var filter Filter
	query := r.URL.Query()

	if from := query.Get("from"); from != "" {
		parsed, err := time.Parse(dtoDateLayout, from)
		if err != nil {
			return Filter{}, err
		}
		filter.From = parsed
	}
	if to := query.Get("to"); to != "" {
		parsed, err := time.Parse(dtoDateLayout, to)
		if err != nil {
			return Filter{}, err
		}
		filter.To = parsed
	}
	filter.Category = query.Get("category")
	if kind := query.Get("kind"); kind != "" {
		parsed, err := ParseKind(kind)
		if err != nil {
			return Filter{}, err
		}
		filter.Kind = parsed
	}
	if limit := query.Get("limit"); limit != "" {
		parsed, err := strconv.Atoi(limit)
		if err != nil {
			return Filter{}, err
		}
		filter.Limit = parsed
	}
	return filter, nil
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrTransactionNotFound) || errors.Is(err, ErrBudgetNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrInvalidTransaction) || errors.Is(err, ErrInvalidKind):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, database.ErrStorage):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func TransactionToDTO(entry Transaction) TransactionDTO {
	return TransactionDTO{
		ID:          entry.ID,
		Description: entry.Description,
		Amount:      entry.Amount,
		Kind:        string(entry.Kind),
		Category:    entry.Category,
		Date:        entry.Date.Format(dtoDateLayout),
		BudgetID:    entry.BudgetID,
		RecurringID: entry.RecurringID,
	}
}

func DTOToTransaction(dto TransactionDTO) (Transaction, error) {
	var date time.Time
	if dto.Date != "" {
		parsed, err := time.Parse(dtoDateLayout, dto.Date)
		if err != nil {
			return Transaction{}, err
		}
		date = parsed
	}
	return Transaction{
		ID:          dto.ID,
		Description: dto.Description,
		Amount:      dto.Amount,
		Kind:        Kind(dto.Kind),
		Category:    dto.Category,
		Date:        date,
		BudgetID:    dto.BudgetID,
		RecurringID: dto.RecurringID,
	}, nil
}
