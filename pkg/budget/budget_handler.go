package budget

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

type BudgetDTO struct {
	ID        int             `json:"id"`
	Name      string          `json:"name"`
	Category  string          `json:"category,omitempty"`
	Limit     decimal.Decimal `json:"limit"`
	Spent     decimal.Decimal `json:"spent"`
	Remaining decimal.Decimal `json:"remaining"`
	StartDate *time.Time      `json:"startDate,omitempty"`
	EndDate   *time.Time      `json:"endDate,omitempty"`
}

type BudgetHandler struct {
	budgetService BudgetService
}

func NewBudgetHandler(budgetService BudgetService) *BudgetHandler {
	return &BudgetHandler{budgetService}
}

func (handler *BudgetHandler) Register(w http.ResponseWriter, r *http.Request) {
	log.Debug("Registering new budget")
	w.Header().Set("Content-Type", "application/json")

	var dto BudgetDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	created, err := handler.budgetService.Create(r.Context(), DTOToBudget(dto))
	if err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(BudgetToDTO(created)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (handler *BudgetHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	includeInactive := r.URL.Query().Has("includeInactive")

	budgets, err := handler.budgetService.GetAll(r.Context(), includeInactive)
	if err != nil {
		writeError(w, err)
		return
	}

	dtos := make([]BudgetDTO, 0, len(budgets))
	for _, b := range budgets {
		dtos = append(dtos, BudgetToDTO(b))
	}

	if err := json.NewEncoder(w).Encode(dtos); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (handler *BudgetHandler) Get(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	budgetId, err := pathId(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	found, err := handler.budgetService.Get(r.Context(), budgetId)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := json.NewEncoder(w).Encode(BudgetToDTO(found)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (handler *BudgetHandler) Update(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	budgetId, err := pathId(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var dto BudgetDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if dto.ID == 0 || dto.ID != budgetId {
		http.Error(w, "Invalid budget id in request body", http.StatusBadRequest)
		return
	}

	ok, err := handler.budgetService.Update(r.Context(), DTOToBudget(dto))
	if err != nil {
		writeError(w, err)
		return
	}
	if !ok {
		http.Error(w, "Budget not found", http.StatusNotFound)
		return
	}

	if err := json.NewEncoder(w).Encode(dto); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (handler *BudgetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	budgetId, err := pathId(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ok, err := handler.budgetService.Delete(r.Context(), budgetId)
	if err != nil {
		writeError(w, err)
		return
	}
	if !ok {
		http.Error(w, "Budget not found", http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func pathId(r *http.Request) (int, error) {
	idString := mux.Vars(r)["id"]
	id, err := strconv.Atoi(idString)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrBudgetNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrInvalidBudget):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, database.ErrStorage):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func BudgetToDTO(budget Budget) BudgetDTO {
	var startDate, endDate *time.Time
	if !budget.StartDate.IsZero() {
		startDate = &budget.StartDate
	}
	if !budget.EndDate.IsZero() {
		endDate = &budget.EndDate
	}
	return BudgetDTO{
		ID:        budget.ID,
		Name:      budget.Name,
		Category:  budget.Category,
		Limit:     budget.Limit,
		Spent:     budget.Spent,
		Remaining: budget.Remaining(),
		StartDate: startDate,
		EndDate:   endDate,
	}
}

func DTOToBudget(dto BudgetDTO) Budget {
	var startDate time.Time
	if dto.StartDate != nil {
		startDate = *dto.StartDate
	}
	var endDate time.Time
	if dto.EndDate != nil {
		endDate = *dto.EndDate
	}

	return Budget{
		ID:        dto.ID,
		Name:      dto.Name,
		Category:  dto.Category,
		Limit:     dto.Limit,
		Spent:     dto.Spent,
		StartDate: startDate,
		EndDate:   endDate,
	}
}
