package pending

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Nicolas-Jorq/budget-app-sub001/internal/database"
	"github.com/Nicolas-Jorq/budget-app-sub001/pkg/transaction"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type PendingDTO struct {
	ID                    int             `json:"id"`
	BatchID               string          `json:"batchId"`
	Date                  string          `json:"date"`
	Description           string          `json:"description"`
	Amount                decimal.Decimal `json:"amount"`
	Kind                  string          `json:"kind"`
	Category              string          `json:"category,omitempty"`
	UserCategory          string          `json:"userCategory,omitempty"`
	Notes                 string          `json:"notes,omitempty"`
	Status                string          `json:"status"`
	DuplicateOfID         *int            `json:"duplicateOfId,omitempty"`
	ImportedTransactionID *int            `json:"importedTransactionId,omitempty"`
}

type SubmitBatchDTO struct {
	Rows []PendingDTO `json:"rows"`
}

type SubmitBatchResponseDTO struct {
	BatchID string       `json:"batchId"`
	Rows    []PendingDTO `json:"rows"`
}

type ReviewDTO struct {
	Description *string          `json:"description"`
	Amount      *decimal.Decimal `json:"amount"`
	Kind        *string          `json:"kind"`
	Category    *string          `json:"category"`
	Notes       *string          `json:"notes"`
}

type BulkActionDTO struct {
	TransactionIDs []int  `json:"transactionIds"`
	Action         string `json:"action"`
}

type BulkResultDTO struct {
	Processed int    `json:"processed"`
	Action    string `json:"action"`
}

type ImportRequestDTO struct {
	BatchID  string `json:"batchId"`
	BudgetID *int   `json:"budgetId"`
}

type ImportResultDTO struct {
	ImportedCount  int   `json:"importedCount"`
	TransactionIDs []int `json:"transactionIds"`
}

type DuplicateMatchDTO struct {
	Pending PendingDTO                   `json:"pending"`
	Matches []transaction.TransactionDTO `json:"matches"`
}

type DuplicateReportDTO struct {
	TotalChecked    int                 `json:"totalChecked"`
	DuplicatesFound int                 `json:"duplicatesFound"`
	Duplicates      []DuplicateMatchDTO `json:"duplicates"`
}

type StatusSummaryDTO struct {
	Count int             `json:"count"`
	Total decimal.Decimal `json:"total"`
}

type CategorySummaryDTO struct {
	Category string          `json:"category"`
	Count    int             `json:"count"`
	Total    decimal.Decimal `json:"total"`
}

type BatchSummaryDTO struct {
	BatchID       string                      `json:"batchId"`
	ByStatus      map[string]StatusSummaryDTO `json:"byStatus"`
	ByCategory    []CategorySummaryDTO        `json:"byCategory"`
	ReadyToImport int                         `json:"readyToImport"`
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service}
}

func (h *Handler) SubmitBatch(w http.ResponseWriter, r *http.Request) {
	log.Debug("Submitting pending transaction batch")
	w.Header().Set("Content-Type", "application/json")

	var dto SubmitBatchDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	rows := make([]PendingTransaction, 0, len(dto.Rows))
	for _, rowDTO := range dto.Rows {
		row, err := dtoToPending(rowDTO)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		rows = append(rows, row)
	}

	batchId, stored, err := h.service.SubmitBatch(r.Context(), rows)
	if err != nil {
		writeError(w, err)
		return
	}

	response := SubmitBatchResponseDTO{BatchID: batchId, Rows: make([]PendingDTO, 0, len(stored))}
	for _, row := range stored {
		response.Rows = append(response.Rows, pendingToDTO(row))
	}

	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) GetBatch(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	batchId := mux.Vars(r)["batchId"]

	rows, err := h.service.GetBatch(r.Context(), batchId)
	if err != nil {
		writeError(w, err)
		return
	}

	dtos := make([]PendingDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, pendingToDTO(row))
	}

	if err := json.NewEncoder(w).Encode(dtos); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) Review(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	id, err := pathId(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var dto ReviewDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	input := ReviewInput{
		Description: dto.Description,
		Amount:      dto.Amount,
		Category:    dto.Category,
		Notes:       dto.Notes,
	}
	if dto.Kind != nil {
		kind := transaction.Kind(*dto.Kind)
		input.Kind = &kind
	}

	updated, err := h.service.Review(r.Context(), id, input)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := json.NewEncoder(w).Encode(pendingToDTO(updated)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	h.applyTransition(w, r, h.service.Approve)
}

func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	h.applyTransition(w, r, h.service.Reject)
}

func (h *Handler) applyTransition(w http.ResponseWriter, r *http.Request, transition func(ctx context.Context, id int) error) {
	id, err := pathId(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := transition(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Bulk(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var dto BulkActionDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	processed, err := h.service.Bulk(r.Context(), dto.TransactionIDs, BulkAction(dto.Action))
	if err != nil {
		writeError(w, err)
		return
	}

	if err := json.NewEncoder(w).Encode(BulkResultDTO{Processed: processed, Action: dto.Action}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) CheckDuplicates(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	batchId := mux.Vars(r)["batchId"]

	report, err := h.service.CheckDuplicates(r.Context(), batchId)
	if err != nil {
		writeError(w, err)
		return
	}

	dto := DuplicateReportDTO{
		TotalChecked:    report.TotalChecked,
		DuplicatesFound: report.DuplicatesFound,
		Duplicates:      make([]DuplicateMatchDTO, 0, len(report.Duplicates)),
	}
	for _, duplicate := range report.Duplicates {
		match := DuplicateMatchDTO{Pending: pendingToDTO(duplicate.Pending)}
		for _, entry := range duplicate.Matches {
			match.Matches = append(match.Matches, transaction.TransactionToDTO(entry))
		}
		dto.Duplicates = append(dto.Duplicates, match)
	}

	if err := json.NewEncoder(w).Encode(dto); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	log.Debug("Importing approved pending transactions")
	w.Header().Set("Content-Type", "application/json")

	var dto ImportRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.service.Import(r.Context(), dto.BatchID, dto.BudgetID)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := json.NewEncoder(w).Encode(ImportResultDTO(result)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	batchId := mux.Vars(r)["batchId"]

	summary, err := h.service.Summary(r.Context(), batchId)
	if err != nil {
		writeError(w, err)
		return
	}

	dto := BatchSummaryDTO{
		BatchID:       summary.BatchID,
		ByStatus:      map[string]StatusSummaryDTO{},
		ByCategory:    make([]CategorySummaryDTO, 0, len(summary.ByCategory)),
		ReadyToImport: summary.ReadyToImport,
	}
	for status, byStatus := range summary.ByStatus {
		dto.ByStatus[string(status)] = StatusSummaryDTO(byStatus)
	}
	for _, byCategory := range summary.ByCategory {
		dto.ByCategory = append(dto.ByCategory, CategorySummaryDTO(byCategory))
	}

	if err := json.NewEncoder(w).Encode(dto); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
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
	case errors.Is(err, ErrPendingNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrInvalidPending), errors.Is(err, ErrNothingToImport):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrAlreadyImported), errors.Is(err, ErrStatusConflict):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, database.ErrStorage):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func pendingToDTO(row PendingTransaction) PendingDTO {
	return PendingDTO{
		ID:                    row.ID,
		BatchID:               row.BatchID,
		Date:                  row.Date.Format(dateLayout),
		Description:           row.Description,
		Amount:                row.Amount,
		Kind:                  string(row.Kind),
		Category:              row.Category,
		UserCategory:          row.UserCategory,
		Notes:                 row.Notes,
		Status:                string(row.Status),
		DuplicateOfID:         row.DuplicateOfID,
		ImportedTransactionID: row.ImportedTransactionID,
	}
}

func dtoToPending(dto PendingDTO) (PendingTransaction, error) {
	date, err := time.Parse(dateLayout, dto.Date)
	if err != nil {
		return PendingTransaction{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", dto.Date)
	}
	return PendingTransaction{
		Date:         date,
		Description:  dto.Description,
		Amount:       dto.Amount,
		Kind:         transaction.Kind(dto.Kind),
		Category:     dto.Category,
		UserCategory: dto.UserCategory,
		Notes:        dto.Notes,
	}, nil
}
