package recurring

import (
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

type TemplateDTO struct {
	ID                int             `json:"id"`
	Description       string          `json:"description"`
	Amount            decimal.Decimal `json:"amount"`
	Kind              string          `json:"kind"`
	Category          string          `json:"category,omitempty"`
	Frequency         string          `json:"frequency"`
	StartDate         string          `json:"startDate"`
	EndDate           string          `json:"endDate,omitempty"`
	DayOfMonth        *int            `json:"dayOfMonth,omitempty"`
	DayOfWeek         *int            `json:"dayOfWeek,omitempty"`
	BudgetID          *int            `json:"budgetId,omitempty"`
	IsActive          bool            `json:"isActive"`
	NextDueDate       string          `json:"nextDueDate,omitempty"`
	LastGeneratedDate string          `json:"lastGeneratedDate,omitempty"`
}

type UpdateDTO struct {
	Description *string          `json:"description"`
	Amount      *decimal.Decimal `json:"amount"`
	Kind        *string          `json:"kind"`
	Category    *string          `json:"category"`
	Frequency   *string          `json:"frequency"`
	StartDate   *string          `json:"startDate"`
	EndDate     *string          `json:"endDate"`
	DayOfMonth  *int             `json:"dayOfMonth"`
	DayOfWeek   *int             `json:"dayOfWeek"`
	BudgetID    *int             `json:"budgetId"`
	IsActive    *bool            `json:"isActive"`
}

type OccurrenceDTO struct {
	TemplateID  int             `json:"templateId"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Kind        string          `json:"kind"`
	Category    string          `json:"category,omitempty"`
	BudgetID    *int            `json:"budgetId,omitempty"`
	DueDate     string          `json:"dueDate"`
}

type FailureDTO struct {
	TemplateID int    `json:"templateId"`
	Error      string `json:"error"`
}

type ResultDTO struct {
	Generated []transaction.TransactionDTO `json:"generated"`
	Failures  []FailureDTO                 `json:"failures"`
}

type Handler struct {
	service   Service
	processor Processor
}

func NewHandler(service Service, processor Processor) *Handler {
	return &Handler{service, processor}
}

func (handler *Handler) Create(w http.ResponseWriter, r *http.Request) {
	log.Debug("Registering new recurring template")
	w.Header().Set("Content-Type", "application/json")

	var dto TemplateDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	tmpl, err := dtoToTemplate(dto)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	created, err := handler.service.Create(r.Context(), tmpl)
	if err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(templateToDTO(created)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (handler *Handler) Update(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	id, err := pathId(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var dto UpdateDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	input, err := dtoToInput(dto)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	updated, err := handler.service.Update(r.Context(), id, input)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := json.NewEncoder(w).Encode(templateToDTO(updated)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (handler *Handler) Get(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	id, err := pathId(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	found, err := handler.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := json.NewEncoder(w).Encode(templateToDTO(found)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (handler *Handler) GetAll(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	templates, err := handler.service.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	dtos := make([]TemplateDTO, 0, len(templates))
	for _, tmpl := range templates {
		dtos = append(dtos, templateToDTO(tmpl))
	}

	if err := json.NewEncoder(w).Encode(dtos); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (handler *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathId(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := handler.service.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (handler *Handler) ProcessDue(w http.ResponseWriter, r *http.Request) {
	log.Debug("Processing due recurring templates")
	w.Header().Set("Content-Type", "application/json")

	result, err := handler.processor.RunCurrent(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	dto := ResultDTO{
		Generated: make([]transaction.TransactionDTO, 0, len(result.Generated)),
		Failures:  make([]FailureDTO, 0, len(result.Failures)),
	}
	for _, entry := range result.Generated {
		dto.Generated = append(dto.Generated, transaction.TransactionToDTO(entry))
	}
	for _, failure := range result.Failures {
		dto.Failures = append(dto.Failures, FailureDTO{TemplateID: failure.TemplateID, Error: failure.Err.Error()})
	}

	if err := json.NewEncoder(w).Encode(dto); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (handler *Handler) Upcoming(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	days := 30
	if param := r.URL.Query().Get("days"); param != "" {
		parsed, err := strconv.Atoi(param)
		if err != nil {
			http.Error(w, "Invalid days parameter", http.StatusBadRequest)
			return
		}
		days = parsed
	}

	occurrences, err := handler.service.Upcoming(r.Context(), days)
	if err != nil {
		writeError(w, err)
		return
	}

	dtos := make([]OccurrenceDTO, 0, len(occurrences))
	for _, occurrence := range occurrences {
		dtos = append(dtos, OccurrenceDTO{
			TemplateID:  occurrence.TemplateID,
			Description: occurrence.Description,
			Amount:      occurrence.Amount,
			Kind:        string(occurrence.Kind),
			Category:    occurrence.Category,
			BudgetID:    occurrence.BudgetID,
			DueDate:     occurrence.DueDate.Format(dateLayout),
		})
	}

	if err := json.NewEncoder(w).Encode(dtos); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (handler *Handler) SkipNext(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	id, err := pathId(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	skipped, err := handler.service.SkipNext(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := json.NewEncoder(w).Encode(templateToDTO(skipped)); err != nil {
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
	case errors.Is(err, ErrTemplateNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrInvalidTemplate), errors.Is(err, ErrInvalidFrequency):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrTemplateInactive), errors.Is(err, ErrRunInProgress):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, transaction.ErrBudgetNotFound):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, database.ErrStorage):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func templateToDTO(tmpl Template) TemplateDTO {
	dto := TemplateDTO{
		ID:          tmpl.ID,
		Description: tmpl.Description,
		Amount:      tmpl.Amount,
		Kind:        string(tmpl.Kind),
		Category:    tmpl.Category,
		Frequency:   string(tmpl.Frequency),
		StartDate:   tmpl.StartDate.Format(dateLayout),
		DayOfMonth:  tmpl.DayOfMonth,
		BudgetID:    tmpl.BudgetID,
		IsActive:    tmpl.IsActive,
		NextDueDate: tmpl.NextDueDate.Format(dateLayout),
	}
	if tmpl.DayOfWeek != nil {
		weekday := int(*tmpl.DayOfWeek)
		dto.DayOfWeek = &weekday
	}
	if !tmpl.EndDate.IsZero() {
		dto.EndDate = tmpl.EndDate.Format(dateLayout)
	}
	if !tmpl.LastGeneratedDate.IsZero() {
		dto.LastGeneratedDate = tmpl.LastGeneratedDate.Format(dateLayout)
	}
	return dto
}

func dtoToTemplate(dto TemplateDTO) (Template, error) {
	tmpl := Template{
		ID:          dto.ID,
		Description: dto.Description,
		Amount:      dto.Amount,
		Kind:        transaction.Kind(dto.Kind),
		Category:    dto.Category,
		Frequency:   Frequency(dto.Frequency),
		DayOfMonth:  dto.DayOfMonth,
		BudgetID:    dto.BudgetID,
	}
	if dto.DayOfWeek != nil {
		weekday := time.Weekday(*dto.DayOfWeek)
		tmpl.DayOfWeek = &weekday
	}
	var err error
	if tmpl.StartDate, err = parseDate(dto.StartDate); err != nil {
		return Template{}, err
	}
	if dto.EndDate != "" {
		if tmpl.EndDate, err = parseDate(dto.EndDate); err != nil {
			return Template{}, err
		}
	}
	return tmpl, nil
}

func dtoToInput(dto UpdateDTO) (UpdateInput, error) {
	input := UpdateInput{
		Description: dto.Description,
		Amount:      dto.Amount,
		Category:    dto.Category,
		DayOfMonth:  dto.DayOfMonth,
		BudgetID:    dto.BudgetID,
		IsActive:    dto.IsActive,
	}
	if dto.Kind != nil {
		kind := transaction.Kind(*dto.Kind)
		input.Kind = &kind
	}
	if dto.Frequency != nil {
		frequency := Frequency(*dto.Frequency)
		input.Frequency = &frequency
	}
	if dto.DayOfWeek != nil {
		weekday := time.Weekday(*dto.DayOfWeek)
		input.DayOfWeek = &weekday
	}
	if dto.StartDate != nil {
		startDate, err := parseDate(*dto.StartDate)
		if err != nil {
			return UpdateInput{}, err
		}
		input.StartDate = &startDate
	}
	if dto.EndDate != nil {
		endDate, err := parseDate(*dto.EndDate)
		if err != nil {
			return UpdateInput{}, err
		}
		input.EndDate = &endDate
	}
	return input, nil
}

func parseDate(value string) (time.Time, error) {
	date, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", value)
	}
	return date, nil
}
