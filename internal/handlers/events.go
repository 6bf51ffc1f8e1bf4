package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/gdg-garage/medislot-api/internal/apperr"
	"github.com/gdg-garage/medislot-api/internal/events"
	"github.com/gdg-garage/medislot-api/internal/models"
)

type EventHandler struct {
	svc *events.Service
}

func NewEventHandler(svc *events.Service) *EventHandler {
	return &EventHandler{svc: svc}
}

// parseDay accepts YYYY-MM-DD or an RFC 3339 timestamp.
func parseDay(field, s string) (time.Time, error) {
	if t, ok := models.ParseDate(s); ok {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, apperr.InvalidInput("%s must be YYYY-MM-DD", field)
}

type EventBody struct {
	Name        string `json:"name" doc:"Event name"`
	Description string `json:"description,omitempty"`
	Date        string `json:"date" doc:"Event day, YYYY-MM-DD" example:"2026-11-02"`
	Time        string `json:"time" doc:"Start time, HH:mm" example:"09:30"`
	Location    string `json:"location"`
	SlotsTotal  int    `json:"slots_total" doc:"Number of seats"`
}

type CreateEventRequest struct {
	Body EventBody
}

type EventResponse struct {
	Body *events.View
}

type EventsResponse struct {
	Body []events.View
}

func (h *EventHandler) HandleCreate(ctx context.Context, input *CreateEventRequest) (*EventResponse, error) {
	day, err := parseDay("date", input.Body.Date)
	if err != nil {
		return nil, problem(err)
	}
	view, err := h.svc.Create(ctx, events.Input{
		Name:        input.Body.Name,
		Description: input.Body.Description,
		Date:        day,
		Time:        input.Body.Time,
		Location:    input.Body.Location,
		SlotsTotal:  input.Body.SlotsTotal,
	})
	if err != nil {
		return nil, problem(err)
	}
	return &EventResponse{Body: view}, nil
}

type ListEventsRequest struct {
	From  string `query:"from" doc:"Earliest date, YYYY-MM-DD"`
	To    string `query:"to" doc:"Latest date, YYYY-MM-DD"`
	Q     string `query:"q" doc:"Text filter on name, location and description"`
	Sort  string `query:"sort" enum:"date,name,created_at,updated_at" default:"date"`
	Order string `query:"order" enum:"asc,desc" default:"asc"`
}

func (h *EventHandler) HandleList(ctx context.Context, input *ListEventsRequest) (*EventsResponse, error) {
	q := events.ListQuery{Q: input.Q, Sort: input.Sort, Desc: input.Order == "desc"}
	var err error
	if input.From != "" {
		if q.From, err = parseDay("from", input.From); err != nil {
			return nil, problem(err)
		}
	}
	if input.To != "" {
		if q.To, err = parseDay("to", input.To); err != nil {
			return nil, problem(err)
		}
	}
	views, err := h.svc.List(ctx, q)
	if err != nil {
		return nil, problem(err)
	}
	return &EventsResponse{Body: views}, nil
}

type UpcomingEventsRequest struct {
	Days int `query:"days" default:"30" minimum:"1" maximum:"365"`
}

func (h *EventHandler) HandleUpcoming(ctx context.Context, input *UpcomingEventsRequest) (*EventsResponse, error) {
	views, err := h.svc.Upcoming(ctx, input.Days)
	if err != nil {
		return nil, problem(err)
	}
	return &EventsResponse{Body: views}, nil
}

type EventIDRequest struct {
	ID string `path:"id"`
}

func (h *EventHandler) HandleGet(ctx context.Context, input *EventIDRequest) (*EventResponse, error) {
	view, err := h.svc.Get(ctx, input.ID)
	if err != nil {
		return nil, problem(err)
	}
	return &EventResponse{Body: view}, nil
}

type PatchEventRequest struct {
	ID   string `path:"id"`
	Body struct {
		Name        *string `json:"name,omitempty"`
		Description *string `json:"description,omitempty"`
		Date        *string `json:"date,omitempty"`
		Time        *string `json:"time,omitempty"`
		Location    *string `json:"location,omitempty"`
		SlotsTotal  *int    `json:"slots_total,omitempty"`
	}
}

func (h *EventHandler) HandlePatch(ctx context.Context, input *PatchEventRequest) (*EventResponse, error) {
	b := input.Body
	p := events.Patch{
		Name:        b.Name,
		Description: b.Description,
		Time:        b.Time,
		Location:    b.Location,
		SlotsTotal:  b.SlotsTotal,
	}
	if b.Date != nil && strings.TrimSpace(*b.Date) != "" {
		day, err := parseDay("date", *b.Date)
		if err != nil {
			return nil, problem(err)
		}
		p.Date = &day
	}
	view, err := h.svc.Update(ctx, input.ID, p)
	if err != nil {
		return nil, problem(err)
	}
	return &EventResponse{Body: view}, nil
}

func (h *EventHandler) HandleDelete(ctx context.Context, input *EventIDRequest) (*struct{}, error) {
	if err := h.svc.Delete(ctx, input.ID); err != nil {
		return nil, problem(err)
	}
	return &struct{}{}, nil
}

func (h *EventHandler) register(api huma.API, admin func(*huma.Operation)) {
	huma.Register(api, operation(huma.Operation{
		OperationID:   "create-event",
		Method:        http.MethodPost,
		Path:          "/events",
		Summary:       "Create an event",
		Tags:          []string{"Events"},
		DefaultStatus: http.StatusCreated,
	}, admin), h.HandleCreate)
	huma.Get(api, "/events", h.HandleList, tagged("Events"))
	huma.Get(api, "/events/upcoming", h.HandleUpcoming, tagged("Events"))
	huma.Get(api, "/events/{id}", h.HandleGet, tagged("Events"))
	huma.Patch(api, "/events/{id}", h.HandlePatch, tagged("Events"), admin)
	huma.Delete(api, "/events/{id}", h.HandleDelete, tagged("Events"), admin)
}
