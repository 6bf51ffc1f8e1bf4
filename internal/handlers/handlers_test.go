package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/gdg-garage/medislot-api/internal/auth"
	"github.com/gdg-garage/medislot-api/internal/booking"
	"github.com/gdg-garage/medislot-api/internal/database"
	"github.com/gdg-garage/medislot-api/internal/events"
	"github.com/gdg-garage/medislot-api/internal/models"
	"github.com/gdg-garage/medislot-api/internal/notifier"
	"github.com/gdg-garage/medislot-api/internal/registration"
	"github.com/gdg-garage/medislot-api/internal/sequence"
	"github.com/gdg-garage/medislot-api/internal/testutil"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testServer struct {
	api    humatest.TestAPI
	db     *gorm.DB
	issuer *auth.Issuer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db := testutil.NewDB(t)
	runner := testutil.NewTxRunner(db)
	discard := notifier.Discard{}
	deps := Deps{
		DB:            db,
		Issuer:        auth.NewIssuer("test-secret"),
		Events:        events.NewService(runner, discard, nil),
		Registrations: registration.NewService(runner, discard, nil),
		Bookings:      booking.NewService(runner, sequence.NewCounter(db, database.DefaultRetryPolicy()), discard, nil),
	}
	_, api := humatest.New(t, NewConfig())
	Register(api, deps)
	return &testServer{api: api, db: db, issuer: deps.Issuer}
}

func (s *testServer) bearer(t *testing.T, id auth.Identity) string {
	t.Helper()
	token, err := s.issuer.Issue(id)
	require.NoError(t, err)
	return "Authorization: Bearer " + token
}

func decode[T any](t *testing.T, resp *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &v), resp.Body.String())
	return v
}

type problemBody struct {
	Type   string `json:"type"`
	Status int    `json:"status"`
	Errors []struct {
		Value any `json:"value"`
	} `json:"errors"`
}

func registrant(name, nic string) map[string]any {
	return map[string]any{"name": name, "nic": nic, "age": 40, "contact": "0771234567"}
}

func TestHealth(t *testing.T) {
	r := chi.NewRouter()
	RegisterRoutes(r, Deps{Issuer: auth.NewIssuer("x")})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestEventRegistrationFlow(t *testing.T) {
	s := newTestServer(t)
	admin := s.bearer(t, auth.Identity{Subject: "admin-1", Role: auth.RoleAdmin})
	alice := s.bearer(t, auth.Identity{Subject: "alice", Role: auth.RolePatient})
	bob := s.bearer(t, auth.Identity{Subject: "bob", Role: auth.RolePatient})

	newEvent := map[string]any{
		"name": "Eye Camp", "date": "2030-01-15", "time": "09:00", "location": "Town Hall", "slots_total": 1,
	}

	t.Run("patients cannot create events", func(t *testing.T) {
		resp := s.api.Post("/events", alice, newEvent)
		assert.Equal(t, http.StatusForbidden, resp.Code)
		resp = s.api.Post("/events", newEvent)
		assert.Equal(t, http.StatusUnauthorized, resp.Code)
	})

	resp := s.api.Post("/events", admin, newEvent)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	ev := decode[events.View](t, resp)
	assert.Equal(t, 1, ev.SlotsRemaining)

	resp = s.api.Post("/events", admin, map[string]any{
		"name": "Bad", "date": "2030-01-15", "time": "25:00", "location": "X", "slots_total": 1,
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = s.api.Post("/events/"+ev.ID+"/register", alice, registrant("Alice", "901234567V"))
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	regA := decode[models.Registration](t, resp)
	assert.Equal(t, models.StatusConfirmed, regA.Status)
	assert.Equal(t, "alice", regA.PatientID)

	resp = s.api.Post("/events/"+ev.ID+"/register", bob, registrant("Bob", "881234567V"))
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	regB := decode[models.Registration](t, resp)
	assert.Equal(t, models.StatusWaitlist, regB.Status)
	require.NotNil(t, regB.WaitlistPosition)
	assert.Equal(t, 1, *regB.WaitlistPosition)

	t.Run("duplicate registration", func(t *testing.T) {
		resp := s.api.Post("/events/"+ev.ID+"/register", alice, registrant("Alice", "901234567V"))
		require.Equal(t, http.StatusConflict, resp.Code)
		assert.Equal(t, "urn:medislot:error:duplicate_registration", decode[problemBody](t, resp).Type)
	})

	t.Run("other patients cannot see a registration", func(t *testing.T) {
		resp := s.api.Get("/registrations/"+regA.ID, bob)
		assert.Equal(t, http.StatusForbidden, resp.Code)
		resp = s.api.Get("/registrations/"+regA.ID, admin)
		assert.Equal(t, http.StatusOK, resp.Code)
	})

	resp = s.api.Patch("/registrations/"+regA.ID+"/cancel", alice)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, models.StatusCancelled, decode[models.Registration](t, resp).Status)

	resp = s.api.Get("/registrations/"+regB.ID, bob)
	require.Equal(t, http.StatusOK, resp.Code)
	promoted := decode[models.Registration](t, resp)
	assert.Equal(t, models.StatusConfirmed, promoted.Status)
	assert.Nil(t, promoted.WaitlistPosition)

	resp = s.api.Get("/events/"+ev.ID, alice)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 1, decode[events.View](t, resp).SlotsFilled)

	resp = s.api.Get("/registrations/"+regB.ID+"/history", bob)
	require.Equal(t, http.StatusOK, resp.Code)
	rows := decode[[]models.RegistrationHistory](t, resp)
	require.Len(t, rows, 2)
	assert.Equal(t, models.ReasonPromotion, rows[1].Reason)

	resp = s.api.Get("/registrations/me/events", bob)
	require.Equal(t, http.StatusOK, resp.Code)
	page := decode[registration.PatientEventPage](t, resp)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Eye Camp", page.Items[0].EventName)

	t.Run("status update is admin only", func(t *testing.T) {
		body := map[string]any{"status": "attended"}
		resp := s.api.Patch("/registrations/"+regB.ID+"/status", bob, body)
		assert.Equal(t, http.StatusForbidden, resp.Code)

		resp = s.api.Patch("/registrations/"+regB.ID+"/status", admin, body)
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
		assert.Equal(t, models.StatusAttended, decode[models.Registration](t, resp).Status)

		resp = s.api.Patch("/registrations/"+regA.ID+"/status", admin, map[string]any{"status": "confirmed"})
		require.Equal(t, http.StatusConflict, resp.Code)
		assert.Equal(t, "urn:medislot:error:invalid_transition", decode[problemBody](t, resp).Type)
	})

	t.Run("qr pass", func(t *testing.T) {
		resp := s.api.Get("/registrations/"+regB.ID+"/qr", bob)
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, "image/png", resp.Header().Get("Content-Type"))
		assert.Equal(t, []byte("\x89PNG"), resp.Body.Bytes()[:4])
	})

	t.Run("scan", func(t *testing.T) {
		lab := s.bearer(t, auth.Identity{Subject: "lab-1", Role: auth.RoleLab})
		resp := s.api.Post("/registrations/scan", lab, map[string]any{"qr_text": regB.ID})
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
		assert.Equal(t, "Bob", decode[registration.ScanResult](t, resp).PatientName)

		resp = s.api.Post("/registrations/scan", bob, map[string]any{"qr_text": regB.ID})
		assert.Equal(t, http.StatusForbidden, resp.Code)
	})

	t.Run("event with active registrations cannot be deleted", func(t *testing.T) {
		resp := s.api.Delete("/events/"+ev.ID, admin)
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})
}

func TestRaisingCapacityPromotes(t *testing.T) {
	s := newTestServer(t)
	admin := s.bearer(t, auth.Identity{Subject: "admin-1", Role: auth.RoleAdmin})

	resp := s.api.Post("/events", admin, map[string]any{
		"name": "Dental Day", "date": "2030-02-01", "time": "10:00", "location": "Clinic", "slots_total": 0,
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	ev := decode[events.View](t, resp)

	body := registrant("Chamari", "921234567V")
	body["status"] = "waitlist"
	resp = s.api.Post("/events/"+ev.ID+"/register/p-9", admin, body)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	reg := decode[models.Registration](t, resp)
	assert.Equal(t, models.StatusWaitlist, reg.Status)

	resp = s.api.Patch("/events/"+ev.ID, admin, map[string]any{"slots_total": 1})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, 1, decode[events.View](t, resp).SlotsFilled)

	resp = s.api.Get("/registrations?event_id="+ev.ID, admin)
	require.Equal(t, http.StatusOK, resp.Code)
	regs := decode[[]models.Registration](t, resp)
	require.Len(t, regs, 1)
	assert.Equal(t, models.StatusConfirmed, regs[0].Status)
}

func TestBookings(t *testing.T) {
	s := newTestServer(t)
	for _, row := range []any{
		&models.HealthCenter{ID: "hc-1", Name: "City Lab", IsActive: true},
		&models.LabTest{ID: "t-fbc", Name: "Full Blood Count", Price: 1000},
		&models.CenterService{ID: "cs-1", HealthCenterID: "hc-1", TestID: "t-fbc", IsActive: true},
	} {
		require.NoError(t, s.db.Create(row).Error)
	}
	user := s.bearer(t, auth.Identity{Subject: "u-1", Role: auth.RolePatient})
	other := s.bearer(t, auth.Identity{Subject: "u-2", Role: auth.RolePatient})
	lab := s.bearer(t, auth.Identity{Subject: "lab-1", Role: auth.RoleLab, CenterID: "hc-1"})
	admin := s.bearer(t, auth.Identity{Subject: "admin-1", Role: auth.RoleAdmin})

	body := map[string]any{
		"health_center":  "hc-1",
		"scheduled_date": "2030-03-02",
		"scheduled_time": "08:30",
		"services":       []string{"t-fbc"},
		"patient_name":   "Kamala",
		"contact_number": "0771234567",
	}

	resp := s.api.Post("/bookings", user, body)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	first := decode[models.Booking](t, resp)
	assert.Equal(t, int64(1), first.AppointmentNo)
	assert.Equal(t, int64(1000), first.Price)
	require.Len(t, first.Items, 1)
	assert.Equal(t, "cs-1", first.Items[0].CenterServiceID)

	resp = s.api.Post("/bookings", other, body)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	assert.Equal(t, int64(2), decode[models.Booking](t, resp).AppointmentNo)

	t.Run("unknown service", func(t *testing.T) {
		bad := map[string]any{}
		for k, v := range body {
			bad[k] = v
		}
		bad["services"] = []string{"t-fbc", "nope"}
		resp := s.api.Post("/bookings", user, bad)
		require.Equal(t, http.StatusBadRequest, resp.Code)
		p := decode[problemBody](t, resp)
		assert.Equal(t, "urn:medislot:error:invalid_input", p.Type)
		require.Len(t, p.Errors, 1)
		assert.Equal(t, "nope", p.Errors[0].Value)
	})

	t.Run("visibility", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, s.api.Get("/bookings/"+first.ID, user).Code)
		assert.Equal(t, http.StatusForbidden, s.api.Get("/bookings/"+first.ID, other).Code)
		assert.Equal(t, http.StatusOK, s.api.Get("/bookings/"+first.ID, lab).Code)
		assert.Equal(t, http.StatusNotFound, s.api.Get("/bookings/missing", admin).Code)
	})

	resp = s.api.Get("/bookings/my?scope=all", user)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Len(t, decode[[]models.Booking](t, resp), 1)

	resp = s.api.Get("/bookings/lab", lab)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Len(t, decode[[]booking.LabRow](t, resp), 2)
	assert.Equal(t, http.StatusForbidden, s.api.Get("/bookings/lab", user).Code)

	resp = s.api.Post("/bookings/"+first.ID+"/payment", admin, map[string]any{"provider": "card", "provider_ref": "ch_1"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, models.BookingPaid, decode[models.Booking](t, resp).Status)

	t.Run("lab status", func(t *testing.T) {
		second := decode[[]models.Booking](t, s.api.Get("/bookings/my?scope=all", other))[0]
		elsewhere := s.bearer(t, auth.Identity{Subject: "lab-2", Role: auth.RoleLab, CenterID: "hc-2"})
		status := map[string]any{"status": "paid"}

		assert.Equal(t, http.StatusForbidden, s.api.Patch("/bookings/lab/"+second.ID+"/status", other, status).Code)
		assert.Equal(t, http.StatusNotFound, s.api.Patch("/bookings/lab/"+second.ID+"/status", elsewhere, status).Code)
		assert.Equal(t, http.StatusUnprocessableEntity,
			s.api.Patch("/bookings/lab/"+second.ID+"/status", lab, map[string]any{"status": "done"}).Code)

		resp := s.api.Patch("/bookings/lab/"+second.ID+"/status", lab, status)
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
		got := decode[models.Booking](t, resp)
		assert.Equal(t, models.BookingPaid, got.Status)
		assert.Equal(t, models.PaymentPaid, got.Payment.Status)

		resp = s.api.Patch("/bookings/lab/"+first.ID+"/status", admin, map[string]any{"status": "confirmed"})
		require.Equal(t, http.StatusConflict, resp.Code)
		assert.Equal(t, "urn:medislot:error:invalid_transition", decode[problemBody](t, resp).Type)
	})

	resp = s.api.Patch("/bookings/"+first.ID+"/cancel", user)
	require.Equal(t, http.StatusMethodNotAllowed, resp.Code)
	assert.Equal(t, "urn:medislot:error:unsupported", decode[problemBody](t, resp).Type)
}

func TestCatalog(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.db.Create(&models.HealthCenter{ID: "hc-1", Name: "City Lab", IsActive: true}).Error)
	require.NoError(t, s.db.Create(&models.LabTest{ID: "t-1", Name: "FBC", Price: 900}).Error)
	require.NoError(t, s.db.Create(&models.CenterService{ID: "cs-1", HealthCenterID: "hc-1", TestID: "t-1", IsActive: true}).Error)

	resp := s.api.Get("/centers")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Len(t, decode[[]models.HealthCenter](t, resp), 1)

	resp = s.api.Get("/centers/hc-1/services")
	require.Equal(t, http.StatusOK, resp.Code)
	offerings := decode[[]map[string]any](t, resp)
	require.Len(t, offerings, 1)
	assert.Equal(t, "FBC", offerings[0]["name"])

	assert.Equal(t, http.StatusNotFound, s.api.Get("/centers/nope/services").Code)
}

func TestNotificationInbox(t *testing.T) {
	s := newTestServer(t)
	inbox := notifier.NewInApp(s.db)
	require.NoError(t, inbox.Notify(t.Context(), notifier.Recipient{UserID: "u-1"},
		notifier.Message{Kind: notifier.KindBookingConfirmed, Title: "Booking confirmed", Body: "See you"}))
	user := s.bearer(t, auth.Identity{Subject: "u-1", Role: auth.RolePatient})
	other := s.bearer(t, auth.Identity{Subject: "u-2", Role: auth.RolePatient})

	resp := s.api.Get("/notifications/me?unread=true", user)
	require.Equal(t, http.StatusOK, resp.Code)
	rows := decode[[]models.UserNotification](t, resp)
	require.Len(t, rows, 1)

	path := fmt.Sprintf("/notifications/%d/read", rows[0].ID)
	assert.Equal(t, http.StatusNotFound, s.api.Patch(path, other).Code)
	assert.Equal(t, http.StatusNoContent, s.api.Patch(path, user).Code)

	resp = s.api.Get("/notifications/me?unread=true", user)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Empty(t, decode[[]models.UserNotification](t, resp))
}
