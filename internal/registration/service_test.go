package registration

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/gdg-garage/medislot-api/internal/apperr"
	"github.com/gdg-garage/medislot-api/internal/ledger"
	"github.com/gdg-garage/medislot-api/internal/models"
	"github.com/gdg-garage/medislot-api/internal/notifier"
	"github.com/gdg-garage/medislot-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type sent struct {
	to  notifier.Recipient
	msg notifier.Message
}

type recordingDispatcher struct {
	mu   sync.Mutex
	sent []sent
}

func (d *recordingDispatcher) Dispatch(_ context.Context, to notifier.Recipient, msg notifier.Message) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, sent{to, msg})
}

func (d *recordingDispatcher) kinds() []notifier.Kind {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []notifier.Kind
	for _, s := range d.sent {
		out = append(out, s.msg.Kind)
	}
	return out
}

type fixture struct {
	db   *gorm.DB
	svc  *Service
	sent *recordingDispatcher
}

func newFixture(t *testing.T, slots int) *fixture {
	t.Helper()
	return newFixtureOn(t, testutil.NewDB(t), slots)
}

func newFixtureOn(t *testing.T, db *gorm.DB, slots int) *fixture {
	t.Helper()
	require.NoError(t, db.Create(&models.Event{
		ID: "ev-1", Name: "Eye Camp", Date: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
		Time: "09:00", Location: "Hall", SlotsTotal: slots,
	}).Error)

	rec := &recordingDispatcher{}
	svc := NewService(testutil.NewTxRunner(db), rec, nil)

	var mu sync.Mutex
	tick := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		tick = tick.Add(time.Second)
		return tick
	}
	seq := 0
	svc.newID = func() string {
		mu.Lock()
		defer mu.Unlock()
		seq++
		return fmt.Sprintf("reg-%03d", seq)
	}
	return &fixture{db: db, svc: svc, sent: rec}
}

func input(patient string) RegisterInput {
	return RegisterInput{
		EventID:   "ev-1",
		PatientID: patient,
		Details:   models.RegistrantDetails{Name: "Patient " + patient, NIC: patient + "V", Age: 42, Contact: "077" + patient},
	}
}

func (f *fixture) register(t *testing.T, patient string) *models.Registration {
	t.Helper()
	reg, err := f.svc.Register(context.Background(), input(patient))
	require.NoError(t, err)
	return reg
}

func (f *fixture) status(t *testing.T, id string) models.RegistrationStatus {
	t.Helper()
	var reg models.Registration
	require.NoError(t, f.db.First(&reg, "id = ?", id).Error)
	return reg.Status
}

// assertLedger checks that slots_filled is within bounds and matches the
// number of occupying registrations.
func (f *fixture) assertLedger(t *testing.T, want int) {
	t.Helper()
	var ev models.Event
	require.NoError(t, f.db.First(&ev, "id = ?", "ev-1").Error)
	occupied, err := ledger.Occupied(f.db, "ev-1")
	require.NoError(t, err)

	assert.Equal(t, want, ev.SlotsFilled, "slots_filled")
	assert.Equal(t, int64(ev.SlotsFilled), occupied, "occupying registrations")
	assert.GreaterOrEqual(t, ev.SlotsFilled, 0)
	assert.LessOrEqual(t, ev.SlotsFilled, ev.SlotsTotal)
}

func TestEndToEndWaitlistScenario(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()

	a := f.register(t, "A")
	assert.Equal(t, models.StatusConfirmed, a.Status)
	assert.Nil(t, a.WaitlistPosition)
	f.assertLedger(t, 1)

	b := f.register(t, "B")
	assert.Equal(t, models.StatusConfirmed, b.Status)
	f.assertLedger(t, 2)

	c := f.register(t, "C")
	assert.Equal(t, models.StatusWaitlist, c.Status)
	require.NotNil(t, c.WaitlistPosition)
	assert.Equal(t, 1, *c.WaitlistPosition)
	f.assertLedger(t, 2)

	_, err := f.svc.Cancel(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, f.status(t, c.ID))
	f.assertLedger(t, 2)

	d := f.register(t, "D")
	assert.Equal(t, models.StatusWaitlist, d.Status)
	assert.Equal(t, 1, *d.WaitlistPosition)

	_, err = f.svc.Cancel(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, f.status(t, d.ID))
	f.assertLedger(t, 2)

	assert.Equal(t, []notifier.Kind{
		notifier.KindRegistrationConfirmed,
		notifier.KindRegistrationConfirmed,
		notifier.KindRegistrationWaitlisted,
		notifier.KindWaitlistPromoted,
		notifier.KindRegistrationWaitlisted,
		notifier.KindWaitlistPromoted,
	}, f.sent.kinds())

	hist, err := f.svc.History(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, models.ReasonRegister, hist[0].Reason)
	assert.Equal(t, models.ReasonPromotion, hist[1].Reason)
}

func TestCancelIsIdempotent(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()
	a := f.register(t, "A")

	first, err := f.svc.Cancel(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, first.Status)
	f.assertLedger(t, 0)

	second, err := f.svc.Cancel(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, second.Status)
	f.assertLedger(t, 0)

	hist, err := f.svc.History(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, hist, 2, "second cancel records nothing")
}

func TestDuplicateRegistration(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()
	a := f.register(t, "A")

	_, err := f.svc.Register(ctx, input("A"))
	assert.ErrorIs(t, err, apperr.ErrDuplicateRegistration)

	_, err = f.svc.Cancel(ctx, a.ID)
	require.NoError(t, err)

	again := f.register(t, "A")
	assert.Equal(t, models.StatusConfirmed, again.Status)
	f.assertLedger(t, 1)
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()

	in := input("A")
	in.Details.NIC = ""
	_, err := f.svc.Register(ctx, in)
	require.ErrorIs(t, err, apperr.ErrInvalidInput)
	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, []string{"nic"}, ae.Details)

	in = input("A")
	in.Status = models.StatusAttended
	_, err = f.svc.Register(ctx, in)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	in = input("A")
	in.EventID = "nope"
	_, err = f.svc.Register(ctx, in)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestAdminOverride(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()

	in := input("A")
	in.Status = models.StatusWaitlist
	reg, err := f.svc.Register(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, models.StatusWaitlist, reg.Status)
	f.assertLedger(t, 0)

	f.register(t, "B")
	in = input("C")
	in.Status = models.StatusConfirmed
	_, err = f.svc.Register(ctx, in)
	assert.ErrorIs(t, err, apperr.ErrInvalidCapacityState, "forcing confirmed into a full event")
	f.assertLedger(t, 1)

	var count int64
	f.db.Model(&models.Registration{}).Where("patient_id = ?", "C").Count(&count)
	assert.Zero(t, count, "failed registration rolled back")
}

func TestUpdateStatusTransitions(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()
	a := f.register(t, "A")
	w := f.register(t, "W")

	_, err := f.svc.UpdateStatus(ctx, w.ID, models.StatusAttended)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	_, err = f.svc.UpdateStatus(ctx, a.ID, "bogus")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = f.svc.UpdateStatus(ctx, "missing", models.StatusAttended)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	att, err := f.svc.UpdateStatus(ctx, a.ID, models.StatusAttended)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAttended, att.Status)
	f.assertLedger(t, 1)
	assert.Equal(t, models.StatusWaitlist, f.status(t, w.ID), "attended still occupies")

	demoted, err := f.svc.UpdateStatus(ctx, a.ID, models.StatusWaitlist)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, f.status(t, w.ID), "freed seat goes to the waitlist head")
	require.NotNil(t, demoted.WaitlistPosition)
	assert.Equal(t, 1, *demoted.WaitlistPosition)
	f.assertLedger(t, 1)

	_, err = f.svc.Cancel(ctx, a.ID)
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, a.ID, models.StatusConfirmed)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
}

func TestDeleteFreesSeatAndPromotes(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()
	a := f.register(t, "A")
	w := f.register(t, "W")

	require.NoError(t, f.svc.Delete(ctx, a.ID))
	assert.Equal(t, models.StatusConfirmed, f.status(t, w.ID))
	f.assertLedger(t, 1)

	_, err := f.svc.Get(ctx, a.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.ErrorIs(t, f.svc.Delete(ctx, a.ID), apperr.ErrNotFound)
}

func TestConcurrentRegistrationsRespectCapacity(t *testing.T) {
	const n, capacity = 24, 5
	f := newFixture(t, capacity)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Register(ctx, input(fmt.Sprintf("P%02d", i)))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	confirmed, err := f.svc.List(ctx, Filter{EventID: "ev-1", Status: models.StatusConfirmed})
	require.NoError(t, err)
	waiting, err := f.svc.List(ctx, Filter{EventID: "ev-1", Status: models.StatusWaitlist})
	require.NoError(t, err)

	assert.Len(t, confirmed, capacity)
	assert.Len(t, waiting, n-capacity)
	f.assertLedger(t, capacity)

	for i, reg := range waiting {
		require.NotNil(t, reg.WaitlistPosition)
		assert.Equal(t, i+1, *reg.WaitlistPosition)
	}
}
