package notifier

import (
	"fmt"
	"strings"

	"github.com/gdg-garage/medislot-api/internal/models"
)

const dateLayout = "2006-01-02"

func RegistrantOf(reg *models.Registration) Recipient {
	return Recipient{
		UserID: reg.PatientID,
		Name:   reg.Name,
		Phone:  reg.Contact,
		Email:  reg.Email,
	}
}

func CustomerOf(b *models.Booking) Recipient {
	return Recipient{
		UserID: b.UserID,
		Name:   b.PatientName,
		Phone:  b.ContactNumber,
		Email:  b.Email,
	}
}

func BookingConfirmed(b *models.Booking, centerName string) Message {
	names := make([]string, 0, len(b.Items))
	for _, it := range b.Items {
		names = append(names, it.Name)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Hi %s, your booking at %s is confirmed.\n", b.PatientName, centerName)
	fmt.Fprintf(&sb, "Appointment No: %d\n", b.AppointmentNo)
	fmt.Fprintf(&sb, "Date: %s at %s\n", b.ScheduledDate, b.ScheduledTime)
	fmt.Fprintf(&sb, "Tests: %s\n", strings.Join(names, ", "))
	fmt.Fprintf(&sb, "Total: LKR %d\n", b.Price)
	fmt.Fprintf(&sb, "Payment: %s (%s)\n", b.Payment.Method, b.Payment.Status)

	return Message{
		Kind:      KindBookingConfirmed,
		Title:     "Booking confirmed",
		Body:      sb.String(),
		Reference: b.ID,
	}
}

func eventLine(ev *models.Event) string {
	return fmt.Sprintf("%s on %s at %s (%s)", ev.Name, ev.Date.Format(dateLayout), ev.Time, ev.Location)
}

func RegistrationConfirmed(reg *models.Registration, ev *models.Event) Message {
	return Message{
		Kind:  KindRegistrationConfirmed,
		Title: "Registration confirmed",
		Body: fmt.Sprintf("Hi %s, your seat at %s is confirmed.\nRegistration ID: %s\n",
			reg.Name, eventLine(ev), reg.ID),
		Reference: reg.ID,
	}
}

func RegistrationWaitlisted(reg *models.Registration, ev *models.Event, position int) Message {
	return Message{
		Kind:  KindRegistrationWaitlisted,
		Title: "Added to waitlist",
		Body: fmt.Sprintf("Hi %s, %s is full.\nYou are number %d on the waitlist. We will message you if a seat opens up.\nRegistration ID: %s\n",
			reg.Name, eventLine(ev), position, reg.ID),
		Reference: reg.ID,
	}
}

func WaitlistPromoted(reg *models.Registration, ev *models.Event) Message {
	return Message{
		Kind:  KindWaitlistPromoted,
		Title: "Seat available",
		Body: fmt.Sprintf("Good news %s, a seat opened up at %s.\nYour registration is now confirmed.\nRegistration ID: %s\n",
			reg.Name, eventLine(ev), reg.ID),
		Reference: reg.ID,
	}
}
