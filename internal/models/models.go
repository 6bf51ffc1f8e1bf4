package models

// All lists every persisted model in migration order.
func All() []any {
	return []any{
		&Event{},
		&Registration{},
		&RegistrationHistory{},
		&SequenceCounter{},
		&HealthCenter{},
		&LabTest{},
		&CenterService{},
		&Booking{},
		&BookingItem{},
		&UserNotification{},
	}
}
