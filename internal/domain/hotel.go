package domain

type HotelBookingRequest struct {
	To          []string `json:"to" validate:"required,min=1,dive,email"`
	PeriodStart string   `json:"periodStart" validate:"required"`
	PeriodEnd   string   `json:"periodEnd" validate:"required"`
	RoomTypes   string   `json:"roomTypes"`
	Note        string   `json:"note"`
}
