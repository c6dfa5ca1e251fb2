package booking

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the format of departure dates.
const DateLayout = "2006-01-02"

// DefaultRoomType is used when a request does not name one.
const DefaultRoomType = "double"

// ErrInvalidRequest wraps every structural validation failure of a HolidayRequest.
var ErrInvalidRequest = errors.New("booking: invalid holiday request")

// HolidayRequest is what a caller asks the orchestrator to book.
type HolidayRequest struct {
	Origin        string `json:"origin"`
	Destination   string `json:"destination"`
	DepartureDate string `json:"departure_date,omitempty"`
	Passengers    int    `json:"passengers"`
	Nights        int    `json:"nights"`
	RoomType      string `json:"room_type,omitempty"`
}

// DemoRequest is the fixed request behind the demo endpoint.
func DemoRequest() HolidayRequest {
	return HolidayRequest{
		Origin:      "Delhi",
		Destination: "Paris",
		Passengers:  2,
		Nights:      5,
		RoomType:    DefaultRoomType,
	}
}

// Normalize trims the request and fills defaults: an empty date becomes the
// day of now, an empty room type becomes DefaultRoomType.
func (r HolidayRequest) Normalize(now time.Time) HolidayRequest {
	r.Origin = strings.TrimSpace(r.Origin)
	r.Destination = strings.TrimSpace(r.Destination)
	r.DepartureDate = strings.TrimSpace(r.DepartureDate)
	r.RoomType = strings.TrimSpace(r.RoomType)

	if r.DepartureDate == "" {
		r.DepartureDate = now.Format(DateLayout)
	}
	if r.RoomType == "" {
		r.RoomType = DefaultRoomType
	}
	return r
}

// Validate checks the request structurally. Business feasibility is left to the agents.
func (r HolidayRequest) Validate() error {
	if strings.TrimSpace(r.Origin) == "" {
		return fmt.Errorf("%w: origin is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(r.Destination) == "" {
		return fmt.Errorf("%w: destination is required", ErrInvalidRequest)
	}
	if r.Passengers <= 0 {
		return fmt.Errorf("%w: passengers must be positive, got %d", ErrInvalidRequest, r.Passengers)
	}
	if r.Nights <= 0 {
		return fmt.Errorf("%w: nights must be positive, got %d", ErrInvalidRequest, r.Nights)
	}
	if d := strings.TrimSpace(r.DepartureDate); d != "" {
		if _, err := time.Parse(DateLayout, d); err != nil {
			return fmt.Errorf("%w: departure_date %q is not YYYY-MM-DD", ErrInvalidRequest, d)
		}
	}
	return nil
}
