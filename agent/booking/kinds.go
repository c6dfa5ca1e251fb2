package booking

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/BaSui01/holidayflow/agent/protocol/a2a"
)

func builtinKinds() []Kind {
	return []Kind{flightKind(), hotelKind(), cabKind()}
}

func adults(n int) string {
	return fmt.Sprintf("%d adults", n)
}

func flightKind() Kind {
	return Kind{
		Domain:      DomainFlight,
		AgentName:   "FlightBookingAgent",
		Description: "Books round-trip flights between cities",
		Skill: a2a.AgentSkill{
			ID:          "book_flight",
			Name:        "book_flight",
			Description: "Book a round-trip flight for the given route, date and passengers",
			Tags:        []string{"flights", "booking", "travel"},
		},
		Port: 5002,
		Message: func(r HolidayRequest) Template {
			return Template{Title: "Book a round-trip flight:", Lines: []Line{
				{"Origin", r.Origin},
				{"Destination", r.Destination},
				{"Departure Date", r.DepartureDate},
				{"Passengers", adults(r.Passengers)},
				{"Class", "Economy"},
				{"Requirements", "Flexible booking, online check-in available"},
			}}
		},
		Details: func(r HolidayRequest) map[string]any {
			return map[string]any{
				"origin":      r.Origin,
				"destination": r.Destination,
				"passengers":  r.Passengers,
				"date":        r.DepartureDate,
			}
		},
		Confirm: confirmFlight,
	}
}

func hotelKind() Kind {
	return Kind{
		Domain:      DomainHotel,
		AgentName:   "HotelBookingAgent",
		Description: "Books hotel rooms near the destination city center",
		Skill: a2a.AgentSkill{
			ID:          "book_hotel",
			Name:        "book_hotel",
			Description: "Book a hotel for the given location, nights, guests and room type",
			Tags:        []string{"hotel", "booking", "accommodation"},
		},
		Port: 5003,
		Message: func(r HolidayRequest) Template {
			return Template{Title: "Book a hotel reservation:", Lines: []Line{
				{"Location", r.Destination + " city center"},
				{"Duration", fmt.Sprintf("%d nights", r.Nights)},
				{"Check-in Date", r.DepartureDate},
				{"Guests", adults(r.Passengers)},
				{"Room Type", r.RoomType + " room"},
				{"Requirements", "WiFi, breakfast included, near attractions"},
			}}
		},
		Details: func(r HolidayRequest) map[string]any {
			return map[string]any{
				"location":  r.Destination,
				"nights":    r.Nights,
				"room_type": r.RoomType,
				"check_in":  r.DepartureDate,
			}
		},
		Confirm: confirmHotel,
	}
}

func cabKind() Kind {
	return Kind{
		Domain:      DomainCab,
		AgentName:   "CabBookingAgent",
		Description: "Books airport transfers to the hotel",
		Skill: a2a.AgentSkill{
			ID:          "book_cab",
			Name:        "book_cab",
			Description: "Book an airport transfer for the given pickup, drop-off, date and passengers",
			Tags:        []string{"cab", "booking", "transport"},
		},
		Port: 5001,
		Message: func(r HolidayRequest) Template {
			return Template{Title: "Book airport transfer service:", Lines: []Line{
				{"Pickup", r.Destination + " International Airport"},
				{"Destination", "Hotel in " + r.Destination + " city center"},
				{"Date", r.DepartureDate},
				{"Passengers", adults(r.Passengers)},
				{"Vehicle", "Standard sedan or larger"},
				{"Requirements", "English-speaking driver, assistance with luggage"},
			}}
		},
		Details: func(r HolidayRequest) map[string]any {
			return map[string]any{
				"pickup":      r.Destination + " Airport",
				"destination": "Hotel in " + r.Destination,
				"passengers":  r.Passengers,
				"date":        r.DepartureDate,
			}
		},
		Confirm: confirmCab,
	}
}

func confirmFlight(req Request) (Template, error) {
	f := req.Fields
	origin := f.Get("origin", "from")
	destination := f.Get("destination", "to")
	if origin == "" || destination == "" {
		return Template{}, fmt.Errorf("%w: flight needs origin and destination", ErrMissingField)
	}
	if err := req.CheckAvailable(destination); err != nil {
		return Template{}, err
	}

	return Template{Title: "Flight booked", Lines: []Line{
		{"Booking Reference", req.Reference("FL")},
		{"Route", origin + " → " + destination + " (round trip)"},
		{"Departure Date", orDefault(f.Get("departure date", "date"), "flexible")},
		{"Passengers", strconv.Itoa(f.Count("passengers"))},
		{"Class", orDefault(f.Get("class", "class type"), "Economy")},
		{"Status", "Confirmed"},
	}}, nil
}

func confirmHotel(req Request) (Template, error) {
	f := req.Fields
	location := f.Get("location", "destination", "city")
	if location == "" {
		return Template{}, fmt.Errorf("%w: hotel needs a location", ErrMissingField)
	}
	if err := req.CheckAvailable(location); err != nil {
		return Template{}, err
	}

	return Template{Title: "Hotel reserved", Lines: []Line{
		{"Booking Reference", req.Reference("HT")},
		{"Location", location},
		{"Check-in Date", orDefault(f.Get("check in date", "check in", "date"), "flexible")},
		{"Nights", strconv.Itoa(f.Count("duration", "nights"))},
		{"Guests", strconv.Itoa(f.Count("guests", "passengers"))},
		{"Room Type", orDefault(strings.TrimSuffix(f.Get("room type", "room"), " room"), DefaultRoomType)},
		{"Status", "Confirmed"},
	}}, nil
}

func confirmCab(req Request) (Template, error) {
	f := req.Fields
	pickup := f.Get("pickup", "from")
	destination := f.Get("destination", "dropoff", "to")
	if pickup == "" || destination == "" {
		return Template{}, fmt.Errorf("%w: cab needs pickup and destination", ErrMissingField)
	}
	if err := req.CheckAvailable(pickup, destination); err != nil {
		return Template{}, err
	}

	return Template{Title: "Airport transfer booked", Lines: []Line{
		{"Booking Reference", req.Reference("CB")},
		{"Pickup", pickup},
		{"Drop-off", destination},
		{"Date", orDefault(f.Get("date"), "flexible")},
		{"Passengers", strconv.Itoa(f.Count("passengers"))},
		{"Vehicle", orDefault(f.Get("vehicle"), "Standard sedan")},
		{"Status", "Confirmed"},
	}}, nil
}
