package domain

// AFSFlight is a flight segment as reported by the external reservation
// system. ID matches BookingFlight.FlightID.
type AFSFlight struct {
	ID            string `json:"id"`
	FlightNumber  string `json:"flightNumber"`
	Status        string `json:"status"`
	DepartureTime string `json:"departureTime"`
	ArrivalTime   string `json:"arrivalTime"`
	Origin        string `json:"origin"`
	Destination   string `json:"destination"`
}
