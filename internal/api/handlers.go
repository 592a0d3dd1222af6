package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/parkd-io/parkd/internal/domain"
	"github.com/parkd-io/parkd/internal/httpd"
	"github.com/parkd-io/parkd/internal/lot"
)

// APIPrefix is the path prefix under which all endpoints live. Paths
// outside it fall through to the static-file resolver.
const APIPrefix = "/api/"

// Handlers owns the endpoint implementations over a single lot.
type Handlers struct {
	lot       *lot.Lot
	admitWait time.Duration
	logger    zerolog.Logger
}

// New creates the handler set. admitWait is how long an admission may
// block waiting for a slot before the request fails; zero fails a full
// lot immediately.
func New(l *lot.Lot, admitWait time.Duration, logger zerolog.Logger) *Handlers {
	return &Handlers{lot: l, admitWait: admitWait, logger: logger}
}

// Register installs every endpoint on the router. The exact /api/vehicle
// route must precede the /api/vehicle/ prefix routes; prefix routes rely
// on registration order for precedence.
func (h *Handlers) Register(r *httpd.Router) {
	r.Handle("POST", "/api/vehicle", httpd.MatchExact, h.AddVehicle)
	r.Handle("DELETE", "/api/vehicle/", httpd.MatchPrefix, h.RemoveVehicle)
	r.Handle("GET", "/api/vehicle/", httpd.MatchPrefix, h.QueryVehicle)
	r.Handle("GET", "/api/status", httpd.MatchExact, h.Status)
	r.Handle("PUT", "/api/rate", httpd.MatchExact, h.SetRate)
	r.Handle("GET", "/api/history", httpd.MatchExact, h.History)
	r.Handle("GET", "/api/current-vehicles", httpd.MatchExact, h.CurrentVehicles)
}

// vehicleView is the wire shape of one occupant record. Times are unix
// seconds; ExitTime is 0 while the vehicle is parked.
type vehicleView struct {
	Plate     string  `json:"plate"`
	Type      string  `json:"type"`
	EntryTime int64   `json:"entryTime"`
	ExitTime  int64   `json:"exitTime"`
	Fee       float64 `json:"fee"`
}

func viewOf(v domain.Vehicle) vehicleView {
	view := vehicleView{
		Plate:     v.Plate,
		Type:      string(v.Class),
		EntryTime: v.EntryTime.Unix(),
		Fee:       v.Fee,
	}
	if v.Departed() {
		view.ExitTime = v.ExitTime.Unix()
	}
	return view
}

// AddVehicle handles POST /api/vehicle with body {plate, type}.
func (h *Handlers) AddVehicle(req *httpd.Request) *httpd.Response {
	var body struct {
		Plate string `json:"plate"`
		Type  string `json:"type"`
	}
	if err := json.Unmarshal(req.Body, &body); err != nil || body.Plate == "" || body.Type == "" {
		return httpd.JSON(400, false, "Missing required fields", nil)
	}

	class, err := domain.ParseClass(body.Type)
	if err != nil {
		return httpd.JSON(400, false, err.Error(), nil)
	}

	err = h.lot.Admit(context.Background(), body.Plate, class, h.admitWait)
	switch {
	case err == nil:
		return httpd.JSON(200, true, "Vehicle added successfully", nil)
	case errors.Is(err, domain.ErrDuplicate):
		return httpd.JSON(400, false, "Vehicle is already in the parking lot", nil)
	case errors.Is(err, domain.ErrLotFull), errors.Is(err, domain.ErrWaitTimeout):
		return httpd.JSON(400, false, "Parking lot is full", nil)
	default:
		h.logger.Error().Err(err).Str("plate", body.Plate).Msg("admit failed")
		return httpd.JSON(500, false, err.Error(), nil)
	}
}

// RemoveVehicle handles DELETE /api/vehicle/{plate}.
func (h *Handlers) RemoveVehicle(req *httpd.Request) *httpd.Response {
	plate, ok := platePathParam(req.Path)
	if !ok {
		return httpd.JSON(400, false, "Missing plate", nil)
	}

	fee, err := h.lot.Release(plate)
	if errors.Is(err, domain.ErrNotFound) {
		return httpd.JSON(404, false, "Vehicle not found", nil)
	}
	if err != nil {
		return httpd.JSON(500, false, err.Error(), nil)
	}

	v, _ := h.lot.Lookup(plate)
	data := struct {
		Plate string  `json:"plate"`
		Type  string  `json:"type"`
		Fee   float64 `json:"fee"`
	}{Plate: plate, Type: string(v.Class), Fee: fee}
	return httpd.JSON(200, true, "Vehicle removed successfully", data)
}

// QueryVehicle handles GET /api/vehicle/{plate}.
func (h *Handlers) QueryVehicle(req *httpd.Request) *httpd.Response {
	plate, ok := platePathParam(req.Path)
	if !ok {
		return httpd.JSON(400, false, "Missing plate", nil)
	}

	v, found := h.lot.Lookup(plate)
	if !found {
		return httpd.JSON(404, false, "Vehicle not found", nil)
	}
	return httpd.JSON(200, true, "Vehicle found", viewOf(v))
}

// Status handles GET /api/status.
func (h *Handlers) Status(*httpd.Request) *httpd.Response {
	rates := h.lot.Rates()
	data := struct {
		Available int     `json:"available"`
		Occupied  int     `json:"occupied"`
		SmallRate float64 `json:"smallRate"`
		LargeRate float64 `json:"largeRate"`
	}{
		Available: h.lot.AvailableCount(),
		Occupied:  h.lot.OccupiedCount(),
		SmallRate: rates.Small,
		LargeRate: rates.Large,
	}
	return httpd.JSON(200, true, "Status retrieved", data)
}

// SetRate handles PUT /api/rate with body {smallRate, largeRate}.
// Pointers distinguish a missing field from an explicit zero.
func (h *Handlers) SetRate(req *httpd.Request) *httpd.Response {
	var body struct {
		SmallRate *float64 `json:"smallRate"`
		LargeRate *float64 `json:"largeRate"`
	}
	if err := json.Unmarshal(req.Body, &body); err != nil || body.SmallRate == nil || body.LargeRate == nil {
		return httpd.JSON(400, false, "Missing smallRate or largeRate field", nil)
	}

	if err := h.lot.SetRates(*body.SmallRate, *body.LargeRate); err != nil {
		return httpd.JSON(400, false, "Rates must be positive numbers", nil)
	}
	return httpd.JSON(200, true, "Rates updated successfully", nil)
}

// History handles GET /api/history, returning all departed records.
func (h *Handlers) History(*httpd.Request) *httpd.Response {
	departed := h.lot.ListDeparted()
	views := make([]vehicleView, 0, len(departed))
	for _, v := range departed {
		views = append(views, viewOf(v))
	}
	return httpd.JSON(200, true, "History retrieved", views)
}

// currentView adds the live hourly rate to a present vehicle.
type currentView struct {
	Plate      string  `json:"plate"`
	Type       string  `json:"type"`
	EntryTime  int64   `json:"entryTime"`
	HourlyRate float64 `json:"hourlyRate"`
}

// CurrentVehicles handles GET /api/current-vehicles.
func (h *Handlers) CurrentVehicles(*httpd.Request) *httpd.Response {
	rates := h.lot.Rates()
	present := h.lot.ListPresent()
	views := make([]currentView, 0, len(present))
	for _, v := range present {
		views = append(views, currentView{
			Plate:      v.Plate,
			Type:       string(v.Class),
			EntryTime:  v.EntryTime.Unix(),
			HourlyRate: rates.For(v.Class),
		})
	}
	return httpd.JSON(200, true, "Current vehicles retrieved", views)
}

// platePathParam extracts and URL-decodes the final path segment.
// '+' decodes to a space, matching how the frontend encodes plates.
func platePathParam(path string) (string, bool) {
	i := strings.LastIndexByte(path, '/')
	if i < 0 || i == len(path)-1 {
		return "", false
	}
	plate, err := url.QueryUnescape(path[i+1:])
	if err != nil || plate == "" {
		return "", false
	}
	return plate, true
}
