package api

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parkd-io/parkd/internal/httpd"
	"github.com/parkd-io/parkd/internal/lot"
)

func newHandlers(t *testing.T, capacity int) (*Handlers, *lot.Lot) {
	t.Helper()
	l := lot.New(lot.Config{Capacity: capacity, SmallRate: 5.0, LargeRate: 8.0})
	return New(l, 0, zerolog.Nop()), l
}

func jsonReq(method, path, body string) *httpd.Request {
	return &httpd.Request{
		Method: method,
		Path:   path,
		Header: map[string]string{"Content-Type": "application/json"},
		Body:   []byte(body),
	}
}

// decodeEnvelope unpacks the {success, message, data?} body.
func decodeEnvelope(t *testing.T, resp *httpd.Response) (bool, string, json.RawMessage) {
	t.Helper()
	var env struct {
		Success bool            `json:"success"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body, &env))
	return env.Success, env.Message, env.Data
}

func TestAddVehicle(t *testing.T) {
	h, l := newHandlers(t, 2)

	resp := h.AddVehicle(jsonReq("POST", "/api/vehicle", `{"plate":"AAA-111","type":"small"}`))
	require.Equal(t, 200, resp.Status)
	success, message, _ := decodeEnvelope(t, resp)
	assert.True(t, success)
	assert.Equal(t, "Vehicle added successfully", message)
	assert.Equal(t, 1, l.OccupiedCount())
}

func TestAddVehicleValidation(t *testing.T) {
	h, _ := newHandlers(t, 2)

	cases := []struct {
		name, body, message string
	}{
		{"empty body", ``, "Missing required fields"},
		{"missing plate", `{"type":"small"}`, "Missing required fields"},
		{"missing type", `{"plate":"AAA-111"}`, "Missing required fields"},
		{"bad json", `{"plate":`, "Missing required fields"},
		{"unknown class", `{"plate":"AAA-111","type":"medium"}`, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := h.AddVehicle(jsonReq("POST", "/api/vehicle", tc.body))
			assert.Equal(t, 400, resp.Status)
			success, message, _ := decodeEnvelope(t, resp)
			assert.False(t, success)
			if tc.message != "" {
				assert.Equal(t, tc.message, message)
			}
		})
	}
}

func TestAddVehicleDuplicate(t *testing.T) {
	h, _ := newHandlers(t, 2)

	body := `{"plate":"AAA-111","type":"small"}`
	require.Equal(t, 200, h.AddVehicle(jsonReq("POST", "/api/vehicle", body)).Status)

	resp := h.AddVehicle(jsonReq("POST", "/api/vehicle", body))
	assert.Equal(t, 400, resp.Status)
	_, message, _ := decodeEnvelope(t, resp)
	assert.Equal(t, "Vehicle is already in the parking lot", message)
}

func TestAddVehicleFull(t *testing.T) {
	h, _ := newHandlers(t, 1)

	require.Equal(t, 200, h.AddVehicle(jsonReq("POST", "/api/vehicle", `{"plate":"AAA-111","type":"small"}`)).Status)

	resp := h.AddVehicle(jsonReq("POST", "/api/vehicle", `{"plate":"BBB-222","type":"large"}`))
	assert.Equal(t, 400, resp.Status)
	_, message, _ := decodeEnvelope(t, resp)
	assert.Equal(t, "Parking lot is full", message)
}

func TestRemoveVehicle(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	l := lot.New(lot.Config{Capacity: 2, SmallRate: 5.0, LargeRate: 8.0},
		lot.WithClock(func() time.Time { return now }))
	h := New(l, 0, zerolog.Nop())

	require.Equal(t, 200, h.AddVehicle(jsonReq("POST", "/api/vehicle", `{"plate":"AAA-111","type":"small"}`)).Status)
	now = now.Add(2 * time.Hour)

	resp := h.RemoveVehicle(jsonReq("DELETE", "/api/vehicle/AAA-111", ""))
	require.Equal(t, 200, resp.Status)
	success, message, data := decodeEnvelope(t, resp)
	assert.True(t, success)
	assert.Equal(t, "Vehicle removed successfully", message)

	var out struct {
		Plate string  `json:"plate"`
		Type  string  `json:"type"`
		Fee   float64 `json:"fee"`
	}
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "AAA-111", out.Plate)
	assert.Equal(t, "small", out.Type)
	assert.Equal(t, 10.0, out.Fee)
	assert.Equal(t, 0, l.OccupiedCount())
}

func TestRemoveVehicleNotFound(t *testing.T) {
	h, _ := newHandlers(t, 2)

	resp := h.RemoveVehicle(jsonReq("DELETE", "/api/vehicle/NOPE-1", ""))
	assert.Equal(t, 404, resp.Status)
	_, message, _ := decodeEnvelope(t, resp)
	assert.Equal(t, "Vehicle not found", message)
}

func TestRemoveVehicleDecodesPlate(t *testing.T) {
	h, _ := newHandlers(t, 2)

	require.Equal(t, 200, h.AddVehicle(jsonReq("POST", "/api/vehicle", `{"plate":"AB 12","type":"small"}`)).Status)

	// '+' in the path decodes to a space.
	resp := h.RemoveVehicle(jsonReq("DELETE", "/api/vehicle/AB+12", ""))
	assert.Equal(t, 200, resp.Status)
}

func TestQueryVehicle(t *testing.T) {
	h, _ := newHandlers(t, 2)

	require.Equal(t, 200, h.AddVehicle(jsonReq("POST", "/api/vehicle", `{"plate":"AAA-111","type":"large"}`)).Status)

	resp := h.QueryVehicle(jsonReq("GET", "/api/vehicle/AAA-111", ""))
	require.Equal(t, 200, resp.Status)
	_, _, data := decodeEnvelope(t, resp)

	var out struct {
		Plate     string `json:"plate"`
		Type      string `json:"type"`
		EntryTime int64  `json:"entryTime"`
		ExitTime  int64  `json:"exitTime"`
	}
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "AAA-111", out.Plate)
	assert.Equal(t, "large", out.Type)
	assert.NotZero(t, out.EntryTime)
	assert.Zero(t, out.ExitTime)

	resp = h.QueryVehicle(jsonReq("GET", "/api/vehicle/NOPE-1", ""))
	assert.Equal(t, 404, resp.Status)
}

func TestStatus(t *testing.T) {
	h, _ := newHandlers(t, 3)

	require.Equal(t, 200, h.AddVehicle(jsonReq("POST", "/api/vehicle", `{"plate":"AAA-111","type":"small"}`)).Status)

	resp := h.Status(jsonReq("GET", "/api/status", ""))
	require.Equal(t, 200, resp.Status)
	_, _, data := decodeEnvelope(t, resp)

	var out struct {
		Available int     `json:"available"`
		Occupied  int     `json:"occupied"`
		SmallRate float64 `json:"smallRate"`
		LargeRate float64 `json:"largeRate"`
	}
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, 2, out.Available)
	assert.Equal(t, 1, out.Occupied)
	assert.Equal(t, 5.0, out.SmallRate)
	assert.Equal(t, 8.0, out.LargeRate)
}

func TestSetRate(t *testing.T) {
	h, l := newHandlers(t, 2)

	resp := h.SetRate(jsonReq("PUT", "/api/rate", `{"smallRate":6.5,"largeRate":9.5}`))
	require.Equal(t, 200, resp.Status)
	assert.Equal(t, lot.Rates{Small: 6.5, Large: 9.5}, l.Rates())
}

func TestSetRateValidation(t *testing.T) {
	h, l := newHandlers(t, 2)

	cases := []struct {
		name, body string
	}{
		{"missing small", `{"largeRate":9.5}`},
		{"missing large", `{"smallRate":6.5}`},
		{"bad json", `{"smallRate":`},
		{"zero rate", `{"smallRate":0,"largeRate":9.5}`},
		{"negative rate", `{"smallRate":6.5,"largeRate":-1}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := h.SetRate(jsonReq("PUT", "/api/rate", tc.body))
			assert.Equal(t, 400, resp.Status)
		})
	}
	assert.Equal(t, lot.Rates{Small: 5.0, Large: 8.0}, l.Rates())
}

func TestHistory(t *testing.T) {
	h, _ := newHandlers(t, 2)

	require.Equal(t, 200, h.AddVehicle(jsonReq("POST", "/api/vehicle", `{"plate":"AAA-111","type":"small"}`)).Status)
	require.Equal(t, 200, h.AddVehicle(jsonReq("POST", "/api/vehicle", `{"plate":"BBB-222","type":"large"}`)).Status)
	require.Equal(t, 200, h.RemoveVehicle(jsonReq("DELETE", "/api/vehicle/AAA-111", "")).Status)

	resp := h.History(jsonReq("GET", "/api/history", ""))
	require.Equal(t, 200, resp.Status)
	_, _, data := decodeEnvelope(t, resp)

	var out []vehicleView
	require.NoError(t, json.Unmarshal(data, &out))
	require.Len(t, out, 1)
	assert.Equal(t, "AAA-111", out[0].Plate)
	assert.NotZero(t, out[0].ExitTime)
}

func TestHistoryEmptyIsArray(t *testing.T) {
	h, _ := newHandlers(t, 2)

	resp := h.History(jsonReq("GET", "/api/history", ""))
	_, _, data := decodeEnvelope(t, resp)
	assert.JSONEq(t, `[]`, string(data))
}

func TestCurrentVehicles(t *testing.T) {
	h, _ := newHandlers(t, 2)

	require.Equal(t, 200, h.AddVehicle(jsonReq("POST", "/api/vehicle", `{"plate":"AAA-111","type":"large"}`)).Status)

	resp := h.CurrentVehicles(jsonReq("GET", "/api/current-vehicles", ""))
	require.Equal(t, 200, resp.Status)
	_, _, data := decodeEnvelope(t, resp)

	var out []currentView
	require.NoError(t, json.Unmarshal(data, &out))
	require.Len(t, out, 1)
	assert.Equal(t, "AAA-111", out[0].Plate)
	assert.Equal(t, 8.0, out[0].HourlyRate)
}

func TestPlatePathParam(t *testing.T) {
	cases := []struct {
		path  string
		plate string
		ok    bool
	}{
		{"/api/vehicle/ABC-123", "ABC-123", true},
		{"/api/vehicle/AB+12", "AB 12", true},
		{"/api/vehicle/AB%2F12", "AB/12", true},
		{"/api/vehicle/", "", false},
		{"/api/vehicle/%zz", "", false},
	}
	for _, tc := range cases {
		plate, ok := platePathParam(tc.path)
		if ok != tc.ok || plate != tc.plate {
			t.Errorf("platePathParam(%q) = (%q, %v), want (%q, %v)", tc.path, plate, ok, tc.plate, tc.ok)
		}
	}
}
