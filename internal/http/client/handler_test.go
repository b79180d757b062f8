package client_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	_ "github.com/mattn/go-sqlite3"

	"supasidebar.com/licserver/internal/activation"
	"supasidebar.com/licserver/internal/device"
	"supasidebar.com/licserver/internal/hardware"
	"supasidebar.com/licserver/internal/http/client"
	"supasidebar.com/licserver/internal/license"
	"supasidebar.com/licserver/internal/notify"
	"supasidebar.com/licserver/internal/testutil"
)

const hardwareSecret = "test-hardware-secret"

type fixture struct {
	handler    *client.Handler
	licenseSvc *license.Service
	license    *license.License
}

func newFixture(t *testing.T, maxDevices int) *fixture {
	t.Helper()
	db := testutil.NewTestDB(t)
	licenseSvc := license.NewService(db)
	deviceSvc := device.NewService(db)
	activationSvc := activation.NewService(hardwareSecret, licenseSvc, deviceSvc, activation.NopReconciler{}, notify.Nop{})

	lic, _, err := licenseSvc.Create(context.Background(),
		license.NewOneTime("ada@example.com", license.TypeLifetime, maxDevices, "pay_http", 4900, time.Now().UTC(), nil))
	if err != nil {
		t.Fatalf("create license: %v", err)
	}

	return &fixture{
		handler:    client.NewHandler(activationSvc),
		licenseSvc: licenseSvc,
		license:    lic,
	}
}

func (f *fixture) requestBody(t *testing.T, deviceID string) []byte {
	t.Helper()
	info := hardware.Info{
		OS:       "macOS 15.2",
		Hostname: deviceID + "-host",
		Arch:     "arm64",
		Platform: "darwin",
	}
	info.HardwareID = hardware.ComputeID(&info, hardwareSecret)

	body, err := json.Marshal(activation.Request{
		LicenseKey: f.license.LicenseKey,
		Email:      "ada@example.com",
		DeviceID:   deviceID,
		Hardware:   info,
	})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	return body
}

func post(t *testing.T, handler echo.HandlerFunc, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal error body: %v", err)
	}
	if body["timestamp"] == "" {
		t.Error("error body missing timestamp")
	}
	return body["code"]
}

func TestActivateHandler(t *testing.T) {
	t.Run("activates a device", func(t *testing.T) {
		f := newFixture(t, 2)
		rec := post(t, f.handler.Activate, f.requestBody(t, "dev-1"))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var resp activation.Response
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshal response: %v", err)
		}
		if resp.Status != "active" || resp.ActiveDevices != 1 || resp.MaxDevices != 2 {
			t.Fatalf("unexpected response: %+v", resp)
		}
	})

	t.Run("rejects missing fields", func(t *testing.T) {
		f := newFixture(t, 2)
		rec := post(t, f.handler.Activate, []byte(`{"licenseKey": "SSB-X"}`))

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		if code := errorCode(t, rec); code != "INVALID_REQUEST" {
			t.Fatalf("expected INVALID_REQUEST, got %s", code)
		}
	})

	t.Run("rejects forged hardware id without detail", func(t *testing.T) {
		f := newFixture(t, 2)
		var req activation.Request
		if err := json.Unmarshal(f.requestBody(t, "dev-1"), &req); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		req.Hardware.HardwareID = hardware.ComputeID(&req.Hardware, "guessed-secret")
		body, _ := json.Marshal(req)

		rec := post(t, f.handler.Activate, body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		if code := errorCode(t, rec); code != "INVALID_HARDWARE_ID" {
			t.Fatalf("expected INVALID_HARDWARE_ID, got %s", code)
		}
	})

	t.Run("unknown license", func(t *testing.T) {
		f := newFixture(t, 2)
		var req activation.Request
		if err := json.Unmarshal(f.requestBody(t, "dev-1"), &req); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		req.LicenseKey = "SSB-DOES-NOT-EXIST"
		body, _ := json.Marshal(req)

		rec := post(t, f.handler.Activate, body)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		if code := errorCode(t, rec); code != "LICENSE_NOT_FOUND" {
			t.Fatalf("expected LICENSE_NOT_FOUND, got %s", code)
		}
	})

	t.Run("device limit reached", func(t *testing.T) {
		f := newFixture(t, 1)
		if rec := post(t, f.handler.Activate, f.requestBody(t, "dev-1")); rec.Code != http.StatusOK {
			t.Fatalf("first activation: %d", rec.Code)
		}

		rec := post(t, f.handler.Activate, f.requestBody(t, "dev-2"))
		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
		if code := errorCode(t, rec); code != "DEVICE_LIMIT_REACHED" {
			t.Fatalf("expected DEVICE_LIMIT_REACHED, got %s", code)
		}
	})
}

func TestValidateHandler(t *testing.T) {
	t.Run("validates an activated device", func(t *testing.T) {
		f := newFixture(t, 2)
		if rec := post(t, f.handler.Activate, f.requestBody(t, "dev-1")); rec.Code != http.StatusOK {
			t.Fatalf("activation: %d", rec.Code)
		}

		rec := post(t, f.handler.Validate, f.requestBody(t, "dev-1"))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("device not activated", func(t *testing.T) {
		f := newFixture(t, 2)
		rec := post(t, f.handler.Validate, f.requestBody(t, "dev-never-activated"))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		if code := errorCode(t, rec); code != "DEVICE_NOT_FOUND" {
			t.Fatalf("expected DEVICE_NOT_FOUND, got %s", code)
		}
	})
}

func TestDeactivateHandler(t *testing.T) {
	f := newFixture(t, 2)
	if rec := post(t, f.handler.Activate, f.requestBody(t, "dev-1")); rec.Code != http.StatusOK {
		t.Fatalf("activation: %d", rec.Code)
	}

	body, _ := json.Marshal(activation.DeactivateRequest{
		LicenseKey: f.license.LicenseKey,
		DeviceID:   "dev-1",
	})

	rec := post(t, f.handler.Deactivate, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp map[string]bool
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if !resp["deactivated"] {
		t.Fatal("expected deactivated true")
	}

	// Second deactivation reports false but stays 200.
	rec = post(t, f.handler.Deactivate, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["deactivated"] {
		t.Fatal("expected deactivated false on repeat")
	}
}
