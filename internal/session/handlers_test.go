package session

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/pashagolub/pgxmock/v3"
)

func noAuth(c *fiber.Ctx) error { return c.Next() }

func TestStartSessionHandler(t *testing.T) {
	mock := newMock(t)
	app := fiber.New()
	RegisterRoutes(app.Group("/sessions"), NewService(mock, nil, nil), noAuth)

	mock.ExpectQuery(`INSERT INTO sessions`).
		WithArgs(pgxmock.AnyArg(), "user-1", "algebra", "practice", pgxmock.AnyArg(), StateUncalibrated).
		WillReturnRows(pgxmock.NewRows([]string{"started_at", "state"}).AddRow(time.Now(), StateUncalibrated))

	body := strings.NewReader(`{"user_id":"user-1","subtopic":"algebra","mode":"practice"}`)
	req := httptest.NewRequest(http.MethodPost, "/sessions/", body)
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var created Session
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.ID == "" {
		t.Fatalf("expected session id in response")
	}
}

func TestStartSessionHandlerMissingUser(t *testing.T) {
	app := fiber.New()
	RegisterRoutes(app.Group("/sessions"), NewService(nil, nil, nil), noAuth)

	req := httptest.NewRequest(http.MethodPost, "/sessions/", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestStopSessionHandlerNotFound(t *testing.T) {
	mock := newMock(t)
	app := fiber.New()
	RegisterRoutes(app.Group("/sessions"), NewService(mock, nil, nil), noAuth)

	mock.ExpectQuery(`UPDATE sessions SET ended_at`).
		WithArgs("missing", StateFinalized).
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "subtopic", "mode", "started_at", "ended_at", "state"}))

	req := httptest.NewRequest(http.MethodPost, "/sessions/missing/stop", nil)
	resp, _ := app.Test(req)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestCalibrateHandler(t *testing.T) {
	mock := newMock(t)
	app := fiber.New()
	RegisterRoutes(app.Group("/sessions"), NewService(mock, nil, nil), noAuth)

	mock.ExpectQuery(`SELECT 1 FROM sessions`).
		WithArgs("s1").
		WillReturnRows(pgxmock.NewRows([]string{"one"}).AddRow(1))

	req := httptest.NewRequest(http.MethodPost, "/sessions/s1/calibrate", nil)
	resp, _ := app.Test(req)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
}
