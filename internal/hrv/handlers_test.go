package hrv

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/pashagolub/pgxmock/v3"
)

func noAuth(c *fiber.Ctx) error { return c.Next() }

func TestComputeBaselineHandler(t *testing.T) {
	mock := newMock(t)
	app := fiber.New()
	RegisterRoutes(app.Group("/sessions"), NewService(mock, nil, testOptions()), noAuth)

	mock.ExpectQuery(`SELECT 1 FROM sessions`).
		WithArgs("s1").
		WillReturnRows(pgxmock.NewRows([]string{"one"}).AddRow(1))
	expectBaselineBeats(mock, "s1", beatRows(0, 800, 820, 810))
	mock.ExpectExec(`UPDATE sessions`).
		WithArgs("s1", pgxmock.AnyArg(), "low", 3).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	req := httptest.NewRequest(http.MethodPost, "/sessions/s1/baseline/compute", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var b Baseline
	if err := json.NewDecoder(resp.Body).Decode(&b); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b.Confidence != ConfidenceLow {
		t.Fatalf("expected degraded result surfaced with 200, got %+v", b)
	}
}

func TestComputeBaselineHandlerNotFound(t *testing.T) {
	mock := newMock(t)
	app := fiber.New()
	RegisterRoutes(app.Group("/sessions"), NewService(mock, nil, testOptions()), noAuth)

	mock.ExpectQuery(`SELECT 1 FROM sessions`).
		WithArgs("nope").
		WillReturnRows(pgxmock.NewRows([]string{"one"}))

	req := httptest.NewRequest(http.MethodPost, "/sessions/nope/baseline/compute", nil)
	resp, _ := app.Test(req)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestComputeQuestionHRVHandler(t *testing.T) {
	mock := newMock(t)
	app := fiber.New()
	RegisterRoutes(app.Group("/sessions"), NewService(mock, nil, testOptions()), noAuth)

	expectSessionBaseline(mock, "s1", 20, "ok")
	expectWindow(mock, "s1", 2, 0, 60000)
	mock.ExpectQuery(`SELECT ts_ms, ibi_ms FROM beats`).
		WithArgs("s1", int64(0), int64(60000)).
		WillReturnRows(beatRows(0, alternatingIBIs(10, 800, 30)...))
	expectUpsert(mock, QuestionMetrics{
		SessionID: "s1", QuestionIndex: 2, Label: LabelHigh,
		BaselineRMSSD: 20, BeatCount: 10, Confidence: ConfidenceOK,
	})

	req := httptest.NewRequest(http.MethodPost, "/sessions/s1/questions/2/hrv/compute", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var m QuestionMetrics
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if m.Label != LabelHigh {
		t.Fatalf("expected high label, got %s", m.Label)
	}
}

func TestComputeQuestionHRVHandlerBadIndex(t *testing.T) {
	mock := newMock(t)
	app := fiber.New()
	RegisterRoutes(app.Group("/sessions"), NewService(mock, nil, testOptions()), noAuth)

	req := httptest.NewRequest(http.MethodPost, "/sessions/s1/questions/abc/hrv/compute", nil)
	resp, _ := app.Test(req)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}
