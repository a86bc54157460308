package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"financequest/internal/core"
	"financequest/internal/ledger"
	"financequest/internal/sheets/memory"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s := NewServer(":0", memory.New())
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s
}

func doJSON(t *testing.T, s *Server, method, path, username string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if username != "" {
		req.Header.Set("X-Username", username)
	}
	rr := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
}

func registerAndLogin(t *testing.T, s *Server, username string) {
	t.Helper()
	rr := doJSON(t, s, http.MethodPost, "/api/register", "", map[string]string{
		"name":            "Budi",
		"username":        username,
		"password":        "rahasia",
		"confirmPassword": "rahasia",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("register = %d: %s", rr.Code, rr.Body.String())
	}
	rr = doJSON(t, s, http.MethodPost, "/api/login", "", map[string]string{
		"username": username,
		"password": "rahasia",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("login = %d: %s", rr.Code, rr.Body.String())
	}
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := doJSON(t, s, http.MethodGet, path, "", nil)
		if rr.Code != http.StatusOK {
			t.Errorf("%s = %d", path, rr.Code)
		}
	}
}

func TestRegisterValidation(t *testing.T) {
	s := newTestServer(t)
	tests := []struct {
		name string
		body map[string]string
		want int
	}{
		{"valid", map[string]string{"name": "Budi", "username": "budi", "password": "rahasia", "confirmPassword": "rahasia"}, http.StatusCreated},
		{"duplicate username", map[string]string{"name": "Budi", "username": "budi", "password": "rahasia", "confirmPassword": "rahasia"}, http.StatusUnprocessableEntity},
		{"password mismatch", map[string]string{"name": "Siti", "username": "siti", "password": "rahasia", "confirmPassword": "salah"}, http.StatusUnprocessableEntity},
		{"short password", map[string]string{"name": "Siti", "username": "siti", "password": "abc", "confirmPassword": "abc"}, http.StatusUnprocessableEntity},
		{"empty username", map[string]string{"name": "Siti", "username": "", "password": "rahasia", "confirmPassword": "rahasia"}, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doJSON(t, s, http.MethodPost, "/api/register", "", tt.body)
			if rr.Code != tt.want {
				t.Errorf("register = %d, want %d: %s", rr.Code, tt.want, rr.Body.String())
			}
		})
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	s := newTestServer(t)
	registerAndLogin(t, s, "budi")

	rr := doJSON(t, s, http.MethodPost, "/api/login", "", map[string]string{
		"username": "budi", "password": "salah",
	})
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("wrong password = %d, want 401", rr.Code)
	}
	rr = doJSON(t, s, http.MethodPost, "/api/login", "", map[string]string{
		"username": "nobody", "password": "rahasia",
	})
	if rr.Code != http.StatusNotFound {
		t.Errorf("unknown user = %d, want 404", rr.Code)
	}
}

func TestSessionRequiresUsername(t *testing.T) {
	s := newTestServer(t)
	rr := doJSON(t, s, http.MethodGet, "/api/dashboard", "", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("missing username = %d, want 401", rr.Code)
	}
	rr = doJSON(t, s, http.MethodGet, "/api/dashboard", "nobody", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("unknown username = %d, want 404", rr.Code)
	}
}

func TestTransactionLifecycle(t *testing.T) {
	s := newTestServer(t)
	registerAndLogin(t, s, "budi")

	rr := doJSON(t, s, http.MethodPost, "/api/transactions", "budi", map[string]any{
		"type": "expense", "amount": 12000, "description": "nasi goreng", "category": "Makanan", "date": "2025-08-10",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create = %d: %s", rr.Code, rr.Body.String())
	}
	var created struct {
		Transaction core.Transaction `json:"transaction"`
		Profile     core.Profile     `json:"profile"`
		Sync        string           `json:"sync"`
	}
	decodeBody(t, rr, &created)
	if created.Transaction.XP != 1 {
		t.Errorf("transaction xp = %d, want 1", created.Transaction.XP)
	}
	// 1 XP for the amount plus 25 for the first-transaction badge.
	if created.Profile.XP != 26 {
		t.Errorf("profile xp = %d, want 26", created.Profile.XP)
	}
	if created.Sync != "ok" {
		t.Errorf("sync = %q, want ok", created.Sync)
	}

	rr = doJSON(t, s, http.MethodGet, "/api/transactions", "budi", nil)
	var listed struct {
		Transactions []core.Transaction `json:"transactions"`
	}
	decodeBody(t, rr, &listed)
	if len(listed.Transactions) != 1 || listed.Transactions[0].ID != created.Transaction.ID {
		t.Fatalf("transactions = %+v", listed.Transactions)
	}

	rr = doJSON(t, s, http.MethodDelete, "/api/transactions/"+created.Transaction.ID, "budi", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("delete = %d", rr.Code)
	}
	rr = doJSON(t, s, http.MethodGet, "/api/transactions", "budi", nil)
	decodeBody(t, rr, &listed)
	if len(listed.Transactions) != 0 {
		t.Errorf("transactions after delete = %+v", listed.Transactions)
	}
}

func TestTransactionValidation(t *testing.T) {
	s := newTestServer(t)
	registerAndLogin(t, s, "budi")

	tests := []struct {
		name string
		body map[string]any
	}{
		{"zero amount", map[string]any{"type": "expense", "amount": 0, "category": "Makanan"}},
		{"negative amount", map[string]any{"type": "expense", "amount": -500, "category": "Makanan"}},
		{"bad kind", map[string]any{"type": "transfer", "amount": 1000}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doJSON(t, s, http.MethodPost, "/api/transactions", "budi", tt.body)
			if rr.Code != http.StatusUnprocessableEntity {
				t.Errorf("create = %d, want 422: %s", rr.Code, rr.Body.String())
			}
		})
	}
}

func TestGoalLifecycle(t *testing.T) {
	s := newTestServer(t)
	registerAndLogin(t, s, "budi")

	rr := doJSON(t, s, http.MethodPost, "/api/goals", "budi", map[string]any{
		"name": "Liburan", "targetAmount": 150000, "targetDate": "2031-12-31",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create goal = %d: %s", rr.Code, rr.Body.String())
	}
	var created struct {
		Goal    core.Goal    `json:"goal"`
		Profile core.Profile `json:"profile"`
	}
	decodeBody(t, rr, &created)
	if created.Profile.XP != 10 {
		t.Errorf("profile xp after goal = %d, want 10", created.Profile.XP)
	}

	rr = doJSON(t, s, http.MethodPost, "/api/goals/"+created.Goal.ID+"/contribute", "budi", map[string]any{"amount": 150000})
	if rr.Code != http.StatusOK {
		t.Fatalf("contribute = %d: %s", rr.Code, rr.Body.String())
	}
	var contributed struct {
		Goal    core.Goal    `json:"goal"`
		Profile core.Profile `json:"profile"`
	}
	decodeBody(t, rr, &contributed)
	if !contributed.Goal.Completed() {
		t.Errorf("goal not completed: %+v", contributed.Goal)
	}
	// 10 create + 5 contribution + 50 completion + 25 completion badge.
	if contributed.Profile.XP != 90 {
		t.Errorf("profile xp after completion = %d, want 90", contributed.Profile.XP)
	}

	rr = doJSON(t, s, http.MethodPost, "/api/goals/zzz/contribute", "budi", map[string]any{"amount": 100})
	if rr.Code != http.StatusNotFound {
		t.Errorf("unknown goal = %d, want 404", rr.Code)
	}

	rr = doJSON(t, s, http.MethodPost, "/api/goals", "budi", map[string]any{
		"name": "Masa lalu", "targetAmount": 1000, "targetDate": "2020-01-01",
	})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("past target date = %d, want 422", rr.Code)
	}
}

func TestDashboardReflectsMutations(t *testing.T) {
	s := newTestServer(t)
	registerAndLogin(t, s, "budi")

	rr := doJSON(t, s, http.MethodGet, "/api/dashboard", "budi", nil)
	var before ledger.Summary
	decodeBody(t, rr, &before)
	if before.TotalIncome != 0 {
		t.Fatalf("initial income = %d", before.TotalIncome)
	}

	// The cached dashboard must be invalidated by the write.
	doJSON(t, s, http.MethodPost, "/api/transactions", "budi", map[string]any{
		"type": "income", "amount": 500000, "description": "gaji",
	})
	rr = doJSON(t, s, http.MethodGet, "/api/dashboard", "budi", nil)
	var after ledger.Summary
	decodeBody(t, rr, &after)
	if after.TotalIncome != 500000 {
		t.Errorf("income after deposit = %d, want 500000", after.TotalIncome)
	}
	if after.Balance != 500000 {
		t.Errorf("balance = %d, want 500000", after.Balance)
	}
}

func TestAdviceAndAchievements(t *testing.T) {
	s := newTestServer(t)
	registerAndLogin(t, s, "budi")

	rr := doJSON(t, s, http.MethodGet, "/api/advice", "budi", nil)
	var adv struct {
		Advice []string `json:"advice"`
	}
	decodeBody(t, rr, &adv)
	if len(adv.Advice) == 0 {
		t.Error("advice should not be empty for a fresh account")
	}

	rr = doJSON(t, s, http.MethodGet, "/api/achievements", "budi", nil)
	var badges struct {
		Achievements []core.Achievement `json:"achievements"`
	}
	decodeBody(t, rr, &badges)
	if len(badges.Achievements) != 8 {
		t.Errorf("achievements = %d, want 8", len(badges.Achievements))
	}
	for _, b := range badges.Achievements {
		if b.Earned {
			t.Errorf("badge %d earned on a fresh account", b.ID)
		}
	}
}

func TestExportImportReset(t *testing.T) {
	s := newTestServer(t)
	registerAndLogin(t, s, "budi")

	doJSON(t, s, http.MethodPost, "/api/transactions", "budi", map[string]any{
		"type": "expense", "amount": 12000, "category": "Makanan",
	})

	rr := doJSON(t, s, http.MethodGet, "/api/export", "budi", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("export = %d", rr.Code)
	}
	var doc ledger.Document
	decodeBody(t, rr, &doc)
	if doc.Version != ledger.DocumentVersion || len(doc.Transactions) != 1 {
		t.Fatalf("document = %+v", doc)
	}
	// The filename date comes from the document's own export stamp.
	wantCD := fmt.Sprintf(`attachment; filename="financequest-backup-%s.json"`, doc.ExportDate.Format("2006-01-02"))
	if cd := rr.Header().Get("Content-Disposition"); cd != wantCD {
		t.Errorf("Content-Disposition = %q, want %q", cd, wantCD)
	}
	backup := rr.Body.Bytes()

	rr = doJSON(t, s, http.MethodPost, "/api/reset", "budi", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("reset = %d", rr.Code)
	}
	var reset struct {
		Profile core.Profile `json:"profile"`
	}
	decodeBody(t, rr, &reset)
	if reset.Profile.Level != 1 || reset.Profile.XP != 0 || reset.Profile.MaxXP != 100 {
		t.Errorf("profile after reset = %+v", reset.Profile)
	}
	rr = doJSON(t, s, http.MethodGet, "/api/transactions", "budi", nil)
	var listed struct {
		Transactions []core.Transaction `json:"transactions"`
	}
	decodeBody(t, rr, &listed)
	if len(listed.Transactions) != 0 {
		t.Fatalf("transactions after reset = %+v", listed.Transactions)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/import", bytes.NewReader(backup))
	req.Header.Set("X-Username", "budi")
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("import = %d: %s", rec.Code, rec.Body.String())
	}
	rr = doJSON(t, s, http.MethodGet, "/api/transactions", "budi", nil)
	decodeBody(t, rr, &listed)
	if len(listed.Transactions) != 1 {
		t.Errorf("transactions after import = %d, want 1", len(listed.Transactions))
	}
}

func TestImportRejectsPartialDocument(t *testing.T) {
	s := newTestServer(t)
	registerAndLogin(t, s, "budi")

	req := httptest.NewRequest(http.MethodPost, "/api/import", bytes.NewReader([]byte(`{"transactions": []}`)))
	req.Header.Set("X-Username", "budi")
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("import = %d, want 422: %s", rec.Code, rec.Body.String())
	}
}
