package google

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"budget/internal/ledger"
	"budget/internal/log"
)

func sampleLedger(t *testing.T) *ledger.Partition {
	t.Helper()
	p := ledger.New()
	if _, err := p.Deposit(1000, false); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"car", "rent"} {
		if err := p.NewBox(name); err != nil {
			t.Fatal(err)
		}
	}
	if err := p.AddToBalance("car", 200); err != nil {
		t.Fatal(err)
	}
	if err := p.SetTarget("car", 1400, ledger.Period{Year: 2027, Month: 1}); err != nil {
		t.Fatal(err)
	}
	if err := p.SetRecurring("rent", 500, 0); err != nil {
		t.Fatal(err)
	}
	if err := p.NewInstalment("tv", ledger.FreeBox, 3, 100); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Options{ServiceAccountJSON: "{}"})
	if err == nil || !strings.Contains(err.Error(), "GOOGLE_SPREADSHEET_ID") {
		t.Errorf("New() error = %v, want missing spreadsheet", err)
	}
}

func TestLoadCredentials(t *testing.T) {
	ctx := context.Background()

	t.Run("inline JSON wins", func(t *testing.T) {
		got, err := loadCredentials(ctx, Options{ServiceAccountJSON: ` {"type":"service_account"} `, ServiceAccountFile: "/nope"})
		if err != nil || string(got) != `{"type":"service_account"}` {
			t.Errorf("loadCredentials() = %q, %v", got, err)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := loadCredentials(ctx, Options{ServiceAccountFile: "/non/existent.json"}); err == nil {
			t.Error("expected an error for a missing file")
		}
	})

	t.Run("nothing configured", func(t *testing.T) {
		t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
		_, err := loadCredentials(ctx, Options{})
		if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
			t.Errorf("loadCredentials() error = %v", err)
		}
	})
}

func TestRows(t *testing.T) {
	p := sampleLedger(t)
	now := ledger.Period{Year: 2026, Month: 1}

	balances := balanceRows(p)
	if len(balances) != 1+5+4 {
		t.Fatalf("balance rows = %d: %v", len(balances), balances)
	}
	if balances[3][0] != "car" || balances[3][1] != int64(200) {
		t.Errorf("car row = %v", balances[3])
	}
	if last := balances[len(balances)-1]; last[0] != "Spent" || last[1] != int64(0) {
		t.Errorf("last row = %v", last)
	}

	goals := goalRows(p, now)
	if len(goals) != 2 {
		t.Fatalf("goal rows = %v", goals)
	}
	want := []any{"car", int64(1400), "2027-01", int64(200), int64(100)}
	for i := range want {
		if goals[1][i] != want[i] {
			t.Errorf("goal row = %v, want %v", goals[1], want)
			break
		}
	}

	periodic := periodicRows(p)
	if len(periodic) != 3 {
		t.Fatalf("periodic rows = %v", periodic)
	}
	if periodic[1][0] != "rent" || periodic[1][4] != "open-ended" {
		t.Errorf("rent row = %v", periodic[1])
	}
	if periodic[2][0] != "tv" || periodic[2][3] != "instalment" || periodic[2][4] != 3 {
		t.Errorf("tv row = %v", periodic[2])
	}
}

func TestWriteSnapshot(t *testing.T) {
	var (
		mu      sync.Mutex
		cleared []string
		written = map[string]int{}
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		switch {
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":clear"):
			cleared = append(cleared, r.URL.Path)
		case r.Method == http.MethodPut:
			if got := r.URL.Query().Get("valueInputOption"); got != "USER_ENTERED" {
				t.Errorf("valueInputOption = %q", got)
			}
			body, _ := io.ReadAll(r.Body)
			var vr gsheet.ValueRange
			if err := json.Unmarshal(body, &vr); err != nil {
				t.Errorf("bad body: %v", err)
			}
			sheet, _, _ := strings.Cut(r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:], "!")
			written[sheet] = len(vr.Values)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	var logs bytes.Buffer
	ctx := log.NewContext(context.Background(), log.New(log.Config{Level: slog.LevelDebug, Output: &logs}))
	svc, err := gsheet.NewService(ctx,
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()),
		goption.WithoutAuthentication())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	client := NewWithService(svc, "sheet-id")
	if err := client.WriteSnapshot(ctx, sampleLedger(t), ledger.Period{Year: 2026, Month: 1}); err != nil {
		t.Fatalf("WriteSnapshot() error = %v", err)
	}

	if len(cleared) != 3 {
		t.Errorf("cleared %d sheets, want 3: %v", len(cleared), cleared)
	}
	want := map[string]int{BalancesSheet: 10, GoalsSheet: 2, PeriodicSheet: 3}
	for sheet, n := range want {
		if written[sheet] != n {
			t.Errorf("sheet %s got %d rows, want %d (all: %v)", sheet, written[sheet], n, written)
		}
	}
	for _, want := range []string{"component=sheets", "sheet=" + GoalsSheet, "duration_ms="} {
		if !strings.Contains(logs.String(), want) {
			t.Errorf("logs lack %q:\n%s", want, logs.String())
		}
	}
}

func TestWriteSnapshot_NoService(t *testing.T) {
	c := &Client{}
	if err := c.WriteSnapshot(context.Background(), ledger.New(), ledger.Period{Year: 2026, Month: 1}); err == nil {
		t.Error("expected an error without a service")
	}
}
