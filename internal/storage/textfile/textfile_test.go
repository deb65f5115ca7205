package textfile

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"budget/internal/ledger"
	"budget/internal/log"
	"budget/internal/storage"
)

func TestStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "db")
	s := New(dir)

	if _, err := s.Load(ctx); !errors.Is(err, storage.ErrNotInitialized) {
		t.Fatalf("Load before Create: got %v", err)
	}
	if err := s.Save(ctx, ledger.New()); !errors.Is(err, storage.ErrNotInitialized) {
		t.Fatalf("Save before Create: got %v", err)
	}
	if err := s.Create(ctx); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Create(ctx); !errors.Is(err, storage.ErrAlreadyInitialized) {
		t.Fatalf("second Create: got %v", err)
	}

	p, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := p.Deposit(100, false); err != nil {
		t.Fatal(err)
	}
	if err := p.NewBox("vacation"); err != nil {
		t.Fatal(err)
	}
	if err := p.AddToBalance("vacation", 30); err != nil {
		t.Fatal(err)
	}
	if err := p.SetTarget("vacation", 500, ledger.Period{Year: 2027, Month: 6}); err != nil {
		t.Fatal(err)
	}
	if err := p.NewInstalment("laptop", ledger.FreeBox, 2, 20); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(ctx, p); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if _, err := os.Stat(s.Path() + ".new"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("temporary file left behind: %v", err)
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load after Save: %v", err)
	}
	if !equalBoxes(p.Boxes(), got.Boxes()) {
		t.Errorf("boxes = %v, want %v", got.Boxes(), p.Boxes())
	}
	if got.Totals() != p.Totals() {
		t.Errorf("totals = %+v, want %+v", got.Totals(), p.Totals())
	}
	if r, _ := got.Recurring("laptop"); r.Kind != ledger.Instalment || r.Remaining != 20 {
		t.Errorf("laptop recurring = %+v", r)
	}
	if g, _ := got.Goal("vacation"); g.Target != 500 {
		t.Errorf("vacation goal = %+v", g)
	}
}

func TestSaveLogsToContextLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{Level: slog.LevelDebug, Output: &buf})
	ctx := log.NewContext(context.Background(), logger)

	s := New(t.TempDir())
	if err := s.Create(ctx); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Save(ctx, ledger.New()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "component=storage") || !strings.Contains(out, "path="+s.Path()) {
		t.Errorf("log output %q lacks the storage component or the path", out)
	}
	if !strings.Contains(out, "Ledger saved") {
		t.Errorf("log output %q lacks the save record", out)
	}
}

func TestSyncDir(t *testing.T) {
	if err := syncDir(t.TempDir()); err != nil {
		t.Errorf("syncDir: %v", err)
	}
	if err := syncDir(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("syncDir on a missing directory succeeded")
	}
}

func TestDecodeLegacyFile(t *testing.T) {
	in := `
# written by hand
[partition]
free          60   # what is left
credit-spent  -5
rent          45

[goals]
rent 1000 2027-01

[periodic]
rent 100
`
	p, err := Decode(strings.NewReader(in))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	want := []ledger.Box{{Name: "free", Amount: 60}, {Name: "credit-spent", Amount: -5}, {Name: "rent", Amount: 45}}
	if !equalBoxes(want, p.Boxes()) {
		t.Errorf("boxes = %v, want %v", p.Boxes(), want)
	}
	r, ok := p.Recurring("rent")
	if !ok || r.Periodic != 100 || r.Remaining != 0 || r.Kind != ledger.Allocation {
		t.Errorf("rent recurring = %+v, %v", r, ok)
	}
	if p.Totals().Deposited != 100 {
		t.Errorf("deposited = %d, want 100", p.Totals().Deposited)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		line    int
		wantErr error
	}{
		{"line before section", "free 1\n", 1, ledger.ErrInvalidArgument},
		{"unknown section", "[boxes]\n", 1, ledger.ErrInvalidArgument},
		{"bad amount", "[partition]\nfree ten\n", 2, ledger.ErrInvalidArgument},
		{"too many fields", "[partition]\nfree 1 2\n", 2, ledger.ErrInvalidArgument},
		{"bad due", "[partition]\nx 0\n[goals]\nx 5 2027/01\n", 4, ledger.ErrInvalidPeriod},
		{"bad periodic", "[partition]\nx 0\n[periodic]\nx\n", 4, ledger.ErrInvalidArgument},
		{"unknown total", "[totals]\nearned 5\n", 2, ledger.ErrInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.in))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("err = %T, want *ParseError", err)
			}
			if pe.Line != tt.line {
				t.Errorf("line = %d, want %d", pe.Line, tt.line)
			}
		})
	}

	t.Run("dangling goal", func(t *testing.T) {
		_, err := Decode(strings.NewReader("[goals]\nghost 5 2027-01\n"))
		if !errors.Is(err, ledger.ErrUnknownBox) {
			t.Fatalf("err = %v, want ErrUnknownBox", err)
		}
	})
	t.Run("negative box", func(t *testing.T) {
		_, err := Decode(strings.NewReader("[partition]\nfree 5\ncar -1\n"))
		if !errors.Is(err, ledger.ErrNegativeAmount) {
			t.Fatalf("err = %v, want ErrNegativeAmount", err)
		}
	})
	t.Run("overdrawn free", func(t *testing.T) {
		p, err := Decode(strings.NewReader("[partition]\nfree -5\ncredit-spent 5\n"))
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if free, _ := p.Balance(ledger.FreeBox); free != -5 {
			t.Errorf("free = %d, want -5", free)
		}
	})
	t.Run("totals mismatch", func(t *testing.T) {
		_, err := Decode(strings.NewReader("[partition]\nfree 5\n[totals]\ndeposited 6\nspent 0\n"))
		if !errors.Is(err, ledger.ErrInvalidArgument) {
			t.Fatalf("err = %v, want ErrInvalidArgument", err)
		}
	})
}

func TestEncodeDecode(t *testing.T) {
	p := ledger.New()
	if _, err := p.Deposit(10, false); err != nil {
		t.Fatal(err)
	}
	if err := p.NewBox("b"); err != nil {
		t.Fatal(err)
	}
	if err := p.SetRecurring("b", 3, 9); err != nil {
		t.Fatal(err)
	}
	if err := p.Spend("b", 4, ledger.SpendCash); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := Encode(&buf, p); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v\n%s", err, buf.String())
	}
	if !equalBoxes(p.Boxes(), got.Boxes()) || got.Totals() != p.Totals() {
		t.Errorf("round trip changed the ledger: %v %+v", got.Boxes(), got.Totals())
	}
}

func equalBoxes(a, b []ledger.Box) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
