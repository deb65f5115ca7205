// Package textfile stores the ledger in a single human-editable text file.
//
// The file has four sections, each introduced by a bracketed header. Fields
// are separated by whitespace and '#' starts a comment:
//
//	[partition]
//	free          86
//	credit-spent  0
//	vacation      15
//
//	[goals]
//	vacation      500   2027-06
//
//	[periodic]
//	rent          700   0
//	laptop        1000  1000  instalment
//
//	[totals]
//	deposited     101
//	spent         0
//
// Periodic lines with only a box and an amount are read as open-ended
// allocations. A file without a [totals] section is read as if everything in
// it had been deposited.
package textfile

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"budget/internal/ledger"
	"budget/internal/log"
	"budget/internal/storage"
)

const FileName = "budget.db"

const (
	sectionPartition = "partition"
	sectionGoals     = "goals"
	sectionPeriodic  = "periodic"
	sectionTotals    = "totals"
)

// Store is a storage.Store backed by <dir>/budget.db.
type Store struct {
	path string
}

var _ storage.Store = (*Store)(nil)

func New(dir string) *Store {
	return &Store{path: filepath.Join(dir, FileName)}
}

// Path returns the location of the ledger file.
func (s *Store) Path() string { return s.path }

func (s *Store) Close() error { return nil }

func (s *Store) Create(ctx context.Context) error {
	if _, err := os.Stat(s.path); err == nil {
		return storage.ErrAlreadyInitialized
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat %s: %w", s.path, err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create db directory: %w", err)
	}
	if err := s.write(ledger.New()); err != nil {
		return err
	}
	storage.Logger(ctx).InfoContext(ctx, "Ledger created", log.FieldPath, s.path)
	return nil
}

func (s *Store) Load(ctx context.Context) (*ledger.Partition, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, storage.ErrNotInitialized
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.path, err)
	}
	defer f.Close()

	p, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	return p, nil
}

// Save writes the ledger to a temporary file next to the real one, syncs it,
// renames it into place and syncs the directory.
func (s *Store) Save(ctx context.Context, p *ledger.Partition) error {
	if _, err := os.Stat(s.path); errors.Is(err, os.ErrNotExist) {
		return storage.ErrNotInitialized
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.write(p); err != nil {
		return err
	}
	storage.Logger(ctx).DebugContext(ctx, "Ledger saved",
		log.FieldPath, s.path,
		log.FieldBoxes, len(p.Boxes()))
	return nil
}

func (s *Store) write(p *ledger.Partition) error {
	tmp := s.path + ".new"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}

	if err := Encode(f, p); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("sync %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return syncDir(filepath.Dir(s.path))
}

// syncDir makes a rename inside dir durable.
func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("open %s: %w", dir, err)
	}
	defer d.Close()
	if err := d.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", dir, err)
	}
	return nil
}

// Encode writes p in the text format.
func Encode(w io.Writer, p *ledger.Partition) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "[%s]\n", sectionPartition)
	for _, b := range p.Boxes() {
		fmt.Fprintf(bw, "%-20s %d\n", b.Name, b.Amount)
	}

	fmt.Fprintf(bw, "\n[%s]\n", sectionGoals)
	for _, name := range p.GoalNames() {
		g, _ := p.Goal(name)
		fmt.Fprintf(bw, "%-20s %-15d %s\n", name, g.Target, g.Due)
	}

	fmt.Fprintf(bw, "\n[%s]\n", sectionPeriodic)
	for _, name := range p.RecurringNames() {
		r, _ := p.Recurring(name)
		if r.Kind == ledger.Instalment {
			fmt.Fprintf(bw, "%-20s %-10d %-10d %s\n", name, r.Periodic, r.Remaining, r.Kind)
			continue
		}
		fmt.Fprintf(bw, "%-20s %-10d %d\n", name, r.Periodic, r.Remaining)
	}

	t := p.Totals()
	fmt.Fprintf(bw, "\n[%s]\n", sectionTotals)
	fmt.Fprintf(bw, "%-20s %d\n", "deposited", t.Deposited)
	fmt.Fprintf(bw, "%-20s %d\n", "spent", t.Spent)

	return bw.Flush()
}

// ParseError points at the offending line of a ledger file.
type ParseError struct {
	Line int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d %q: %v", e.Line, e.Text, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Decode reads a ledger in the text format and checks it with ledger.Restore.
func Decode(r io.Reader) (*ledger.Partition, error) {
	var (
		boxes     []ledger.Box
		goals     = make(map[string]ledger.Goal)
		recurring = make(map[string]ledger.Recurring)
		totals    *ledger.Totals
		section   string
	)

	sc := bufio.NewScanner(r)
	for lineNo := 1; sc.Scan(); lineNo++ {
		raw := sc.Text()
		line, _, _ := strings.Cut(raw, "#")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fail := func(err error) error { return &ParseError{Line: lineNo, Text: raw, Err: err} }

		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section = strings.TrimSpace(line[1 : len(line)-1])
			switch section {
			case sectionPartition, sectionGoals, sectionPeriodic:
			case sectionTotals:
				if totals == nil {
					totals = &ledger.Totals{}
				}
			default:
				return nil, fail(fmt.Errorf("%w: unknown section", ledger.ErrInvalidArgument))
			}
			continue
		}

		fields := strings.Fields(line)
		switch section {
		case sectionPartition:
			if len(fields) != 2 {
				return nil, fail(errFieldCount("<box> <amount>"))
			}
			amount, err := parseInt(fields[1])
			if err != nil {
				return nil, fail(err)
			}
			boxes = append(boxes, ledger.Box{Name: fields[0], Amount: amount})

		case sectionGoals:
			if len(fields) != 3 {
				return nil, fail(errFieldCount("<box> <goal> <YYYY-MM>"))
			}
			target, err := parseInt(fields[1])
			if err != nil {
				return nil, fail(err)
			}
			due, err := ledger.ParsePeriod(fields[2])
			if err != nil {
				return nil, fail(err)
			}
			goals[fields[0]] = ledger.Goal{Target: target, Due: due}

		case sectionPeriodic:
			rec, err := parsePeriodic(fields)
			if err != nil {
				return nil, fail(err)
			}
			recurring[fields[0]] = rec

		case sectionTotals:
			if len(fields) != 2 {
				return nil, fail(errFieldCount("deposited|spent <amount>"))
			}
			v, err := parseInt(fields[1])
			if err != nil {
				return nil, fail(err)
			}
			switch fields[0] {
			case "deposited":
				totals.Deposited = v
			case "spent":
				totals.Spent = v
			default:
				return nil, fail(fmt.Errorf("%w: unknown total %q", ledger.ErrInvalidArgument, fields[0]))
			}

		default:
			return nil, fail(fmt.Errorf("%w: line outside of a section", ledger.ErrInvalidArgument))
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	return ledger.Restore(boxes, goals, recurring, totals)
}

func parsePeriodic(fields []string) (ledger.Recurring, error) {
	if len(fields) < 2 || len(fields) > 4 {
		return ledger.Recurring{}, errFieldCount("<box> <amount> [<remaining> [instalment]]")
	}
	r := ledger.Recurring{Kind: ledger.Allocation}
	var err error
	if r.Periodic, err = parseInt(fields[1]); err != nil {
		return r, err
	}
	if len(fields) >= 3 {
		if r.Remaining, err = parseInt(fields[2]); err != nil {
			return r, err
		}
	}
	if len(fields) == 4 {
		r.Kind = ledger.RecurringKind(fields[3])
	}
	return r, nil
}

// parseInt accepts negative values; reserved boxes may be overdrawn.
func parseInt(s string) (int64, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an integer", ledger.ErrInvalidArgument, s)
	}
	return v, nil
}

func errFieldCount(want string) error {
	return fmt.Errorf("%w: expected %s", ledger.ErrInvalidArgument, want)
}
