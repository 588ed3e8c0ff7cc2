package attendance

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"
)

// memoryRecords is a minimal in-memory Repository for tracker tests.
type memoryRecords struct {
	mu      sync.Mutex
	records []*Record
	creates int
	updates map[string]int

	latestErr error
	createErr error
}

func newMemoryRecords() *memoryRecords {
	return &memoryRecords{updates: make(map[string]int)}
}

func (m *memoryRecords) Latest(ctx context.Context, subjectID string) (*Record, error) {
	if m.latestErr != nil {
		return nil, m.latestErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var latest *Record
	for _, r := range m.records {
		if r.SubjectID != subjectID {
			continue
		}
		if latest == nil || r.CheckIn.After(*latest.CheckIn) {
			latest = r
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (m *memoryRecords) Create(ctx context.Context, rec *Record) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	rec.ID = fmt.Sprintf("rec-%d", m.creates)
	cp := *rec
	m.records = append(m.records, &cp)
	return nil
}

func (m *memoryRecords) Update(ctx context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.records {
		if r.ID == rec.ID {
			cp := *rec
			m.records[i] = &cp
			m.updates[rec.ID]++
			return nil
		}
	}
	return errors.New("record not found")
}

func (m *memoryRecords) forSubject(subjectID string) []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Record
	for _, r := range m.records {
		if r.SubjectID == subjectID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CheckIn.Before(*out[j].CheckIn) })
	return out
}

type staticSessions struct {
	bySubject map[string]*Session
	err       error
}

func (s staticSessions) SessionForSubject(ctx context.Context, subjectID string) (*Session, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.bySubject[subjectID], nil
}

func (s staticSessions) Session(ctx context.Context, id string) (*Session, error) {
	if s.err != nil {
		return nil, s.err
	}
	for _, sess := range s.bySubject {
		if sess.ID == id {
			return sess, nil
		}
	}
	return nil, nil
}

func morningSession() *Session {
	start, _ := FromHours(9.5)
	end, _ := FromHours(17)
	return NewSession("morning", "Morning Shift", start, end)
}

func newTestTracker(records *memoryRecords, sessions map[string]*Session, opts ...TrackerOption) *Tracker {
	return NewTracker(records, staticSessions{bySubject: sessions}, NewEvaluator(ict), opts...)
}

func openRecords(recs []Record) int {
	n := 0
	for _, r := range recs {
		if r.IsOpen() {
			n++
		}
	}
	return n
}

func TestTracker_FirstEventChecksIn(t *testing.T) {
	records := newMemoryRecords()
	tr := newTestTracker(records, map[string]*Session{"s1": morningSession()})

	out, err := tr.Record(context.Background(), "s1", at(9, 33, 0))
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if out.Action != ActionCheckedIn {
		t.Fatalf("expected checked_in, got %s", out.Action)
	}
	if out.Record.State != StateCheckedIn {
		t.Errorf("expected state checked_in, got %s", out.Record.State)
	}
	// 09:33 is inside the 5 minute grace after 09:30, which is labelled early.
	if out.Record.CheckInStatus != StatusEarly {
		t.Errorf("expected check-in status early, got %s", out.Record.CheckInStatus)
	}
	if out.Record.SessionID != "morning" {
		t.Errorf("expected session 'morning', got %q", out.Record.SessionID)
	}
	if out.Session == nil || out.Session.ID != "morning" {
		t.Errorf("expected outcome session 'morning', got %+v", out.Session)
	}
}

func TestTracker_CooldownSequence(t *testing.T) {
	records := newMemoryRecords()
	tr := newTestTracker(records, map[string]*Session{"s1": morningSession()})
	ctx := context.Background()
	start := at(16, 58, 0)

	want := []Action{ActionCheckedIn, ActionSuppressed, ActionCheckedOut}
	offsets := []time.Duration{0, 30 * time.Second, 90 * time.Second}

	for i, off := range offsets {
		out, err := tr.Record(ctx, "s1", start.Add(off))
		if err != nil {
			t.Fatalf("event %d: %v", i, err)
		}
		if out.Action != want[i] {
			t.Fatalf("event %d: expected %s, got %s", i, want[i], out.Action)
		}
	}

	recs := records.forSubject("s1")
	if len(recs) != 1 {
		t.Fatalf("expected exactly 1 record, got %d", len(recs))
	}
	if records.creates != 1 || records.updates[recs[0].ID] != 1 {
		t.Errorf("expected one create and one update, got %d creates and %d updates",
			records.creates, records.updates[recs[0].ID])
	}
	if openRecords(recs) != 0 {
		t.Errorf("expected no open records")
	}
	rec := recs[0]
	if rec.CheckOut == nil || !rec.CheckOut.Equal(start.Add(90*time.Second)) {
		t.Errorf("unexpected check-out %v", rec.CheckOut)
	}
	// 16:59:30 is inside the 5 minute window before 17:00.
	if rec.CheckOutStatus != StatusLate {
		t.Errorf("expected check-out status late, got %s", rec.CheckOutStatus)
	}
}

func TestTracker_CooldownBoundary(t *testing.T) {
	records := newMemoryRecords()
	tr := newTestTracker(records, nil)
	ctx := context.Background()
	start := at(9, 0, 0)

	if _, err := tr.Record(ctx, "s1", start); err != nil {
		t.Fatal(err)
	}
	out, err := tr.Record(ctx, "s1", start.Add(59*time.Second))
	if err != nil {
		t.Fatal(err)
	}
	if out.Action != ActionSuppressed {
		t.Errorf("59s later: expected suppressed, got %s", out.Action)
	}
	out, err = tr.Record(ctx, "s1", start.Add(60*time.Second))
	if err != nil {
		t.Fatal(err)
	}
	if out.Action != ActionCheckedOut {
		t.Errorf("60s later: expected checked_out, got %s", out.Action)
	}
	out, err = tr.Record(ctx, "s1", start.Add(100*time.Second))
	if err != nil {
		t.Fatal(err)
	}
	if out.Action != ActionSuppressed {
		t.Errorf("40s after check-out: expected suppressed, got %s", out.Action)
	}
}

func TestTracker_CyclesStartNewRecords(t *testing.T) {
	records := newMemoryRecords()
	tr := newTestTracker(records, map[string]*Session{"s1": morningSession()})
	ctx := context.Background()

	events := []time.Time{at(9, 0, 0), at(12, 0, 0), at(13, 0, 0), at(17, 30, 0)}
	want := []Action{ActionCheckedIn, ActionCheckedOut, ActionCheckedIn, ActionCheckedOut}
	for i, ev := range events {
		out, err := tr.Record(ctx, "s1", ev)
		if err != nil {
			t.Fatalf("event %d: %v", i, err)
		}
		if out.Action != want[i] {
			t.Fatalf("event %d: expected %s, got %s", i, want[i], out.Action)
		}
	}

	recs := records.forSubject("s1")
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if recs[0].CheckInStatus != StatusOnTime || recs[0].CheckOutStatus != StatusEarly {
		t.Errorf("first cycle: got %s/%s, want on_time/early", recs[0].CheckInStatus, recs[0].CheckOutStatus)
	}
	if recs[1].CheckInStatus != StatusLate || recs[1].CheckOutStatus != StatusOnTime {
		t.Errorf("second cycle: got %s/%s, want late/on_time", recs[1].CheckInStatus, recs[1].CheckOutStatus)
	}
}

func TestTracker_MissingSessionIsUndefined(t *testing.T) {
	records := newMemoryRecords()
	tr := newTestTracker(records, nil)
	ctx := context.Background()

	in, err := tr.Record(ctx, "nobody", at(9, 0, 0))
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if in.Record.CheckInStatus != StatusUndefined || in.Record.SessionID != "" {
		t.Errorf("expected undefined check-in without session, got %+v", in.Record)
	}

	out, err := tr.Record(ctx, "nobody", at(17, 0, 0))
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if out.Action != ActionCheckedOut || out.Record.CheckOutStatus != StatusUndefined {
		t.Errorf("expected undefined check-out, got %s / %s", out.Action, out.Record.CheckOutStatus)
	}
}

func TestTracker_SubjectsAreIndependent(t *testing.T) {
	records := newMemoryRecords()
	sess := morningSession()
	tr := newTestTracker(records, map[string]*Session{"alice": sess, "bob": sess})
	ctx := context.Background()
	frame := at(9, 20, 0)

	var wg sync.WaitGroup
	outcomes := make(map[string]*Outcome)
	var mu sync.Mutex
	for _, id := range []string{"alice", "bob"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			out, err := tr.Record(ctx, id, frame)
			if err != nil {
				t.Errorf("%s: %v", id, err)
				return
			}
			mu.Lock()
			outcomes[id] = out
			mu.Unlock()
		}(id)
	}
	wg.Wait()

	for _, id := range []string{"alice", "bob"} {
		if outcomes[id] == nil || outcomes[id].Action != ActionCheckedIn {
			t.Errorf("%s: expected checked_in, got %+v", id, outcomes[id])
		}
		if n := len(records.forSubject(id)); n != 1 {
			t.Errorf("%s: expected 1 record, got %d", id, n)
		}
	}

	// Alice checks out; Bob's state must be untouched.
	if _, err := tr.Record(ctx, "alice", at(17, 5, 0)); err != nil {
		t.Fatal(err)
	}
	if openRecords(records.forSubject("alice")) != 0 {
		t.Error("alice should have no open record")
	}
	if openRecords(records.forSubject("bob")) != 1 {
		t.Error("bob should still have an open record")
	}
}

func TestTracker_SerializesSameSubject(t *testing.T) {
	records := newMemoryRecords()
	tr := newTestTracker(records, map[string]*Session{"s1": morningSession()})
	ctx := context.Background()
	ts := at(9, 0, 0)

	const workers = 16
	var wg sync.WaitGroup
	actions := make([]Action, workers)
	for i := range workers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := tr.Record(ctx, "s1", ts)
			if err != nil {
				t.Errorf("worker %d: %v", i, err)
				return
			}
			actions[i] = out.Action
		}(i)
	}
	wg.Wait()

	checkedIn := 0
	for _, a := range actions {
		switch a {
		case ActionCheckedIn:
			checkedIn++
		case ActionSuppressed:
		default:
			t.Errorf("unexpected action %s", a)
		}
	}
	if checkedIn != 1 {
		t.Errorf("expected exactly one check-in, got %d", checkedIn)
	}
	if n := openRecords(records.forSubject("s1")); n != 1 {
		t.Errorf("expected exactly one open record, got %d", n)
	}
	if n := tr.locks.size(); n != 0 {
		t.Errorf("expected subject locks to be released, %d remain", n)
	}
}

func TestTracker_Errors(t *testing.T) {
	ctx := context.Background()

	if _, err := newTestTracker(newMemoryRecords(), nil).Record(ctx, "", at(9, 0, 0)); err == nil {
		t.Error("expected error for empty subject")
	}

	records := newMemoryRecords()
	records.latestErr = errors.New("db down")
	if _, err := newTestTracker(records, nil).Record(ctx, "s1", at(9, 0, 0)); !errors.Is(err, records.latestErr) {
		t.Errorf("expected latest error, got %v", err)
	}

	records = newMemoryRecords()
	records.createErr = errors.New("insert failed")
	if _, err := newTestTracker(records, nil).Record(ctx, "s1", at(9, 0, 0)); !errors.Is(err, records.createErr) {
		t.Errorf("expected create error, got %v", err)
	}

	sessErr := errors.New("schedule unavailable")
	tr := NewTracker(newMemoryRecords(), staticSessions{err: sessErr}, NewEvaluator(ict))
	if _, err := tr.Record(ctx, "s1", at(9, 0, 0)); !errors.Is(err, sessErr) {
		t.Errorf("expected session error, got %v", err)
	}
}

func TestTracker_ZeroCooldown(t *testing.T) {
	records := newMemoryRecords()
	tr := newTestTracker(records, nil, WithCooldown(0))
	ctx := context.Background()

	if tr.Cooldown() != 0 {
		t.Fatalf("Cooldown() = %v, want 0", tr.Cooldown())
	}
	if _, err := tr.Record(ctx, "s1", at(9, 0, 0)); err != nil {
		t.Fatal(err)
	}
	out, err := tr.Record(ctx, "s1", at(9, 0, 1))
	if err != nil {
		t.Fatal(err)
	}
	if out.Action != ActionCheckedOut {
		t.Errorf("expected immediate check-out without cooldown, got %s", out.Action)
	}
}
