package orchestrators

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	emailAdapter "conference/internal/adapters/email"
	"conference/internal/adapters/filestore"
	diplomaStore "conference/internal/adapters/storage/diploma"
	participantStore "conference/internal/adapters/storage/participant"
	domainActivity "conference/internal/domain/activity"
	domainAttendance "conference/internal/domain/attendance"
	domainDiploma "conference/internal/domain/diploma"
	domainOutbox "conference/internal/domain/outbox"
	domainParticipant "conference/internal/domain/participant"
	domainRegistration "conference/internal/domain/registration"
	domainWinner "conference/internal/domain/winner"
)

var fixedTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return fixedTime }

func notFound(what string, id any) error {
	return fmt.Errorf("%s %v: %w", what, id, sql.ErrNoRows)
}

// --- participants ---

type fakeParticipants struct {
	byID   map[int64]domainParticipant.Participant
	nextID int64
}

func newFakeParticipants(ps ...domainParticipant.Participant) *fakeParticipants {
	f := &fakeParticipants{byID: map[int64]domainParticipant.Participant{}, nextID: 100}
	for _, p := range ps {
		f.byID[p.ID] = p
	}
	return f
}

func (f *fakeParticipants) GetByID(_ context.Context, id int64) (domainParticipant.Participant, error) {
	p, ok := f.byID[id]
	if !ok {
		return domainParticipant.Participant{}, notFound("participant", id)
	}
	return p, nil
}

func (f *fakeParticipants) GetByEmail(_ context.Context, email string) (domainParticipant.Participant, error) {
	for _, p := range f.byID {
		if strings.EqualFold(p.Email, email) {
			return p, nil
		}
	}
	return domainParticipant.Participant{}, notFound("participant", email)
}

func (f *fakeParticipants) Create(ctx context.Context, p domainParticipant.Participant) (int64, error) {
	if _, err := f.GetByEmail(ctx, p.Email); err == nil {
		return 0, participantStore.ErrDuplicateEmail
	}
	f.nextID++
	p.ID = f.nextID
	f.byID[p.ID] = p
	return p.ID, nil
}

func (f *fakeParticipants) FindByNameOrEmail(_ context.Context, name, email string) (domainParticipant.Participant, error) {
	for _, p := range f.byID {
		if strings.EqualFold(p.FullName, name) || (email != "" && strings.EqualFold(p.Email, email)) {
			return p, nil
		}
	}
	return domainParticipant.Participant{}, notFound("participant", name)
}

// --- activities ---

type fakeActivities struct {
	byID map[int64]domainActivity.Activity
}

func newFakeActivities(as ...domainActivity.Activity) *fakeActivities {
	f := &fakeActivities{byID: map[int64]domainActivity.Activity{}}
	for _, a := range as {
		f.byID[a.ID] = a
	}
	return f
}

func (f *fakeActivities) GetByID(_ context.Context, id int64) (domainActivity.Activity, error) {
	a, ok := f.byID[id]
	if !ok {
		return domainActivity.Activity{}, notFound("activity", id)
	}
	return a, nil
}

func (f *fakeActivities) MarkPublished(_ context.Context, id int64, at time.Time) error {
	a, ok := f.byID[id]
	if !ok {
		return notFound("activity", id)
	}
	a.PublishedAt = at
	f.byID[id] = a
	return nil
}

// --- registrations ---

type fakeRegistrations struct {
	byID   map[int64]domainRegistration.Registration
	nextID int64
	// raceLoses makes Create report the pair as already present.
	raceLoses bool
}

func newFakeRegistrations(rs ...domainRegistration.Registration) *fakeRegistrations {
	f := &fakeRegistrations{byID: map[int64]domainRegistration.Registration{}}
	for _, r := range rs {
		f.byID[r.ID] = r
		if r.ID > f.nextID {
			f.nextID = r.ID
		}
	}
	return f
}

func (f *fakeRegistrations) Exists(_ context.Context, participantID, activityID int64) (bool, error) {
	for _, r := range f.byID {
		if r.ParticipantID == participantID && r.ActivityID == activityID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRegistrations) Create(_ context.Context, r domainRegistration.Registration) (int64, bool, error) {
	if f.raceLoses {
		return 0, false, nil
	}
	f.nextID++
	r.ID = f.nextID
	f.byID[r.ID] = r
	return r.ID, true, nil
}

func (f *fakeRegistrations) GetByToken(_ context.Context, token string) (domainRegistration.Registration, error) {
	for _, r := range f.byID {
		if r.Token == token {
			return r, nil
		}
	}
	return domainRegistration.Registration{}, notFound("token", token)
}

func (f *fakeRegistrations) MarkAttended(_ context.Context, r domainRegistration.Registration) error {
	if _, ok := f.byID[r.ID]; !ok {
		return notFound("registration", r.ID)
	}
	f.byID[r.ID] = r
	return nil
}

// --- check-ins ---

type fakeCheckIns struct {
	rows []domainAttendance.CheckIn
}

func (f *fakeCheckIns) Append(_ context.Context, c domainAttendance.CheckIn) (int64, error) {
	c.ID = int64(len(f.rows) + 1)
	f.rows = append(f.rows, c)
	return c.ID, nil
}

// --- diplomas ---

type fakeDiplomas struct {
	byID         map[int64]domainDiploma.Diploma
	nextID       int64
	participants *fakeParticipants
	activities   *fakeActivities
	// pending feeds ListAttendedWithoutDiploma.
	pending []domainRegistration.Registration
}

func newFakeDiplomas(ps *fakeParticipants, as *fakeActivities) *fakeDiplomas {
	return &fakeDiplomas{byID: map[int64]domainDiploma.Diploma{}, participants: ps, activities: as}
}

func (f *fakeDiplomas) Create(_ context.Context, d domainDiploma.Diploma) (int64, error) {
	if err := d.Validate(); err != nil {
		return 0, err
	}
	for _, existing := range f.byID {
		if existing.ParticipantID == d.ParticipantID && existing.ActivityID == d.ActivityID {
			return 0, domainDiploma.ErrAlreadyIssued
		}
	}
	f.nextID++
	d.ID = f.nextID
	f.byID[d.ID] = d
	return d.ID, nil
}

func (f *fakeDiplomas) Exists(_ context.Context, participantID, activityID int64) (bool, error) {
	for _, d := range f.byID {
		if d.ParticipantID == participantID && d.ActivityID == activityID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeDiplomas) MarkEmailed(_ context.Context, id int64, at time.Time) error {
	d, ok := f.byID[id]
	if !ok {
		return notFound("diploma", id)
	}
	d.MarkEmailed(at)
	f.byID[id] = d
	return nil
}

func (f *fakeDiplomas) ListUnsent(_ context.Context) ([]domainDiploma.Diploma, error) {
	var out []domainDiploma.Diploma
	for _, d := range f.byID {
		if !d.Emailed {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeDiplomas) GetDetailed(ctx context.Context, id int64) (diplomaStore.Listing, error) {
	d, ok := f.byID[id]
	if !ok {
		return diplomaStore.Listing{}, notFound("diploma", id)
	}
	p, _ := f.participants.GetByID(ctx, d.ParticipantID)
	a, _ := f.activities.GetByID(ctx, d.ActivityID)
	return diplomaStore.Listing{
		Diploma:       d,
		FullName:      p.FullName,
		Email:         p.Email,
		ActivityTitle: a.Title,
		ActivityKind:  a.Kind,
		ActivityDay:   a.Day,
		ActivityYear:  a.Year,
	}, nil
}

func (f *fakeDiplomas) ListAttendedWithoutDiploma(ctx context.Context) ([]domainRegistration.Registration, error) {
	var out []domainRegistration.Registration
	for _, r := range f.pending {
		if ok, _ := f.Exists(ctx, r.ParticipantID, r.ActivityID); !ok {
			out = append(out, r)
		}
	}
	return out, nil
}

// --- files ---

type fakeFiles struct {
	mu      sync.Mutex
	objects map[string][]byte
	failPut bool
}

func newFakeFiles() *fakeFiles { return &fakeFiles{objects: map[string][]byte{}} }

func (f *fakeFiles) Put(_ context.Context, key string, content []byte, _ string) error {
	if f.failPut {
		return errors.New("disk full")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = append([]byte(nil), content...)
	return nil
}

func (f *fakeFiles) Open(_ context.Context, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.objects[key]
	if !ok {
		return nil, filestore.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (f *fakeFiles) Exists(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok, nil
}

// --- renderer ---

type fakeRenderer struct {
	fail    bool
	calls   []string
	winners []int
}

func (r *fakeRenderer) Render(name, activity, dateText string) ([]byte, error) {
	if r.fail {
		return nil, errors.New("font missing")
	}
	r.calls = append(r.calls, name+"|"+activity+"|"+dateText)
	return []byte("%PDF-" + name), nil
}

func (r *fakeRenderer) RenderWinner(name, activity, dateText string, placement, year int) ([]byte, error) {
	if r.fail {
		return nil, errors.New("font missing")
	}
	r.winners = append(r.winners, placement)
	return []byte(fmt.Sprintf("%%PDF-winner-%s-%d", name, placement)), nil
}

// --- sender ---

type fakeSender struct {
	fail bool
	sent []emailAdapter.SendRequest
}

func (s *fakeSender) Send(_ context.Context, req emailAdapter.SendRequest) (emailAdapter.SendResult, error) {
	if s.fail {
		return emailAdapter.SendResult{}, errors.New("provider unavailable")
	}
	s.sent = append(s.sent, req)
	return emailAdapter.SendResult{MessageID: fmt.Sprintf("msg-%d", len(s.sent)), SentAt: fixedTime}, nil
}

// --- outbox ---

type fakeOutbox struct {
	mu   sync.Mutex
	byID map[string]domainOutbox.Entry
}

func newFakeOutbox(es ...domainOutbox.Entry) *fakeOutbox {
	f := &fakeOutbox{byID: map[string]domainOutbox.Entry{}}
	for _, e := range es {
		f.byID[e.ID] = e
	}
	return f
}

func (f *fakeOutbox) get(id string) domainOutbox.Entry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byID[id]
}

func (f *fakeOutbox) GetByID(_ context.Context, id string) (domainOutbox.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.byID[id]
	if !ok {
		return domainOutbox.Entry{}, fmt.Errorf("outbox entry %s: %w", id, domainOutbox.ErrNotFound)
	}
	return e, nil
}

func (f *fakeOutbox) Save(_ context.Context, e domainOutbox.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[e.ID] = e
	return nil
}

func (f *fakeOutbox) ListPending(_ context.Context, limit int) ([]domainOutbox.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domainOutbox.Entry
	for _, e := range f.byID {
		if e.Status == domainOutbox.StatusPending || e.Status == domainOutbox.StatusRetrying {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// --- winners ---

type fakeWinners struct {
	byID    map[int64]domainWinner.Winner
	nextID  int64
	history map[[2]int64]domainWinner.HistoryEntry
}

func newFakeWinners(ws ...domainWinner.Winner) *fakeWinners {
	f := &fakeWinners{byID: map[int64]domainWinner.Winner{}, history: map[[2]int64]domainWinner.HistoryEntry{}}
	for _, w := range ws {
		f.byID[w.ID] = w
		if w.ID > f.nextID {
			f.nextID = w.ID
		}
	}
	return f
}

func (f *fakeWinners) Create(_ context.Context, w domainWinner.Winner) (int64, error) {
	f.nextID++
	w.ID = f.nextID
	f.byID[w.ID] = w
	return w.ID, nil
}

func (f *fakeWinners) Delete(_ context.Context, id int64) error {
	if _, ok := f.byID[id]; !ok {
		return notFound("winner", id)
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeWinners) ListByActivity(_ context.Context, activityID int64) ([]domainWinner.Winner, error) {
	var out []domainWinner.Winner
	for _, w := range f.byID {
		if w.ActivityID == activityID {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (f *fakeWinners) LinkParticipant(_ context.Context, id, participantID int64) error {
	w, ok := f.byID[id]
	if !ok {
		return notFound("winner", id)
	}
	w.ParticipantID = participantID
	f.byID[id] = w
	return nil
}

func (f *fakeWinners) SetDiplomaFile(_ context.Context, id int64, key string) error {
	w, ok := f.byID[id]
	if !ok {
		return notFound("winner", id)
	}
	w.DiplomaFile = key
	f.byID[id] = w
	return nil
}

func (f *fakeWinners) RecordHistory(_ context.Context, h domainWinner.HistoryEntry) (bool, error) {
	k := [2]int64{h.WinnerID, h.ActivityID}
	if _, ok := f.history[k]; ok {
		return false, nil
	}
	f.history[k] = h
	return true, nil
}

// --- metrics ---

type fakeRecorder struct {
	registrations map[string]int
	checkIns      int
	diplomas      map[string]int
	emails        map[string]int
	outbox        map[string]int
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{
		registrations: map[string]int{},
		diplomas:      map[string]int{},
		emails:        map[string]int{},
		outbox:        map[string]int{},
	}
}

func (r *fakeRecorder) Registration(outcome string) { r.registrations[outcome]++ }
func (r *fakeRecorder) CheckIn()                    { r.checkIns++ }
func (r *fakeRecorder) Diploma(kind, outcome string) {
	r.diplomas[kind+"/"+outcome]++
}
func (r *fakeRecorder) Email(template string, sent bool) {
	r.emails[fmt.Sprintf("%s/%t", template, sent)]++
}
func (r *fakeRecorder) OutboxAttempt(outcome string) { r.outbox[outcome]++ }
