package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/campusq/queuedesk/internal/clock"
	"github.com/campusq/queuedesk/internal/model"
	"github.com/campusq/queuedesk/internal/repository"
)

// fakeClock is a settable Clock fixed to UTC for tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) TodayStart() time.Time {
	return c.CivilDate(c.Now())
}

func (c *fakeClock) CivilDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (c *fakeClock) DayRange(t time.Time) (time.Time, time.Time) {
	start := c.CivilDate(t)
	return start, start.AddDate(0, 0, 1)
}

func (c *fakeClock) IsPastCutoff(cutoff string) bool {
	hhmm, err := clock.ParseWallClock(cutoff)
	if err != nil {
		return false
	}
	now := c.Now()
	mark := time.Date(now.Year(), now.Month(), now.Day(), hhmm.Hour, hhmm.Minute, 0, 0, time.UTC)
	return !now.Before(mark)
}

// sentNotification is one captured Emit call.
type sentNotification struct {
	UserID  int64
	Kind    model.NotificationKind
	Title   string
	Message string
	Refs    model.RelatedRefs
}

// memStore is an in-memory implementation of every store interface plus
// the Notifier, mirroring the conditional-update semantics of the postgres
// repositories.
type memStore struct {
	mu sync.Mutex

	nowFn func() time.Time

	slots      map[int64]*model.Slot
	bookings   map[int64]*model.Booking
	requests   map[int64]*model.EmergencyRequest
	users      map[int64]*model.User
	counters   map[int64]*model.Counter
	logEntries []*model.EnquiryLogEntry
	sent       []sentNotification

	nextID int64

	failBookingCreate bool
}

func newMemStore(clk clock.Clock) *memStore {
	return &memStore{
		nowFn:    clk.Now,
		slots:    make(map[int64]*model.Slot),
		bookings: make(map[int64]*model.Booking),
		requests: make(map[int64]*model.EmergencyRequest),
		users:    make(map[int64]*model.User),
		counters: make(map[int64]*model.Counter),
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

// Seed helpers.

func (m *memStore) addUser(u *model.User) *model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == 0 {
		u.ID = m.id()
	}
	if u.AccountStatus == "" {
		u.AccountStatus = model.AccountStatusActive
	}
	if u.WarningStatus == "" {
		u.WarningStatus = model.WarningStatusNone
	}
	m.users[u.ID] = u
	return u
}

func (m *memStore) addCounter(c *model.Counter) *model.Counter {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == 0 {
		c.ID = m.id()
	}
	m.counters[c.ID] = c
	return c
}

func (m *memStore) addSlot(s *model.Slot) *model.Slot {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == 0 {
		s.ID = m.id()
	}
	m.slots[s.ID] = s
	return s
}

func (m *memStore) addBooking(b *model.Booking) *model.Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b.ID == 0 {
		b.ID = m.id()
	}
	m.bookings[b.ID] = b
	return b
}

func (m *memStore) notificationsFor(userID int64, kind model.NotificationKind) []sentNotification {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []sentNotification
	for _, n := range m.sent {
		if n.UserID == userID && n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

// SlotStore

func (m *memStore) GetByID(ctx context.Context, id int64) (*model.Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	slot, ok := m.slots[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *slot
	return &copied, nil
}

func (m *memStore) ListByCounterDate(ctx context.Context, counterID int64, date time.Time) ([]*model.Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Slot
	for _, slot := range m.slots {
		if slot.CounterID == counterID && sameDay(slot.SlotDate, date) {
			copied := *slot
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime < out[j].StartTime })
	return out, nil
}

func (m *memStore) CreateIfAbsent(ctx context.Context, slots []*model.Slot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, candidate := range slots {
		exists := false
		for _, slot := range m.slots {
			if slot.CounterID == candidate.CounterID &&
				sameDay(slot.SlotDate, candidate.SlotDate) &&
				slot.StartTime == candidate.StartTime {
				exists = true
				break
			}
		}
		if exists {
			continue
		}
		stored := *candidate
		stored.ID = m.id()
		m.slots[stored.ID] = &stored
	}
	return nil
}

func (m *memStore) GetByCounterDateStart(ctx context.Context, counterID int64, date time.Time, startTime string) (*model.Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, slot := range m.slots {
		if slot.CounterID == counterID && sameDay(slot.SlotDate, date) && slot.StartTime == startTime {
			copied := *slot
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memStore) Reserve(ctx context.Context, slotID, studentID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	slot, ok := m.slots[slotID]
	if !ok || !slot.IsActive {
		return 0, repository.ErrNotFound
	}
	if slot.CurrentBookings >= slot.MaxCapacity {
		return 0, repository.ErrSlotFull
	}
	slot.CurrentBookings++
	slot.BookedStudents = append(slot.BookedStudents, studentID)
	return slot.CurrentBookings, nil
}

func (m *memStore) Release(ctx context.Context, slotID, studentID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	slot, ok := m.slots[slotID]
	if !ok || slot.CurrentBookings == 0 {
		return repository.ErrNotHolder
	}
	idx := -1
	for i, id := range slot.BookedStudents {
		if id == studentID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return repository.ErrNotHolder
	}
	slot.BookedStudents = append(slot.BookedStudents[:idx], slot.BookedStudents[idx+1:]...)
	slot.CurrentBookings--
	return nil
}

// BookingStore

func (m *memStore) Create(ctx context.Context, booking *model.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failBookingCreate {
		return errors.New("storage unavailable")
	}
	booking.ID = m.id()
	booking.CreatedAt = m.nowFn()
	booking.UpdatedAt = booking.CreatedAt
	stored := *booking
	m.bookings[booking.ID] = &stored
	return nil
}

func (m *memStore) GetBookingByID(ctx context.Context, id int64) (*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	booking, ok := m.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *booking
	return &copied, nil
}

func (m *memStore) GetActiveForStudent(ctx context.Context, bookingID, studentID int64) (*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	booking, ok := m.bookings[bookingID]
	if !ok || booking.StudentID != studentID || !booking.IsActive() {
		return nil, repository.ErrNotFound
	}
	copied := *booking
	return &copied, nil
}

func (m *memStore) HasActiveOnSlot(ctx context.Context, studentID, slotID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, booking := range m.bookings {
		if booking.StudentID == studentID && booking.SlotID == slotID && booking.IsActive() {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) HasActiveAtTime(ctx context.Context, studentID int64, date time.Time, startTime string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, booking := range m.bookings {
		if booking.StudentID == studentID && booking.IsActive() &&
			sameDay(booking.SlotDate, date) && booking.StartTime == startTime {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) ListByStudent(ctx context.Context, studentID int64) ([]*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Booking
	for _, booking := range m.bookings {
		if booking.StudentID == studentID {
			copied := *booking
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) ListForCounterDay(ctx context.Context, counterID *int64, date time.Time) ([]*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Booking
	for _, booking := range m.bookings {
		if booking.Status == model.BookingStatusCancelled {
			continue
		}
		if !sameDay(booking.SlotDate, date) {
			continue
		}
		if counterID != nil && booking.CounterID != *counterID {
			continue
		}
		copied := *booking
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime != out[j].StartTime {
			return out[i].StartTime < out[j].StartTime
		}
		return out[i].TokenNumber < out[j].TokenNumber
	})
	return out, nil
}

func (m *memStore) TransitionStatus(ctx context.Context, id int64, from []model.BookingStatus, to model.BookingStatus) error {
	return m.TransitionWithFeedback(ctx, id, from, to, nil)
}

func (m *memStore) TransitionWithFeedback(ctx context.Context, id int64, from []model.BookingStatus, to model.BookingStatus, fb *model.FacultyFeedback) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	booking, ok := m.bookings[id]
	if !ok {
		return repository.ErrAlreadyProcessed
	}
	matched := false
	for _, status := range from {
		if booking.Status == status {
			matched = true
			break
		}
	}
	if !matched {
		return repository.ErrAlreadyProcessed
	}
	booking.Status = to
	booking.UpdatedAt = m.nowFn()
	if fb != nil {
		booking.Feedback = fb
	}
	return nil
}

// EmergencyStore

func (m *memStore) CreateEmergency(ctx context.Context, req *model.EmergencyRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.requests {
		if existing.StudentID == req.StudentID && existing.IsPending() {
			return repository.ErrAlreadyPending
		}
	}
	req.ID = m.id()
	req.CreatedAt = m.nowFn()
	stored := *req
	m.requests[req.ID] = &stored
	return nil
}

func (m *memStore) GetEmergencyByID(ctx context.Context, id int64) (*model.EmergencyRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *req
	return &copied, nil
}

func (m *memStore) HasPending(ctx context.Context, studentID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, req := range m.requests {
		if req.StudentID == studentID && req.IsPending() {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) ListPending(ctx context.Context, counterID *int64) ([]*model.EmergencyRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.EmergencyRequest
	for _, req := range m.requests {
		if !req.IsPending() {
			continue
		}
		if counterID != nil && req.CounterID != *counterID {
			continue
		}
		copied := *req
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) ListEmergenciesByStudent(ctx context.Context, studentID int64) ([]*model.EmergencyRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.EmergencyRequest
	for _, req := range m.requests {
		if req.StudentID == studentID {
			copied := *req
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) MarkApproved(ctx context.Context, id, facultyID, bookingID int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok || !req.IsPending() {
		return repository.ErrAlreadyProcessed
	}
	req.Status = model.EmergencyStatusApproved
	req.RespondedBy = &facultyID
	req.RespondedAt = &at
	req.ApprovedBookingID = &bookingID
	return nil
}

func (m *memStore) MarkRejected(ctx context.Context, id, facultyID int64, reason string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok || !req.IsPending() {
		return repository.ErrAlreadyProcessed
	}
	req.Status = model.EmergencyStatusRejected
	req.RespondedBy = &facultyID
	req.RespondedAt = &at
	req.RejectionReason = reason
	return nil
}

func (m *memStore) SweepAutoReject(ctx context.Context, upTo time.Time, reason string, at time.Time) ([]*model.EmergencyRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var swept []*model.EmergencyRequest
	for _, req := range m.requests {
		if !req.IsPending() || beforeDay(upTo, req.RequestedDate) {
			continue
		}
		req.Status = model.EmergencyStatusAutoRejected
		req.RejectionReason = reason
		req.RespondedAt = &at
		copied := *req
		swept = append(swept, &copied)
	}
	sort.Slice(swept, func(i, j int) bool { return swept[i].ID < swept[j].ID })
	return swept, nil
}

// EnquiryLogStore

func (m *memStore) Append(ctx context.Context, entry *model.EnquiryLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry.ID = m.id()
	entry.CreatedAt = m.nowFn()
	stored := *entry
	m.logEntries = append(m.logEntries, &stored)
	return nil
}

func (m *memStore) CountSince(ctx context.Context, studentID int64, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, entry := range m.logEntries {
		if entry.StudentID == studentID && !entry.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

// UserStore

func (m *memStore) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (m *memStore) UpdateEnquiryStats(ctx context.Context, id int64, count int, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.FakeEnquiryCount = count
	user.LastFakeEnquiryDate = &at
	return nil
}

func (m *memStore) EscalateWarning(ctx context.Context, id int64, status model.WarningStatus, count int, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.WarningStatus = status
	user.WarningIssuedAt = &at
	user.FakeEnquiryCount = count
	user.LastFakeEnquiryDate = &at
	return nil
}

func (m *memStore) FlagAccount(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.AccountStatus = model.AccountStatusFlagged
	return nil
}

func (m *memStore) ResetWarnings(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.FakeEnquiryCount = 0
	user.WarningStatus = model.WarningStatusNone
	user.WarningIssuedAt = nil
	user.LastFakeEnquiryDate = nil
	user.AccountStatus = model.AccountStatusActive
	return nil
}

func (m *memStore) ListFaculty(ctx context.Context, ids []int64) ([]*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.User
	for _, user := range m.users {
		if user.UserType != model.UserTypeFaculty {
			continue
		}
		if len(ids) > 0 {
			found := false
			for _, id := range ids {
				if id == user.ID {
					found = true
					break
				}
			}
			if !found {
				continue
			}
		}
		copied := *user
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// CounterStore

func (m *memStore) GetCounterByID(ctx context.Context, id int64) (*model.Counter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counter, ok := m.counters[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *counter
	return &copied, nil
}

func (m *memStore) ListActive(ctx context.Context) ([]*model.Counter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Counter
	for _, counter := range m.counters {
		if counter.IsActive {
			copied := *counter
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

// Notifier

func (m *memStore) Emit(ctx context.Context, userID int64, kind model.NotificationKind, title, message string, refs model.RelatedRefs) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentNotification{UserID: userID, Kind: kind, Title: title, Message: message, Refs: refs})
	return nil
}

// Interface adapters: the booking, user, counter and emergency stores share
// method names with the slot store, so thin wrappers disambiguate them.

type bookingStoreAdapter struct{ *memStore }

func (a bookingStoreAdapter) GetByID(ctx context.Context, id int64) (*model.Booking, error) {
	return a.GetBookingByID(ctx, id)
}

type emergencyStoreAdapter struct{ *memStore }

func (a emergencyStoreAdapter) Create(ctx context.Context, req *model.EmergencyRequest) error {
	return a.CreateEmergency(ctx, req)
}

func (a emergencyStoreAdapter) GetByID(ctx context.Context, id int64) (*model.EmergencyRequest, error) {
	return a.GetEmergencyByID(ctx, id)
}

func (a emergencyStoreAdapter) ListByStudent(ctx context.Context, studentID int64) ([]*model.EmergencyRequest, error) {
	return a.ListEmergenciesByStudent(ctx, studentID)
}

type userStoreAdapter struct{ *memStore }

func (a userStoreAdapter) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return a.GetUserByID(ctx, id)
}

type counterStoreAdapter struct{ *memStore }

func (a counterStoreAdapter) GetByID(ctx context.Context, id int64) (*model.Counter, error) {
	return a.GetCounterByID(ctx, id)
}

// fixture wires the full service layer over one memStore.
type fixture struct {
	store       *memStore
	clock       *fakeClock
	slots       *SlotService
	bookings    *BookingService
	emergencies *EmergencyService
	enquiries   *EnquiryService
}

const (
	testCapacity  = 10
	testThreshold = 3
	testWindow    = 24 * time.Hour
)

func newFixture() *fixture {
	clk := newFakeClock(time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC))
	store := newMemStore(clk)
	logger := zap.NewNop()

	enquiries := NewEnquiryService(store, userStoreAdapter{store}, store, clk, testThreshold, testWindow, logger)
	slots := NewSlotService(store, counterStoreAdapter{store}, clk, testCapacity, logger)
	bookings := NewBookingService(store, bookingStoreAdapter{store}, counterStoreAdapter{store},
		userStoreAdapter{store}, enquiries, store, clk, logger)
	emergencies := NewEmergencyService(emergencyStoreAdapter{store}, store, bookingStoreAdapter{store},
		counterStoreAdapter{store}, userStoreAdapter{store}, store, clk, testCapacity, logger)

	return &fixture{
		store:       store,
		clock:       clk,
		slots:       slots,
		bookings:    bookings,
		emergencies: emergencies,
		enquiries:   enquiries,
	}
}

func (f *fixture) student(name string) *model.User {
	return f.store.addUser(&model.User{FullName: name, UserType: model.UserTypeStudent})
}

func (f *fixture) faculty(name string) *model.User {
	return f.store.addUser(&model.User{FullName: name, UserType: model.UserTypeFaculty})
}

func (f *fixture) parentOf(name string, student *model.User) *model.User {
	return f.store.addUser(&model.User{
		FullName:        name,
		UserType:        model.UserTypeParent,
		LinkedStudentID: &student.ID,
	})
}

func (f *fixture) counter(name string) *model.Counter {
	return f.store.addCounter(&model.Counter{Name: name, Number: int(f.store.nextID) + 1, IsActive: true})
}

func (f *fixture) slotToday(counter *model.Counter, start, end string) *model.Slot {
	return f.store.addSlot(&model.Slot{
		CounterID:   counter.ID,
		SlotDate:    f.clock.TodayStart(),
		StartTime:   start,
		EndTime:     end,
		MaxCapacity: testCapacity,
		IsActive:    true,
	})
}
