// Package memstore keeps the lending data in process memory. Units of work
// are serialized behind one mutex and run against a copy of the state that
// replaces the live state only when the unit succeeds.
package memstore

import (
	"context"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"rfid_locker_lending/lending"
	"rfid_locker_lending/models"
)

type state struct {
	users        map[string]models.User
	equipment    map[string]models.Equipment
	lockers      map[string]models.Locker
	transactions map[string]models.Transaction
	accessLogs   []models.AccessLog
}

func (s *state) clone() *state {
	return &state{
		users:        maps.Clone(s.users),
		equipment:    maps.Clone(s.equipment),
		lockers:      maps.Clone(s.lockers),
		transactions: maps.Clone(s.transactions),
		accessLogs:   s.accessLogs,
	}
}

type Store struct {
	mu sync.Mutex
	st *state
}

func New() *Store {
	return &Store{st: &state{
		users:        map[string]models.User{},
		equipment:    map[string]models.Equipment{},
		lockers:      map[string]models.Locker{},
		transactions: map[string]models.Transaction{},
	}}
}

func (s *Store) InTx(ctx context.Context, fn func(tx lending.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()
	if err := fn(&unit{st: work}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.st = work
	return nil
}

func (s *Store) read() (*state, func()) {
	s.mu.Lock()
	return s.st, s.mu.Unlock
}

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Store) UserByCard(_ context.Context, cardID string) (*models.User, error) {
	st, done := s.read()
	defer done()
	return st.userByCard(cardID)
}

func (st *state) userByCard(cardID string) (*models.User, error) {
	for _, u := range st.users {
		if u.RFIDUID != nil && *u.RFIDUID == cardID {
			return &u, nil
		}
	}
	return nil, lending.ErrNoRows
}

func (s *Store) ListTransactions(_ context.Context, f models.TransactionFilter) ([]models.TransactionView, error) {
	st, done := s.read()
	defer done()

	var rows []models.TransactionView
	for _, t := range st.transactions {
		if f.UserID != "" && t.UserID != f.UserID {
			continue
		}
		if len(f.Statuses) > 0 && !hasStatus(f.Statuses, t.Status) {
			continue
		}
		rows = append(rows, st.view(t))
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].CreatedAt.After(rows[j].CreatedAt)
	})
	if f.Limit > 0 && len(rows) > f.Limit {
		rows = rows[:f.Limit]
	}
	return rows, nil
}

func hasStatus(list []models.TxStatus, s models.TxStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (st *state) view(t models.Transaction) models.TransactionView {
	v := models.TransactionView{Transaction: t}
	if eq, ok := st.equipment[t.EquipmentID]; ok {
		v.EquipmentName = eq.Name
	}
	if u, ok := st.users[t.UserID]; ok {
		v.UserName = u.Name
		v.SitID = u.SitID
	}
	if t.LockerID != nil {
		if l, ok := st.lockers[*t.LockerID]; ok {
			n := l.CompartmentNumber
			v.CompartmentNumber = &n
		}
	}
	return v
}

func (s *Store) ExpiredPickups(_ context.Context, now, createdBefore time.Time, limit int) ([]string, error) {
	st, done := s.read()
	defer done()

	var hits []models.Transaction
	for _, t := range st.transactions {
		if t.Status != models.StatusPendingPickup {
			continue
		}
		if t.Overdue(now) || (!createdBefore.IsZero() && t.CreatedAt.Before(createdBefore)) {
			hits = append(hits, t)
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].CreatedAt.Before(hits[j].CreatedAt) })
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	ids := make([]string, 0, len(hits))
	for _, t := range hits {
		ids = append(ids, t.ID)
	}
	return ids, nil
}

func (s *Store) LogAccess(_ context.Context, entry *models.AccessLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.accessLogs = append(s.st.accessLogs, *entry)
	return nil
}

func (s *Store) ListAccessLogs(_ context.Context, lockerID string, limit int) ([]models.AccessLog, error) {
	st, done := s.read()
	defer done()

	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var out []models.AccessLog
	for i := len(st.accessLogs) - 1; i >= 0 && len(out) < limit; i-- {
		if lockerID == "" || st.accessLogs[i].LockerID == lockerID {
			out = append(out, st.accessLogs[i])
		}
	}
	return out, nil
}

// Users

func (s *Store) FindUserByID(_ context.Context, id string) (*models.User, error) {
	st, done := s.read()
	defer done()
	if u, ok := st.users[id]; ok {
		return &u, nil
	}
	return nil, lending.ErrNoRows
}

func (s *Store) FindUserBySitID(_ context.Context, sitID string) (*models.User, error) {
	st, done := s.read()
	defer done()
	for _, u := range st.users {
		if u.SitID == sitID {
			return &u, nil
		}
	}
	return nil, lending.ErrNoRows
}

func (s *Store) ListUsers(_ context.Context, q string, page, size int) (models.UserPage, error) {
	st, done := s.read()
	defer done()

	if page <= 0 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	q = strings.ToLower(strings.TrimSpace(q))

	var all []models.User
	for _, u := range st.users {
		if q == "" ||
			strings.Contains(strings.ToLower(u.Name), q) ||
			strings.Contains(strings.ToLower(u.Email), q) ||
			strings.Contains(u.SitID, q) {
			all = append(all, u)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	out := models.UserPage{Users: []models.User{}, Total: int64(len(all))}
	start := (page - 1) * size
	if start < len(all) {
		out.Users = all[start:min(start+size, len(all))]
	}
	return out, nil
}

func (s *Store) CreateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, other := range s.st.users {
		if other.ID == u.ID || other.SitID == u.SitID || strings.EqualFold(other.Email, u.Email) ||
			(u.RFIDUID != nil && other.RFIDUID != nil && *other.RFIDUID == *u.RFIDUID) {
			return lending.ErrDuplicate
		}
	}
	stamp(&u.CreatedAt, &u.UpdatedAt)
	s.st.users[u.ID] = *u
	return nil
}

func (s *Store) SetUserCard(_ context.Context, userID string, card *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.st.users[userID]
	if !ok {
		return lending.ErrNoRows
	}
	if card != nil {
		for id, other := range s.st.users {
			if id != userID && other.RFIDUID != nil && *other.RFIDUID == *card {
				return lending.ErrDuplicate
			}
		}
	}
	u.RFIDUID = card
	u.UpdatedAt = time.Now()
	s.st.users[userID] = u
	return nil
}

// Equipment

func (s *Store) CreateEquipment(_ context.Context, eq *models.Equipment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.st.equipment[eq.ID]; ok {
		return lending.ErrDuplicate
	}
	stamp(&eq.CreatedAt, &eq.UpdatedAt)
	s.st.equipment[eq.ID] = *eq
	return nil
}

func (s *Store) FindEquipment(_ context.Context, id string) (*models.Equipment, error) {
	st, done := s.read()
	defer done()
	if eq, ok := st.equipment[id]; ok {
		return &eq, nil
	}
	return nil, lending.ErrNoRows
}

func (s *Store) ListEquipment(_ context.Context) ([]models.Equipment, error) {
	st, done := s.read()
	defer done()

	out := make([]models.Equipment, 0, len(st.equipment))
	for _, eq := range st.equipment {
		out = append(out, eq)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Lockers

func (st *state) lockerView(l models.Locker) models.LockerView {
	v := models.LockerView{Locker: l}
	if l.CurrentEquipmentID != nil {
		if eq, ok := st.equipment[*l.CurrentEquipmentID]; ok {
			name, category := eq.Name, eq.Category
			v.EquipmentName = &name
			v.EquipmentCategory = &category
		}
	}
	return v
}

func (s *Store) ListLockers(_ context.Context, onlyAvailable bool) ([]models.LockerView, error) {
	st, done := s.read()
	defer done()

	out := make([]models.LockerView, 0, len(st.lockers))
	for _, l := range st.lockers {
		if onlyAvailable && l.Status != models.LockerAvailable {
			continue
		}
		out = append(out, st.lockerView(l))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CompartmentNumber < out[j].CompartmentNumber })
	return out, nil
}

func (s *Store) FindLockerByCompartment(_ context.Context, compartment int) (*models.LockerView, error) {
	st, done := s.read()
	defer done()
	for _, l := range st.lockers {
		if l.CompartmentNumber == compartment {
			v := st.lockerView(l)
			return &v, nil
		}
	}
	return nil, lending.ErrNoRows
}

func (s *Store) CountLockers(_ context.Context) (int64, error) {
	st, done := s.read()
	defer done()
	return int64(len(st.lockers)), nil
}

func (s *Store) CreateLockers(_ context.Context, lockers []models.Locker) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	taken := map[int]bool{}
	for _, l := range s.st.lockers {
		taken[l.CompartmentNumber] = true
	}
	for _, l := range lockers {
		if _, ok := s.st.lockers[l.ID]; ok || taken[l.CompartmentNumber] {
			return lending.ErrDuplicate
		}
		taken[l.CompartmentNumber] = true
	}
	for _, l := range lockers {
		if l.Status == "" {
			l.Status = models.LockerAvailable
		}
		stamp(&l.CreatedAt, &l.UpdatedAt)
		s.st.lockers[l.ID] = l
	}
	return nil
}

// Snapshot reads, for assertions.

func (s *Store) Equipment(id string) (models.Equipment, bool) {
	st, done := s.read()
	defer done()
	eq, ok := st.equipment[id]
	return eq, ok
}

func (s *Store) Locker(id string) (models.Locker, bool) {
	st, done := s.read()
	defer done()
	l, ok := st.lockers[id]
	return l, ok
}

func (s *Store) Transaction(id string) (models.Transaction, bool) {
	st, done := s.read()
	defer done()
	t, ok := st.transactions[id]
	return t, ok
}

func (s *Store) Transactions() []models.Transaction {
	st, done := s.read()
	defer done()
	out := make([]models.Transaction, 0, len(st.transactions))
	for _, t := range st.transactions {
		out = append(out, t)
	}
	return out
}

func (s *Store) AccessLogs() []models.AccessLog {
	st, done := s.read()
	defer done()
	return append([]models.AccessLog(nil), st.accessLogs...)
}

func stamp(created, updated *time.Time) {
	now := time.Now().UTC()
	if created.IsZero() {
		*created = now
	}
	if updated.IsZero() {
		*updated = now
	}
}
