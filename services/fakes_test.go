package services

import (
	"context"
	"errors"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"Gin_postgres_redis_library/db"
	"Gin_postgres_redis_library/models"

	"gorm.io/gorm"
)

// table is an in-memory stand-in for one SQL table keyed by id.
type table[T any] struct {
	rows map[int64]T
	next int64
	id   func(*T) *int64
}

func newTable[T any](id func(*T) *int64) *table[T] {
	return &table[T]{rows: map[int64]T{}, id: id}
}

func (t *table[T]) Save(_ *gorm.DB, v *T) error {
	t.next++
	*t.id(v) = t.next
	t.rows[t.next] = *v
	return nil
}

func (t *table[T]) FindByID(_ *gorm.DB, id int64) (*T, error) {
	v, ok := t.rows[id]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (t *table[T]) FindAll(_ *gorm.DB) ([]T, error) {
	return t.where(func(T) bool { return true }), nil
}

func (t *table[T]) Update(_ *gorm.DB, v *T) error {
	id := *t.id(v)
	if _, ok := t.rows[id]; !ok {
		return db.ErrNoRows
	}
	t.rows[id] = *v
	return nil
}

func (t *table[T]) DeleteByID(_ *gorm.DB, id int64) error {
	if _, ok := t.rows[id]; !ok {
		return db.ErrNoRows
	}
	delete(t.rows, id)
	return nil
}

func (t *table[T]) ExistsByID(_ *gorm.DB, id int64) (bool, error) {
	_, ok := t.rows[id]
	return ok, nil
}

func (t *table[T]) where(pred func(T) bool) []T {
	ids := make([]int64, 0, len(t.rows))
	for id := range t.rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	var out []T
	for _, id := range ids {
		if v := t.rows[id]; pred(v) {
			out = append(out, v)
		}
	}
	return out
}

func (t *table[T]) first(pred func(T) bool) *T {
	if all := t.where(pred); len(all) > 0 {
		return &all[0]
	}
	return nil
}

type fakeMembers struct{ *table[models.Member] }

func (f fakeMembers) Save(tx *gorm.DB, m *models.Member) error {
	if f.first(func(o models.Member) bool { return o.Email == m.Email }) != nil {
		return &db.ConstraintError{Constraint: db.ConstraintMemberEmail, Err: errors.New("duplicate key")}
	}
	return f.table.Save(tx, m)
}

func (f fakeMembers) Update(tx *gorm.DB, m *models.Member) error {
	// registration date is insert-only
	if old, ok := f.rows[m.ID]; ok {
		m.RegisteredAt = old.RegisteredAt
	}
	return f.table.Update(tx, m)
}

func (f fakeMembers) FindByEmail(_ *gorm.DB, email string) (*models.Member, error) {
	return f.first(func(m models.Member) bool { return m.Email == email }), nil
}

func (f fakeMembers) ExistsByEmail(tx *gorm.DB, email string) (bool, error) {
	m, _ := f.FindByEmail(tx, email)
	return m != nil, nil
}

func (f fakeMembers) FindByName(_ *gorm.DB, fragment string) ([]models.Member, error) {
	return f.where(func(m models.Member) bool { return containsFold(m.Name, fragment) }), nil
}

func (f fakeMembers) FindByIDForShare(tx *gorm.DB, id int64) (*models.Member, error) {
	return f.FindByID(tx, id)
}

func (f fakeMembers) FindByIDForUpdate(tx *gorm.DB, id int64) (*models.Member, error) {
	return f.FindByID(tx, id)
}

type fakeBooks struct {
	*table[models.Book]
	loans *table[models.Loan]
}

func (f fakeBooks) Save(tx *gorm.DB, b *models.Book) error {
	if f.first(func(o models.Book) bool { return o.ISBN == b.ISBN }) != nil {
		return &db.ConstraintError{Constraint: db.ConstraintBookISBN, Err: errors.New("duplicate key")}
	}
	return f.table.Save(tx, b)
}

func (f fakeBooks) FindByISBN(_ *gorm.DB, isbn string) (*models.Book, error) {
	return f.first(func(b models.Book) bool { return b.ISBN == isbn }), nil
}

func (f fakeBooks) ExistsByISBN(tx *gorm.DB, isbn string) (bool, error) {
	b, _ := f.FindByISBN(tx, isbn)
	return b != nil, nil
}

func (f fakeBooks) FindByTitle(_ *gorm.DB, fragment string) ([]models.Book, error) {
	return f.where(func(b models.Book) bool { return containsFold(b.Title, fragment) }), nil
}

func (f fakeBooks) FindByAuthor(_ *gorm.DB, fragment string) ([]models.Book, error) {
	return f.where(func(b models.Book) bool { return containsFold(b.Author, fragment) }), nil
}

func (f fakeBooks) FindByGenre(_ *gorm.DB, genre string) ([]models.Book, error) {
	return f.where(func(b models.Book) bool { return containsFold(b.Genre, genre) }), nil
}

func (f fakeBooks) FindAvailable(_ *gorm.DB) ([]models.Book, error) {
	return f.where(func(b models.Book) bool { return b.Available }), nil
}

func (f fakeBooks) FindByIDForUpdate(tx *gorm.DB, id int64) (*models.Book, error) {
	return f.FindByID(tx, id)
}

func (f fakeBooks) UpdateAvailability(_ *gorm.DB, id int64, available bool) error {
	b, ok := f.rows[id]
	if !ok {
		return db.ErrNoRows
	}
	b.Available = available
	f.rows[id] = b
	return nil
}

func (f fakeBooks) ReconcileAvailability(_ *gorm.DB) (int64, error) {
	var n int64
	for id, b := range f.rows {
		want := f.loans.first(func(l models.Loan) bool { return l.BookID == id && l.State.Open() }) == nil
		if b.Available != want {
			b.Available = want
			f.rows[id] = b
			n++
		}
	}
	return n, nil
}

type fakeLoans struct {
	*table[models.Loan]
	saveErr error
}

func (f *fakeLoans) Save(tx *gorm.DB, l *models.Loan) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	if f.first(func(o models.Loan) bool { return o.BookID == l.BookID && o.State.Open() }) != nil {
		return &db.ConstraintError{Constraint: db.ConstraintOneOpenLoan, Err: errors.New("duplicate key")}
	}
	return f.table.Save(tx, l)
}

func (f *fakeLoans) FindByMember(_ *gorm.DB, memberID int64) ([]models.Loan, error) {
	return f.where(func(l models.Loan) bool { return l.MemberID == memberID }), nil
}

func (f *fakeLoans) FindByBook(_ *gorm.DB, bookID int64) ([]models.Loan, error) {
	return f.where(func(l models.Loan) bool { return l.BookID == bookID }), nil
}

func (f *fakeLoans) FindByState(_ *gorm.DB, state models.LoanState) ([]models.Loan, error) {
	return f.where(func(l models.Loan) bool { return l.State == state }), nil
}

func (f *fakeLoans) FindActive(tx *gorm.DB) ([]models.Loan, error) {
	return f.FindByState(tx, models.LoanActive)
}

func (f *fakeLoans) FindOverdue(_ *gorm.DB, today time.Time) ([]models.Loan, error) {
	return f.where(func(l models.Loan) bool {
		return l.State == models.LoanOverdue || l.OverdueOn(today)
	}), nil
}

func (f *fakeLoans) FindOpenByMember(_ *gorm.DB, memberID int64) ([]models.Loan, error) {
	return f.where(func(l models.Loan) bool { return l.MemberID == memberID && l.State.Open() }), nil
}

func (f *fakeLoans) FindOpenByBook(_ *gorm.DB, bookID int64) (*models.Loan, error) {
	return f.first(func(l models.Loan) bool { return l.BookID == bookID && l.State.Open() }), nil
}

func (f *fakeLoans) CountOpenByMember(tx *gorm.DB, memberID int64) (int64, error) {
	ls, _ := f.FindOpenByMember(tx, memberID)
	return int64(len(ls)), nil
}

func (f *fakeLoans) CountOpenByBook(_ *gorm.DB, bookID int64) (int64, error) {
	return int64(len(f.where(func(l models.Loan) bool { return l.BookID == bookID && l.State.Open() }))), nil
}

func (f *fakeLoans) FindByIDForUpdate(tx *gorm.DB, id int64) (*models.Loan, error) {
	return f.FindByID(tx, id)
}

func (f *fakeLoans) FindWithDetails(tx *gorm.DB) ([]models.Loan, error) {
	return f.FindAll(tx)
}

func (f *fakeLoans) MarkOverdue(_ *gorm.DB, today time.Time) (int64, error) {
	var n int64
	for id, l := range f.rows {
		if l.OverdueOn(today) {
			l.State = models.LoanOverdue
			f.rows[id] = l
			n++
		}
	}
	return n, nil
}

// store bundles the fake tables with a transactor that restores every table
// when a unit fails.
type store struct {
	mu        sync.Mutex
	members   fakeMembers
	books     fakeBooks
	loans     *fakeLoans
	commits   int
	rollbacks int
}

func newStore() *store {
	loans := newTable(func(l *models.Loan) *int64 { return &l.ID })
	return &store{
		members: fakeMembers{newTable(func(m *models.Member) *int64 { return &m.ID })},
		books:   fakeBooks{table: newTable(func(b *models.Book) *int64 { return &b.ID }), loans: loans},
		loans:   &fakeLoans{table: loans},
	}
}

func (s *store) snapshot() (map[int64]models.Member, map[int64]models.Book, map[int64]models.Loan, [3]int64) {
	return maps.Clone(s.members.rows), maps.Clone(s.books.rows), maps.Clone(s.loans.rows),
		[3]int64{s.members.next, s.books.next, s.loans.next}
}

func (s *store) WithinTx(_ context.Context, fn func(tx *gorm.DB) error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, b, l, nexts := s.snapshot()
	restore := func() {
		s.members.rows, s.books.rows, s.loans.rows = m, b, l
		s.members.next, s.books.next, s.loans.next = nexts[0], nexts[1], nexts[2]
		s.rollbacks++
	}
	defer func() {
		if p := recover(); p != nil {
			restore()
			panic(p)
		}
	}()

	if err = fn(nil); err != nil {
		restore()
		return err
	}
	s.commits++
	return nil
}

func (s *store) txCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commits + s.rollbacks
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
