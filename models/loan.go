// models/loan.go
package models

import "time"

const LoanTable = "prestamos"

// LoanState values are stored verbatim in prestamos.estado.
type LoanState string

const (
	LoanActive   LoanState = "ACTIVO"
	LoanReturned LoanState = "DEVUELTO"
	LoanOverdue  LoanState = "VENCIDO"
)

// Open reports whether the loan still holds its book.
func (s LoanState) Open() bool { return s == LoanActive || s == LoanOverdue }

func (s LoanState) Valid() bool {
	switch s {
	case LoanActive, LoanReturned, LoanOverdue:
		return true
	}
	return false
}

type Loan struct {
	ID         int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	MemberID   int64      `gorm:"column:usuario_id;index;not null" json:"memberId"`
	BookID     int64      `gorm:"column:libro_id;index;not null" json:"bookId"`
	LoanDate   time.Time  `gorm:"column:fecha_prestamo;type:date;not null" json:"loanDate"`
	DueDate    time.Time  `gorm:"column:fecha_devolucion_esperada;type:date;not null" json:"dueDate"`
	ReturnedAt *time.Time `gorm:"column:fecha_devolucion_real;type:date" json:"returnedAt,omitempty"`
	State      LoanState  `gorm:"column:estado;size:20;not null;default:'ACTIVO'" json:"state"`

	// Filled only by detail queries; references are not owned by the loan.
	Member *Member `gorm:"foreignKey:MemberID" json:"member,omitempty"`
	Book   *Book   `gorm:"foreignKey:BookID" json:"book,omitempty"`
}

func (Loan) TableName() string { return LoanTable }

// OverdueOn reports whether an active loan is past its due date on day today.
func (l *Loan) OverdueOn(today time.Time) bool {
	return l.State == LoanActive && l.ReturnedAt == nil && l.DueDate.Before(DateOf(today))
}

// DateOf truncates t to its local calendar day, expressed as UTC midnight,
// which is how DATE columns come back from the driver.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
