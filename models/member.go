package models

import (
	"time"
)

const MemberTable = "usuarios"

// Member is a library user. RegisteredAt is set once on insert and never
// written again by updates.
type Member struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name         string    `gorm:"column:nombre;size:100;not null" json:"name"`
	Email        string    `gorm:"column:email;size:150;uniqueIndex:idx_usuarios_email;not null" json:"email"`
	Phone        string    `gorm:"column:telefono;size:20" json:"phone"`
	RegisteredAt time.Time `gorm:"column:fecha_registro;type:date;not null;<-:create" json:"registeredAt"`
}

func (Member) TableName() string {
	return MemberTable
}
