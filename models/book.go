package models

const BookTable = "libros"

type Book struct {
	ID     int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Title  string `gorm:"column:titulo;size:200;not null" json:"title"`
	Author string `gorm:"column:autor;size:150;not null" json:"author"`
	ISBN   string `gorm:"column:isbn;size:20;uniqueIndex:idx_libros_isbn;not null" json:"isbn"`
	Genre  string `gorm:"column:genero;size:50" json:"genre"`
	// 0 means unknown
	PublicationYear int `gorm:"column:año_publicacion" json:"publicationYear,omitempty"`
	// Available is derived state: false iff an ACTIVO/VENCIDO loan references the book.
	Available bool `gorm:"column:disponible;not null;default:true" json:"available"`
}

func (Book) TableName() string { return BookTable }
