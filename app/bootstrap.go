package app

import (
	"context"
	"fmt"
	"log/slog"

	"Gin_postgres_redis_library/models"
	"Gin_postgres_redis_library/services"
)

type memberSeeder interface {
	List(ctx context.Context) ([]models.Member, error)
	Create(ctx context.Context, in services.MemberInput) (*models.Member, error)
}

type bookSeeder interface {
	Create(ctx context.Context, in services.BookInput) (*models.Book, error)
	ReconcileAvailability(ctx context.Context) (int64, error)
}

type overdueMarker interface {
	MarkOverdue(ctx context.Context) (int, error)
}

var sampleMembers = []services.MemberInput{
	{Name: "Ana García", Email: "ana.garcia@example.com", Phone: "600111222"},
	{Name: "Luis Martínez", Email: "luis.martinez@example.com", Phone: "600333444"},
	{Name: "Carmen López", Email: "carmen.lopez@example.com", Phone: "600555666"},
}

var sampleBooks = []services.BookInput{
	{Title: "Cien años de soledad", Author: "Gabriel García Márquez", ISBN: "978-0307474728", Genre: "Novela", PublicationYear: 1967},
	{Title: "Don Quijote de la Mancha", Author: "Miguel de Cervantes", ISBN: "978-8424116163", Genre: "Clásico", PublicationYear: 1605},
	{Title: "La sombra del viento", Author: "Carlos Ruiz Zafón", ISBN: "978-8408163435", Genre: "Misterio", PublicationYear: 2001},
	{Title: "Ficciones", Author: "Jorge Luis Borges", ISBN: "978-8420633121", Genre: "Cuento", PublicationYear: 1944},
}

// Bootstrap repairs derived state left by earlier runs and, when seed is
// set and no member exists yet, loads a small sample catalogue.
func Bootstrap(ctx context.Context, seed bool, members memberSeeder, books bookSeeder, loans overdueMarker) error {
	fixed, err := books.ReconcileAvailability(ctx)
	if err != nil {
		return fmt.Errorf("reconcile availability: %w", err)
	}
	if fixed > 0 {
		slog.Warn("Book availability repaired at startup", "books", fixed)
	}

	marked, err := loans.MarkOverdue(ctx)
	if err != nil {
		return fmt.Errorf("mark overdue: %w", err)
	}
	if marked > 0 {
		slog.Info("Loans marked overdue at startup", "loans", marked)
	}

	if !seed {
		return nil
	}
	existing, err := members.List(ctx)
	if err != nil {
		return fmt.Errorf("list members: %w", err)
	}
	if len(existing) > 0 {
		slog.Info("Seed skipped, members already present", "members", len(existing))
		return nil
	}

	for _, in := range sampleMembers {
		if _, err := members.Create(ctx, in); err != nil {
			return fmt.Errorf("seed member %s: %w", in.Email, err)
		}
	}
	for _, in := range sampleBooks {
		if _, err := books.Create(ctx, in); err != nil {
			return fmt.Errorf("seed book %s: %w", in.ISBN, err)
		}
	}
	slog.Info("Sample data seeded", "members", len(sampleMembers), "books", len(sampleBooks))
	return nil
}
