// Package database provides the data access layer for the application.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go      # Connection setup, migrations, category seeding
//	├── cascade.go       # Transactional cascade deletes shared by repositories
//	├── users/           # Users, follow edges, account deletion
//	├── books/           # Book CRUD and enrichment bookkeeping
//	├── threads/         # Threads and likes
//	├── comments/        # Comments on threads
//	└── categories/      # Book categories
//
// # Using Sub-packages
//
//	db, err := database.NewDatabase("./bookclub.db")
//	booksRepo := books.NewRepository(db.DB)
//	book, err := booksRepo.GetByID(123)
//
// Repositories return coded errors from internal/errors for missing rows so
// HTTP handlers can map them to status codes without knowing about gorm.
//
// # Adding a New Domain
//
//  1. Create a new sub-package: internal/database/<domain>/
//  2. Define a Repository struct with a *gorm.DB field
//  3. Add NewRepository(db *gorm.DB) constructor
//  4. Add compile-time interface check against the consumer's store interface
package database
