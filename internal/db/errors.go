package db

import "errors"

// Domain-level database error sentinels.
var (
	// Project errors
	ErrProjectNotFound = errors.New("project not found")

	// Keyword errors
	ErrDuplicateKeyword = errors.New("keyword already tracked for this project")

	// Aggregation window errors
	ErrWindowNotFound = errors.New("aggregation window not found")
)

// uniqueViolation is the Postgres SQLSTATE for unique constraint violations.
const uniqueViolation = "23505"
