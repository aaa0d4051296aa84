package apperrors

import "errors"

// Ledger errors are returned by the journal package when the ledger file
// cannot be used or a row constraint is violated.
var (
	// ErrTradeNotFound indicates that no ledger row carries the given ID.
	ErrTradeNotFound = errors.New("trade not found")

	// ErrDuplicateID indicates that a row with the same ID already exists.
	ErrDuplicateID = errors.New("duplicate trade id")

	ErrLedgerRead  = errors.New("failed to read ledger")
	ErrLedgerWrite = errors.New("failed to write ledger")
)

// Trade validation errors.
var (
	// ErrInvalidTrade indicates that a draft or patch is missing required fields.
	ErrInvalidTrade = errors.New("invalid trade")

	ErrEmptyID = errors.New("ID cannot be empty")
)

// Filesystem and maintenance errors.
var (
	// ErrFolderCreate indicates that a trade folder or one of its parents
	// could not be created.
	ErrFolderCreate = errors.New("failed to create trade folder")

	// ErrBackupFailed is returned before any mutating migration or repair
	// step runs; nothing has been changed when it is seen.
	ErrBackupFailed = errors.New("backup failed")

	ErrNotFound = errors.New("path not found")
)

// Note errors.
var (
	ErrInvalidFrontmatter = errors.New("invalid frontmatter")
	ErrUnknownNoteType    = errors.New("unknown note type")
)
