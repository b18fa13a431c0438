package errors

import "fmt"

// DBError is the base type for store-level failures. Op names the store
// operation (e.g. "export_record.create").
type DBError struct {
	Op      string
	Message string
	cause   error
}

func NewDBError(op, message string) *DBError {
	return &DBError{Op: op, Message: message}
}

func NewDBInternalError(op string, cause error) *DBError {
	return &DBError{Op: op, Message: "internal database error", cause: cause}
}

func (e *DBError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("store: %s: %s: %v", e.Op, e.Message, e.cause)
	}
	return fmt.Sprintf("store: %s: %s", e.Op, e.Message)
}

func (e *DBError) Unwrap() error { return e.cause }

type DBNotFoundError struct {
	DBError
}

func NewDBNotFoundError(op, message string) *DBNotFoundError {
	return &DBNotFoundError{DBError: *NewDBError(op, message)}
}

type DBUniqueViolationError struct {
	DBError
	Column string
}

type DBForeignKeyViolationError struct {
	DBError
	ForeignKeyTable string
}
