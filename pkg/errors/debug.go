package errors

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
)

// Store error kinds recorded by Dump.
const (
	StoreKindUnique     = "unique_violation"
	StoreKindForeignKey = "foreign_key_violation"
	StoreKindCheck      = "check_violation"
	StoreKindNotFound   = "record_not_found"
)

// ErrorDump is the log-only view of an error chain. It never reaches clients.
type ErrorDump struct {
	TopMessage string `json:"top_message"`
	Code       Code   `json:"code,omitempty"`

	Chain []string `json:"chain,omitempty"`

	// StoreKind classifies persistence failures, including ones GORM has
	// already translated into its sentinels.
	StoreKind       string `json:"store_kind,omitempty"`
	StoreDriver     string `json:"store_driver,omitempty"`
	StoreCode       string `json:"store_code,omitempty"`
	StoreConstraint string `json:"store_constraint,omitempty"`
	StoreTable      string `json:"store_table,omitempty"`
	StoreDetail     string `json:"store_detail,omitempty"`
	StoreMessage    string `json:"store_message,omitempty"`
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{TopMessage: err.Error()}
	if te := As(err); te != nil {
		d.Code = te.Code()
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}

	d.StoreKind = storeKind(err)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		d.StoreDriver = "postgres"
		d.StoreCode = pgErr.Code
		d.StoreConstraint = pgErr.ConstraintName
		d.StoreTable = pgErr.TableName
		d.StoreDetail = pgErr.Detail
		d.StoreMessage = pgErr.Message
		return d
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		d.StoreDriver = "sqlite"
		d.StoreCode = strconv.Itoa(int(liteErr.ExtendedCode))
		d.StoreMessage = liteErr.Error()
		if d.StoreKind == StoreKindUnique {
			d.StoreConstraint = uniqueColumns(liteErr.Error())
		}
	}
	return d
}

func storeKind(err error) string {
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return StoreKindUnique
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return StoreKindForeignKey
	case errors.Is(err, gorm.ErrCheckConstraintViolated):
		return StoreKindCheck
	case errors.Is(err, gorm.ErrRecordNotFound):
		return StoreKindNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return StoreKindUnique
		case "23503":
			return StoreKindForeignKey
		case "23514":
			return StoreKindCheck
		}
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		switch liteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return StoreKindUnique
		case sqlite3.ErrConstraintForeignKey:
			return StoreKindForeignKey
		case sqlite3.ErrConstraintCheck:
			return StoreKindCheck
		}
	}

	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return StoreKindUnique
	}
	return ""
}

// uniqueColumns pulls "users.email" out of sqlite's
// "UNIQUE constraint failed: users.email" message.
func uniqueColumns(msg string) string {
	_, cols, ok := strings.Cut(msg, "UNIQUE constraint failed: ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(cols)
}
