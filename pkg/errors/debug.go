package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// StoreDump is the log-only view of an error chain. Store fields are filled
// from whichever driver produced the innermost database error.
type StoreDump struct {
	Message    string
	Code       Code
	Retryable  bool
	Chain      []string
	Driver     string
	StoreCode  string
	Constraint string
	Table      string
	Detail     string
}

// Dump walks err for logging. It never feeds client responses.
func Dump(err error) StoreDump {
	if err == nil {
		return StoreDump{}
	}
	d := StoreDump{Message: err.Error()}
	if typed := As(err); typed != nil {
		d.Code = typed.Code()
		d.Retryable = MetadataFor(typed.Code()).Retryable
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T", e))
	}

	var pgxErr *pgconn.PgError
	var pqErr *pq.Error
	var liteErr sqlite3.Error
	switch {
	case errors.As(err, &pgxErr):
		d.Driver = "pgx"
		d.StoreCode = pgxErr.Code
		d.Constraint = pgxErr.ConstraintName
		d.Table = pgxErr.TableName
		d.Detail = pgxErr.Detail
	case errors.As(err, &pqErr):
		d.Driver = "pq"
		d.StoreCode = string(pqErr.Code)
		d.Constraint = pqErr.Constraint
		d.Table = pqErr.Table
		d.Detail = pqErr.Detail
	case errors.As(err, &liteErr):
		d.Driver = "sqlite"
		d.StoreCode = liteErr.ExtendedCode.Error()
		d.Detail = liteErr.Error()
	}
	return d
}

// Fields renders the dump as logger fields, omitting empty store details.
func (d StoreDump) Fields() map[string]any {
	fields := map[string]any{
		"error":       d.Message,
		"error_chain": d.Chain,
	}
	if d.Code != "" {
		fields["error_code"] = d.Code
		fields["retryable"] = d.Retryable
	}
	if d.Driver != "" {
		fields["store_driver"] = d.Driver
		fields["store_code"] = d.StoreCode
		fields["store_constraint"] = d.Constraint
		fields["store_table"] = d.Table
		fields["store_detail"] = d.Detail
	}
	return fields
}
