// internal/config/validator.go
//
// Thin wrapper around go-playground/validator.
//
// Context
// -------
// `internal/config/loader.go` calls `validateStruct` immediately after it
// unmarshals the merged Koanf tree into a `Config` instance.  Any tag
// mismatch aborts startup, ensuring the binary never runs with partial,
// malformed, or missing configuration.
//
// Beyond struct tags we register one custom rule, `dsn`, which checks that
// `database.dsn` parses as a go-sql-driver/mysql DSN.

package config

import (
	"github.com/go-playground/validator/v10"
	"github.com/go-sql-driver/mysql"
)

//
// validator instance (package-level singleton)
//

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New()
	if err := val.RegisterValidation("dsn", func(fl validator.FieldLevel) bool {
		_, err := mysql.ParseDSN(fl.Field().String())
		return err == nil
	}); err != nil {
		panic(err)
	}
	if err := val.RegisterValidation("secretref", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if !IsSecretRef(s) {
			return true
		}
		_, _, err := ParseSecretRef(s)
		return err == nil
	}); err != nil {
		panic(err)
	}
	return val
}

//
// public API
//

// validateStruct returns the first validation error, or nil on success.
func validateStruct(c *Config) error {
	return v.Struct(c)
}
