package database

import "errors"

// ErrInvalidDSN indicates a store location that cannot be mapped to a driver.
var ErrInvalidDSN = errors.New("database: invalid dsn")
