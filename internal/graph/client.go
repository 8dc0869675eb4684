package graph

import (
	"context"
	"errors"
)

// Client defines the contract the service layer needs from a live graph
// database connection, regardless of flavor.
type Client interface {
	Flavor() Flavor
	Execute(ctx context.Context, query string, params ...any) (Result, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Result is the decoded response of a single statement.
type Result struct {
	Command  string   `json:"command"`
	RowCount int64    `json:"rowCount"`
	Columns  []string `json:"columns"`
	Rows     []Record `json:"rows"`
}

// Record maps column names to decoded values.
type Record map[string]any

var (
	// ErrFlavorRequired indicates the connection info carries no flavor.
	ErrFlavorRequired = errors.New("flavor is required")

	// ErrInvalidConnection wraps every validation failure of ConnectionInfo.
	ErrInvalidConnection = errors.New("invalid connection info")

	// ErrNotConnected indicates there is no usable connection.
	ErrNotConnected = errors.New("not connected")
)
