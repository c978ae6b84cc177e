// Package ident produces the uuid/cell identity stamped onto every
// advertisement a process publishes.
package ident

import (
	"os"

	"github.com/google/uuid"

	"github.com/jabolina/go-fabric/internal/types"
)

const defaultCell = "localhost"

// New generates one Identity for the current process. The cell defaults
// to "localhost" but can be overridden via FABRIC_CELL, since a real
// deployment spans more than one cell.
func New() types.Identity {
	cell := os.Getenv("FABRIC_CELL")
	if cell == "" {
		cell = defaultCell
	}
	return types.Identity{
		UUID: uuid.NewString(),
		Cell: cell,
	}
}
