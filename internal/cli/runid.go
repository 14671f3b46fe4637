package cli

import "github.com/google/uuid"

// NewRunID returns a fresh identifier for one CLI invocation, logged
// alongside phase transitions so multiple concurrent runs (e.g. several
// encipher processes writing to the same log file) can be told apart.
// Grounded in the DOMAIN STACK's "producer/run identifiers" entry.
func NewRunID() string {
	return uuid.New().String()
}
