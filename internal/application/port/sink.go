package port

import "time"

// Sink is where the radar's console output lands. The live line is
// overwritten in place between refreshes; blocks are multi-line table
// snapshots appended with their cycle timestamp.
type Sink interface {
	// WriteLive overwrites the current live line (no trailing newline).
	WriteLive(line string) error
	// WriteBlock appends a finished multi-line block for one cycle.
	WriteBlock(ts time.Time, block string) error
	// NewLine terminates the live line so regular log output stays intact.
	NewLine() error
}
