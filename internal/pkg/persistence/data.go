package persistence

import "time"

type (

	//Run table - one bulk import run
	Run struct {
		ID        string
		Names     []string
		Generate  bool
		Email     string
		Status    string
		Processed int
		Succeeded int
		Failed    int
		Created   time.Time
		Updated   time.Time
	}

	//RunEntry table - one ordered log line of a run
	RunEntry struct {
		RunID   string
		Seq     int
		Level   string
		Message string
		Created time.Time
	}
)
