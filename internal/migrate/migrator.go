// Package migrate upgrades record payloads from older schema versions
// to the current one. Each step is a pure function over the decrypted
// JSON document; steps compose until the payload reaches
// CurrentVersion. Migrations never drop user-entered data: fields with
// no mapping in the new layout are parked in the entry's legacy bag.
package migrate

import (
	"fmt"
)

// CurrentVersion is the schema version written by the repository.
//
// Version history:
//
//	0: flat document — severity, timestamp, symptoms/locations as bare
//	   string lists, meds as bare string list, note as plain string
//	1: typed tag set {category, value}, interventions as sub-records,
//	   tri-state note
//	2: sleep/stress moved from the loose "meta" map into a typed
//	   context sub-record
const CurrentVersion = 2

// Step upgrades a payload from From to From+1.
type Step struct {
	From        int
	Description string
	Apply       func(payload []byte) ([]byte, error)
}

// FailedError reports a migration step that errored. The original
// record is left untouched in the store; the read that triggered the
// migration surfaces this error instead of guessed-at data.
type FailedError struct {
	FromVersion int
	Err         error
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("migrate: step from version %d failed: %v", e.FromVersion, e.Err)
}

func (e *FailedError) Unwrap() error { return e.Err }

// Migrator composes registered steps to bring payloads current.
type Migrator struct {
	steps map[int]Step
}

// New returns a Migrator with the built-in steps registered.
func New() *Migrator {
	m := &Migrator{steps: make(map[int]Step)}
	for _, s := range builtinSteps() {
		m.steps[s.From] = s
	}
	return m
}

// Migrate upgrades payload from the given version to CurrentVersion,
// applying one step at a time. Migrating an already-current payload is
// a no-op. Unknown versions (gaps or futures) fail without touching
// the payload.
func (m *Migrator) Migrate(payload []byte, from int) ([]byte, int, error) {
	if from == CurrentVersion {
		return payload, from, nil
	}
	if from > CurrentVersion {
		return nil, from, &FailedError{
			FromVersion: from,
			Err:         fmt.Errorf("version %d is newer than current %d", from, CurrentVersion),
		}
	}

	current := payload
	for v := from; v < CurrentVersion; v++ {
		step, ok := m.steps[v]
		if !ok {
			return nil, v, &FailedError{
				FromVersion: v,
				Err:         fmt.Errorf("no step registered for version %d", v),
			}
		}
		next, err := step.Apply(current)
		if err != nil {
			return nil, v, &FailedError{FromVersion: v, Err: err}
		}
		current = next
	}
	return current, CurrentVersion, nil
}

// NeedsMigration reports whether a record at the given version is
// behind the current schema.
func (m *Migrator) NeedsMigration(version int) bool {
	return version < CurrentVersion
}
