package store

import "fmt"

// Backend kinds accepted by OpenBackend.
const (
	KindSQLite = "sqlite"
	KindBadger = "badger"
	KindMemory = "memory"
)

// OpenBackend opens the backend named by kind at path.
// path is a file for sqlite, a directory for badger, and ignored for memory.
func OpenBackend(kind, path string) (Backend, error) {
	switch kind {
	case KindSQLite, "":
		if path == "" {
			return nil, fmt.Errorf("sqlite backend requires a database path")
		}
		s, err := Open(path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case KindBadger:
		s, err := OpenBadger(path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case KindMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown backend %q: must be one of %s, %s, %s", kind, KindSQLite, KindBadger, KindMemory)
	}
}
