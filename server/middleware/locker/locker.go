// Package locker provides an HTTP middleware which allows a device's
// routes to be locked, returning 423 (locked).  A serial instrument
// cannot interleave commands from two users; locking a node gives one
// operator the line.
package locker

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/maglab/coilctl/server"
)

// Inject adds a lock route to a server.HTTPer which is used to
// manipulate the locker.
func Inject(other server.HTTPer, l *Locker) {
	other.RT()["lock"] = l.HTTPLock
}

// Locker is a type which behaves like a sync.Mutex without the
// blocking, and holds a list of route substrings to leave unprotected.
type Locker struct {
	isLocked bool

	// DoNotProtect is a list of paths not to apply the lock to
	DoNotProtect []string
}

// New returns a new Locker with DoNotProtect prepopulated with "lock"
func New() *Locker {
	return &Locker{DoNotProtect: []string{"lock"}}
}

// Lock the locker
func (l *Locker) Lock() {
	l.isLocked = true
}

// Unlock the locker
func (l *Locker) Unlock() {
	l.isLocked = false
}

// Locked returns true if the locker is locked
func (l *Locker) Locked() bool {
	return l.isLocked
}

// Check is an HTTP middleware that returns http.StatusLocked if
// Locked() is true, otherwise passes down the line.
func (l *Locker) Check(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if l.Locked() {
			protected := true
			url := r.URL.Path
			for _, str := range l.DoNotProtect {
				if strings.Contains(url, str) {
					protected = false
				}
			}
			if protected {
				w.WriteHeader(http.StatusLocked)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// HTTPLock reads the lock state on GET and sets it from json:bool on POST.
func (l *Locker) HTTPLock(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(server.BoolT{Bool: l.Locked()})
	case http.MethodPost:
		b := server.BoolT{}
		err := json.NewDecoder(r.Body).Decode(&b)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if b.Bool {
			l.Lock()
		} else {
			l.Unlock()
		}
		w.WriteHeader(http.StatusOK)
	default:
		http.Error(w, "method must be GET or POST", http.StatusMethodNotAllowed)
	}
}
