package container

import "fmt"

// Kind classifies a runtime failure. Kind implements error so callers can
// match with errors.Is regardless of wrapping.
type Kind int

// Failure kinds reported by the runtime core
const (
	SpecInvalid Kind = iota + 1
	NamespaceSetupFailed
	MountFailed
	ResourceLimitExceeded
	ProcessSpawnFailed
	AlreadyRunning
	NotFound
	PermissionDenied
	TeardownPartialFailure
	Conflict
	InvalidState
)

var kindString = [...]string{
	"invalid",
	"spec invalid",
	"namespace setup failed",
	"mount failed",
	"resource limit exceeded",
	"process spawn failed",
	"already running",
	"not found",
	"permission denied",
	"teardown partial failure",
	"conflict",
	"invalid state",
}

func (k Kind) String() string {
	if int(k) > 0 && int(k) < len(kindString) {
		return kindString[k]
	}
	return kindString[0]
}

func (k Kind) Error() string {
	return k.String()
}

// Error carries a failure kind together with the operation, the container
// it concerns and the underlying cause chain.
type Error struct {
	Kind Kind
	Op   string
	ID   string
	Err  error
}

func (e *Error) Error() string {
	s := e.Op
	if e.ID != "" {
		s += " " + e.ID
	}
	s += ": " + e.Kind.String()
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches a bare Kind target so errors.Is(err, container.NotFound) works
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && e.Kind == k
}

func errKind(kind Kind, op, id string, err error) *Error {
	return &Error{Kind: kind, Op: op, ID: id, Err: err}
}

func errKindf(kind Kind, op, id, format string, a ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, ID: id, Err: fmt.Errorf(format, a...)}
}
