package container

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	hclog "github.com/hashicorp/go-hclog"
	uuid "github.com/hashicorp/go-uuid"
)

const defaultEventBuffer = 64

// Options configure a Registry.
type Options struct {
	// StateDir hosts per-container scratch space and persisted state
	// records. Defaults to /run/burrow.
	StateDir string
	// Logger defaults to hclog.Default()
	Logger hclog.Logger
	// EventBuffer is the capacity of the Events channel
	EventBuffer int
}

// Event records an observed state transition.
type Event struct {
	ID    string
	State State
	Exit  *ExitStatus
}

// Registry owns all containers created through it. It is safe for
// concurrent use; lifecycle operations on distinct containers proceed in
// parallel while operations on the same container are serialized.
type Registry struct {
	stateDir string
	log      hclog.Logger

	mu         sync.Mutex
	containers map[string]*Container

	events chan Event
}

// NewRegistry creates the state directory if needed and recovers any
// containers persisted by a previous process.
func NewRegistry(opt Options) (*Registry, error) {
	if opt.StateDir == "" {
		opt.StateDir = "/run/burrow"
	}
	if opt.Logger == nil {
		opt.Logger = hclog.Default()
	}
	if opt.EventBuffer <= 0 {
		opt.EventBuffer = defaultEventBuffer
	}
	if err := os.MkdirAll(opt.StateDir, 0700); err != nil {
		return nil, fmt.Errorf("registry: state dir %v", err)
	}
	r := &Registry{
		stateDir:   opt.StateDir,
		log:        opt.Logger.Named("container"),
		containers: make(map[string]*Container),
		events:     make(chan Event, opt.EventBuffer),
	}
	if err := r.recover(); err != nil {
		return nil, err
	}
	return r, nil
}

// Events exposes state transition notifications. The channel is never
// closed; slow consumers drop events rather than blocking lifecycle
// operations.
func (r *Registry) Events() <-chan Event {
	return r.events
}

func (r *Registry) publish(ev Event) {
	select {
	case r.events <- ev:
	default:
		r.log.Warn("event dropped", "id", ev.ID, "state", ev.State)
	}
}

// Create validates the spec, allocates an identifier if the spec carries
// none, and registers the container in the Created state. No process is
// spawned and no mounts are made until Start.
func (r *Registry) Create(spec Spec) (*Container, error) {
	id := spec.ID
	if id == "" {
		var err error
		if id, err = uuid.GenerateUUID(); err != nil {
			return nil, errKindf(SpecInvalid, "create", "", "generate id: %v", err)
		}
	}
	spec = spec.withDefaults(id)
	if err := spec.validate(); err != nil {
		return nil, err
	}

	c := &Container{
		id:       id,
		spec:     spec,
		log:      r.log.With("id", id),
		state:    Created,
		stateDir: filepath.Join(r.stateDir, id),
		notify:   r.publish,
	}

	r.mu.Lock()
	if _, ok := r.containers[id]; ok {
		r.mu.Unlock()
		return nil, errKind(Conflict, "create", id, fmt.Errorf("id already registered"))
	}
	r.containers[id] = c
	r.mu.Unlock()

	if err := os.MkdirAll(c.stateDir, 0700); err != nil {
		r.mu.Lock()
		delete(r.containers, id)
		r.mu.Unlock()
		kind := SpecInvalid
		if os.IsPermission(err) {
			kind = PermissionDenied
		}
		return nil, errKind(kind, "create", id, err)
	}
	c.mu.Lock()
	c.save()
	c.mu.Unlock()

	r.log.Debug("created", "id", id)
	r.publish(Event{ID: id, State: Created})
	return c, nil
}

// Get returns a live container by id. Destroyed containers are not
// returned.
func (r *Registry) Get(id string) (*Container, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.containers[id]
	if !ok || c.tombstone() {
		return nil, errKind(NotFound, "get", id, fmt.Errorf("no such container"))
	}
	return c, nil
}

// List returns the ids of all live containers in sorted order.
func (r *Registry) List() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.containers))
	for id, c := range r.containers {
		if c.tombstone() {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Start transitions id from Created to Running.
func (r *Registry) Start(id string) error {
	c, err := r.Get(id)
	if err != nil {
		return err
	}
	return c.Start()
}

// Stop transitions id to Stopped, escalating to SIGKILL once grace
// elapsed. A zero grace uses the spec grace period.
func (r *Registry) Stop(id string, grace time.Duration) error {
	c, err := r.Get(id)
	if err != nil {
		return err
	}
	return c.Stop(grace)
}

// Pause freezes a running container.
func (r *Registry) Pause(id string) error {
	c, err := r.Get(id)
	if err != nil {
		return err
	}
	return c.Pause()
}

// Resume thaws a paused container.
func (r *Registry) Resume(id string) error {
	c, err := r.Get(id)
	if err != nil {
		return err
	}
	return c.Resume()
}

// Destroy stops id if needed and releases every resource it holds.
// Destroying an already destroyed container is a no-op; an unknown id is
// NotFound.
func (r *Registry) Destroy(id string) error {
	r.mu.Lock()
	c, ok := r.containers[id]
	r.mu.Unlock()
	if !ok {
		return errKind(NotFound, "destroy", id, fmt.Errorf("no such container"))
	}
	return c.Destroy()
}

// Status reports the current status of id.
func (r *Registry) Status(id string) (Status, error) {
	c, err := r.Get(id)
	if err != nil {
		return Status{}, err
	}
	return c.Status(), nil
}

func (c *Container) tombstone() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == Destroyed
}
