// Package memory implements storage.Store with in-memory maps. It is
// the reference implementation of the atomicity contract and the test
// double for the engine packages.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/D3MONSAUSAGE/teamtegrate-engine/storage"
	"github.com/D3MONSAUSAGE/teamtegrate-engine/window"
)

// Store holds definitions, occurrences, templates and instances behind
// one mutex, which makes create-and-advance trivially atomic. A real
// backend would use a conditional update plus a unique constraint
// instead.
type Store struct {
	mu          sync.RWMutex
	definitions map[string]*storage.RecurringTaskDefinition
	occurrences map[string]*storage.TaskOccurrence
	cycles      map[string]string // parentID@cycleDate -> occurrenceID
	templates   map[string]*storage.WindowTemplate
	instances   map[string]*window.Instance
	instanceKey map[string]string // templateID@date -> instanceID
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		definitions: make(map[string]*storage.RecurringTaskDefinition),
		occurrences: make(map[string]*storage.TaskOccurrence),
		cycles:      make(map[string]string),
		templates:   make(map[string]*storage.WindowTemplate),
		instances:   make(map[string]*window.Instance),
		instanceKey: make(map[string]string),
	}
}

func cycleKey(parentID string, day time.Time) string {
	return fmt.Sprintf("%s@%s", parentID, day.Format("2006-01-02"))
}

// AddDefinition seeds a recurring definition.
func (s *Store) AddDefinition(def storage.RecurringTaskDefinition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := def
	s.definitions[def.ID] = &copied
}

// GetDefinition returns a copy of a stored definition.
func (s *Store) GetDefinition(id string) (storage.RecurringTaskDefinition, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	def, ok := s.definitions[id]
	if !ok {
		return storage.RecurringTaskDefinition{}, false
	}
	return *def, true
}

// OccurrencesOf returns all occurrences generated from one parent.
func (s *Store) OccurrencesOf(parentID string) []storage.TaskOccurrence {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []storage.TaskOccurrence
	for _, occ := range s.occurrences {
		if occ.ParentID == parentID {
			out = append(out, *occ)
		}
	}
	return out
}

// AddTemplate seeds a window template.
func (s *Store) AddTemplate(tpl storage.WindowTemplate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := tpl
	s.templates[tpl.ID] = &copied
}

// AddInstance seeds a window instance, assigning an id when absent.
func (s *Store) AddInstance(inst window.Instance) window.Instance {
	s.mu.Lock()
	defer s.mu.Unlock()
	if inst.ID == "" {
		inst.ID = uuid.NewString()
	}
	copied := inst
	s.instances[inst.ID] = &copied
	s.instanceKey[instanceKey(inst.TemplateID, inst.Date)] = inst.ID
	return inst
}

func instanceKey(templateID string, date time.Time) string {
	return fmt.Sprintf("%s@%s", templateID, date.Format("2006-01-02"))
}

// FindDueRecurringDefinitions implements storage.Store.
func (s *Store) FindDueRecurringDefinitions(_ context.Context, now time.Time) ([]storage.RecurringTaskDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var due []storage.RecurringTaskDefinition
	for _, def := range s.definitions {
		if !def.NextDueAt.After(now) {
			due = append(due, *def)
		}
	}
	return due, nil
}

// CreateOccurrenceAndAdvance implements storage.Store. The conflict
// path mirrors a unique-constraint violation on (parent, cycle day): a
// definition already advanced past now, or an existing occurrence for
// the day, both mean some other invocation won this cycle.
func (s *Store) CreateOccurrenceAndAdvance(_ context.Context, definitionID string, now, nextDue time.Time) (*storage.TaskOccurrence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	def, ok := s.definitions[definitionID]
	if !ok {
		return nil, &storage.Error{Type: storage.ErrNotFound, Message: fmt.Sprintf("definition %s not found", definitionID)}
	}
	if def.NextDueAt.After(now) {
		return nil, &storage.Error{Type: storage.ErrConflict, Message: fmt.Sprintf("definition %s already advanced for this cycle", definitionID)}
	}

	day := localDay(now, def.Timezone)
	key := cycleKey(definitionID, day)
	if _, exists := s.cycles[key]; exists {
		return nil, &storage.Error{Type: storage.ErrConflict, Message: fmt.Sprintf("occurrence already exists for %s", key)}
	}

	occ := &storage.TaskOccurrence{
		ID:              uuid.NewString(),
		ParentID:        def.ID,
		Title:           def.Title,
		OrganizationID:  def.OrganizationID,
		AssignedUserIDs: append([]string(nil), def.AssignedUserIDs...),
		CreatedAt:       now,
		DueDate:         day,
	}
	s.occurrences[occ.ID] = occ
	s.cycles[key] = occ.ID
	def.NextDueAt = nextDue

	copied := *occ
	return &copied, nil
}

// FindActiveWindowTemplates implements storage.Store.
func (s *Store) FindActiveWindowTemplates(_ context.Context) ([]storage.WindowTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var active []storage.WindowTemplate
	for _, tpl := range s.templates {
		if tpl.Active {
			active = append(active, *tpl)
		}
	}
	return active, nil
}

// CreateWindowInstance implements storage.Store.
func (s *Store) CreateWindowInstance(_ context.Context, inst *window.Instance) (*window.Instance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := instanceKey(inst.TemplateID, inst.Date)
	if _, exists := s.instanceKey[key]; exists {
		return nil, &storage.Error{Type: storage.ErrConflict, Message: fmt.Sprintf("instance already exists for %s", key)}
	}

	created := *inst
	if created.ID == "" {
		created.ID = uuid.NewString()
	}
	if created.Status == "" {
		created.Status = window.StatusPending
	}
	s.instances[created.ID] = &created
	s.instanceKey[key] = created.ID

	copied := created
	return &copied, nil
}

// GetWindowInstance implements storage.Store.
func (s *Store) GetWindowInstance(_ context.Context, instanceID string) (*window.Instance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inst, ok := s.instances[instanceID]
	if !ok {
		return nil, &storage.Error{Type: storage.ErrNotFound, Message: fmt.Sprintf("instance %s not found", instanceID)}
	}
	copied := *inst
	return &copied, nil
}

// SetInstanceStatus implements storage.Store. Repeating the current
// status is a no-op; moving a finalized instance anywhere else is a
// conflict.
func (s *Store) SetInstanceStatus(_ context.Context, instanceID string, status window.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inst, ok := s.instances[instanceID]
	if !ok {
		return &storage.Error{Type: storage.ErrNotFound, Message: fmt.Sprintf("instance %s not found", instanceID)}
	}
	if inst.Status == status {
		return nil
	}
	if inst.Status.Terminal() {
		return &storage.Error{Type: storage.ErrConflict, Message: fmt.Sprintf("instance %s already finalized as %s", instanceID, inst.Status)}
	}
	inst.Status = status
	return nil
}

// localDay truncates now to midnight of its calendar day in the given
// IANA zone, falling back to UTC for empty or unknown zones, the same
// way the original scheduler resolved organization timezones.
func localDay(now time.Time, tz string) time.Time {
	loc := time.UTC
	if tz != "" {
		if l, err := time.LoadLocation(tz); err == nil {
			loc = l
		}
	}
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}
