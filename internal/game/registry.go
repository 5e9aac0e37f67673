package game

import (
	"fmt"
	"log"
)

// Registry holds every table scheduler running in this process.
type Registry struct {
	tables map[string]*Scheduler
}

func NewRegistry() *Registry {
	return &Registry{tables: make(map[string]*Scheduler)}
}

func (r *Registry) Register(s *Scheduler) error {
	if _, exists := r.tables[s.Table()]; exists {
		return fmt.Errorf("table %q already registered", s.Table())
	}
	r.tables[s.Table()] = s
	return nil
}

func (r *Registry) Get(table string) (*Scheduler, bool) {
	s, ok := r.tables[table]
	return s, ok
}

// Tables lists registered table names.
func (r *Registry) Tables() []string {
	names := make([]string, 0, len(r.tables))
	for name := range r.tables {
		names = append(names, name)
	}
	return names
}

func (r *Registry) StartAll() {
	for name, s := range r.tables {
		s.Start()
		log.Printf("[SCHED] Started table %s", name)
	}
}

func (r *Registry) StopAll() {
	for name, s := range r.tables {
		s.Stop()
		log.Printf("[SCHED] Stopped table %s", name)
	}
}
