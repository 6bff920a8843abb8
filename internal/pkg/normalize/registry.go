package normalize

import (
	"fmt"
	"strings"

	"github.com/Vodeneev/tripprices/internal/pkg/models"
)

// Entry declares one canonical entity and its known alternate spellings.
// Alias order is preserved; the first alias is the preferred display fallback.
type Entry struct {
	ID      string   `yaml:"id" json:"id"`
	Name    string   `yaml:"name" json:"name"`
	Aliases []string `yaml:"aliases" json:"aliases"`
}

// Registry is the read-only alias registry. It is built once at start-up and
// only read afterwards, so it is safe to share between goroutines.
type Registry struct {
	entities []models.CanonicalEntity
	byID     map[string]int
	aliases  map[string][]string
}

// NewRegistry validates entries and builds the registry. Two entities whose names or
// aliases normalize to the same key are rejected: an ambiguous key would resolve silently
// to the wrong club.
func NewRegistry(entries []Entry) (*Registry, error) {
	r := &Registry{
		byID:    make(map[string]int, len(entries)),
		aliases: make(map[string][]string, len(entries)),
	}
	owner := make(map[Key]string)

	for _, en := range entries {
		name := strings.TrimSpace(en.Name)
		if name == "" {
			return nil, fmt.Errorf("registry: entry with empty name (id=%q)", en.ID)
		}
		id := strings.TrimSpace(en.ID)
		if id == "" {
			id = Slug(name)
		}
		if id == "" {
			return nil, fmt.Errorf("registry: cannot derive id for %q", name)
		}
		if _, dup := r.byID[id]; dup {
			return nil, fmt.Errorf("registry: duplicate entity id %q", id)
		}

		spellings := append([]string{name}, en.Aliases...)
		for _, s := range spellings {
			k := Normalize(s)
			if k == "" {
				continue
			}
			if prev, taken := owner[k]; taken && prev != id {
				return nil, fmt.Errorf("registry: %q of %q collides with entity %q", s, id, prev)
			}
			owner[k] = id
		}

		r.byID[id] = len(r.entities)
		r.entities = append(r.entities, models.CanonicalEntity{ID: id, Name: name})
		aliases := make([]string, 0, len(en.Aliases))
		for _, a := range en.Aliases {
			if a = strings.TrimSpace(a); a != "" {
				aliases = append(aliases, a)
			}
		}
		r.aliases[id] = aliases
	}
	return r, nil
}

// Entities returns all canonical entities in declaration order.
func (r *Registry) Entities() []models.CanonicalEntity {
	out := make([]models.CanonicalEntity, len(r.entities))
	copy(out, r.entities)
	return out
}

func (r *Registry) Len() int { return len(r.entities) }

// Entity looks an entity up by ID.
func (r *Registry) Entity(id string) (models.CanonicalEntity, bool) {
	i, ok := r.byID[id]
	if !ok {
		return models.CanonicalEntity{}, false
	}
	return r.entities[i], true
}

// Aliases returns the alternate spellings of an entity in preference order.
func (r *Registry) Aliases(id string) []string {
	a := r.aliases[id]
	out := make([]string, len(a))
	copy(out, a)
	return out
}

// Keys returns the lookup keys of an entity: display name first, then aliases.
func (r *Registry) Keys(e models.CanonicalEntity) []Key {
	seen := make(map[Key]struct{})
	var keys []Key
	add := func(s string) {
		k := Normalize(s)
		if k == "" {
			return
		}
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	add(e.Name)
	for _, a := range r.aliases[e.ID] {
		add(a)
	}
	return keys
}

// Resolve maps a free-text name to one of the candidates. Display names are tried
// first for every candidate, aliases second. A miss returns false instead of guessing.
func (r *Registry) Resolve(raw string, candidates []models.CanonicalEntity) (models.CanonicalEntity, bool) {
	k := Normalize(raw)
	if k == "" {
		return models.CanonicalEntity{}, false
	}
	for _, c := range candidates {
		if Normalize(c.Name) == k {
			return c, true
		}
	}
	for _, c := range candidates {
		for _, a := range r.aliases[c.ID] {
			if Normalize(a) == k {
				return c, true
			}
		}
	}
	return models.CanonicalEntity{}, false
}

// Lookup resolves a name against every registered entity.
func (r *Registry) Lookup(raw string) (models.CanonicalEntity, bool) {
	return r.Resolve(raw, r.entities)
}

// Matches reports whether raw is a spelling of e.
func (r *Registry) Matches(e models.CanonicalEntity, raw string) bool {
	_, ok := r.Resolve(raw, []models.CanonicalEntity{e})
	return ok
}

// ResolveAll resolves user-selected names. Unmatched names are returned, never dropped.
// Duplicate selections of the same entity collapse to one.
func (r *Registry) ResolveAll(names []string) ([]models.CanonicalEntity, []string) {
	var (
		matched   []models.CanonicalEntity
		unmatched []string
		seen      = make(map[string]struct{})
	)
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			continue
		}
		e, ok := r.Lookup(n)
		if !ok {
			unmatched = append(unmatched, n)
			continue
		}
		if _, dup := seen[e.ID]; dup {
			continue
		}
		seen[e.ID] = struct{}{}
		matched = append(matched, e)
	}
	return matched, unmatched
}

// LookupIn finds the value a source directory holds for an entity, trying the
// entity's keys in preference order. Directories are keyed by Normalize(link text).
func LookupIn[V any](r *Registry, dir map[Key]V, e models.CanonicalEntity) (V, bool) {
	for _, k := range r.Keys(e) {
		if v, ok := dir[k]; ok {
			return v, true
		}
	}
	var zero V
	return zero, false
}
