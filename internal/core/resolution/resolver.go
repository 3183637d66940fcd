package resolution

import (
	"sort"
	"strings"
	"time"

	"github.com/agenthands/inquest/internal/core/model"
)

// Resolver merges the mentions extracted from one episode into the existing
// session graph. It performs no I/O; the caller loads the view and applies
// the returned plan.
type Resolver struct {
	norm Normalizer
}

func NewResolver(aliases map[string]string) *Resolver {
	return &Resolver{norm: NewNormalizer(aliases)}
}

func (r *Resolver) Normalizer() Normalizer {
	return r.norm
}

// plan accumulates the post-merge state of everything touched by an episode.
type plan struct {
	view    *model.GraphView
	episode model.Episode

	entities  map[string]*model.Entity
	entOrder  []string
	entNew    map[string]bool
	rels      map[string]*model.Relationship
	relOrder  []string
	relNew    map[string]bool
	batchName map[string]string // normalized name -> key, from this episode
	viewName  map[string]string // normalized name -> key, from the view

	unresolved []model.Mention
	seenVague  map[string]bool
}

// Resolve computes the merge plan for one episode. view may be nil for an
// empty session graph; it is not modified.
func (r *Resolver) Resolve(ext model.Extraction, view *model.GraphView, episode model.Episode) model.MergePlan {
	if view == nil {
		view = model.NewGraphView(episode.SessionID)
	}
	p := &plan{
		view:      view,
		episode:   episode,
		entities:  make(map[string]*model.Entity),
		entNew:    make(map[string]bool),
		rels:      make(map[string]*model.Relationship),
		relNew:    make(map[string]bool),
		batchName: make(map[string]string),
		viewName:  r.indexView(view),
		seenVague: make(map[string]bool),
	}

	for _, c := range ext.Entities {
		name := strings.TrimSpace(c.Name)
		norm := r.norm.Normalize(name)
		if norm == "" {
			continue
		}
		if IsVague(norm) {
			p.vague(name)
			continue
		}
		typ := DisplayType(c.Type)
		key := r.norm.IdentityKey(name, typ)
		if k, ok := p.lookupName(norm); ok && k != key {
			switch cur := p.typeOf(k); {
			case typ == model.EntityTypeOther:
				// an untyped mention binds to a typed entity of the same name
				key = k
			case (cur == model.EntityTypeOther || cur == typ) && !p.exists(key):
				// a generic entity gains the type, or already has it
				key = k
			}
		}
		p.touchEntity(key, name, typ, c.Summary)
		if _, ok := p.batchName[norm]; !ok {
			p.batchName[norm] = key
		}
	}

	for _, c := range ext.Relationships {
		fromKey, ok := r.endpoint(p, c.Source)
		if !ok {
			continue
		}
		toKey, ok := r.endpoint(p, c.Target)
		if !ok || fromKey == toKey {
			continue
		}
		label := NormalizeLabel(c.Label)
		fact := strings.TrimSpace(c.Fact)
		if fact == "" {
			fact = strings.TrimSpace(c.Source) + " " + label + " " + strings.TrimSpace(c.Target)
		}
		p.touchRelationship(fromKey, toKey, label, fact)
	}

	return p.build()
}

// endpoint resolves a relationship end by name: this episode's mentions
// first, then the existing graph, else an implicit generic entity.
func (r *Resolver) endpoint(p *plan, raw string) (string, bool) {
	name := strings.TrimSpace(raw)
	norm := r.norm.Normalize(name)
	if norm == "" {
		return "", false
	}
	if IsVague(norm) {
		p.vague(name)
		return "", false
	}
	key, ok := p.lookupName(norm)
	if !ok {
		key = r.norm.IdentityKey(name, "")
		p.batchName[norm] = key
	}
	p.touchEntity(key, name, model.EntityTypeOther, "")
	return key, true
}

func (r *Resolver) indexView(view *model.GraphView) map[string]string {
	idx := make(map[string]string, len(view.Entities))
	keys := make([]string, 0, len(view.Entities))
	for k := range view.Entities {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		norm := r.norm.Normalize(view.Entities[k].Name)
		if prev, ok := idx[norm]; ok && view.Entities[prev].Type != model.EntityTypeOther {
			continue
		}
		idx[norm] = k
	}
	return idx
}

func (p *plan) lookupName(norm string) (string, bool) {
	if k, ok := p.batchName[norm]; ok {
		return k, true
	}
	k, ok := p.viewName[norm]
	return k, ok
}

func (p *plan) exists(key string) bool {
	if _, ok := p.entities[key]; ok {
		return true
	}
	_, ok := p.view.Entities[key]
	return ok
}

func (p *plan) typeOf(key string) string {
	if e, ok := p.entities[key]; ok {
		return e.Type
	}
	return p.view.Entities[key].Type
}

func (p *plan) vague(text string) {
	if p.seenVague[strings.ToLower(text)] {
		return
	}
	p.seenVague[strings.ToLower(text)] = true
	p.unresolved = append(p.unresolved, model.Mention{
		Text:      text,
		EpisodeID: p.episode.ID,
		Reason:    "vague reference",
	})
}

func (p *plan) touchEntity(key, name, typ, summary string) {
	e, ok := p.entities[key]
	if !ok {
		if existing, found := p.view.Entities[key]; found {
			c := existing.Clone()
			e = &c
		} else {
			e = &model.Entity{
				ID:        model.EntityID(p.episode.SessionID, key),
				Key:       key,
				SessionID: p.episode.SessionID,
				Name:      name,
				Type:      typ,
				FirstSeen: p.episode.Timestamp,
				LastSeen:  p.episode.Timestamp,
			}
			p.entNew[key] = true
		}
		p.entities[key] = e
		p.entOrder = append(p.entOrder, key)
	}

	if e.Type == model.EntityTypeOther && typ != model.EntityTypeOther {
		e.Type = typ
	}
	summary = strings.TrimSpace(summary)
	if summary != "" && !strings.Contains(e.Summary, summary) {
		if e.Summary == "" {
			e.Summary = summary
		} else {
			e.Summary += " " + summary
		}
	}
	e.LastSeen = later(e.LastSeen, p.episode.Timestamp)
	if !e.HasEpisode(p.episode.ID) {
		e.Episodes = append(e.Episodes, p.episode.ID)
	}
}

func (p *plan) touchRelationship(fromKey, toKey, label, fact string) {
	key := RelationshipKey(fromKey, toKey, label)
	rel, ok := p.rels[key]
	if !ok {
		if existing, found := p.view.Relationships[key]; found {
			c := existing.Clone()
			rel = &c
		} else {
			rel = &model.Relationship{
				ID:        model.RelationshipID(p.episode.SessionID, key),
				Key:       key,
				SessionID: p.episode.SessionID,
				FromID:    p.entities[fromKey].ID,
				ToID:      p.entities[toKey].ID,
				FromKey:   fromKey,
				ToKey:     toKey,
				Label:     label,
				FirstSeen: p.episode.Timestamp,
			}
			p.relNew[key] = true
		}
		p.rels[key] = rel
		p.relOrder = append(p.relOrder, key)
	}

	if !rel.HasFact(p.episode.ID, fact) {
		rel.Facts = append(rel.Facts, model.Fact{
			Text:      fact,
			EpisodeID: p.episode.ID,
			Seq:       p.episode.Seq,
			Timestamp: p.episode.Timestamp,
		})
	}
	rel.LastSeen = later(rel.LastSeen, p.episode.Timestamp)
}

func (p *plan) build() model.MergePlan {
	var out model.MergePlan
	for _, k := range p.entOrder {
		if p.entNew[k] {
			out.EntityInserts = append(out.EntityInserts, *p.entities[k])
		} else {
			out.EntityUpdates = append(out.EntityUpdates, *p.entities[k])
		}
	}
	for _, k := range p.relOrder {
		if p.relNew[k] {
			out.RelationshipInserts = append(out.RelationshipInserts, *p.rels[k])
		} else {
			out.RelationshipUpdates = append(out.RelationshipUpdates, *p.rels[k])
		}
	}
	out.Unresolved = p.unresolved
	return out
}

func later(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}

// Apply folds a plan into a view. Stores that keep the view in memory use it
// to commit; others use it to keep a cached view current.
func Apply(view *model.GraphView, plan model.MergePlan) {
	for _, e := range plan.Entities() {
		view.Entities[e.Key] = e.Clone()
	}
	for _, r := range plan.Relationships() {
		view.Relationships[r.Key] = r.Clone()
	}
}
