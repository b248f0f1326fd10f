package graph

import "sort"

// tripleSet is an unordered set of triples.
type tripleSet map[Triple]struct{}

// Graph is an in-memory set of triples indexed by subject, predicate and
// object. Results are always returned in insertion order so that shapes and
// forms derived from a graph are deterministic.
//
// Graph is not safe for concurrent mutation; storage.MemoryStore adds locking.
type Graph struct {
	seq     uint64
	triples map[Triple]uint64
	bySubj  map[Term]tripleSet
	byPred  map[IRI]tripleSet
	byObj   map[Term]tripleSet
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		triples: make(map[Triple]uint64),
		bySubj:  make(map[Term]tripleSet),
		byPred:  make(map[IRI]tripleSet),
		byObj:   make(map[Term]tripleSet),
	}
}

// FromTriples builds a graph from a slice of triples.
func FromTriples(triples []Triple) *Graph {
	g := New()
	for _, t := range triples {
		g.Add(t)
	}
	return g
}

// Len returns the number of triples.
func (g *Graph) Len() int {
	return len(g.triples)
}

// Add inserts a triple. It reports whether the triple was new.
func (g *Graph) Add(t Triple) bool {
	if t.Subject == nil || t.Predicate == "" || t.Object == nil {
		return false
	}
	if _, ok := g.triples[t]; ok {
		return false
	}
	g.seq++
	g.triples[t] = g.seq
	addIndex(g.bySubj, t.Subject, t)
	addIndex(g.byPred, t.Predicate, t)
	addIndex(g.byObj, t.Object, t)
	return true
}

// AddAll inserts every triple in triples.
func (g *Graph) AddAll(triples []Triple) {
	for _, t := range triples {
		g.Add(t)
	}
}

// Merge inserts every triple of other into g.
func (g *Graph) Merge(other *Graph) {
	if other == nil {
		return
	}
	g.AddAll(other.Triples())
}

// Remove deletes a triple. It reports whether the triple was present.
func (g *Graph) Remove(t Triple) bool {
	if _, ok := g.triples[t]; !ok {
		return false
	}
	delete(g.triples, t)
	removeIndex(g.bySubj, t.Subject, t)
	removeIndex(g.byPred, t.Predicate, t)
	removeIndex(g.byObj, t.Object, t)
	return true
}

// Has reports whether the graph contains the triple.
func (g *Graph) Has(t Triple) bool {
	_, ok := g.triples[t]
	return ok
}

// Triples returns all triples in insertion order.
func (g *Graph) Triples() []Triple {
	out := make([]Triple, 0, len(g.triples))
	for t := range g.triples {
		out = append(out, t)
	}
	g.sortBySeq(out)
	return out
}

// Match returns the triples matching the pattern. A nil subject or object
// and an empty predicate act as wildcards.
func (g *Graph) Match(s Term, p IRI, o Term) []Triple {
	var candidates tripleSet
	pick := func(set tripleSet, ok bool) bool {
		if !ok {
			candidates = tripleSet{}
			return true
		}
		if candidates == nil || len(set) < len(candidates) {
			candidates = set
		}
		return false
	}

	if s != nil {
		set, ok := g.bySubj[s]
		if pick(set, ok) {
			return nil
		}
	}
	if p != "" {
		set, ok := g.byPred[p]
		if pick(set, ok) {
			return nil
		}
	}
	if o != nil {
		set, ok := g.byObj[o]
		if pick(set, ok) {
			return nil
		}
	}

	if candidates == nil {
		return g.Triples()
	}

	out := make([]Triple, 0, len(candidates))
	for t := range candidates {
		if s != nil && t.Subject != s {
			continue
		}
		if p != "" && t.Predicate != p {
			continue
		}
		if o != nil && t.Object != o {
			continue
		}
		out = append(out, t)
	}
	g.sortBySeq(out)
	return out
}

// Objects returns the objects of (s, p, *).
func (g *Graph) Objects(s Term, p IRI) []Term {
	matches := g.Match(s, p, nil)
	out := make([]Term, 0, len(matches))
	for _, t := range matches {
		out = append(out, t.Object)
	}
	return out
}

// Object returns the first object of (s, p, *), or nil.
func (g *Graph) Object(s Term, p IRI) Term {
	objs := g.Objects(s, p)
	if len(objs) == 0 {
		return nil
	}
	return objs[0]
}

// Subjects returns the subjects of (*, p, o).
func (g *Graph) Subjects(p IRI, o Term) []Term {
	matches := g.Match(nil, p, o)
	out := make([]Term, 0, len(matches))
	seen := make(map[Term]bool, len(matches))
	for _, t := range matches {
		if seen[t.Subject] {
			continue
		}
		seen[t.Subject] = true
		out = append(out, t.Subject)
	}
	return out
}

// Types returns the IRIs asserted as rdf:type of s.
func (g *Graph) Types(s Term) []IRI {
	var out []IRI
	for _, o := range g.Objects(s, RDFType) {
		if iri, ok := o.(IRI); ok {
			out = append(out, iri)
		}
	}
	return out
}

// Count returns the number of (s, p, *) triples.
func (g *Graph) Count(s Term, p IRI) int {
	return len(g.Match(s, p, nil))
}

// List returns the members of the RDF collection starting at head. It stops
// at rdf:nil, at a node without rdf:first, or when a node repeats.
func (g *Graph) List(head Term) []Term {
	var out []Term
	visited := make(map[Term]bool)
	for node := head; node != nil && node != Term(RDFNil); {
		if visited[node] {
			break
		}
		visited[node] = true

		first := g.Object(node, RDFFirst)
		if first == nil {
			break
		}
		out = append(out, first)
		node = g.Object(node, RDFRest)
	}
	return out
}

// Describe returns the triples having s as subject plus, recursively, the
// triples of the blank nodes they reference.
func (g *Graph) Describe(s Term) []Triple {
	var out []Triple
	visited := make(map[Term]bool)
	var walk func(Term)
	walk = func(node Term) {
		if visited[node] {
			return
		}
		visited[node] = true
		for _, t := range g.Match(node, "", nil) {
			out = append(out, t)
			if t.Object.Kind() == KindBlank {
				walk(t.Object)
			}
		}
	}
	walk(s)
	return out
}

// Clone returns a deep copy of the graph.
func (g *Graph) Clone() *Graph {
	return FromTriples(g.Triples())
}

func (g *Graph) sortBySeq(ts []Triple) {
	sort.Slice(ts, func(i, j int) bool {
		return g.triples[ts[i]] < g.triples[ts[j]]
	})
}

func addIndex[K comparable](idx map[K]tripleSet, key K, t Triple) {
	set, ok := idx[key]
	if !ok {
		set = make(tripleSet)
		idx[key] = set
	}
	set[t] = struct{}{}
}

func removeIndex[K comparable](idx map[K]tripleSet, key K, t Triple) {
	set, ok := idx[key]
	if !ok {
		return
	}
	delete(set, t)
	if len(set) == 0 {
		delete(idx, key)
	}
}
