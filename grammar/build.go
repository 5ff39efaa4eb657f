package grammar

import "github.com/arloliu/exi/format"

// Particle is one member of a sequence or choice content model.
type Particle struct {
	// Element is the grammar of a named particle. Wildcard particles leave it nil.
	Element  *ElementGrammar
	Wildcard bool
	Optional bool // minOccurs=0
	Repeated bool // maxOccurs>1
}

// Elem is a named particle occurring exactly once.
func Elem(g *ElementGrammar) Particle {
	return Particle{Element: g}
}

// Any is a wildcard particle occurring exactly once.
func Any() Particle {
	return Particle{Wildcard: true}
}

// Opt marks p as optional.
func Opt(p Particle) Particle {
	p.Optional = true
	return p
}

// Many marks p as optional and unbounded.
func Many(p Particle) Particle {
	p.Optional = true
	p.Repeated = true

	return p
}

// Empty returns the grammar of an element without content.
func Empty(name Name) *ElementGrammar {
	return &ElementGrammar{
		Name:    name,
		Rules:   []Rule{{Productions: []Production{{Event: format.EventEE}}}},
		NilRule: -1,
	}
}

// Simple returns the grammar of an element with simple content of type vt.
// A nillable element accepts xsi:nil as a second level attribute.
func Simple(name Name, vt ValueType, nillable bool) *ElementGrammar {
	g := &ElementGrammar{
		Name: name,
		Rules: []Rule{
			{Productions: []Production{{Event: format.EventCH, Value: vt, Next: 2}}},
			{Productions: []Production{{Event: format.EventCH, Value: vt, Next: 2}}},
			{Productions: []Production{{Event: format.EventEE}}},
		},
		NilRule: -1,
	}

	if nillable {
		g.NilRule = 2
		g.Rules[0].Second = []Production{{
			Event: format.EventAT,
			Name:  Name{URI: xsiNamespace, Local: "nil"},
			Value: ValueBoolean,
			Next:  1,
		}}
	}

	return g
}

// Sequence returns the grammar of an element whose content is the particles in order.
//
// Rule i is the state in which particles before i are done. Its productions
// are the named particles that may come next in particle order, then the
// wildcards, then EE when every remaining particle is optional.
func Sequence(name Name, particles ...Particle) *ElementGrammar {
	g := &ElementGrammar{Name: name, NilRule: -1}

	for i := 0; i <= len(particles); i++ {
		var named, wildcards []Production
		canEnd := true

		for j := i; j < len(particles); j++ {
			p := particles[j]
			next := j + 1
			if p.Repeated {
				next = j
			}

			if p.Wildcard {
				wildcards = append(wildcards, Production{Event: format.EventSE, Wildcard: true, Next: next})
			} else {
				named = append(named, Production{Event: format.EventSE, Name: p.Element.Name, Element: p.Element, Next: next})
			}

			if !p.Optional {
				canEnd = false
				break
			}
		}

		prods := append(named, wildcards...)
		if canEnd {
			prods = append(prods, Production{Event: format.EventEE})
		}
		g.Rules = append(g.Rules, Rule{Productions: prods})
	}

	return g
}

// Choice returns the grammar of an element whose content is exactly one of the particles.
func Choice(name Name, particles ...Particle) *ElementGrammar {
	var named, wildcards []Production
	for _, p := range particles {
		if p.Wildcard {
			wildcards = append(wildcards, Production{Event: format.EventSE, Wildcard: true, Next: 1})
		} else {
			named = append(named, Production{Event: format.EventSE, Name: p.Element.Name, Element: p.Element, Next: 1})
		}
	}

	return &ElementGrammar{
		Name: name,
		Rules: []Rule{
			{Productions: append(named, wildcards...)},
			{Productions: []Production{{Event: format.EventEE}}},
		},
		NilRule: -1,
	}
}

// Document returns a document grammar whose root is one of roots, or any
// element when roots is empty.
func Document(roots ...*ElementGrammar) *ElementGrammar {
	content := make([]Production, 0, max(len(roots), 1))
	for _, r := range roots {
		content = append(content, Production{Event: format.EventSE, Name: r.Name, Element: r, Next: 2})
	}
	if len(roots) == 0 {
		content = append(content, Production{Event: format.EventSE, Wildcard: true, Next: 2})
	}

	return &ElementGrammar{
		Rules: []Rule{
			{Productions: []Production{{Event: format.EventSD, Next: 1}}},
			{Productions: content},
			{Productions: []Production{{Event: format.EventED}}},
		},
		NilRule: -1,
	}
}
