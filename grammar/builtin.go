package grammar

import (
	"slices"

	"github.com/arloliu/exi/format"
	"github.com/arloliu/exi/stringtable"
)

const xsiNamespace = stringtable.XSINamespace

// Rules of a built-in element grammar.
const (
	startTagContent = 0
	elementContent  = 1
)

// newBuiltinGrammar returns a fresh built-in grammar for element name.
//
// StartTagContent starts without first level productions; EE, AT(*), SE(*)
// and CH sit on the second level. ElementContent starts with EE on the first
// level and SE(*), CH on the second.
func newBuiltinGrammar(name Name) *ElementGrammar {
	return &ElementGrammar{
		Name: name,
		Rules: []Rule{
			startTagContent: {
				Second: []Production{
					{Event: format.EventEE},
					{Event: format.EventAT, Wildcard: true, Value: ValueString, Next: startTagContent},
					{Event: format.EventSE, Wildcard: true, Next: elementContent},
					{Event: format.EventCH, Value: ValueString, Next: elementContent},
				},
			},
			elementContent: {
				Productions: []Production{{Event: format.EventEE}},
				Second: []Production{
					{Event: format.EventSE, Wildcard: true, Next: elementContent},
					{Event: format.EventCH, Value: ValueString, Next: elementContent},
				},
			},
		},
		NilRule: -1,
		Builtin: true,
	}
}

// learn adds the production matched on the second level of rule as a first
// level production with event code 0, shifting the others up.
func (g *ElementGrammar) learn(rule int, matched Production, name Name) {
	var learned Production

	switch matched.Event {
	case format.EventEE:
		if rule != startTagContent {
			return
		}
		learned = Production{Event: format.EventEE}
	case format.EventAT:
		learned = Production{Event: format.EventAT, Name: name, Value: ValueString, Next: startTagContent}
	case format.EventSE:
		learned = Production{Event: format.EventSE, Name: name, Next: elementContent}
	case format.EventCH:
		learned = Production{Event: format.EventCH, Value: ValueString, Next: elementContent}
	default:
		return
	}

	g.Rules[rule].Productions = slices.Insert(g.Rules[rule].Productions, 0, learned)
}
