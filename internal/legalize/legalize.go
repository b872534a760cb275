// Package legalize rewrites tree entity names that are invalid or reserved
// in a rendering target's identifier grammar. It runs once per target before
// generation and is the only mutation the tree sees after finishing.
package legalize

import (
	"fmt"
	"strings"

	"github.com/robert-at-pretension-io/regmap-gen/internal/model"
)

// Target selects the identifier grammar and reserved word set.
type Target int

const (
	VHDL Target = iota
	C
)

func (t Target) String() string {
	if t == C {
		return "c"
	}
	return "vhdl"
}

// Change records one rename. Old and New are dotted parent.child paths so a
// log line pinpoints the exact scope.
type Change struct {
	Kind string `json:"kind"`
	Old  string `json:"old"`
	New  string `json:"new"`
}

// Apply legalizes every identifier under n for the target and returns the
// change log. An invalid name is rewritten in place (illegal characters to
// underscores, an illegal trailing underscore resolved with a "_0" suffix);
// a reserved word keeps its name but renders through a "_0" identifier.
// Siblings whose names legalize to the same string get numbered identifiers
// so a scope never declares the same identifier twice. Enum names are
// rendered as literals at their points of use and are never touched.
// Applying twice yields an empty log the second time.
func Apply(n model.Node, target Target) []Change {
	return apply(n, target, make(map[string]bool))
}

// apply legalizes n against the identifiers already taken in its parent
// scope, then recurses into the children with a fresh scope.
func apply(n model.Node, target Target, taken map[string]bool) []Change {
	if n.Kind() == model.KindEnum {
		return nil
	}

	info := n.Info()
	old := info.Name
	newName := old
	var changes []Change

	id := old
	if fixed, ok := sanitize(old, target); ok {
		newName = fixed
		if old != fixed {
			changes = append(changes, Change{Kind: n.Kind().String() + " name", Old: old, New: fixed})
		}
		info.Name = fixed
		id = fixed
	} else if reserved(old, target) {
		id = old + "_0"
	}
	id = claim(taken, id, target)
	if info.Ident() != id {
		changes = append(changes, Change{Kind: n.Kind().String() + " identifier", Old: old, New: id})
	}
	info.Identifier = id

	scope := make(map[string]bool)
	for _, c := range n.Children() {
		for _, ch := range apply(c, target, scope) {
			changes = append(changes, Change{
				Kind: ch.Kind,
				Old:  old + "." + ch.Old,
				New:  newName + "." + ch.New,
			})
		}
	}
	return changes
}

// claim reserves id within a scope, appending numeric suffixes until the
// result is free. VHDL identifiers compare case-insensitively.
func claim(taken map[string]bool, id string, target Target) string {
	key := func(s string) string {
		if target == VHDL {
			return strings.ToLower(s)
		}
		return s
	}
	unique := id
	for i := 0; taken[key(unique)]; i++ {
		unique = fmt.Sprintf("%s_%d", id, i)
	}
	taken[key(unique)] = true
	return unique
}

// sanitize returns a legal variant of name and whether name needed one.
func sanitize(name string, target Target) (string, bool) {
	runes := []rune(name)
	if len(runes) == 0 {
		return "x", true
	}

	changed := false
	if !firstChar(runes[0], target) {
		runes = append([]rune{'x'}, runes...)
		changed = true
	}
	for i := 1; i < len(runes); i++ {
		if !wordChar(runes[i], target) {
			runes[i] = '_'
			changed = true
		}
	}
	if target == VHDL && runes[len(runes)-1] == '_' {
		runes = append(runes, '_', '0')
		changed = true
	}
	if !changed {
		return "", false
	}
	return string(runes), true
}

// Letter sets for VHDL follow the 2008 LRM §15.2; there is no uppercase
// equivalent for ß or ÿ.
const (
	vhdlUpper = "ABCDEFGHIJKLMNOPQRSTUVWXYZÀÁÂÃÄÅÆÇÈÉÊËÌÍÎÏÐÑÒÓÔÕÖØÙÚÛÜÝÞ"
	vhdlLower = "abcdefghijklmnopqrstuvwxyzßàáâãäåæçèéêëìíîïðñòóôõöøùúûüýþÿ"
)

func firstChar(r rune, target Target) bool {
	switch target {
	case VHDL:
		return strings.ContainsRune(vhdlUpper, r) || strings.ContainsRune(vhdlLower, r)
	default:
		return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
	}
}

func wordChar(r rune, target Target) bool {
	if r == '_' || (r >= '0' && r <= '9') {
		return true
	}
	return firstChar(r, target)
}

func reserved(name string, target Target) bool {
	if target == C {
		return cKeywords[name]
	}
	return vhdlReserved[strings.ToLower(name)]
}

// VHDL 2008 LRM §15.10.
var vhdlReserved = wordSet(`
	abs access after alias all and architecture array assert assume
	assume_guarantee attribute begin block body buffer bus case component
	configuration constant context cover default disconnect downto else
	elsif end entity exit fairness file for force function generate generic
	group guarded if impure in inertial inout is label library linkage
	literal loop map mod nand new next nor not null of on open or others
	out package parameter port postponed procedure process property
	protected pure range record register reject release rem report restrict
	restrict_guarantee return rol ror select sequence severity shared
	signal sla sll sra srl strong subtype then to transport type unaffected
	units until use variable vmode vprop vunit wait when while with xnor
	xor`)

// C11 keywords, §6.4.1.
var cKeywords = wordSet(`
	auto break case char const continue default do double else enum extern
	float for goto if inline int long register restrict return short signed
	sizeof static struct switch typedef union unsigned void volatile while
	_Alignas _Alignof _Atomic _Bool _Complex _Generic _Imaginary _Noreturn
	_Static_assert _Thread_local`)

func wordSet(words string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(words) {
		set[w] = true
	}
	return set
}
