package provider

import (
	"log"
	"sort"
	"strings"

	"messenger-service/internal/config"
)

// Rule is a set of provider aliases an interaction is permitted with.
type Rule struct {
	all     bool
	aliases map[string]struct{}
}

// AllowAll permits every alias.
func AllowAll() Rule {
	return Rule{all: true}
}

// AllowAliases permits the listed aliases only.
func AllowAliases(aliases ...string) Rule {
	r := Rule{aliases: make(map[string]struct{}, len(aliases))}
	for _, a := range aliases {
		if a = strings.TrimSpace(a); a != "" {
			r.aliases[a] = struct{}{}
		}
	}
	return r
}

// ParseRule reads the configuration syntax: "true" or "*" for every
// alias, "", "false" or "null" for none, otherwise a pipe separated
// alias list such as "company|staff".
func ParseRule(value string) Rule {
	value = strings.TrimSpace(value)
	switch strings.ToLower(value) {
	case "true", "*":
		return AllowAll()
	case "", "false", "null":
		return Rule{}
	}
	return AllowAliases(strings.Split(value, "|")...)
}

// Allows reports whether alias is covered by the rule.
func (r Rule) Allows(alias string) bool {
	if r.all {
		return true
	}
	_, ok := r.aliases[alias]
	return ok
}

// Capabilities are the validated optional contracts of a provider type.
type Capabilities struct {
	Searchable bool `json:"searchable"`
	Friendable bool `json:"friendable"`
	Devices    bool `json:"devices"`
}

// Definition declares a provider type. Capability flags are claims: a
// claim the model does not back with the matching contract is dropped.
type Definition struct {
	Alias      string
	Model      Provider
	Searchable bool
	Friendable bool
	Devices    bool
	CanMessage Rule
	CanSearch  Rule
	CanFriend  Rule
}

type entry struct {
	model      Provider
	caps       Capabilities
	canMessage Rule
	canSearch  Rule
	canFriend  Rule
}

// Registry is the immutable alias -> provider type lookup built once at
// startup. It is safe for concurrent reads.
type Registry struct {
	entries map[string]entry
	aliases []string
}

// NewRegistry validates defs and builds the registry. Invalid
// definitions are skipped and logged.
func NewRegistry(defs ...Definition) *Registry {
	r := &Registry{entries: make(map[string]entry, len(defs))}
	for _, def := range defs {
		alias := strings.TrimSpace(def.Alias)
		if alias == "" || def.Model == nil {
			log.Printf("provider registry skip: alias=%q missing alias or model", def.Alias)
			continue
		}
		if _, exists := r.entries[alias]; exists {
			log.Printf("provider registry skip: alias=%s already registered", alias)
			continue
		}
		r.entries[alias] = entry{
			model:      def.Model,
			caps:       validateCapabilities(alias, def),
			canMessage: def.CanMessage,
			canSearch:  def.CanSearch,
			canFriend:  def.CanFriend,
		}
		r.aliases = append(r.aliases, alias)
	}
	sort.Strings(r.aliases)
	return r
}

func validateCapabilities(alias string, def Definition) Capabilities {
	caps := Capabilities{}
	if def.Searchable {
		_, caps.Searchable = def.Model.(Searchable)
	}
	if def.Friendable {
		if f, ok := def.Model.(Friendable); ok {
			caps.Friendable = f.CanBefriend()
		}
	}
	if def.Devices {
		if d, ok := def.Model.(DeviceOwner); ok {
			caps.Devices = d.HasDevices()
		}
	}
	if caps.Searchable != def.Searchable || caps.Friendable != def.Friendable || caps.Devices != def.Devices {
		log.Printf("provider registry downgrade: alias=%s searchable=%t friendable=%t devices=%t", alias, caps.Searchable, caps.Friendable, caps.Devices)
	}
	return caps
}

// FromConfig builds a registry from the providers table. Unknown model
// names are skipped.
func FromConfig(providers []config.ProviderConfig) *Registry {
	defs := make([]Definition, 0, len(providers))
	for _, p := range providers {
		model, ok := Models[p.Model]
		if !ok {
			log.Printf("provider registry skip: alias=%s unknown model=%s", p.Alias, p.Model)
			continue
		}
		defs = append(defs, Definition{
			Alias:      p.Alias,
			Model:      model,
			Searchable: p.Searchable,
			Friendable: p.Friendable,
			Devices:    p.Devices,
			CanMessage: ParseRule(p.CanMessage),
			CanSearch:  ParseRule(p.CanSearch),
			CanFriend:  ParseRule(p.CanFriend),
		})
	}
	return NewRegistry(defs...)
}

// Aliases lists registered aliases in sorted order.
func (r *Registry) Aliases() []string {
	out := make([]string, len(r.aliases))
	copy(out, r.aliases)
	return out
}

func (r *Registry) Known(alias string) bool {
	_, ok := r.entries[alias]
	return ok
}

func (r *Registry) Capabilities(alias string) (Capabilities, bool) {
	e, ok := r.entries[alias]
	return e.caps, ok
}

func (r *Registry) IsSearchable(alias string) bool {
	return r.entries[alias].caps.Searchable
}

func (r *Registry) IsFriendable(alias string) bool {
	return r.entries[alias].caps.Friendable
}

func (r *Registry) HasDevices(alias string) bool {
	return r.entries[alias].caps.Devices
}

// NameColumn returns the display name column for alias.
func (r *Registry) NameColumn(alias string) string {
	if e, ok := r.entries[alias]; ok {
		return e.model.NameColumn()
	}
	return "name"
}

// SearchColumns returns the columns provider search matches on, or nil
// when the alias is not searchable.
func (r *Registry) SearchColumns(alias string) []string {
	e, ok := r.entries[alias]
	if !ok || !e.caps.Searchable {
		return nil
	}
	return e.model.(Searchable).SearchColumns()
}

// CanMessage reports whether providers of alias from may start threads
// with or add providers of alias to.
func (r *Registry) CanMessage(from, to string) bool {
	return r.interacts(from, to, func(e entry) Rule { return e.canMessage })
}

// CanSearch reports whether from may find providers of alias to. The
// target must be searchable.
func (r *Registry) CanSearch(from, to string) bool {
	if !r.IsSearchable(to) {
		return false
	}
	return r.interacts(from, to, func(e entry) Rule { return e.canSearch })
}

// CanFriend reports whether from may befriend to. Both sides must be
// friendable.
func (r *Registry) CanFriend(from, to string) bool {
	if !r.IsFriendable(from) || !r.IsFriendable(to) {
		return false
	}
	return r.interacts(from, to, func(e entry) Rule { return e.canFriend })
}

// SearchableAliases lists the aliases from is allowed to search.
func (r *Registry) SearchableAliases(from string) []string {
	var out []string
	for _, alias := range r.aliases {
		if r.CanSearch(from, alias) {
			out = append(out, alias)
		}
	}
	return out
}

func (r *Registry) interacts(from, to string, rule func(entry) Rule) bool {
	e, ok := r.entries[from]
	if !ok || !r.Known(to) {
		return false
	}
	if from == to {
		return true
	}
	return rule(e).Allows(to)
}
