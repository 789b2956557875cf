package signal

import (
	"fmt"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

// Room is one alias -> target entry of the rooms mapping.
type Room struct {
	Alias  string
	Target string
}

// Rooms keeps the configured mapping in file order, which decides the display
// name when several aliases point to the same identifier.
type Rooms []Room

// UnmarshalYAML decodes a mapping node without losing key order.
func (r *Rooms) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("rooms: expected a mapping, got %s", nodeKind(node))
	}
	out := make(Rooms, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		k, v := node.Content[i], node.Content[i+1]
		if k.Kind != yaml.ScalarNode || v.Kind != yaml.ScalarNode {
			return fmt.Errorf("rooms: line %d: alias and target must be strings", k.Line)
		}
		out = append(out, Room{Alias: k.Value, Target: v.Value})
	}
	*r = out
	return nil
}

func nodeKind(n *yaml.Node) string {
	switch n.Kind {
	case yaml.SequenceNode:
		return "sequence"
	case yaml.ScalarNode:
		return "scalar"
	default:
		return "node"
	}
}

// AliasTable maps aliases to identifiers. It is never mutated after
// NewAliasTable returns.
type AliasTable struct {
	order   []string
	forward map[string]Identifier
	reverse map[Identifier]string
}

// NewAliasTable parses every room target. A duplicate alias or malformed
// target is a ConfigError.
func NewAliasTable(rooms Rooms) (*AliasTable, error) {
	t := &AliasTable{
		order:   make([]string, 0, len(rooms)),
		forward: make(map[string]Identifier, len(rooms)),
		reverse: make(map[Identifier]string, len(rooms)),
	}
	for _, room := range rooms {
		if room.Alias == "" {
			return nil, configErrorf("rooms", "empty alias for target %q", room.Target)
		}
		if _, dup := t.forward[room.Alias]; dup {
			return nil, configErrorf("rooms", "duplicate alias %q", room.Alias)
		}
		id, err := ParseIdentifier(room.Target)
		if err != nil {
			return nil, &ConfigError{Field: "rooms." + room.Alias, Err: err}
		}
		t.order = append(t.order, room.Alias)
		t.forward[room.Alias] = id
		if _, taken := t.reverse[id]; !taken {
			t.reverse[id] = room.Alias
		}
	}
	return t, nil
}

// Len reports the number of aliases.
func (t *AliasTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.order)
}

// Resolve returns the identifier an alias maps to, or parses nameOrID
// directly. Aliases win over direct parsing. A nil table only parses.
func (t *AliasTable) Resolve(nameOrID string) (Identifier, error) {
	if t != nil {
		if id, ok := t.forward[nameOrID]; ok {
			return id, nil
		}
	}
	id, err := ParseIdentifier(nameOrID)
	if err != nil {
		return Identifier{}, &UnresolvedIdentifierError{Name: nameOrID}
	}
	return id, nil
}

// DisplayName returns the first configured alias for id, or its canonical form.
func (t *AliasTable) DisplayName(id Identifier) string {
	if t == nil {
		return id.String()
	}
	if alias, ok := t.reverse[id]; ok {
		return alias
	}
	return id.String()
}

// Rooms lists the aliases in load order with their canonical targets.
func (t *AliasTable) Rooms() Rooms {
	if t == nil {
		return nil
	}
	out := make(Rooms, 0, len(t.order))
	for _, alias := range t.order {
		out = append(out, Room{Alias: alias, Target: t.forward[alias].String()})
	}
	return out
}

// Directory is the immutable identity snapshot of a connector: aliases and
// the whitelist resolved through them.
type Directory struct {
	Aliases   *AliasTable
	Whitelist *Whitelist
}

// NewDirectory builds both tables from configuration.
func NewDirectory(rooms Rooms, whitelisted []string) (*Directory, error) {
	table, err := NewAliasTable(rooms)
	if err != nil {
		return nil, err
	}
	wl, err := NewWhitelist(whitelisted, table)
	if err != nil {
		return nil, err
	}
	return &Directory{Aliases: table, Whitelist: wl}, nil
}

// Resolver serves the current Directory. Reload replaces it in one step so
// readers never see a new alias table with an old whitelist.
type Resolver struct {
	dir atomic.Pointer[Directory]
}

// NewResolver returns a resolver serving dir. A nil dir means no aliases and
// no whitelist.
func NewResolver(dir *Directory) *Resolver {
	r := &Resolver{}
	r.Reload(dir)
	return r
}

// Reload swaps in a new snapshot.
func (r *Resolver) Reload(dir *Directory) {
	if dir == nil {
		dir, _ = NewDirectory(nil, nil)
	}
	r.dir.Store(dir)
}

// Snapshot returns the directory currently served.
func (r *Resolver) Snapshot() *Directory { return r.dir.Load() }

func (r *Resolver) Resolve(nameOrID string) (Identifier, error) {
	return r.Snapshot().Aliases.Resolve(nameOrID)
}

func (r *Resolver) DisplayName(id Identifier) string {
	return r.Snapshot().Aliases.DisplayName(id)
}

// IsAllowed applies the current whitelist to sender.
func (r *Resolver) IsAllowed(sender Identifier) bool {
	return IsAllowed(sender, r.Snapshot().Whitelist)
}
