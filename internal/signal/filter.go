package signal

// Whitelist is the set of senders allowed to talk to the bot. The empty
// whitelist allows everyone.
type Whitelist struct {
	ids map[Identifier]bool
}

// NewWhitelist resolves each entry through the alias table, so entries may
// be aliases or phone numbers. Senders are always phones, so an entry that
// resolves to a group is rejected.
func NewWhitelist(entries []string, aliases *AliasTable) (*Whitelist, error) {
	wl := &Whitelist{ids: make(map[Identifier]bool, len(entries))}
	for _, e := range entries {
		id, err := aliases.Resolve(e)
		if err != nil {
			return nil, &ConfigError{Field: "whitelisted-numbers", Err: err}
		}
		if !id.IsPhone() {
			return nil, configErrorf("whitelisted-numbers", "%q is a group; only senders' phone numbers can be whitelisted", e)
		}
		wl.ids[id] = true
	}
	return wl, nil
}

// Len reports the number of distinct entries.
func (wl *Whitelist) Len() int {
	if wl == nil {
		return 0
	}
	return len(wl.ids)
}

// Contains reports membership by canonical identifier.
func (wl *Whitelist) Contains(id Identifier) bool {
	return wl != nil && wl.ids[id]
}

// IDs returns the members in no particular order.
func (wl *Whitelist) IDs() []Identifier {
	if wl == nil {
		return nil
	}
	out := make([]Identifier, 0, len(wl.ids))
	for id := range wl.ids {
		out = append(out, id)
	}
	return out
}

// IsAllowed applies the access policy for one inbound sender.
func IsAllowed(sender Identifier, wl *Whitelist) bool {
	if wl.Len() == 0 {
		return true
	}
	return wl.Contains(sender)
}
