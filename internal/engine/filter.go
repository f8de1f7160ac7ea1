package engine

import "strings"

// Eligible reports whether a destination may receive a transfer.
type Eligible func(destination string) bool

// ExcludeAddresses rejects every address in addrs.
func ExcludeAddresses(addrs []string) Eligible {
	set := make(map[string]struct{}, len(addrs))
	for _, a := range addrs {
		if a = strings.TrimSpace(a); a != "" {
			set[a] = struct{}{}
		}
	}
	return func(destination string) bool {
		_, found := set[strings.TrimSpace(destination)]
		return !found
	}
}

// DenyAddresses rejects known non-holder wallets such as marketplace escrow
// accounts. The list is supplied by configuration.
func DenyAddresses(addrs []string) Eligible {
	return ExcludeAddresses(addrs)
}

// All accepts a destination only when every non-nil predicate accepts it.
func All(preds ...Eligible) Eligible {
	return func(destination string) bool {
		for _, p := range preds {
			if p != nil && !p(destination) {
				return false
			}
		}
		return true
	}
}

// FilterTargets keeps the targets accepted by pred, in order, and returns
// how many were dropped. A nil pred keeps everything.
func FilterTargets(targets []Target, pred Eligible) ([]Target, int) {
	if pred == nil {
		return targets, 0
	}
	kept := make([]Target, 0, len(targets))
	for _, t := range targets {
		if pred(t.Destination) {
			kept = append(kept, t)
		}
	}
	return kept, len(targets) - len(kept)
}

// StartFrom drops the first n targets. It is used to resume a long list.
func StartFrom(targets []Target, n int) []Target {
	switch {
	case n <= 0:
		return targets
	case n >= len(targets):
		return []Target{}
	default:
		return targets[n:]
	}
}
