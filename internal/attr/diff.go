package attr

// Patch is the difference between two attribute sets.
// Set holds added or changed keys, Removed lists deleted keys in sorted order.
type Patch struct {
	Set     Map
	Removed []string
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return len(p.Set) == 0 && len(p.Removed) == 0
}

// Diff computes the keys that changed between old and updated.
// Only changed, added or removed keys appear in the patch.
func Diff(old, updated Map) Patch {
	var p Patch
	for _, k := range updated.SortedKeys() {
		nv := updated[k]
		if ov, ok := old[k]; ok && Equal(ov, nv) {
			continue
		}
		if p.Set == nil {
			p.Set = make(Map)
		}
		p.Set[k] = nv
	}
	for _, k := range old.SortedKeys() {
		if _, ok := updated[k]; !ok {
			p.Removed = append(p.Removed, k)
		}
	}
	return p
}

// Apply returns a new Map with the patch applied to base. base is not modified.
func (p Patch) Apply(base Map) Map {
	out := base.Clone()
	if out == nil {
		out = make(Map, len(p.Set))
	}
	for k, v := range p.Set {
		out[k] = v
	}
	for _, k := range p.Removed {
		delete(out, k)
	}
	return out
}
