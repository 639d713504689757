package plant

import "iter"

// Predicate selects Elements.
type Predicate func(*Element) bool

// WithRole matches Elements carrying any of the given roles.
func WithRole(roles ...Role) Predicate {
	return func(e *Element) bool { return e.HasRole(roles...) }
}

// Named matches Elements with the given name.
func Named(name string) Predicate {
	return func(e *Element) bool { return e.Name == name }
}

// AttrIs matches Elements whose attribute equals want in kind and value.
func AttrIs(name string, want Value) Predicate {
	return func(e *Element) bool {
		v, ok := e.Attr(name)
		return ok && v.Equal(want)
	}
}

// And matches Elements accepted by every predicate. No predicates match everything.
func And(preds ...Predicate) Predicate {
	return func(e *Element) bool {
		for _, p := range preds {
			if !p(e) {
				return false
			}
		}
		return true
	}
}

// Subtree yields root and all its descendants depth-first in document order.
func Subtree(root *Element) iter.Seq[*Element] {
	return func(yield func(*Element) bool) {
		var walk func(e *Element) bool
		walk = func(e *Element) bool {
			if !yield(e) {
				return false
			}
			for _, c := range e.children {
				if !walk(c) {
					return false
				}
			}
			return true
		}
		walk(root)
	}
}

// Filter yields the elements of seq accepted by p.
func Filter(seq iter.Seq[*Element], p Predicate) iter.Seq[*Element] {
	return func(yield func(*Element) bool) {
		for e := range seq {
			if p(e) && !yield(e) {
				return
			}
		}
	}
}

// One returns the single element of seq. query names the lookup in errors.
// Zero or several matches fail with a *LookupError.
func One(seq iter.Seq[*Element], query string) (*Element, error) {
	var found *Element
	count := 0
	for e := range seq {
		if count == 0 {
			found = e
		}
		count++
	}
	if count != 1 {
		return nil, &LookupError{Query: query, Count: count}
	}
	return found, nil
}

// First returns the first element of seq, ignoring any further matches.
func First(seq iter.Seq[*Element]) (*Element, bool) {
	for e := range seq {
		return e, true
	}
	return nil, false
}
