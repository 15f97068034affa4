package models

// Availability is the per-language caption status of a video without any
// transcript text. It is the fine-grained view; Available projects it to
// booleans for availability-check endpoints.
type Availability struct {
	order  []string
	status map[string]SourceType
}

// NewAvailability creates an empty availability view
func NewAvailability() *Availability {
	return &Availability{status: make(map[string]SourceType)}
}

// Set records the status of lang, keeping first-insertion order
func (a *Availability) Set(lang string, s SourceType) {
	if _, ok := a.status[lang]; !ok {
		a.order = append(a.order, lang)
	}
	a.status[lang] = s
}

// Status returns the status of lang
func (a *Availability) Status(lang string) SourceType {
	if s, ok := a.status[lang]; ok {
		return s
	}
	return SourceNotAvailable
}

// Languages returns the languages in request order
func (a *Availability) Languages() []string {
	out := make([]string, len(a.order))
	copy(out, a.order)
	return out
}

// Available reports, per language, whether any caption source exists
func (a *Availability) Available() map[string]bool {
	out := make(map[string]bool, len(a.order))
	for _, lang := range a.order {
		out[lang] = a.status[lang].Available()
	}
	return out
}

// MarshalJSON encodes the statuses keyed by language in request order
func (a *Availability) MarshalJSON() ([]byte, error) {
	pairs := make([]orderedPair, 0, len(a.order))
	for _, lang := range a.order {
		pairs = append(pairs, orderedPair{Key: lang, Value: a.status[lang]})
	}
	return marshalOrdered(pairs)
}
