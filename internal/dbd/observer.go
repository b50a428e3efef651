package dbd

// Observer receives counts from readers and mergers. Implementations must be
// cheap; they run inline with iteration.
type Observer interface {
	ObserveRow(stream string, readings, skipped int)
	ObserveMerge(origin Origin)
	ObserveError(stream string, err error)
}

type nopObserver struct{}

func (nopObserver) ObserveRow(string, int, int) {}
func (nopObserver) ObserveMerge(Origin)         {}
func (nopObserver) ObserveError(string, error)  {}
