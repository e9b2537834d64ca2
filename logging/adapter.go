package logging

import "fmt"

// Adapter turns a Sink into a printf style logger. Every line is written as an
// entry of the adapter category.
type Adapter struct {
	sink     Sink
	category string
	minimum  Priority
}

// NewAdapter writes to sink under category. Debug lines are dropped unless
// WithDebug is used.
func NewAdapter(sink Sink, category string) *Adapter {
	return &Adapter{sink: sink, category: category, minimum: Info}
}

// WithDebug makes the adapter keep debug lines.
func (a *Adapter) WithDebug() *Adapter {
	a.minimum = Debug
	return a
}

func (a *Adapter) add(p Priority, format string, args ...any) {
	if p > a.minimum {
		return
	}
	_ = a.sink.AddEntry(NewEntry(fmt.Sprintf(format, args...), p, a.category))
}

func (a *Adapter) Debugf(format string, args ...any) {
	a.add(Debug, format, args...)
}

func (a *Adapter) Infof(format string, args ...any) {
	a.add(Info, format, args...)
}

func (a *Adapter) Warnf(format string, args ...any) {
	a.add(Warning, format, args...)
}

func (a *Adapter) Errorf(format string, args ...any) {
	a.add(Error, format, args...)
}
