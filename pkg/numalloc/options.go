package numalloc

import "github.com/sirupsen/logrus"

// Option configures an Allocator constructed via New.
type Option func(*Allocator)

// WithLogger overrides the default logrus.StandardLogger() diagnostic
// sink.
func WithLogger(l *logrus.Logger) Option {
	return func(a *Allocator) {
		if l != nil {
			a.logger = l
		}
	}
}
