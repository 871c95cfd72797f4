package esearch

import (
	"context"

	"github.com/BenLubar/memoize"
	"github.com/carbocation/geoquery"
)

// Resolver is anything that can turn a term into accessions.
type Resolver interface {
	Resolve(ctx context.Context, term string) (geoquery.AccessionList, error)
}

// Memoized remembers the outcome of every term it has resolved, so repeated
// terms cost a single remote call. Failures are remembered too: a repeat of a
// failed term fails the same way.
type Memoized struct {
	resolve func(string) (geoquery.AccessionList, error)
}

// Memoize wraps r. All calls are made with ctx, whatever context is later
// passed to Resolve.
func Memoize(ctx context.Context, r Resolver) *Memoized {
	fn := func(term string) (geoquery.AccessionList, error) {
		return r.Resolve(ctx, term)
	}

	return &Memoized{
		resolve: memoize.Memoize(fn).(func(string) (geoquery.AccessionList, error)),
	}
}

func (m *Memoized) Resolve(_ context.Context, term string) (geoquery.AccessionList, error) {
	return m.resolve(term)
}
