// Package keys resolves an API key value to its record in the
// key-management service.
package keys

import (
	"context"
	"time"

	"github.com/rajasatyajit/apikey-authorizer/internal/metrics"
)

// Record is one API key as held by the key-management service.
// Value is the secret token; it is sensitive and must not be logged.
type Record struct {
	ID    string            `json:"id" dynamodbav:"id"`
	Value string            `json:"value" dynamodbav:"value"`
	Tags  map[string]string `json:"tags,omitempty" dynamodbav:"tags,omitempty"`
}

// Tag returns the named tag; a nil tag map behaves as empty
func (r Record) Tag(name string) (string, bool) {
	v, ok := r.Tags[name]
	return v, ok
}

// Lister enumerates every key in the key-management service. visit is
// called for each record in listing order; returning false stops the scan.
type Lister interface {
	ListKeys(ctx context.Context, visit func(Record) bool) error
}

// Resolver finds a key record by its value with a linear scan of the full
// listing. Callers are expected to cache results.
type Resolver struct {
	lister Lister
	now    func() time.Time
}

// NewResolver creates a resolver over lister
func NewResolver(lister Lister) *Resolver {
	return &Resolver{lister: lister, now: time.Now}
}

// Resolve returns the first record whose Value equals value. found is false
// when the listing is exhausted without a match; listing failures are
// returned as errors.
func (r *Resolver) Resolve(ctx context.Context, value string) (rec Record, found bool, err error) {
	start := r.now()
	defer func() {
		if err == nil {
			metrics.RecordKeyResolve(found, r.now().Sub(start))
		}
	}()

	err = r.lister.ListKeys(ctx, func(candidate Record) bool {
		if candidate.Value == value {
			rec, found = candidate, true
			return false
		}
		return true
	})
	if err != nil {
		return Record{}, false, err
	}
	return rec, found, nil
}

// StaticLister serves a fixed set of records, for local runs and tests
type StaticLister []Record

func (s StaticLister) ListKeys(ctx context.Context, visit func(Record) bool) error {
	for _, rec := range s {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !visit(rec) {
			return nil
		}
	}
	return nil
}
