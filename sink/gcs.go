package sink

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
	"github.com/carbocation/geoquery"
	"github.com/carbocation/pfx"
)

// GCS rewrites a JSON array object on Google Storage at every checkpoint. An
// object only becomes visible once its upload completes, so a reader never
// sees a partial checkpoint.
type GCS struct {
	Path string

	ctx    context.Context
	object *storage.ObjectHandle
}

func NewGCS(ctx context.Context, client *storage.Client, path string) (*GCS, error) {
	bucket, object, ok := geoquery.SplitGSPath(path)
	if !ok {
		return nil, fmt.Errorf("%s: expected gs://bucket/object", path)
	}

	return &GCS{
		Path:   path,
		ctx:    ctx,
		object: client.Bucket(bucket).Object(object),
	}, nil
}

func (g *GCS) Checkpoint(records []geoquery.ResultRecord) error {
	// Cancelling the context is how an upload is abandoned
	ctx, cancel := context.WithCancel(g.ctx)
	defer cancel()

	w := g.object.NewWriter(ctx)
	w.ContentType = "application/json"

	if err := encodeJSONArray(w, records); err != nil {
		cancel()
		w.Close()
		return pfx.Err(fmt.Errorf("%s: %w", g.Path, err))
	}

	if err := w.Close(); err != nil {
		return pfx.Err(fmt.Errorf("%s: %w", g.Path, err))
	}

	return nil
}

func (g *GCS) Close() error {
	return nil
}
