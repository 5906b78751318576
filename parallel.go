package d3d11

import (
	"context"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"
)

// RecordFunc records commands into a deferred context.
type RecordFunc func(dc *DeferredContext) error

// RecordParallel runs every fn on its own deferred context concurrently and
// returns the finished command lists in the order of fns. When any fn fails
// or ctx is canceled, every list is released and the first error returned.
func (d *Device) RecordParallel(ctx context.Context, fns ...RecordFunc) ([]*CommandList, error) {
	lists := make([]*CommandList, len(fns))
	g, gctx := errgroup.WithContext(ctx)
	for i, fn := range fns {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			dc, err := d.CreateDeferredContext()
			if err != nil {
				return err
			}
			defer dc.Release()
			if err := fn(dc); err != nil {
				return errors.Wrapf(err, "d3d11: record command list %d", i)
			}
			lists[i], err = dc.FinishCommandList(false)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		for _, l := range lists {
			if l != nil {
				l.Release()
			}
		}
		return nil, err
	}
	return lists, nil
}
