package flow

import "context"

// ToList applies f to in and drains the result fully into a slice. The
// input stream is closed on both normal and exceptional exit (ToSlice's
// deferred Close covers this).
func ToList[I, O any](ctx context.Context, f Flow[I, O], in Stream[I]) ([]O, error) {
	out := f.Apply(ctx, in)
	return ToSlice(ctx, out)
}

// ForEach applies f to in and calls fn with every resulting item, closing
// the output stream on exit.
func ForEach[I, O any](ctx context.Context, f Flow[I, O], in Stream[I], fn func(O)) error {
	out := f.Apply(ctx, in)
	defer out.Close()
	for {
		v, ok, err := out.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		fn(v)
	}
}

// Preview applies f to in and drains at most n items, closing the output
// stream even on early exit (before n items are produced, or before the
// stream itself ends).
func Preview[I, O any](ctx context.Context, f Flow[I, O], in Stream[I], n int) ([]O, error) {
	out := f.Apply(ctx, in)
	defer out.Close()
	items := make([]O, 0, n)
	for len(items) < n {
		v, ok, err := out.Next(ctx)
		if err != nil {
			return items, err
		}
		if !ok {
			return items, nil
		}
		items = append(items, v)
	}
	return items, nil
}
