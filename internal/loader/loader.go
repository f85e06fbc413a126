// Package loader fetches and decodes the viewer's assets off the render
// thread. Results are delivered as Events on a channel that the render loop
// drains once per frame.
package loader

import (
	"context"
	"io"
	"io/fs"

	"Tilt3D/internal/logger"
	"Tilt3D/internal/renderer"

	"go.uber.org/zap"
)

type Kind int

const (
	Progress Kind = iota
	Success
	Failure
)

func (k Kind) String() string {
	switch k {
	case Progress:
		return "progress"
	case Success:
		return "success"
	case Failure:
		return "failure"
	}
	return "unknown"
}

// Event is a notification about a single load. A load emits any number of
// Progress events followed by exactly one Success or Failure, after which
// the channel is closed.
type Event[T any] struct {
	Kind     Kind
	Location string
	Loaded   int64
	Total    int64
	Asset    T
	Err      error
}

// Percent is Loaded/Total*100, or 0 while Total is unknown.
func (e Event[T]) Percent() float64 {
	if e.Total <= 0 {
		return 0
	}
	return float64(e.Loaded) / float64(e.Total) * 100
}

// Buffered so a burst of progress reads does not stall the fetch.
const eventBuffer = 32

type decodeFunc[T any] func(r io.Reader, fsys fs.FS, location string) (T, error)

// LoadModel fetches and decodes the glTF document at location.
func LoadModel(ctx context.Context, src Source, location string) <-chan Event[*renderer.Node] {
	return load(ctx, src, location, DecodeGLTF)
}

// LoadEnvironment fetches and decodes the Radiance HDR image at location.
func LoadEnvironment(ctx context.Context, src Source, location string) <-chan Event[*renderer.Environment] {
	return load(ctx, src, location, func(r io.Reader, _ fs.FS, location string) (*renderer.Environment, error) {
		return DecodeHDR(r, location)
	})
}

func load[T any](ctx context.Context, src Source, location string, decode decodeFunc[T]) <-chan Event[T] {
	events := make(chan Event[T], eventBuffer)

	go func() {
		defer close(events)

		asset, err := fetch(ctx, src, location, decode, func(loaded, total int64) {
			// Progress is lossy; only the terminal event must arrive.
			select {
			case events <- Event[T]{Kind: Progress, Location: location, Loaded: loaded, Total: total}:
			default:
			}
		})

		final := Event[T]{Kind: Success, Location: location, Asset: asset}
		if err != nil {
			final = Event[T]{Kind: Failure, Location: location, Err: err}
		}
		select {
		case events <- final:
		case <-ctx.Done():
			logger.Log.Debug("Load abandoned", zap.String("location", location), zap.Stringer("kind", final.Kind))
		}
	}()

	return events
}

func fetch[T any](ctx context.Context, src Source, location string, decode decodeFunc[T], report func(loaded, total int64)) (T, error) {
	var zero T

	rc, size, err := src.Open(ctx, location)
	if err != nil {
		return zero, err
	}
	defer rc.Close()

	body := &progressReader{r: rc, total: size}
	if size > 0 {
		body.report = report
	}

	asset, err := decode(body, sourceFS{ctx: ctx, src: src, base: location}, location)
	if err != nil {
		return zero, err
	}
	// Decoders may stop before EOF; draining keeps the byte count honest.
	if _, err := io.Copy(io.Discard, body); err != nil {
		return zero, err
	}
	return asset, nil
}
