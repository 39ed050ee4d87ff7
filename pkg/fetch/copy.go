package fetch

import (
	"errors"
	"io"
)

// DefaultBufferSize is the read size used when none is configured.
const DefaultBufferSize = 32 * 1024

// Sink is an open storage object. Close commits it; nothing is durable before
// a successful Close.
type Sink interface {
	io.Writer
	Close() error
}

// Observer receives progress notifications from a running download.
// Implementations must be safe for use by concurrent downloads.
type Observer interface {
	// Resolved is called once the target is known. contentLength is the
	// declared length, or -1 if unknown.
	Resolved(target Target, contentLength int64)
	// Written is called after each chunk has been accepted by the sink.
	Written(n int)
}

// Copy streams src into dst one chunk at a time: every chunk is fully written
// before the next read. It closes dst only after src is exhausted. On a read
// or write failure dst is left open and nothing already written is undone.
//
// The returned count is the sum of chunk lengths read, regardless of any
// declared Content-Length.
func Copy(dst Sink, src io.Reader, buf []byte, obs Observer) (uint64, error) {
	if len(buf) == 0 {
		buf = make([]byte, DefaultBufferSize)
	}

	var size uint64
	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			size += uint64(n)
			if err := writeChunk(dst, buf[:n]); err != nil {
				return size, err
			}
			if obs != nil {
				obs.Written(n)
			}
		}
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			return size, &Error{Kind: KindTransport, Phase: PhaseStreaming, Msg: "failed to read chunk from HTTP response", Err: readErr}
		}
	}

	if err := dst.Close(); err != nil {
		return size, &Error{Kind: KindStorage, Phase: PhaseFinalized, Msg: "failed to finalize storage upload", Err: err}
	}
	return size, nil
}

func writeChunk(dst io.Writer, chunk []byte) error {
	nw, err := dst.Write(chunk)
	if err == nil && nw != len(chunk) {
		err = io.ErrShortWrite
	}
	if err != nil {
		return &Error{Kind: KindStorage, Phase: PhaseStreaming, Msg: "failed to write chunk to storage", Err: err}
	}
	return nil
}

// Observers fans notifications out to every non-nil observer.
func Observers(obs ...Observer) Observer {
	var list multiObserver
	for _, o := range obs {
		if o != nil {
			list = append(list, o)
		}
	}
	switch len(list) {
	case 0:
		return nil
	case 1:
		return list[0]
	}
	return list
}

type multiObserver []Observer

func (m multiObserver) Resolved(target Target, contentLength int64) {
	for _, o := range m {
		o.Resolved(target, contentLength)
	}
}

func (m multiObserver) Written(n int) {
	for _, o := range m {
		o.Written(n)
	}
}
