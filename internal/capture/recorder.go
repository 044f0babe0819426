package capture

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// screencaster is the frame source a Recorder drives. Session implements it
// over CDP; tests implement it in-process.
type screencaster interface {
	StartScreencast(ctx context.Context, onFrame func(data []byte, ackID int64)) error
	AckFrame(ctx context.Context, ackID int64) error
	StopScreencast(ctx context.Context) error
}

type recorderState int

const (
	recorderIdle recorderState = iota
	recorderRecording
	recorderStopped
)

// screencastFrame is queued between the event handler and the writer goroutine.
type screencastFrame struct {
	data  []byte
	ackID int64
}

// RecordingInfo summarizes a finished recording.
type RecordingInfo struct {
	RawPath string
	Frames  int64
	Elapsed time.Duration
}

// Recorder drives one timed screen recording: Start begins continuous frame
// capture into the raw artifact, Wait blocks for the requested duration, and
// Stop flushes and finalizes the container. Each Recorder is single-use;
// Stopped is terminal.
type Recorder struct {
	cast    screencaster
	rawPath string

	mu        sync.Mutex
	state     recorderState
	file      *os.File
	startedAt time.Time

	frameCount atomic.Int64
	frameCh    chan screencastFrame // buffered, handler to writer
	done       chan struct{}
	wg         sync.WaitGroup
}

func newRecorder(cast screencaster, rawPath string) *Recorder {
	return &Recorder{
		cast:    cast,
		rawPath: rawPath,
		frameCh: make(chan screencastFrame, 128),
		done:    make(chan struct{}),
	}
}

// Start transitions the recorder from idle to recording: opens the raw
// artifact exclusively and begins the screencast. The artifact path must not
// already exist.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.state != recorderIdle {
		r.mu.Unlock()
		return newError(CodeCaptureFailed, "recorder already started", nil)
	}

	f, err := os.OpenFile(r.rawPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		r.mu.Unlock()
		return newError(CodeCaptureFailed, "open raw artifact", err)
	}
	r.file = f
	r.state = recorderRecording
	r.startedAt = time.Now()
	r.mu.Unlock()

	r.wg.Add(1)
	go r.writerLoop()

	if err := r.cast.StartScreencast(ctx, r.handleFrame); err != nil {
		r.mu.Lock()
		r.state = recorderStopped
		r.mu.Unlock()
		r.teardown()
		_ = os.Remove(r.rawPath)
		return err
	}
	slog.Debug("recording started", "raw_path", r.rawPath)
	return nil
}

// Wait blocks the calling goroutine for the full duration. A fired context
// ends the wait early; the recording so far stays valid and the caller gets
// partial=true rather than an error.
func (r *Recorder) Wait(ctx context.Context, d time.Duration) (partial bool) {
	select {
	case <-time.After(d):
		return false
	case <-ctx.Done():
		slog.Debug("recording wait canceled, stopping early", "raw_path", r.rawPath)
		return true
	}
}

// Stop halts the screencast, drains queued frames, and flushes the raw
// artifact. Stopped is terminal; a second Stop is an error.
func (r *Recorder) Stop(ctx context.Context) (RecordingInfo, error) {
	r.mu.Lock()
	if r.state != recorderRecording {
		r.mu.Unlock()
		return RecordingInfo{}, newError(CodeCaptureFailed, "recorder is not recording", nil)
	}
	r.state = recorderStopped
	elapsed := time.Since(r.startedAt)
	r.mu.Unlock()

	stopErr := r.cast.StopScreencast(ctx)
	r.teardown()

	info := RecordingInfo{
		RawPath: r.rawPath,
		Frames:  r.frameCount.Load(),
		Elapsed: elapsed,
	}
	if stopErr != nil {
		return info, newError(CodeCaptureFailed, "stop screencast", stopErr)
	}
	return info, nil
}

// handleFrame is invoked from the CDP event loop and must never block.
func (r *Recorder) handleFrame(data []byte, ackID int64) {
	select {
	case r.frameCh <- screencastFrame{data: data, ackID: ackID}:
	default:
		// Channel full: ack so the browser keeps streaming, drop the write.
		cast := r.cast
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = cast.AckFrame(ctx, ackID)
		}()
	}
}

// writerLoop drains frameCh, acking first and writing second.
func (r *Recorder) writerLoop() {
	defer r.wg.Done()
	for {
		select {
		case frame := <-r.frameCh:
			r.processFrame(frame)
		case <-r.done:
			// Drain remaining frames (up to 5 s).
			timeout := time.After(5 * time.Second)
			for {
				select {
				case frame := <-r.frameCh:
					r.processFrame(frame)
				case <-timeout:
					return
				default:
					return
				}
			}
		}
	}
}

// processFrame acks the frame first, then appends it to the raw container.
func (r *Recorder) processFrame(frame screencastFrame) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = r.cast.AckFrame(ctx, frame.ackID)

	if len(frame.data) == 0 {
		return
	}
	if _, err := r.file.Write(frame.data); err != nil {
		slog.Warn("recording: write frame failed", "raw_path", r.rawPath, "error", err)
		return
	}
	r.frameCount.Add(1)
}

// teardown stops the writer and closes the raw artifact. Safe to call once
// per lifecycle; guarded by the done channel.
func (r *Recorder) teardown() {
	select {
	case <-r.done:
	default:
		close(r.done)
	}
	r.wg.Wait()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file != nil {
		if err := r.file.Sync(); err != nil {
			slog.Debug("raw artifact sync failed", "raw_path", r.rawPath, "error", err)
		}
		_ = r.file.Close()
		r.file = nil
	}
}
