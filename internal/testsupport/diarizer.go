package testsupport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"parley/internal/diarization"
	"parley/internal/speakers"
)

// ChunkReply scripts the endpoint's answer for one chunk.
type ChunkReply struct {
	Response diarization.Response
	Err      error
	// Delay holds the call open until it elapses or the call context ends.
	Delay time.Duration
}

// Reply builds a successful ChunkReply.
func Reply(dialog string, embeddings map[string]speakers.Embedding) ChunkReply {
	return ChunkReply{Response: diarization.Response{
		Dialog:        dialog,
		Transcription: dialog,
		Embeddings:    embeddings,
		Status:        "success",
	}}
}

// ScriptedDiarizer answers Diarize calls from a fixed script, one reply per
// call in order, and records every request it receives.
type ScriptedDiarizer struct {
	mu       sync.Mutex
	replies  []ChunkReply
	requests []diarization.Request
}

// NewScriptedDiarizer returns a diarizer that plays replies in order.
func NewScriptedDiarizer(replies ...ChunkReply) *ScriptedDiarizer {
	return &ScriptedDiarizer{replies: replies}
}

// Diarize implements pipeline.Diarizer.
func (d *ScriptedDiarizer) Diarize(ctx context.Context, req diarization.Request) (diarization.Response, error) {
	d.mu.Lock()
	call := len(d.requests)
	d.requests = append(d.requests, cloneRequest(req))
	var reply ChunkReply
	ok := call < len(d.replies)
	if ok {
		reply = d.replies[call]
	}
	d.mu.Unlock()

	if !ok {
		return diarization.Response{}, fmt.Errorf("scripted diarizer: unexpected call %d", call)
	}
	if reply.Delay > 0 {
		timer := time.NewTimer(reply.Delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return diarization.Response{}, ctx.Err()
		}
	}
	return reply.Response, reply.Err
}

// Requests returns copies of the requests received so far.
func (d *ScriptedDiarizer) Requests() []diarization.Request {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]diarization.Request, len(d.requests))
	copy(out, d.requests)
	return out
}

// Calls returns the number of Diarize calls made.
func (d *ScriptedDiarizer) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.requests)
}

func cloneRequest(req diarization.Request) diarization.Request {
	out := diarization.Request{Audio: append([]byte(nil), req.Audio...), ChunkIndex: req.ChunkIndex}
	if req.References != nil {
		out.References = make(map[string]speakers.Embedding, len(req.References))
		for label, emb := range req.References {
			out.References[label] = emb.Clone()
		}
	}
	return out
}
