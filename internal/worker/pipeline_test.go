package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/voxlabs/interviewd/internal/cache"
	"github.com/voxlabs/interviewd/internal/prompt"
	"github.com/voxlabs/interviewd/pkg/Logger"
)

type fakeSTT struct {
	transcript string
	err        error
}

func (f *fakeSTT) Transcribe(_ context.Context, wav []byte) (string, error) {
	return f.transcript, f.err
}

type fakeLLM struct {
	replies []string
	errs    []error
	calls   int
}

func (f *fakeLLM) Reply(_ context.Context, _ string) (string, error) {
	i := f.calls
	f.calls++
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	var reply string
	if i < len(f.replies) {
		reply = f.replies[i]
	}
	return reply, err
}

type fakeTTS struct {
	ref string
	err error
}

func (f *fakeTTS) Synthesize(_ context.Context, sessionID string, turn int, _ string) (string, error) {
	return f.ref, f.err
}

func newTestPipeline(stt Transcriber, llm Replier, tts Synthesizer, c cache.ResponseCache) *Pipeline {
	return NewPipeline(stt, llm, tts, c, prompt.NewBuilder(nil, 10), 16000, 2, Logger.NewNop())
}

func collect(t *testing.T, p *Pipeline, job Job) []Result {
	t.Helper()
	results := make(chan Result, 8)
	p.Process(context.Background(), job, results)
	close(results)
	var out []Result
	for res := range results {
		out = append(out, res)
	}
	return out
}

func terminal(t *testing.T, results []Result) Result {
	t.Helper()
	if len(results) == 0 {
		t.Fatal("no results produced")
	}
	return results[len(results)-1]
}

func TestPipelineSuccess(t *testing.T) {
	llm := &fakeLLM{replies: []string{"Interviewer Alex: What was the hardest bug you fixed?"}}
	p := newTestPipeline(
		&fakeSTT{transcript: " I work on distributed systems. "},
		llm,
		&fakeTTS{ref: "/responses/s1_0.wav"},
		nil,
	)

	results := collect(t, p, Job{SessionID: "s1", Turn: 0, Audio: []byte{1, 2, 3, 4}})

	if len(results) != 2 {
		t.Fatalf("expected progress + terminal results, got %d", len(results))
	}
	if results[0].Status != StatusProgress || results[0].Stage != "transcribed" {
		t.Errorf("expected a transcribed progress result, got %+v", results[0])
	}
	if results[0].Transcript != "I work on distributed systems." {
		t.Errorf("transcript should be trimmed, got %q", results[0].Transcript)
	}

	fin := terminal(t, results)
	if fin.Status != StatusSuccess {
		t.Fatalf("expected success, got %+v", fin)
	}
	if fin.Response != "What was the hardest bug you fixed?" {
		t.Errorf("response should be cleaned of role labels, got %q", fin.Response)
	}
	if fin.AudioRef != "/responses/s1_0.wav" {
		t.Errorf("expected audio ref, got %q", fin.AudioRef)
	}
}

func TestPipelineEmptyAudio(t *testing.T) {
	p := newTestPipeline(&fakeSTT{}, &fakeLLM{}, nil, nil)
	fin := terminal(t, collect(t, p, Job{SessionID: "s1"}))
	if fin.Status != StatusError {
		t.Errorf("empty audio must fail, got %+v", fin)
	}
}

func TestPipelineEmptyTranscript(t *testing.T) {
	p := newTestPipeline(&fakeSTT{transcript: "   "}, &fakeLLM{}, nil, nil)
	fin := terminal(t, collect(t, p, Job{SessionID: "s1", Audio: []byte{1, 2}}))
	if fin.Status != StatusError {
		t.Errorf("blank transcript must fail, got %+v", fin)
	}
}

func TestPipelineTranscriptionFailure(t *testing.T) {
	p := newTestPipeline(&fakeSTT{err: errors.New("whisper down")}, &fakeLLM{}, nil, nil)
	fin := terminal(t, collect(t, p, Job{SessionID: "s1", Audio: []byte{1, 2}}))
	if fin.Status != StatusError {
		t.Errorf("transcription failure must fail, got %+v", fin)
	}
}

func TestPipelineRetriesGeneration(t *testing.T) {
	llm := &fakeLLM{
		errs:    []error{errors.New("model busy"), nil},
		replies: []string{"", "Tell me about a recent project."},
	}
	p := newTestPipeline(&fakeSTT{transcript: "hello"}, llm, nil, nil)

	fin := terminal(t, collect(t, p, Job{SessionID: "s1", Audio: []byte{1, 2}}))
	if fin.Status != StatusSuccess {
		t.Fatalf("expected success after retry, got %+v", fin)
	}
	if llm.calls != 2 {
		t.Errorf("expected 2 generation attempts, got %d", llm.calls)
	}
}

func TestPipelineGenerationExhaustsRetries(t *testing.T) {
	llm := &fakeLLM{errs: []error{errors.New("down"), errors.New("down")}}
	p := newTestPipeline(&fakeSTT{transcript: "hello"}, llm, nil, nil)

	fin := terminal(t, collect(t, p, Job{SessionID: "s1", Audio: []byte{1, 2}}))
	if fin.Status != StatusError {
		t.Errorf("expected error after exhausted retries, got %+v", fin)
	}
	if llm.calls != 2 {
		t.Errorf("expected exactly maxRetries attempts, got %d", llm.calls)
	}
}

func TestPipelineCacheHitSkipsModel(t *testing.T) {
	c := cache.NewMemoryCache(10, 0)
	job := Job{
		SessionID:       "s1",
		Audio:           []byte{1, 2},
		Position:        "Backend Engineer",
		Difficulty:      0.5,
		InterviewerType: "technical",
	}
	c.Set(cache.Key(job.InterviewerType, job.Position, job.Difficulty, "hello"), "Cached question?")

	llm := &fakeLLM{}
	p := newTestPipeline(&fakeSTT{transcript: "hello"}, llm, nil, c)

	fin := terminal(t, collect(t, p, job))
	if fin.Status != StatusSuccess || fin.Response != "Cached question?" {
		t.Fatalf("expected cached response, got %+v", fin)
	}
	if llm.calls != 0 {
		t.Errorf("cache hit must not invoke the model, got %d calls", llm.calls)
	}
}

func TestPipelineCachesGeneratedResponse(t *testing.T) {
	c := cache.NewMemoryCache(10, 0)
	llm := &fakeLLM{replies: []string{"First answer.", "Second answer."}}
	p := newTestPipeline(&fakeSTT{transcript: "hello"}, llm, nil, c)

	job := Job{SessionID: "s1", Audio: []byte{1, 2}, InterviewerType: "professional"}
	terminal(t, collect(t, p, job))
	fin := terminal(t, collect(t, p, job))

	if fin.Response != "First answer." {
		t.Errorf("second run should hit the cache, got %q", fin.Response)
	}
	if llm.calls != 1 {
		t.Errorf("expected a single model call, got %d", llm.calls)
	}
}

func TestPipelineSynthesisFailureIsNonFatal(t *testing.T) {
	llm := &fakeLLM{replies: []string{"A question."}}
	p := newTestPipeline(
		&fakeSTT{transcript: "hello"},
		llm,
		&fakeTTS{err: errors.New("piper down")},
		nil,
	)

	fin := terminal(t, collect(t, p, Job{SessionID: "s1", Audio: []byte{1, 2}}))
	if fin.Status != StatusSuccess {
		t.Fatalf("synthesis failure must not fail the turn, got %+v", fin)
	}
	if fin.AudioRef != "" {
		t.Errorf("expected empty audio ref on synthesis failure, got %q", fin.AudioRef)
	}
}
