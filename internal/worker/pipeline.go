package worker

import (
	"context"
	"strings"
	"time"

	"github.com/voxlabs/interviewd/internal/cache"
	"github.com/voxlabs/interviewd/internal/prompt"
	"github.com/voxlabs/interviewd/pkg/Logger"
	"github.com/voxlabs/interviewd/pkg/audiobuf"
)

// Pipeline runs the blocking inference sequence for one job:
// transcribe -> prompt -> generate (cached, retried) -> synthesize.
// Synthesis failure is non-fatal; the turn proceeds text-only.
type Pipeline struct {
	stt        Transcriber
	llm        Replier
	tts        Synthesizer
	cache      cache.ResponseCache
	prompts    *prompt.Builder
	logger     *Logger.Logger
	sampleRate int
	maxRetries int
}

func NewPipeline(
	stt Transcriber,
	llm Replier,
	tts Synthesizer,
	responseCache cache.ResponseCache,
	prompts *prompt.Builder,
	sampleRate int,
	maxRetries int,
	logger *Logger.Logger,
) *Pipeline {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Pipeline{
		stt:        stt,
		llm:        llm,
		tts:        tts,
		cache:      responseCache,
		prompts:    prompts,
		logger:     logger,
		sampleRate: sampleRate,
		maxRetries: maxRetries,
	}
}

// Process executes the job and posts progress plus one terminal result.
func (p *Pipeline) Process(ctx context.Context, job Job, results chan<- Result) {
	if len(job.Audio) == 0 {
		results <- errorResult(job, "no audio captured")
		return
	}

	wav := audiobuf.BuildWAV(job.Audio, p.sampleRate)
	transcript, err := p.stt.Transcribe(ctx, wav)
	if err != nil {
		p.logger.Errorf("transcription failed for session %s: %v", job.SessionID, err)
		results <- errorResult(job, "failed to transcribe audio")
		return
	}
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		results <- errorResult(job, "empty transcription")
		return
	}

	results <- Result{
		SessionID:  job.SessionID,
		Turn:       job.Turn,
		Status:     StatusProgress,
		Stage:      "transcribed",
		Transcript: transcript,
		ProducedAt: time.Now(),
	}

	response, err := p.generate(ctx, job, transcript)
	if err != nil {
		p.logger.Errorf("generation failed for session %s: %v", job.SessionID, err)
		results <- errorResult(job, "failed to generate response")
		return
	}

	audioRef := ""
	if p.tts != nil {
		audioRef, err = p.tts.Synthesize(ctx, job.SessionID, job.Turn, response)
		if err != nil {
			p.logger.Warnf("synthesis failed for session %s, continuing text-only: %v", job.SessionID, err)
			audioRef = ""
		}
	}

	results <- Result{
		SessionID:  job.SessionID,
		Turn:       job.Turn,
		Status:     StatusSuccess,
		Transcript: transcript,
		Response:   response,
		AudioRef:   audioRef,
		ProducedAt: time.Now(),
	}
}

// generate consults the deterministic response cache before invoking the
// model, and retries generation up to maxRetries.
func (p *Pipeline) generate(ctx context.Context, job Job, transcript string) (string, error) {
	key := cache.Key(job.InterviewerType, job.Position, job.Difficulty, transcript)
	if p.cache != nil {
		if cached, ok := p.cache.Get(key); ok {
			p.logger.Debugf("response cache hit for session %s", job.SessionID)
			return cached, nil
		}
	}

	fullPrompt := p.prompts.Build(transcript, job.History, job.InterviewerType, job.Position, job.Difficulty)

	var lastErr error
	for attempt := 0; attempt < p.maxRetries; attempt++ {
		raw, err := p.llm.Reply(ctx, fullPrompt)
		if err != nil {
			lastErr = err
			continue
		}
		cleaned := prompt.Clean(raw)
		if cleaned == "" {
			lastErr = errEmptyResponse
			continue
		}
		if p.cache != nil {
			p.cache.Set(key, cleaned)
		}
		return cleaned, nil
	}
	return "", lastErr
}
