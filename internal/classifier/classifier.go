// Package classifier decides whether a chat message is proof of coding
// activity.
//
// Checks run in order and stop at the first positive:
//
//  1. A fenced (```...```) or inline (`...`) code span.
//  2. An attachment whose extension is on the source/markup/config allow-list.
//  3. An image attachment the AI oracle recognizes as code. When the oracle
//     fails (or none is configured) the image counts: outages must not cost
//     users their streak.
//  4. The message text, judged by the AI oracle, or by the deterministic
//     Score heuristic when the oracle fails.
//
// Classification has no side effects; callers log the returned Result.
package classifier

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-streak-bot/internal/domain"
)

// ErrNoOracle is what a missing oracle counts as.
var ErrNoOracle = errors.New("classifier: no oracle configured")

// Oracle is the external AI capability used for content that cannot be
// judged locally.
type Oracle interface {
	DetectCodeInText(ctx context.Context, text string) (bool, error)
	DetectCodeInImage(ctx context.Context, data []byte, mime string) (bool, error)
}

// Fetcher downloads attachment bytes.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Reason names the check that produced a Result.
type Reason string

const (
	ReasonCodeSpan      Reason = "code_span"
	ReasonSourceFile    Reason = "source_file"
	ReasonImageOracle   Reason = "image_oracle"
	ReasonImageFailOpen Reason = "image_fail_open"
	ReasonTextOracle    Reason = "text_oracle"
	ReasonHeuristic     Reason = "heuristic"
	ReasonNone          Reason = "none"
)

// Result is the outcome of Classify.
type Result struct {
	Qualifies bool
	Reason    Reason
	// Score is set when the heuristic ran.
	Score int
}

// Classifier implements the proof-of-work policy.
type Classifier struct {
	Oracle  Oracle
	Fetcher Fetcher
	// Timeout bounds each oracle call (including the image download).
	Timeout time.Duration

	logger zerolog.Logger
}

// New returns a Classifier. oracle and fetcher may be nil.
func New(oracle Oracle, fetcher Fetcher, timeout time.Duration) *Classifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Classifier{
		Oracle:  oracle,
		Fetcher: fetcher,
		Timeout: timeout,
		logger:  log.With().Str("component", "classifier").Logger(),
	}
}

var codeSpan = regexp.MustCompile("```[\\s\\S]*?```|`[^`\\n]+`")

// HasCodeSpan reports whether text contains a fenced or inline code span.
func HasCodeSpan(text string) bool {
	return codeSpan.MatchString(text)
}

var fencedBlock = regexp.MustCompile("```(?:[A-Za-z0-9_+-]*\\n)?([\\s\\S]*?)```")

// CodeBlocks returns the trimmed bodies of the fenced code blocks in text,
// without the optional language tag.
func CodeBlocks(text string) []string {
	var out []string
	for _, m := range fencedBlock.FindAllStringSubmatch(text, -1) {
		if body := strings.TrimSpace(m[1]); body != "" {
			out = append(out, body)
		}
	}
	return out
}

// Classify evaluates text and attachments.
func (c *Classifier) Classify(ctx context.Context, text string, attachments []domain.Attachment) Result {
	if HasCodeSpan(text) {
		return Result{Qualifies: true, Reason: ReasonCodeSpan}
	}
	for _, a := range attachments {
		if IsSourceFile(a.Filename) {
			return Result{Qualifies: true, Reason: ReasonSourceFile}
		}
	}
	for _, a := range attachments {
		if !a.IsImage() {
			continue
		}
		ok, err := c.imageHasCode(ctx, a)
		if err != nil {
			c.logger.Warn().Err(err).Str("filename", a.Filename).Msg("image oracle failed, accepting image")
			return Result{Qualifies: true, Reason: ReasonImageFailOpen}
		}
		if ok {
			return Result{Qualifies: true, Reason: ReasonImageOracle}
		}
	}

	if strings.TrimSpace(text) == "" {
		return Result{Reason: ReasonNone}
	}
	ok, err := c.textHasCode(ctx, text)
	if err == nil {
		if ok {
			return Result{Qualifies: true, Reason: ReasonTextOracle}
		}
		return Result{Reason: ReasonNone}
	}
	if !errors.Is(err, ErrNoOracle) {
		c.logger.Warn().Err(err).Msg("text oracle failed, using heuristic")
	}
	score := Score(text)
	return Result{Qualifies: score >= Threshold, Reason: ReasonHeuristic, Score: score}
}

func (c *Classifier) imageHasCode(ctx context.Context, a domain.Attachment) (bool, error) {
	if c.Oracle == nil || c.Fetcher == nil {
		return false, ErrNoOracle
	}
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	data, err := c.Fetcher.Fetch(ctx, a.URL)
	if err != nil {
		return false, err
	}
	return c.Oracle.DetectCodeInImage(ctx, data, a.ContentType)
}

func (c *Classifier) textHasCode(ctx context.Context, text string) (bool, error) {
	if c.Oracle == nil {
		return false, ErrNoOracle
	}
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()
	return c.Oracle.DetectCodeInText(ctx, text)
}
