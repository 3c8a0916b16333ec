package oracle

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog/log"
	gl "google.golang.org/api/generativelanguage/v1beta"
)

const (
	// MaxChallengeRunes caps generated challenge text.
	MaxChallengeRunes = 1000
	// MaxSnippets caps how many history snippets are sent as context.
	MaxSnippets = 30
)

const challengeSystemPrompt = "You are a senior coding mentor crafting a single, clear weekly coding challenge " +
	"for a Discord coding community. Use the provided recent history snippets (messages or code fragments) as " +
	"inspiration to make the challenge relevant. Constraints: the challenge should be unique to this community, " +
	"self-contained, doable within a week, and flexible across languages. Output only the challenge text " +
	"(2-5 sentences) without additional commentary, markdown headings, or code blocks."

// FallbackChallenge is posted when no model is available or it fails.
const FallbackChallenge = "Build a small project inspired by your recent work: implement a CLI tool that parses " +
	"input, applies a transformation (e.g. sorting or filtering), and outputs results with tests."

// ChallengeContext describes where a challenge will be posted.
type ChallengeContext struct {
	GuildName   string
	ChannelName string
}

// GenerateChallenge asks the challenge model for a weekly challenge inspired
// by snippets.
func (g *Gemini) GenerateChallenge(ctx context.Context, snippets []string, cc ChallengeContext) (string, error) {
	if len(snippets) > MaxSnippets {
		snippets = snippets[:MaxSnippets]
	}
	history := strings.Join(snippets, "\n\n")
	if strings.TrimSpace(history) == "" {
		history = "No specific code available."
	}
	prompt := fmt.Sprintf("Guild: %s\nChannel: %s\n\nRecent history (last 7 days, snippets):\n%s\n\n"+
		"Now produce one compelling weekly challenge based on recurring themes or skills from the context.",
		cc.GuildName, cc.ChannelName, history)

	req := &gl.GenerateContentRequest{
		SystemInstruction: &gl.Content{Parts: []*gl.Part{{Text: challengeSystemPrompt}}},
		Contents:          []*gl.Content{{Role: "user", Parts: []*gl.Part{{Text: prompt}}}},
		GenerationConfig:  &gl.GenerationConfig{Temperature: 0.8},
	}
	text, err := g.gen.Generate(ctx, g.ChallengeModel, req)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// ChallengeModel is the generation capability Challenges depends on.
type ChallengeModel interface {
	GenerateChallenge(ctx context.Context, snippets []string, cc ChallengeContext) (string, error)
}

// Challenges produces challenge text that is always safe to post: model
// output is sanitized and trimmed, and any failure yields FallbackChallenge.
type Challenges struct {
	Model  ChallengeModel
	policy *bluemonday.Policy
}

// NewChallenges returns a Challenges. model may be nil.
func NewChallenges(model ChallengeModel) *Challenges {
	return &Challenges{Model: model, policy: bluemonday.StrictPolicy()}
}

// Weekly returns the weekly challenge for a guild.
func (c *Challenges) Weekly(ctx context.Context, snippets []string, cc ChallengeContext) string {
	if c.Model == nil {
		return FallbackChallenge
	}
	text, err := c.Model.GenerateChallenge(ctx, snippets, cc)
	if err != nil {
		log.Warn().Err(err).Str("component", "oracle").Msg("challenge generation failed, using fallback")
		return FallbackChallenge
	}
	text = c.clean(text)
	if text == "" {
		return FallbackChallenge
	}
	return text
}

// clean strips markup the model may emit and trims to MaxChallengeRunes.
func (c *Challenges) clean(s string) string {
	p := c.policy
	if p == nil {
		p = bluemonday.StrictPolicy()
	}
	s = strings.TrimSpace(p.Sanitize(s))
	// StrictPolicy escapes; Discord renders plain text, so undo the common entities.
	s = strings.NewReplacer("&amp;", "&", "&lt;", "<", "&gt;", ">", "&#34;", `"`, "&#39;", "'").Replace(s)
	if utf8.RuneCountInString(s) > MaxChallengeRunes {
		s = string([]rune(s)[:MaxChallengeRunes])
	}
	return s
}

// Pool is the list of quick challenges served by /challenge.
var Pool = []string{
	"Build a simple calculator in your favorite language",
	"Create a function that reverses a string without using built-in methods",
	"Implement a binary search algorithm",
	"Write a program to check if a number is prime",
	"Create a to-do list CLI application",
	"Build a simple URL shortener",
	"Implement a basic hash table",
	"Write a function to find the longest word in a sentence",
	"Create a program that converts between different number bases",
	"Build a simple encryption/decryption tool",
	"Implement the bubble sort algorithm",
	"Create a palindrome checker",
	"Write a function to generate Fibonacci numbers",
	"Build a simple password generator",
	"Implement a stack data structure",
	"Create a function to find duplicates in an array",
	"Write a program to validate email addresses with regex",
	"Build a simple quiz game",
	"Implement a queue data structure",
	"Create a function to merge two sorted arrays",
}

// Random returns a random entry from Pool.
func Random() string {
	return Pool[rand.IntN(len(Pool))]
}
