// Package botscore evaluates how likely a contact-form submission is to be
// automated abuse. Score is a pure function over the submission and a few
// request-derived signals; it has no side effects and performs no I/O, which
// keeps it trivially testable and safe to call from any handler.
package botscore

import "strings"

// Score bounds and routing thresholds.
const (
	// MaxScore is the ceiling of the score range and the definitive-bot
	// value assigned on a honeypot hit.
	MaxScore = 100
	// FlagThreshold routes a submission to the flagged bucket.
	FlagThreshold = 70
	// ReviewThreshold routes a submission to the review bucket.
	ReviewThreshold = 40
)

// Signal weights.
const (
	fastSubmitScore   = 50 // submitted < 3s after the form was loaded
	quickSubmitScore  = 20 // submitted < 10s after the form was loaded
	spamContentScore  = 30 // message contains a denylisted token
	repeatClientScore = 30 // more than 2 recent submissions from this client
	badAgentScore     = 30 // missing or crawler-looking user agent
)

// spamTokens is the denylist matched case-insensitively as substrings.
// At most one content penalty is applied regardless of how many match.
var spamTokens = []string{"viagra", "casino", "loan", "bitcoin", "click here", "act now"}

// Input carries the signals the evaluator scores. ElapsedSeconds is the time
// between form load and submission (zero or negative means the timing signal
// is unavailable and is not penalized). RecentCount is the number of
// submissions already counted for this client's fingerprint in the current
// rate window; it is supplied by the caller so the evaluator stays pure.
type Input struct {
	Honeypot       string
	Message        string
	UserAgent      string
	ElapsedSeconds float64
	RecentCount    int
}

// Score returns the bot likelihood for in on a 0..100 scale.
//
// A non-empty honeypot field is definitive: the score is 100 immediately and
// no other signal is consulted. Callers must still answer the client with a
// decoy success so automated submitters cannot detect the trap, and must not
// persist the submission.
//
// Otherwise independent signals accumulate: submission timing, denylisted
// message content, repeat submissions from the same fingerprint, and a
// missing or bot-identifying user agent. The sum is clamped to 100. Adding a
// risk signal never lowers the score.
func Score(in Input) int {
	if in.Honeypot != "" {
		return MaxScore
	}

	score := 0

	if in.ElapsedSeconds > 0 {
		switch {
		case in.ElapsedSeconds < 3:
			score += fastSubmitScore
		case in.ElapsedSeconds < 10:
			score += quickSubmitScore
		}
	}

	msg := strings.ToLower(in.Message)
	for _, tok := range spamTokens {
		if strings.Contains(msg, tok) {
			score += spamContentScore
			break
		}
	}

	if in.RecentCount > 2 {
		score += repeatClientScore
	}

	ua := strings.ToLower(in.UserAgent)
	if ua == "" || strings.Contains(ua, "bot") || strings.Contains(ua, "crawler") {
		score += badAgentScore
	}

	if score > MaxScore {
		score = MaxScore
	}
	return score
}

// Route maps a score to its triage bucket: "flagged" at or above
// FlagThreshold, "review" at or above ReviewThreshold, "new" otherwise.
// The flagged bucket also implies the is_flagged switch on the stored row.
func Route(score int) string {
	switch {
	case score >= FlagThreshold:
		return "flagged"
	case score >= ReviewThreshold:
		return "review"
	default:
		return "new"
	}
}
