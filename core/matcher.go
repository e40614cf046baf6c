package swd

// Matcher is the uniform speculative-matching contract the decode loop
// (C8) drives every framing through, whether it is one of the eleven
// simple Sequence variants (C4) or the heavier TransactionMatcher (C5).
// Implementations hold their own consumed-bits bookkeeping and check
// state; the decode loop never reaches into that state directly.
type Matcher interface {
	// FrameType is the tag this matcher commits on success.
	FrameType() FrameType
	// Eligible reports whether this matcher may run given the current
	// protocol and the most recently committed frame type (§4.3's
	// eligibility columns).
	Eligible(ctx *AdiContext) bool
	// Variable reports whether this is a variable-length matcher (line
	// reset, JTAG TLR, idle cycle, the DS_SEL_ALERT preamble) — the
	// decode loop tracks these separately for its best-match rule.
	Variable() bool
	// Reset clears per-attempt state at the start of a speculative pass.
	Reset()
	// Match advances the matcher's check against the full currently
	// buffered bits (oldest first) and returns its state plus the number
	// of bits examined/claimed so far.
	Match(bits []Bit, ctx *AdiContext) (MatchState, int)
	// Commit is invoked exactly once, on the winning matcher, with the
	// bits it claimed. It emits frames/markers to sink and applies the
	// matcher's ADI state update.
	Commit(consumed []Bit, ctx *AdiContext, sink ResultSink)
}
