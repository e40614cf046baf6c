package swd

// matchLineReset implements the ambiguous line-reset boundary of §4.4: a
// run of at least 50 consecutive high bits, disambiguated against an
// immediately following TARGETSEL write whose own Start bit is itself a
// high bit and therefore indistinguishable, while it lasts, from more
// reset.
//
// Once the run of highs terminates (a low bit finally arrives), the
// matcher asks: could the run's own last high bit actually have been the
// next transaction's Start bit? It tests this by treating that bit plus
// the seven bits that follow as a full 8-bit request and checking whether
// they decode to a TARGETSEL write (DP, write, A[3:2] == 0b11, i.e. the
// RDBUFF/TARGETSEL address with the write direction — see §4.3's REQUEST
// layout). If so, and giving up that one bit still leaves at least 50
// high bits for the reset itself, the reset claims everything before it;
// otherwise — including when the run is exactly 50 and can't spare a bit
// — it claims the whole run.
func (s *Sequence) matchLineReset(bits []Bit, ctx *AdiContext) (MatchState, int) {
	n := len(bits)

	limit := n
	if limit > 50 {
		limit = 50
	}
	for i := 0; i < limit; i++ {
		if bits[i].Value() != High {
			return Mismatch, i + 1
		}
	}
	if n < 50 {
		return Partial, n
	}

	run := 0
	for run < n && bits[run].Value() == High {
		run++
	}
	if run == n {
		// The whole buffer is still high; the run hasn't terminated yet.
		return Partial, n
	}

	if run-1 >= 50 {
		reqStart := run - 1
		if reqStart+8 > n {
			// Not enough lookahead yet to rule the ambiguity in or out.
			return Partial, n
		}
		if isTargetSelRequest(bits[reqStart : reqStart+8]) {
			return Complete, reqStart
		}
	}
	return Complete, run
}

// isTargetSelRequest reports whether an 8-bit window decodes as a valid
// DP write addressed at A[3:2] == 0b11 (TARGETSEL), per §4.5's request
// layout.
func isTargetSelRequest(b []Bit) bool {
	if b[0].Value() != High {
		return false
	}
	apndp := b[1].Value() == High
	rnw := b[2].Value() == High
	a2 := b[3].Value() == High
	a3 := b[4].Value() == High
	parity := b[5].Value() == High
	stop := b[6].Value() == High
	park := b[7].Value() == High

	if stop || !park {
		return false
	}
	if parity != requestParity(apndp, rnw, a2, a3) {
		return false
	}
	return !apndp && !rnw && a2 && a3
}
