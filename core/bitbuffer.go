package swd

// BitBuffer is the ordered queue of sampled bits the decode loop drives
// every matcher against. It is append-only at the tail and consumed in
// whole prefixes from the head: a winning matcher takes exactly the bits
// it checked, the remainder survives for the next iteration (§3).
type BitBuffer struct {
	bits []Bit
}

// Append adds one newly sampled bit to the tail.
func (b *BitBuffer) Append(bit Bit) {
	b.bits = append(b.bits, bit)
}

// Len reports the number of bits currently buffered.
func (b *BitBuffer) Len() int { return len(b.bits) }

// At returns the i-th buffered bit (0 is the oldest/head bit). Panics on
// out-of-range access, matching the precondition that matchers only index
// bits that Len() already reports as present.
func (b *BitBuffer) At(i int) Bit { return b.bits[i] }

// PopFront removes and returns the head bit. Used only to slough a single
// bit into the error-bits accumulator when no matcher matches (§4.6 step 6).
func (b *BitBuffer) PopFront() Bit {
	bit := b.bits[0]
	b.bits = b.bits[1:]
	return bit
}

// Consume atomically removes the first n bits from the buffer, returning
// them as the prefix a winning matcher claimed. The buffer is never
// rewound: Consume only ever shrinks it from the head.
func (b *BitBuffer) Consume(n int) []Bit {
	prefix := make([]Bit, n)
	copy(prefix, b.bits[:n])
	b.bits = b.bits[n:]
	return prefix
}
