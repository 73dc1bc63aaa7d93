package sim

// mask returns a bit mask covering the low w bits.
func mask(w int) uint64 {
	if w >= 64 {
		return ^uint64(0)
	}
	return 1<<uint(w) - 1
}

// sext sign-extends the w-bit value v to 64 bits.
func sext(v uint64, w int) int64 {
	return int64(v<<uint(64-w)) >> uint(64-w)
}

func b2u(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
