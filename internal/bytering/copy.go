package bytering

// copyIn writes src into the ring starting at off, continuing at offset 0 if
// it runs past the end of storage. It returns the offset just after the
// written bytes.
//
// A length prefix that straddles the end is handled the same way: the first
// bytes land at the tail of the slice and the rest at the head.
func (r *Ring) copyIn(off uint64, src []byte) uint64 {
	n := copy(r.data[off:], src)
	if n < len(src) {
		copy(r.data, src[n:])
	}
	return (off + uint64(len(src))) % r.size
}

// copyOut fills dst from the ring starting at off, wrapping like copyIn.
func (r *Ring) copyOut(off uint64, dst []byte) uint64 {
	n := copy(dst, r.data[off:])
	if n < len(dst) {
		copy(dst[n:], r.data)
	}
	return (off + uint64(len(dst))) % r.size
}
