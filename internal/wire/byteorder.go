package wire

import "encoding/binary"

// htonll/ntohll name the byte-order conversion spec §4.3 calls out as its
// own sub-component. encoding/binary.BigEndian already performs the swap
// unconditionally regardless of host endianness, so these are thin, named
// wrappers kept for readability at call sites that think in "host order vs
// wire order" terms rather than "big endian vs little endian".
func htonll(v uint64) [8]byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return b
}

func ntohll(b []byte) uint64 {
	return binary.BigEndian.Uint64(b)
}
