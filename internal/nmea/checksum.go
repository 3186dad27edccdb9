package nmea

// Checksum returns the running XOR of every byte in b.
func Checksum(b []byte) uint8 {
	var ck uint8
	for _, c := range b {
		ck ^= c
	}
	return ck
}

// ChecksumString is Checksum over the bytes of s.
func ChecksumString(s string) uint8 {
	var ck uint8
	for i := 0; i < len(s); i++ {
		ck ^= s[i]
	}
	return ck
}
