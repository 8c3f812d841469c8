package correction

// AddCRC computes the Wires-X reply "CRC" byte: despite the name this
// is a plain additive checksum (sum of all bytes, mod 256), not an
// actual CRC. Checked by crc_additive_test.go
// (e.g. sum(0x12,0x34,0x56,0x78)=0x114 -> 0x14).
func AddCRC(data []byte) uint8 {
	var sum uint8
	for _, b := range data {
		sum += b
	}
	return sum
}

// Fletcher16 computes the Fletcher-16 checksum used to detect changes
// in the blocklist file between reload sweeps (spec.md §4.8/§9).
func Fletcher16(data []byte) uint16 {
	var sum1, sum2 uint16
	for _, b := range data {
		sum1 = (sum1 + uint16(b)) % 255
		sum2 = (sum2 + sum1) % 255
	}
	return sum2<<8 | sum1
}
