// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package gpt

import "encoding/binary"

// toMiddleEndian converts a (big-endian, as produced by uuid.MarshalBinary)
// UUID byte slice to the mixed-endian layout GPT stores GUIDs in on disk:
// the first three fields little-endian, the last two left as a big-endian
// byte sequence.
func toMiddleEndian(data []byte) []byte {
	b := make([]byte, 16)

	binary.LittleEndian.PutUint32(b, binary.BigEndian.Uint32(data[0:4]))
	binary.LittleEndian.PutUint16(b[4:], binary.BigEndian.Uint16(data[4:6]))
	binary.LittleEndian.PutUint16(b[6:], binary.BigEndian.Uint16(data[6:8]))
	copy(b[8:], data[8:16])

	return b
}

// fromMiddleEndian is the inverse of toMiddleEndian.
func fromMiddleEndian(data []byte) []byte {
	b := make([]byte, 16)

	binary.BigEndian.PutUint32(b, binary.LittleEndian.Uint32(data[0:4]))
	binary.BigEndian.PutUint16(b[4:], binary.LittleEndian.Uint16(data[4:6]))
	binary.BigEndian.PutUint16(b[6:], binary.LittleEndian.Uint16(data[6:8]))
	copy(b[8:], data[8:16])

	return b
}
