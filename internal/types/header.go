package types

import (
	"encoding/binary"
	"fmt"
)

// HeaderMagic is the fixed 4-byte magic that opens every BlockHeader.
var HeaderMagic = [4]byte{'Z', 'L', 'N', 'A'}

// HeaderVersion is the current wire/disk format version. Future versions
// must preserve the first 6 bytes (magic + version) of the layout.
const HeaderVersion uint16 = 1

// HeaderSize is the fixed, on-disk size of a BlockHeader in bytes.
const HeaderSize = 96

// BlockHeader is the fixed 96-byte record committed once per batch id.
//
//	offset size field
//	 0      4   magic        = "ZLNA"
//	 4      2   hdr_version  = 1        (big-endian)
//	 6      2   reserved     = 0
//	 8      8   batch_id                (big-endian u64)
//	16     32   prev_root
//	48     32   new_root
//	80      4   tx_count                (big-endian u32)
//	84      8   open_at                 (big-endian u64, seconds since epoch)
//	92      4   flags                   (big-endian u32)
type BlockHeader struct {
	Magic      [4]byte
	HdrVersion uint16
	BatchID    uint64
	PrevRoot   [32]byte
	NewRoot    [32]byte
	TxCount    uint32
	OpenAt     uint64
	Flags      uint32
}

// Genesis returns the header for batch 0: the implicit root of an empty
// chain. The chain is "empty" iff no header with BatchID>=1 has been
// committed.
func Genesis() BlockHeader {
	return BlockHeader{
		Magic:      HeaderMagic,
		HdrVersion: HeaderVersion,
	}
}

// ToBytes encodes the header into its fixed 96-byte wire/disk form.
func (h *BlockHeader) ToBytes() [HeaderSize]byte {
	var buf [HeaderSize]byte
	copy(buf[0:4], h.Magic[:])
	binary.BigEndian.PutUint16(buf[4:6], h.HdrVersion)
	binary.BigEndian.PutUint16(buf[6:8], 0) // reserved
	binary.BigEndian.PutUint64(buf[8:16], h.BatchID)
	copy(buf[16:48], h.PrevRoot[:])
	copy(buf[48:80], h.NewRoot[:])
	binary.BigEndian.PutUint32(buf[80:84], h.TxCount)
	binary.BigEndian.PutUint64(buf[84:92], h.OpenAt)
	binary.BigEndian.PutUint32(buf[92:96], h.Flags)
	return buf
}

// HeaderFromBytes decodes a fixed 96-byte buffer into a BlockHeader. It does
// not validate magic/version; callers that need that should check
// separately (see ValidateMagic).
func HeaderFromBytes(buf []byte) (BlockHeader, error) {
	if len(buf) != HeaderSize {
		return BlockHeader{}, fmt.Errorf("types: header must be %d bytes, got %d", HeaderSize, len(buf))
	}
	var h BlockHeader
	copy(h.Magic[:], buf[0:4])
	h.HdrVersion = binary.BigEndian.Uint16(buf[4:6])
	h.BatchID = binary.BigEndian.Uint64(buf[8:16])
	copy(h.PrevRoot[:], buf[16:48])
	copy(h.NewRoot[:], buf[48:80])
	h.TxCount = binary.BigEndian.Uint32(buf[80:84])
	h.OpenAt = binary.BigEndian.Uint64(buf[84:92])
	h.Flags = binary.BigEndian.Uint32(buf[92:96])
	return h, nil
}

// ValidateMagic reports whether the header carries the expected magic and
// a version this code knows how to interpret.
func (h *BlockHeader) ValidateMagic() error {
	if h.Magic != HeaderMagic {
		return fmt.Errorf("types: bad header magic %q", h.Magic[:])
	}
	if h.HdrVersion != HeaderVersion {
		return fmt.Errorf("types: unsupported header version %d", h.HdrVersion)
	}
	return nil
}

// BatchIDKey encodes a batch id as the big-endian 8-byte key used in the
// batches column family, so lexicographic key order equals numeric order.
func BatchIDKey(batchID uint64) []byte {
	var key [8]byte
	binary.BigEndian.PutUint64(key[:], batchID)
	return key[:]
}
