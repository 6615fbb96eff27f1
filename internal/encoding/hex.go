package encoding

import (
	"fmt"
	"io"
)

// WriteIntelHex renders the image as Intel HEX records at the given
// load offset: 16 data bytes per record, an extended linear address
// record whenever the upper 16 address bits change, and the standard
// end-of-file record.
func WriteIntelHex(w io.Writer, image []byte, offset uint32) error {
	upper := uint32(0xffffffff)
	for i := 0; i < len(image); {
		addr := offset + uint32(i)
		if hi := addr >> 16; hi != upper {
			if err := writeRecord(w, 0, 0x04, []byte{byte(hi >> 8), byte(hi)}); err != nil {
				return err
			}
			upper = hi
		}
		end := i + 16
		if end > len(image) {
			end = len(image)
		}
		// A record must not cross a 64K boundary.
		if span := 0x10000 - int(addr&0xffff); end-i > span {
			end = i + span
		}
		if err := writeRecord(w, uint16(addr), 0x00, image[i:end]); err != nil {
			return err
		}
		i = end
	}
	return writeRecord(w, 0, 0x01, nil)
}

func writeRecord(w io.Writer, addr uint16, kind byte, data []byte) error {
	sum := byte(len(data)) + byte(addr>>8) + byte(addr) + kind
	for _, b := range data {
		sum += b
	}
	_, err := fmt.Fprintf(w, ":%02X%04X%02X%X%02X\n", len(data), addr, kind, data, -sum)
	return err
}
