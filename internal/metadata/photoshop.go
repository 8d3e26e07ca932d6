package metadata

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const (
	photoshopSignature = "Photoshop 3.0\x00"
	resourceSignature  = "8BIM"
	iptcResourceID     = 0x0404
)

// resource is one Photoshop image resource block. Name holds the raw padded
// Pascal string.
type resource struct {
	ID   uint16
	Name []byte
	Data []byte
}

func parseResources(b []byte) ([]resource, error) {
	if !bytes.HasPrefix(b, []byte(photoshopSignature)) {
		return nil, fmt.Errorf("photoshop: missing signature")
	}
	b = b[len(photoshopSignature):]
	var out []resource
	for i := 0; i < len(b); {
		if len(b)-i < 4 && allZero(b[i:]) {
			break
		}
		if len(b)-i < 7 || string(b[i:i+4]) != resourceSignature {
			return out, fmt.Errorf("photoshop: bad resource block at offset %d", i)
		}
		id := binary.BigEndian.Uint16(b[i+4 : i+6])
		i += 6
		nameLen := 1 + int(b[i])
		if nameLen%2 == 1 {
			nameLen++
		}
		if i+nameLen+4 > len(b) {
			return out, errTruncated
		}
		name := bytes.Clone(b[i : i+nameLen])
		i += nameLen
		size := int(binary.BigEndian.Uint32(b[i : i+4]))
		i += 4
		if size < 0 || i+size > len(b) {
			return out, errTruncated
		}
		out = append(out, resource{ID: id, Name: name, Data: bytes.Clone(b[i : i+size])})
		i += size
		if size%2 == 1 {
			i++
		}
	}
	return out, nil
}

func buildResources(res []resource) []byte {
	var buf bytes.Buffer
	buf.WriteString(photoshopSignature)
	for _, r := range res {
		buf.WriteString(resourceSignature)
		_ = binary.Write(&buf, binary.BigEndian, r.ID)
		name := r.Name
		if len(name) == 0 {
			name = []byte{0, 0}
		}
		buf.Write(name)
		_ = binary.Write(&buf, binary.BigEndian, uint32(len(r.Data)))
		buf.Write(r.Data)
		if len(r.Data)%2 == 1 {
			buf.WriteByte(0)
		}
	}
	return buf.Bytes()
}

func findResource(res []resource, id uint16) ([]byte, bool) {
	for _, r := range res {
		if r.ID == id {
			return r.Data, true
		}
	}
	return nil, false
}

// upsertResource replaces the first block with id, or appends one.
func upsertResource(res []resource, id uint16, data []byte) []resource {
	for i := range res {
		if res[i].ID == id {
			res[i].Data = data
			return res
		}
	}
	return append(res, resource{ID: id, Data: data})
}
