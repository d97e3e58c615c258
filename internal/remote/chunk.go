package remote

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sort"
)

const (
	LayerMinSize = 2 * 1024 * 1024  // 2MB minimum before combining
	LayerSoftMax = 10 * 1024 * 1024 // 10MB soft maximum
	digestLen    = 64               // hex sha256
)

// PackLayer packs bodies into binary format: [digest 64B][length 8B][data]...
func PackLayer(bodies map[string][]byte) ([]byte, error) {
	digests := make([]string, 0, len(bodies))
	for d := range bodies {
		if len(d) != digestLen {
			return nil, fmt.Errorf("invalid digest %q", d)
		}
		digests = append(digests, d)
	}
	sort.Strings(digests)

	var buf bytes.Buffer
	lenBuf := make([]byte, 8)
	for _, digest := range digests {
		data := bodies[digest]
		buf.WriteString(digest)
		binary.BigEndian.PutUint64(lenBuf, uint64(len(data)))
		buf.Write(lenBuf)
		buf.Write(data)
	}
	return buf.Bytes(), nil
}

func UnpackLayer(data []byte) (map[string][]byte, error) {
	result := make(map[string][]byte)
	buf := bytes.NewReader(data)
	digestBuf := make([]byte, digestLen)

	for buf.Len() > 0 {
		if _, err := io.ReadFull(buf, digestBuf); err != nil {
			return nil, fmt.Errorf("read digest: %w", err)
		}

		var length uint64
		if err := binary.Read(buf, binary.BigEndian, &length); err != nil {
			return nil, fmt.Errorf("read length: %w", err)
		}
		if length > uint64(buf.Len()) {
			return nil, fmt.Errorf("read data: length %d exceeds layer", length)
		}

		body := make([]byte, length)
		if _, err := io.ReadFull(buf, body); err != nil {
			return nil, fmt.Errorf("read data: %w", err)
		}
		result[string(digestBuf)] = body
	}

	return result, nil
}

// BuildLayerPlan groups digests into layers of roughly LayerSoftMax bytes.
// A body larger than the limit gets a layer of its own.
func BuildLayerPlan(sizes map[string]int64) [][]string {
	digests := make([]string, 0, len(sizes))
	for d := range sizes {
		digests = append(digests, d)
	}
	sort.Strings(digests)

	var layers [][]string
	var current []string
	var size int64

	for _, digest := range digests {
		n := sizes[digest]

		if len(current) == 0 {
			current = append(current, digest)
			size = n
			continue
		}

		newSize := size + n
		if newSize <= LayerSoftMax || (size < LayerMinSize && newSize <= 2*LayerSoftMax) {
			current = append(current, digest)
			size = newSize
		} else {
			layers = append(layers, current)
			current = []string{digest}
			size = n
		}
	}

	if len(current) > 0 {
		layers = append(layers, current)
	}

	return layers
}
