package psd

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/pkg/errors"
)

// decodeZIP inflates a deflate stream (the "ZIP" compression kind) using
// klauspost/compress's flate implementation.
func decodeZIP(src []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(src))
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(CompressionError("zip inflate failed: "+err.Error()), "decodeZIP")
	}
	return out, nil
}

// encodeZIP is provided for completeness of the codec interface but is
// not used by the write path, which downgrades a ZIP/ZIP-prediction
// preference to RLE.
func encodeZIP(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(src); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// unpredictHorizontal reverses the horizontal difference predictor used
// by ZIP-prediction: row[i] += row[i-1] (mod 256), row by row, for 8-bit
// samples (or bytes of wider samples handled by the caller).
func unpredictHorizontal(data []byte, width, height int) {
	for row := 0; row < height; row++ {
		start := row * width
		end := start + width
		if end > len(data) {
			end = len(data)
		}
		for i := start + 1; i < end; i++ {
			data[i] = data[i-1] + data[i]
		}
	}
}

// unpredictHorizontal16 reverses the horizontal predictor for 16-bit
// samples stored big-endian: the predictor operates on the 16-bit sample
// values themselves, not on individual bytes.
func unpredictHorizontal16(data []byte, width, height int) {
	for row := 0; row < height; row++ {
		start := row * width * 2
		end := start + width*2
		if end > len(data) {
			end = len(data)
		}
		var prev uint16
		for i := start; i+1 < end; i += 2 {
			v := uint16(data[i])<<8 | uint16(data[i+1])
			v += prev
			data[i] = byte(v >> 8)
			data[i+1] = byte(v)
			prev = v
		}
	}
}

// unpredictFloat32 reverses the horizontal predictor for 32-bit float
// samples. Photoshop stores floating-point ZIP-prediction data with the
// bytes of each row de-interleaved by byte-plane (all most-significant
// bytes of the row, then all second bytes, then all third, then all
// least-significant) before the horizontal byte-difference predictor is
// applied; decode must undo the difference first and then re-interleave
// the four byte-planes back into big-endian float32 samples.
func unpredictFloat32(data []byte, width, height int) []byte {
	out := make([]byte, len(data))
	rowBytes := width * 4
	for row := 0; row < height; row++ {
		start := row * rowBytes
		end := start + rowBytes
		if end > len(data) {
			end = len(data)
		}
		rowData := make([]byte, end-start)
		copy(rowData, data[start:end])

		// Undo the horizontal byte-difference predictor across the
		// whole de-interleaved row.
		for i := 1; i < len(rowData); i++ {
			rowData[i] = rowData[i-1] + rowData[i]
		}

		// Re-interleave the four byte planes into big-endian float32s.
		n := len(rowData) / 4
		for i := 0; i < n; i++ {
			out[start+i*4+0] = rowData[i]
			out[start+i*4+1] = rowData[n+i]
			out[start+i*4+2] = rowData[2*n+i]
			out[start+i*4+3] = rowData[3*n+i]
		}
	}
	return out
}

// decodeZIPPrediction inflates then undoes the horizontal predictor,
// dispatching on sample width.
func decodeZIPPrediction(src []byte, width, height, bytesPerSample int) ([]byte, error) {
	raw, err := decodeZIP(src)
	if err != nil {
		return nil, err
	}
	if len(raw) != width*height*bytesPerSample {
		return nil, CompressionError("zip-prediction: decoded size does not match row boundaries")
	}
	switch bytesPerSample {
	case 1:
		unpredictHorizontal(raw, width, height)
		return raw, nil
	case 2:
		unpredictHorizontal16(raw, width, height)
		return raw, nil
	case 4:
		return unpredictFloat32(raw, width, height), nil
	default:
		return nil, CompressionError("zip-prediction: unsupported sample width")
	}
}
