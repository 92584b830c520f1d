package psd

import "github.com/pkg/errors"

// RawChannelData is a single channel's decoded, native-endian pixel
// bytes plus the compression kind it was stored with.
type RawChannelData struct {
	Compression Compression
	Data        []byte
}

// bytesPerSample returns the storage width of one sample for the given
// bit depth.
func bytesPerSample(depth BitDepth) int {
	switch depth {
	case BitDepth1:
		return 1 // packed bits are read/written as whole bytes here
	case BitDepth8:
		return 1
	case BitDepth16:
		return 2
	case BitDepth32:
		return 4
	default:
		return 1
	}
}

// ReadChannelImageData reads one channel's compressed payload: a u16
// compression marker followed by the payload. totalLength is
// the channel's total byte count including the 2-byte compression
// marker, taken from the owning layer's per-channel length table;
// width/height are the channel's pixel extents and depth selects the
// sample width for RLE scanline decoding and ZIP-prediction row width.
func ReadChannelImageData(f *File, version Version, totalLength int, width, height int, depth BitDepth) (*RawChannelData, error) {
	rawCompression, err := f.ReadUint16()
	if err != nil {
		return nil, err
	}
	compression := Compression(rawCompression)
	sampleSize := bytesPerSample(depth)
	uncompressedSize := width * height * sampleSize
	payloadLength := totalLength - 2

	switch compression {
	case CompressionRaw:
		data := make([]byte, uncompressedSize)
		if err := f.Read(data); err != nil {
			return nil, err
		}
		return &RawChannelData{Compression: compression, Data: data}, nil

	case CompressionRLE:
		data, err := readRLEChannel(f, version, width, height, sampleSize)
		if err != nil {
			return nil, errors.Wrap(err, "RLE channel")
		}
		return &RawChannelData{Compression: compression, Data: data}, nil

	case CompressionZIP:
		if payloadLength < 0 {
			return nil, CompressionError("zip channel: negative payload length")
		}
		compressed := make([]byte, payloadLength)
		if err := f.Read(compressed); err != nil {
			return nil, err
		}
		out, err := decodeZIP(compressed)
		if err != nil {
			return nil, errors.Wrap(err, "ZIP channel")
		}
		return &RawChannelData{Compression: compression, Data: out}, nil

	case CompressionZIPPrediction:
		if payloadLength < 0 {
			return nil, CompressionError("zip-prediction channel: negative payload length")
		}
		compressed := make([]byte, payloadLength)
		if err := f.Read(compressed); err != nil {
			return nil, err
		}
		out, err := decodeZIPPrediction(compressed, width, height, sampleSize)
		if err != nil {
			return nil, errors.Wrap(err, "ZIP-prediction channel")
		}
		return &RawChannelData{Compression: compression, Data: out}, nil

	default:
		return nil, &BadEnumValueError{Offset: f.Tell() - 2, Field: "channel compression", Value: rawCompression}
	}
}

// readRLEScanlineCounts reads n entries of an RLE scanline byte-count
// table (u16 for PSD, u32 for PSB).
func readRLEScanlineCounts(f *File, version Version, n int) ([]uint32, error) {
	counts := make([]uint32, n)
	for i := 0; i < n; i++ {
		if version == VersionPSB {
			c, err := f.ReadUint32()
			if err != nil {
				return nil, err
			}
			counts[i] = c
		} else {
			c, err := f.ReadUint16()
			if err != nil {
				return nil, err
			}
			counts[i] = uint32(c)
		}
	}
	return counts, nil
}

// readRLEScanlines decodes one PackBits scanline per count entry,
// returning the concatenated rows.
func readRLEScanlines(f *File, counts []uint32, scanlineBytes int) ([]byte, error) {
	out := make([]byte, 0, scanlineBytes*len(counts))
	for _, count := range counts {
		compressed := make([]byte, count)
		if err := f.Read(compressed); err != nil {
			return nil, err
		}
		decoded, err := decodePackBits(compressed)
		if err != nil {
			return nil, err
		}
		if len(decoded) != scanlineBytes {
			// Photoshop occasionally emits a short/long scanline; clamp
			// rather than fail so the rest of the document still reads.
			fixed := make([]byte, scanlineBytes)
			copy(fixed, decoded)
			decoded = fixed
		}
		out = append(out, decoded...)
	}
	return out, nil
}

// readRLEChannel reads a channel-image-data RLE payload: a per-scanline
// byte-count table (u16 for PSD, u32 for PSB) followed by the
// concatenated PackBits scanlines.
func readRLEChannel(f *File, version Version, width, height, sampleSize int) ([]byte, error) {
	counts, err := readRLEScanlineCounts(f, version, height)
	if err != nil {
		return nil, err
	}
	return readRLEScanlines(f, counts, width*sampleSize)
}

// encodeRLEScanlines compresses each row of data with PackBits,
// returning one padded buffer per scanline.
func encodeRLEScanlines(version Version, data []byte, width, height, sampleSize int) ([][]byte, error) {
	scanlineBytes := width * sampleSize
	scanlines := make([][]byte, height)
	for i := 0; i < height; i++ {
		start := i * scanlineBytes
		end := start + scanlineBytes
		if end > len(data) {
			end = len(data)
		}
		compressed := padEven(encodePackBits(data[start:end]))
		if version == VersionPSD && len(compressed) > 0xFFFF {
			return nil, &SizeLimitExceededError{What: "RLE scanline size", Value: int64(len(compressed)), Limit: 0xFFFF}
		}
		scanlines[i] = compressed
	}
	return scanlines, nil
}

func writeRLEScanlineCounts(f *File, version Version, scanlines [][]byte) {
	for _, s := range scanlines {
		if version == VersionPSB {
			f.WriteUint32(uint32(len(s)))
		} else {
			f.WriteUint16(uint16(len(s)))
		}
	}
}

// writeRLEChannel encodes native-endian pixel bytes as PackBits per
// scanline with a PSD/PSB scanline size table.
func writeRLEChannel(f *File, version Version, data []byte, width, height, sampleSize int) error {
	scanlines, err := encodeRLEScanlines(version, data, width, height, sampleSize)
	if err != nil {
		return err
	}
	writeRLEScanlineCounts(f, version, scanlines)
	for _, s := range scanlines {
		f.Write(s)
	}
	return nil
}

// EncodeChannelImageData renders a channel's compression marker and
// payload into a standalone buffer so the caller can learn its total
// byte length before emitting the preceding per-channel length
// table. RLE is used for the Rle/Zip/ZipPrediction preference
// (write-side ZIP encode is not implemented); Raw passes bytes
// through unchanged.
func EncodeChannelImageData(version Version, width, height, sampleSize int, data []byte, preference Compression) []byte {
	w := NewWriter(version)
	switch preference {
	case CompressionRaw:
		w.WriteUint16(uint16(CompressionRaw))
		w.Write(data)
	default:
		w.WriteUint16(uint16(CompressionRLE))
		_ = writeRLEChannel(w, version, data, width, height, sampleSize)
	}
	return w.Bytes()
}
