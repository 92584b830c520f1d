package psd

// ColorModeData is the length-prefixed opaque block following the
// header; nonzero only for Indexed and Duotone modes.
type ColorModeData []byte

func ReadColorModeData(f *File) (ColorModeData, error) {
	length, err := f.ReadUint32()
	if err != nil {
		return nil, err
	}
	if length == 0 {
		return nil, nil
	}
	data := make([]byte, length)
	if err := f.Read(data); err != nil {
		return nil, err
	}
	return ColorModeData(data), nil
}

func WriteColorModeData(f *File, d ColorModeData) {
	f.WriteUint32(uint32(len(d)))
	if len(d) > 0 {
		f.Write(d)
	}
}

// ResourceBlock is one entry of the image-resources section: a keyed,
// named, length-prefixed opaque payload: signature, id, pascal name
// padded to 2, u32 length with the payload padded to 2.
type ResourceBlock struct {
	ID      uint16
	Name    string
	Payload []byte
}

const resourceSignature = "8BIM"

func readResourceBlock(f *File) (*ResourceBlock, error) {
	sig, err := f.ReadString(4)
	if err != nil {
		return nil, err
	}
	if sig != resourceSignature {
		return nil, &BadSignatureError{Offset: f.Tell() - 4, Expected: resourceSignature, Got: sig}
	}

	id, err := f.ReadUint16()
	if err != nil {
		return nil, err
	}

	name, err := readPascalString(f, 2)
	if err != nil {
		return nil, err
	}

	length, err := f.ReadUint32()
	if err != nil {
		return nil, err
	}
	payload := make([]byte, length)
	if err := f.Read(payload); err != nil {
		return nil, err
	}
	if pad := Align(int64(length), 2) - int64(length); pad > 0 {
		if err := f.Skip(pad); err != nil {
			return nil, err
		}
	}

	return &ResourceBlock{ID: id, Name: name, Payload: payload}, nil
}

func writeResourceBlock(f *File, r *ResourceBlock) {
	f.WriteString(resourceSignature)
	f.WriteUint16(r.ID)
	writePascalString(f, r.Name, 2)
	f.WriteUint32(uint32(len(r.Payload)))
	f.Write(r.Payload)
	padded := Align(int64(len(r.Payload)), 2)
	if pad := padded - int64(len(r.Payload)); pad > 0 {
		f.Write(make([]byte, pad))
	}
}

// ImageResources is the ordered sequence of resource blocks.
type ImageResources []*ResourceBlock

// ReadImageResources parses the length-prefixed list of resource blocks.
func ReadImageResources(f *File) (ImageResources, error) {
	length, err := f.ReadUint32()
	if err != nil {
		return nil, err
	}
	end := f.Tell() + int64(length)

	var resources ImageResources
	for f.Tell() < end {
		r, err := readResourceBlock(f)
		if err != nil {
			return nil, err
		}
		resources = append(resources, r)
	}
	if f.Tell() != end {
		if err := f.Seek(end); err != nil {
			return nil, err
		}
	}
	return resources, nil
}

// WriteImageResources emits the resource-blocks section.
func WriteImageResources(f *File, resources ImageResources) {
	lenOffset := f.Tell()
	f.WriteUint32(0) // placeholder, patched below
	start := f.Tell()
	for _, r := range resources {
		writeResourceBlock(f, r)
	}
	end := f.Tell()
	length := uint32(end - start)

	// Patch the length placeholder now that the block's size is known.
	patched := NewWriter(f.version)
	patched.WriteUint32(length)
	patchBytes := patched.Bytes()
	f.mu.Lock()
	copy(f.store.data[lenOffset:lenOffset+4], patchBytes)
	f.mu.Unlock()
}

// resourceIDResolution is the image resource ID carrying DPI data
// (ResolutionInfo).
const resourceIDResolution uint16 = 1005

const defaultDPI = 72.0

// dpiFromResources extracts the horizontal resolution (in pixels/inch)
// from the ResolutionInfo resource (ID 1005), a 16.16 fixed-point value
// at the start of its payload, defaulting to 72.0 when absent.
func dpiFromResources(resources ImageResources) float64 {
	for _, r := range resources {
		if r.ID == resourceIDResolution && len(r.Payload) >= 4 {
			fixed := uint32(r.Payload[0])<<24 | uint32(r.Payload[1])<<16 | uint32(r.Payload[2])<<8 | uint32(r.Payload[3])
			return float64(fixed) / 65536.0
		}
	}
	return defaultDPI
}

// setDPIOnResources updates (or inserts) the ResolutionInfo resource
// with the given horizontal/vertical DPI, synthesizing the remainder of
// its payload with Photoshop's documented defaults (pixels/inch display
// unit, no measurement-unit scaling).
func setDPIOnResources(resources ImageResources, dpi float64) ImageResources {
	fixed := uint32(dpi * 65536.0)
	payload := make([]byte, 16)
	payload[0] = byte(fixed >> 24)
	payload[1] = byte(fixed >> 16)
	payload[2] = byte(fixed >> 8)
	payload[3] = byte(fixed)
	payload[4] = 0
	payload[5] = 1 // display unit: pixels per inch
	payload[6] = 0
	payload[7] = 1 // width display unit: inches
	copy(payload[8:], payload[0:8])

	for _, r := range resources {
		if r.ID == resourceIDResolution {
			r.Payload = payload
			return resources
		}
	}
	return append(resources, &ResourceBlock{ID: resourceIDResolution, Name: "", Payload: payload})
}

// resourceIDICCProfile is the image resource ID carrying an opaque ICC
// color profile. The bytes pass through opaquely; they are never
// interpreted.
const resourceIDICCProfile uint16 = 1039

// iccProfileFromResources extracts the raw ICC profile bytes, or nil if
// resource 1039 is absent.
func iccProfileFromResources(resources ImageResources) []byte {
	for _, r := range resources {
		if r.ID == resourceIDICCProfile {
			return r.Payload
		}
	}
	return nil
}

// setICCProfileOnResources updates (or inserts, or removes when profile
// is empty) the ICC profile resource block.
func setICCProfileOnResources(resources ImageResources, profile []byte) ImageResources {
	for i, r := range resources {
		if r.ID == resourceIDICCProfile {
			if len(profile) == 0 {
				return append(resources[:i:i], resources[i+1:]...)
			}
			r.Payload = profile
			return resources
		}
	}
	if len(profile) == 0 {
		return resources
	}
	return append(resources, &ResourceBlock{ID: resourceIDICCProfile, Name: "", Payload: profile})
}
