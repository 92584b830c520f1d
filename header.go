package psd

// Header is the 26-byte fixed header at the start of every document.
type Header struct {
	Version  Version
	Channels uint16
	Height   uint32
	Width    uint32
	Depth    BitDepth
	Mode     ColorMode
}

const headerSignature = "8BPS"

// ReadHeader parses the fixed header section starting at the current
// offset.
func ReadHeader(f *File) (*Header, error) {
	sig, err := f.ReadString(4)
	if err != nil {
		return nil, err
	}
	if sig != headerSignature {
		return nil, &BadSignatureError{Offset: f.Tell() - 4, Expected: headerSignature, Got: sig}
	}

	rawVersion, err := f.ReadUint16()
	if err != nil {
		return nil, err
	}
	version := Version(rawVersion)
	if version != VersionPSD && version != VersionPSB {
		return nil, &BadEnumValueError{Offset: f.Tell() - 2, Field: "version", Value: rawVersion}
	}

	if err := f.Skip(6); err != nil { // reserved
		return nil, err
	}

	channels, err := f.ReadUint16()
	if err != nil {
		return nil, err
	}
	if channels < 1 || channels > MaxChannels {
		return nil, &SizeLimitExceededError{What: "channel count", Value: int64(channels), Limit: MaxChannels}
	}

	height, err := f.ReadUint32()
	if err != nil {
		return nil, err
	}
	width, err := f.ReadUint32()
	if err != nil {
		return nil, err
	}
	if int64(width) > version.MaxDimension() || int64(height) > version.MaxDimension() {
		return nil, &SizeLimitExceededError{What: "document dimension", Value: int64(maxInt64(int64(width), int64(height))), Limit: version.MaxDimension()}
	}

	rawDepth, err := f.ReadUint16()
	if err != nil {
		return nil, err
	}
	depth := BitDepth(rawDepth)
	switch depth {
	case BitDepth1, BitDepth8, BitDepth16, BitDepth32:
	default:
		return nil, &BadEnumValueError{Offset: f.Tell() - 2, Field: "depth", Value: rawDepth}
	}

	rawMode, err := f.ReadUint16()
	if err != nil {
		return nil, err
	}
	if _, ok := colorModeNames[ColorMode(rawMode)]; !ok {
		return nil, &BadEnumValueError{Offset: f.Tell() - 2, Field: "color mode", Value: rawMode}
	}

	return &Header{
		Version:  version,
		Channels: channels,
		Height:   height,
		Width:    width,
		Depth:    depth,
		Mode:     ColorMode(rawMode),
	}, nil
}

// WriteHeader emits the fixed header section.
func WriteHeader(f *File, h *Header) error {
	if h.Channels < 1 || h.Channels > MaxChannels {
		return &SizeLimitExceededError{What: "channel count", Value: int64(h.Channels), Limit: MaxChannels}
	}
	if int64(h.Width) > h.Version.MaxDimension() || int64(h.Height) > h.Version.MaxDimension() {
		return &SizeLimitExceededError{What: "document dimension", Value: int64(maxInt64(int64(h.Width), int64(h.Height))), Limit: h.Version.MaxDimension()}
	}

	f.WriteString(headerSignature)
	f.WriteUint16(uint16(h.Version))
	f.Write(make([]byte, 6)) // reserved
	f.WriteUint16(h.Channels)
	f.WriteUint32(h.Height)
	f.WriteUint32(h.Width)
	f.WriteUint16(uint16(h.Depth))
	f.WriteUint16(uint16(h.Mode))
	return nil
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
