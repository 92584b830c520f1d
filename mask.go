package psd

// Rect is an axis-aligned integer rectangle in document pixel space,
// stored as top/left/bottom/right exactly as Photoshop's mask and
// channel records lay it out.
type Rect struct {
	Top, Left, Bottom, Right int32
}

// MaskFlags is the bitfield on a layer mask record.
type MaskFlags uint8

const (
	MaskFlagPositionRelative  MaskFlags = 1 << 0
	MaskFlagDisabled          MaskFlags = 1 << 1
	MaskFlagInvert            MaskFlags = 1 << 2
	MaskFlagFromRenderedData  MaskFlags = 1 << 3
	MaskFlagParametersApplied MaskFlags = 1 << 4
)

// MaskData is the decoded "layer mask / adjustment layer data"
// record. A layer may carry a second, "real" mask record: Photoshop
// writes its outer fields in reversed order relative to the primary
// record (flags, then default color, then extents), a quirk preserved
// here rather than normalized away so a byte-faithful re-encode is
// possible.
type MaskData struct {
	Rect         Rect
	DefaultColor uint8
	Flags        MaskFlags

	// Mask-parameter fields, present only when Flags (or, in the dual-mask
	// form, RealFlags) has MaskFlagParametersApplied set: a parameter byte
	// and 1-18 bytes of density/feather values.
	// ParamFlags bit0/1 gate the user mask's density/feather, bit2/3
	// gate the vector mask's.
	ParamFlags    uint8
	UserDensity   uint8
	UserFeather   float64
	VectorDensity uint8
	VectorFeather float64

	HasReal        bool
	RealFlags      MaskFlags
	RealBackground uint8
	RealRect       Rect
}

const (
	maskParamUserDensity   = 1 << 0
	maskParamUserFeather   = 1 << 1
	maskParamVectorDensity = 1 << 2
	maskParamVectorFeather = 1 << 3
)

// readRect reads a rectangle in top/left/bottom/right order.
func readRect(f *File) (Rect, error) {
	top, err := f.ReadInt32()
	if err != nil {
		return Rect{}, err
	}
	left, err := f.ReadInt32()
	if err != nil {
		return Rect{}, err
	}
	bottom, err := f.ReadInt32()
	if err != nil {
		return Rect{}, err
	}
	right, err := f.ReadInt32()
	if err != nil {
		return Rect{}, err
	}
	return Rect{Top: top, Left: left, Bottom: bottom, Right: right}, nil
}

func writeRect(f *File, r Rect) {
	f.WriteInt32(r.Top)
	f.WriteInt32(r.Left)
	f.WriteInt32(r.Bottom)
	f.WriteInt32(r.Right)
}

// ReadMaskData parses a layer mask data record. A leading u32
// length of 0 means the layer has no mask.
func ReadMaskData(f *File) (*MaskData, error) {
	length, err := f.ReadUint32()
	if err != nil {
		return nil, err
	}
	if length == 0 {
		return nil, nil
	}
	start := f.Tell()
	end := start + int64(length)

	m := &MaskData{}
	m.Rect, err = readRect(f)
	if err != nil {
		return nil, err
	}
	defaultColor, err := f.ReadUint8()
	if err != nil {
		return nil, err
	}
	m.DefaultColor = defaultColor
	flags, err := f.ReadUint8()
	if err != nil {
		return nil, err
	}
	m.Flags = MaskFlags(flags)

	// The parameter block follows the first mask only in the short
	// (<= 28 byte) record form; in the longer dual-mask form it is
	// deferred until after the second mask.
	firstParamsRead := false
	if m.Flags&MaskFlagParametersApplied != 0 && length <= 28 {
		if err := readMaskParams(f, m); err != nil {
			return nil, err
		}
		firstParamsRead = true
	}

	if end-f.Tell() >= 18 {
		// Dual-mask form: the second ("real") mask's outer fields come
		// in reversed order -- flags, default color, then extents.
		realFlags, err := f.ReadUint8()
		if err != nil {
			return nil, err
		}
		realBackground, err := f.ReadUint8()
		if err != nil {
			return nil, err
		}
		realRect, err := readRect(f)
		if err != nil {
			return nil, err
		}
		m.HasReal = true
		m.RealFlags = MaskFlags(realFlags)
		m.RealBackground = realBackground
		m.RealRect = realRect

		if (m.Flags&MaskFlagParametersApplied != 0 && !firstParamsRead) ||
			m.RealFlags&MaskFlagParametersApplied != 0 {
			if err := readMaskParams(f, m); err != nil {
				return nil, err
			}
		}
	}

	if f.Tell() != end {
		if err := f.Seek(end); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func readMaskParams(f *File, m *MaskData) error {
	paramFlags, err := f.ReadUint8()
	if err != nil {
		return err
	}
	m.ParamFlags = paramFlags
	if paramFlags&maskParamUserDensity != 0 {
		if m.UserDensity, err = f.ReadUint8(); err != nil {
			return err
		}
	}
	if paramFlags&maskParamUserFeather != 0 {
		if m.UserFeather, err = f.ReadFloat64(); err != nil {
			return err
		}
	}
	if paramFlags&maskParamVectorDensity != 0 {
		if m.VectorDensity, err = f.ReadUint8(); err != nil {
			return err
		}
	}
	if paramFlags&maskParamVectorFeather != 0 {
		if m.VectorFeather, err = f.ReadFloat64(); err != nil {
			return err
		}
	}
	return nil
}

// WriteMaskData emits a layer mask data record, or just a zero length
// when m is nil (no mask present).
func WriteMaskData(f *File, m *MaskData) {
	if m == nil {
		f.WriteUint32(0)
		return
	}

	lenOffset := f.Tell()
	f.WriteUint32(0)
	start := f.Tell()

	writeRect(f, m.Rect)
	f.WriteUint8(m.DefaultColor)
	f.WriteUint8(uint8(m.Flags))

	paramsApplied := m.Flags&MaskFlagParametersApplied != 0 ||
		(m.HasReal && m.RealFlags&MaskFlagParametersApplied != 0)

	if m.HasReal {
		f.WriteUint8(uint8(m.RealFlags))
		f.WriteUint8(m.RealBackground)
		writeRect(f, m.RealRect)
		if paramsApplied {
			writeMaskParams(f, m)
		}
	} else if paramsApplied {
		writeMaskParams(f, m)
	}

	end := f.Tell()
	patchLengthField(f, lenOffset, uint64(end-start), false)
}

func writeMaskParams(f *File, m *MaskData) {
	f.WriteUint8(m.ParamFlags)
	if m.ParamFlags&maskParamUserDensity != 0 {
		f.WriteUint8(m.UserDensity)
	}
	if m.ParamFlags&maskParamUserFeather != 0 {
		f.WriteFloat64(m.UserFeather)
	}
	if m.ParamFlags&maskParamVectorDensity != 0 {
		f.WriteUint8(m.VectorDensity)
	}
	if m.ParamFlags&maskParamVectorFeather != 0 {
		f.WriteFloat64(m.VectorFeather)
	}
}
