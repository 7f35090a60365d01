package exr

import (
	"fmt"
	"iter"
	"maps"
	"math"
	"slices"

	"github.com/mrjoshuak/go-exrio/internal/xdr"
)

type headerData struct {
	displayWindow      Box2i
	dataWindow         Box2i
	pixelAspectRatio   float32
	screenWindowCenter V2f
	screenWindowWidth  float32
	lineOrder          LineOrder
	compression        Compression
	channels           map[string]Channel
	envMap             EnvMap
	hasEnvMap          bool
	views              []string
	extra              map[string]Attribute
}

// Header is an owned, mutable description of an image: its windows,
// compression, line order and channels. Its setters validate their own
// arguments; Validate checks the header as a whole.
//
// An output file takes a copy of the header when it is opened, so later
// changes to a Header never affect a file already being written.
type Header struct {
	headerData
}

// HeaderView is a read-only view of the header of an open file. It exposes
// the same getters as Header; use Clone to obtain a mutable copy.
type HeaderView struct {
	*headerData
}

// NewHeader returns a header for a 1×1 image at the origin with no
// channels, pixel aspect ratio 1, screen window centered at (0, 0) with
// width 1, increasing line order and ZIP compression.
func NewHeader() *Header {
	w := Box2i{}
	return &Header{headerData{
		displayWindow:     w,
		dataWindow:        w,
		pixelAspectRatio:  1,
		screenWindowWidth: 1,
		lineOrder:         LineOrderIncreasing,
		compression:       CompressionZIP,
		channels:          make(map[string]Channel),
		extra:             make(map[string]Attribute),
	}}
}

// SetResolution sets both the display and data windows to
// (0, 0)-(width-1, height-1).
func (h *Header) SetResolution(width, height int) error {
	if width < 1 || height < 1 || width > math.MaxInt32 || height > math.MaxInt32 {
		return newError(KindGeometry, "set resolution", ErrInvalidDimensions, "%dx%d", width, height)
	}
	w := NewBox2i(0, 0, width, height)
	h.displayWindow = w
	h.dataWindow = w
	return nil
}

// SetDisplayWindow sets the display window. The window must not be empty.
func (h *Header) SetDisplayWindow(w Box2i) error {
	if err := checkWindow("set display window", "display", w); err != nil {
		return err
	}
	h.displayWindow = w
	return nil
}

// SetDataWindow sets the data window. The window must not be empty; its
// origin may be anywhere, including negative coordinates.
func (h *Header) SetDataWindow(w Box2i) error {
	if err := checkWindow("set data window", "data", w); err != nil {
		return err
	}
	h.dataWindow = w
	return nil
}

// checkWindow rejects empty windows and windows with a side longer than
// math.MaxInt32 pixels.
func checkWindow(op, which string, w Box2i) error {
	if w.IsEmpty() {
		return newError(KindGeometry, op, ErrInvalidWindow, "empty %s window %v", which, w)
	}
	if w.oversized() {
		return newError(KindGeometry, op, ErrInvalidWindow, "%s window %v is too large", which, w)
	}
	return nil
}

// SetPixelAspectRatio sets the pixel aspect ratio, which must be a
// positive finite number.
func (h *Header) SetPixelAspectRatio(r float32) error {
	if !(r > 0) || math.IsInf(float64(r), 0) {
		return newError(KindFormat, "set pixel aspect ratio", nil, "invalid ratio %v", r)
	}
	h.pixelAspectRatio = r
	return nil
}

// SetScreenWindowCenter sets the screen window center.
func (h *Header) SetScreenWindowCenter(c V2f) {
	h.screenWindowCenter = c
}

// SetScreenWindowWidth sets the screen window width.
func (h *Header) SetScreenWindowWidth(w float32) {
	h.screenWindowWidth = w
}

// SetLineOrder sets the line order.
func (h *Header) SetLineOrder(lo LineOrder) error {
	if lo > LineOrderRandom {
		return newError(KindFormat, "set line order", nil, "unknown line order %d", uint8(lo))
	}
	h.lineOrder = lo
	return nil
}

// SetCompression sets the compression method. Only methods whose
// Supported reports true are accepted.
func (h *Header) SetCompression(c Compression) error {
	if !c.Supported() {
		return newError(KindFormat, "set compression", ErrUnsupportedCompression, "%v", c)
	}
	h.compression = c
	return nil
}

// AddChannel adds a full-resolution, perceptually linear channel.
func (h *Header) AddChannel(name string, t PixelType) error {
	return h.AddChannelDetailed(name, NewChannel(t))
}

// AddChannelDetailed adds a channel with explicit sampling and linearity.
// Channel names are unique within a header.
func (h *Header) AddChannelDetailed(name string, c Channel) error {
	if err := validateChannel(name, c); err != nil {
		return &Error{Kind: KindFormat, Op: "add channel", Err: err}
	}
	if _, ok := h.channels[name]; ok {
		return newError(KindFormat, "add channel", ErrDuplicateChannel, "'%s'", name)
	}
	h.channels[name] = c
	return nil
}

// RemoveChannel removes a channel if present.
func (h *Header) RemoveChannel(name string) {
	delete(h.channels, name)
}

// SetEnvMap marks the image as an environment map.
func (h *Header) SetEnvMap(e EnvMap) error {
	if e > EnvMapCube {
		return newError(KindFormat, "set envmap", nil, "unknown envmap %d", uint8(e))
	}
	h.envMap = e
	h.hasEnvMap = true
	return nil
}

// ClearEnvMap removes the environment map attribute.
func (h *Header) ClearEnvMap() {
	h.hasEnvMap = false
	h.envMap = 0
}

// SetMultiView sets the view names of a multi-view image. The first view
// is the default view. A nil or empty list removes the attribute.
func (h *Header) SetMultiView(views []string) error {
	if len(views) == 0 {
		h.views = nil
		return nil
	}
	seen := make(map[string]bool, len(views))
	for _, v := range views {
		if v == "" || seen[v] {
			return newError(KindFormat, "set multiview", nil, "invalid or repeated view name %q", v)
		}
		seen[v] = true
	}
	h.views = slices.Clone(views)
	return nil
}

// SetAttribute stores a custom attribute in serialized form. Names of
// attributes managed by the typed setters are rejected.
func (h *Header) SetAttribute(name string, a Attribute) error {
	if name == "" || a.Type == "" || len(name) > maxLongName || len(a.Type) > maxLongName {
		return newError(KindFormat, "set attribute", nil, "invalid name %q or type %q", name, a.Type)
	}
	if isReservedAttribute(name) {
		return newError(KindFormat, "set attribute", nil, "'%s' is set through its typed setter", name)
	}
	h.extra[name] = Attribute{Type: a.Type, Data: slices.Clone(a.Data)}
	return nil
}

// RemoveAttribute removes a custom attribute if present.
func (h *Header) RemoveAttribute(name string) {
	delete(h.extra, name)
}

// DisplayWindow returns the display window.
func (h *headerData) DisplayWindow() Box2i { return h.displayWindow }

// DataWindow returns the data window.
func (h *headerData) DataWindow() Box2i { return h.dataWindow }

// DataOrigin returns the minimum corner of the data window.
func (h *headerData) DataOrigin() V2i { return h.dataWindow.Min }

// DataDimensions returns the width and height of the data window.
func (h *headerData) DataDimensions() (width, height int) {
	return h.dataWindow.Width(), h.dataWindow.Height()
}

// PixelAspectRatio returns the pixel aspect ratio.
func (h *headerData) PixelAspectRatio() float32 { return h.pixelAspectRatio }

// ScreenWindowCenter returns the screen window center.
func (h *headerData) ScreenWindowCenter() V2f { return h.screenWindowCenter }

// ScreenWindowWidth returns the screen window width.
func (h *headerData) ScreenWindowWidth() float32 { return h.screenWindowWidth }

// LineOrder returns the line order.
func (h *headerData) LineOrder() LineOrder { return h.lineOrder }

// Compression returns the compression method.
func (h *headerData) Compression() Compression { return h.compression }

// Channels iterates over the channels in lexicographic byte order of their
// names, which is also their order within a scanline on disk.
func (h *headerData) Channels() iter.Seq2[string, Channel] {
	return func(yield func(string, Channel) bool) {
		for _, name := range h.ChannelNames() {
			if !yield(name, h.channels[name]) {
				return
			}
		}
	}
}

// ChannelNames returns the channel names in sorted order.
func (h *headerData) ChannelNames() []string {
	return slices.Sorted(maps.Keys(h.channels))
}

// NumChannels returns the number of channels.
func (h *headerData) NumChannels() int { return len(h.channels) }

// Channel looks up a channel by name.
func (h *headerData) Channel(name string) (Channel, bool) {
	c, ok := h.channels[name]
	return c, ok
}

// EnvMap returns the environment map kind, if the image is one.
func (h *headerData) EnvMap() (EnvMap, bool) {
	return h.envMap, h.hasEnvMap
}

// MultiView returns the view names of a multi-view image.
func (h *headerData) MultiView() ([]string, bool) {
	if h.views == nil {
		return nil, false
	}
	return slices.Clone(h.views), true
}

// Attribute returns a custom attribute by name.
func (h *headerData) Attribute(name string) (Attribute, bool) {
	a, ok := h.extra[name]
	if !ok {
		return Attribute{}, false
	}
	return Attribute{Type: a.Type, Data: slices.Clone(a.Data)}, true
}

// Clone returns an owned deep copy of the header.
func (h *headerData) Clone() *Header {
	c := *h
	c.channels = maps.Clone(h.channels)
	c.views = slices.Clone(h.views)
	c.extra = make(map[string]Attribute, len(h.extra))
	for k, a := range h.extra {
		c.extra[k] = Attribute{Type: a.Type, Data: slices.Clone(a.Data)}
	}
	return &Header{c}
}

// Validate checks that the header describes a writable scanline image:
// non-empty windows, at least one channel, channel sampling that divides
// the data window, and a supported compression.
func (h *headerData) Validate() error {
	const op = "validate header"
	if err := checkWindow(op, "display", h.displayWindow); err != nil {
		return err
	}
	if err := checkWindow(op, "data", h.dataWindow); err != nil {
		return err
	}
	if len(h.channels) == 0 {
		return newError(KindFormat, op, ErrInvalidChannel, "header has no channels")
	}
	dw := h.dataWindow
	for name, c := range h.Channels() {
		if err := validateChannel(name, c); err != nil {
			return &Error{Kind: KindFormat, Op: op, Err: err}
		}
		xs, ys := int(c.XSampling), int(c.YSampling)
		if floorMod(int(dw.Min.X), xs) != 0 || floorMod(int(dw.Min.Y), ys) != 0 ||
			dw.Width()%xs != 0 || dw.Height()%ys != 0 {
			return newError(KindGeometry, op, ErrInvalidChannel,
				"channel '%s' sampling %dx%d does not divide data window %v", name, xs, ys, dw)
		}
	}
	if !h.compression.Supported() {
		return newError(KindFormat, op, ErrUnsupportedCompression, "%v", h.compression)
	}
	if h.lineOrder > LineOrderRandom {
		return newError(KindFormat, op, nil, "unknown line order %d", uint8(h.lineOrder))
	}
	return nil
}

// needsLongNames reports whether any name exceeds the 31-byte limit of
// the default file format.
func (h *headerData) needsLongNames() bool {
	for name := range h.channels {
		if len(name) > maxShortName {
			return true
		}
	}
	for name, a := range h.extra {
		if len(name) > maxShortName || len(a.Type) > maxShortName {
			return true
		}
	}
	return false
}

func (h *headerData) attributes() map[string]Attribute {
	attrs := maps.Clone(h.extra)
	if attrs == nil {
		attrs = make(map[string]Attribute)
	}

	w := xdr.NewBufferWriter(64)
	writeChannelList(w, h.channels)
	attrs[AttrNameChannels] = Attribute{Type: AttrTypeChlist, Data: w.Bytes()}

	attrs[AttrNameCompression] = Attribute{Type: AttrTypeCompression, Data: []byte{byte(h.compression)}}
	attrs[AttrNameLineOrder] = Attribute{Type: AttrTypeLineOrder, Data: []byte{byte(h.lineOrder)}}

	w = xdr.NewBufferWriter(16)
	writeBox2i(w, h.dataWindow)
	attrs[AttrNameDataWindow] = Attribute{Type: AttrTypeBox2i, Data: w.Bytes()}

	w = xdr.NewBufferWriter(16)
	writeBox2i(w, h.displayWindow)
	attrs[AttrNameDisplayWindow] = Attribute{Type: AttrTypeBox2i, Data: w.Bytes()}

	w = xdr.NewBufferWriter(4)
	w.WriteFloat32(h.pixelAspectRatio)
	attrs[AttrNamePixelAspectRatio] = Attribute{Type: AttrTypeFloat, Data: w.Bytes()}

	w = xdr.NewBufferWriter(8)
	writeV2f(w, h.screenWindowCenter)
	attrs[AttrNameScreenWindowCenter] = Attribute{Type: AttrTypeV2f, Data: w.Bytes()}

	w = xdr.NewBufferWriter(4)
	w.WriteFloat32(h.screenWindowWidth)
	attrs[AttrNameScreenWindowWidth] = Attribute{Type: AttrTypeFloat, Data: w.Bytes()}

	if h.hasEnvMap {
		attrs[AttrNameEnvmap] = Attribute{Type: AttrTypeEnvmap, Data: []byte{byte(h.envMap)}}
	}
	if h.views != nil {
		w = xdr.NewBufferWriter(32)
		writeStringVector(w, h.views)
		attrs[AttrNameMultiView] = Attribute{Type: AttrTypeStringVector, Data: w.Bytes()}
	}
	return attrs
}

// marshal serializes the attributes in name order, followed by the
// terminating null byte.
func (h *headerData) marshal() []byte {
	attrs := h.attributes()
	w := xdr.NewBufferWriter(512)
	for _, name := range slices.Sorted(maps.Keys(attrs)) {
		writeAttribute(w, name, attrs[name])
	}
	w.WriteByte(0)
	return w.Bytes()
}

var requiredAttributes = []struct{ name, typ string }{
	{AttrNameChannels, AttrTypeChlist},
	{AttrNameCompression, AttrTypeCompression},
	{AttrNameDataWindow, AttrTypeBox2i},
	{AttrNameDisplayWindow, AttrTypeBox2i},
	{AttrNameLineOrder, AttrTypeLineOrder},
	{AttrNamePixelAspectRatio, AttrTypeFloat},
	{AttrNameScreenWindowCenter, AttrTypeV2f},
	{AttrNameScreenWindowWidth, AttrTypeFloat},
}

// readHeader parses an attribute list up to and including its terminator.
func readHeader(r *xdr.Reader, longNames bool) (*Header, error) {
	const op = "read header"
	maxName := maxShortName
	if longNames {
		maxName = maxLongName
	}

	attrs := make(map[string]Attribute)
	for {
		name, a, err := readAttribute(r, maxName)
		if err != nil {
			return nil, &Error{Kind: KindFormat, Op: op, Err: err}
		}
		if name == "" {
			break
		}
		attrs[name] = a
	}

	if _, tiled := attrs[attrNameTiles]; tiled {
		return nil, newError(KindFormat, op, ErrUnsupportedVersion, "tiled images are not supported")
	}
	for _, req := range requiredAttributes {
		a, ok := attrs[req.name]
		if !ok {
			return nil, newError(KindFormat, op, ErrMissingAttribute, "'%s'", req.name)
		}
		if a.Type != req.typ {
			return nil, newError(KindFormat, op, nil, "attribute '%s' has type %q, want %q", req.name, a.Type, req.typ)
		}
	}

	h := NewHeader()
	var err error
	decode := func(name string, fn func(r *xdr.Reader) error) {
		if err != nil {
			return
		}
		if e := fn(xdr.NewReader(attrs[name].Data)); e != nil {
			err = newError(KindFormat, op, e, "attribute '%s'", name)
		}
		delete(attrs, name)
	}

	decode(AttrNameChannels, func(r *xdr.Reader) (e error) {
		h.channels, e = readChannelList(r, maxName)
		return e
	})
	decode(AttrNameCompression, func(r *xdr.Reader) error {
		b, e := r.ReadByte()
		h.compression = Compression(b)
		return e
	})
	decode(AttrNameLineOrder, func(r *xdr.Reader) error {
		b, e := r.ReadByte()
		h.lineOrder = LineOrder(b)
		return e
	})
	decode(AttrNameDataWindow, func(r *xdr.Reader) (e error) {
		h.dataWindow, e = readBox2i(r)
		return e
	})
	decode(AttrNameDisplayWindow, func(r *xdr.Reader) (e error) {
		h.displayWindow, e = readBox2i(r)
		return e
	})
	decode(AttrNamePixelAspectRatio, func(r *xdr.Reader) (e error) {
		h.pixelAspectRatio, e = r.ReadFloat32()
		return e
	})
	decode(AttrNameScreenWindowCenter, func(r *xdr.Reader) (e error) {
		h.screenWindowCenter, e = readV2f(r)
		return e
	})
	decode(AttrNameScreenWindowWidth, func(r *xdr.Reader) (e error) {
		h.screenWindowWidth, e = r.ReadFloat32()
		return e
	})
	if a, ok := attrs[AttrNameEnvmap]; ok && a.Type == AttrTypeEnvmap {
		decode(AttrNameEnvmap, func(r *xdr.Reader) error {
			b, e := r.ReadByte()
			h.envMap, h.hasEnvMap = EnvMap(b), e == nil
			return e
		})
	}
	if a, ok := attrs[AttrNameMultiView]; ok && a.Type == AttrTypeStringVector {
		decode(AttrNameMultiView, func(r *xdr.Reader) (e error) {
			h.views, e = readStringVector(a.Data)
			if h.views == nil && e == nil {
				h.views = []string{}
			}
			return e
		})
	}
	if err != nil {
		return nil, err
	}

	h.extra = attrs
	if err := h.Validate(); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *headerData) String() string {
	return fmt.Sprintf("exr.Header{dataWindow: %v, channels: %v, compression: %v}",
		h.dataWindow, h.ChannelNames(), h.compression)
}
