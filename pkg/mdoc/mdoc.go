// Package mdoc stores editor snapshots: styled text with every run attribute,
// the selection and document metadata, in a sectioned binary container with
// an optional compressed and encrypted envelope.
package mdoc

import (
	"bytes"
	"compress/zlib"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/crypto/pbkdf2"

	"mdedit/pkg/styled"
)

const (
	MagicString = "MDEDIT-DOC"
	VersionV1   = uint16(1)

	headerSize = len(MagicString) + 2 + 2 + 8 + 4
	tocEntSize = 1 + 8 + 4 + 4
	runFixedSz = 4 + 4 + 1 + 1 + 1 + 6*8

	sealMagic      = "MDEDIT-SEALED"
	sealVersionV1  = uint16(1)
	sealFlagComp   = uint16(1 << 0)
	sealFlagEnc    = uint16(1 << 1)
	sealSaltSize   = 16
	sealNonceSize  = 12
	sealHeaderSize = len(sealMagic) + 2 + 2 + sealSaltSize + sealNonceSize + 8
	kdfIterations  = 200000
)

// SectionKind identifies a section in the table of contents.
type SectionKind uint8

const (
	SectionMeta SectionKind = iota + 1
	SectionText
	SectionRuns
	SectionSelection
)

func (k SectionKind) String() string {
	switch k {
	case SectionMeta:
		return "meta"
	case SectionText:
		return "text"
	case SectionRuns:
		return "runs"
	case SectionSelection:
		return "selection"
	}
	return fmt.Sprintf("section(%d)", uint8(k))
}

var (
	ErrInvalidMagic       = errors.New("mdoc: invalid magic")
	ErrUnsupportedVersion = errors.New("mdoc: unsupported version")
	ErrChecksumMismatch   = errors.New("mdoc: checksum mismatch")
	ErrCorruptDocument    = errors.New("mdoc: corrupt document")
	ErrPasswordRequired   = errors.New("mdoc: password required")
	ErrInvalidPassword    = errors.New("mdoc: invalid password")
)

type Metadata struct {
	ID       uuid.UUID
	Title    string
	Created  time.Time
	Modified time.Time
}

// Snapshot is one saved editor state.
type Snapshot struct {
	Meta      Metadata
	Text      styled.Text
	Selection styled.Range
}

type SaveOptions struct {
	Compress bool
	// Password enables encryption when non-blank.
	Password string
}

type LoadOptions struct {
	Password string
}

type EnvelopeInfo struct {
	Sealed     bool
	Compressed bool
	Encrypted  bool
	Version    uint16
}

// Section describes one entry of the table of contents.
type Section struct {
	Kind   SectionKind
	Offset uint64
	Length uint32
	CRC32  uint32
}

func New(title string, text styled.Text) *Snapshot {
	now := time.Now().UTC().Truncate(time.Second)
	return &Snapshot{
		Meta: Metadata{ID: uuid.New(), Title: title, Created: now, Modified: now},
		Text: text,
	}
}

// Save writes snap to path through a temporary file. Modified is bumped and a
// missing ID or creation time is filled in.
func Save(path string, snap *Snapshot, opts SaveOptions) error {
	if snap == nil {
		return errors.New("mdoc: snapshot is nil")
	}
	now := time.Now().UTC().Truncate(time.Second)
	if snap.Meta.ID == uuid.Nil {
		snap.Meta.ID = uuid.New()
	}
	if snap.Meta.Created.IsZero() {
		snap.Meta.Created = now
	}
	snap.Meta.Modified = now

	blob, err := Encode(snap, opts)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, blob, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func Load(path string, opts LoadOptions) (*Snapshot, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(b, opts)
}

// Inspect reports the envelope flags of the file at path without decrypting.
func Inspect(path string) (EnvelopeInfo, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return EnvelopeInfo{}, err
	}
	return inspectEnvelope(b)
}

// Encode serializes snap, sealing it when opts ask for compression or
// encryption.
func Encode(snap *Snapshot, opts SaveOptions) ([]byte, error) {
	if err := Validate(snap); err != nil {
		return nil, err
	}
	blob, _ := encodeContainer(snap)

	encrypt := strings.TrimSpace(opts.Password) != ""
	if !opts.Compress && !encrypt {
		return blob, nil
	}
	if opts.Compress {
		var err error
		if blob, err = compressBytes(blob); err != nil {
			return nil, err
		}
	}
	return seal(blob, opts.Compress, encrypt, opts.Password)
}

func Decode(b []byte, opts LoadOptions) (*Snapshot, error) {
	if isSealed(b) {
		var err error
		if b, err = unseal(b, opts); err != nil {
			return nil, err
		}
	}
	snap, err := decodeContainer(b)
	if err != nil {
		return nil, err
	}
	if err := Validate(snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptDocument, err)
	}
	return snap, nil
}

// Sections returns the table of contents snap would be written with.
func Sections(snap *Snapshot) ([]Section, error) {
	if err := Validate(snap); err != nil {
		return nil, err
	}
	_, toc := encodeContainer(snap)
	return toc, nil
}

func Validate(snap *Snapshot) error {
	if snap == nil {
		return errors.New("mdoc: snapshot is nil")
	}
	if !utf8.ValidString(snap.Meta.Title) {
		return errors.New("mdoc: title must be valid UTF-8")
	}
	n := snap.Text.Len()
	if !snap.Selection.Within(n) {
		return fmt.Errorf("mdoc: selection %v outside text of length %d", snap.Selection, n)
	}
	for _, r := range snap.Text.Runs() {
		if r.Start < 0 || r.End > n || r.Start >= r.End {
			return fmt.Errorf("mdoc: run %d..%d outside text of length %d", r.Start, r.End, n)
		}
		if r.Attr.Font > styled.FontListPrefix || r.Attr.Color > styled.ColorListPrefix {
			return fmt.Errorf("mdoc: run %d..%d has unknown roles", r.Start, r.End)
		}
	}
	return nil
}

func encodeContainer(snap *Snapshot) ([]byte, []Section) {
	payloads := []struct {
		kind SectionKind
		data []byte
	}{
		{SectionMeta, encodeMeta(snap.Meta)},
		{SectionText, encodeText(snap.Text)},
		{SectionRuns, encodeRuns(snap.Text.Runs())},
		{SectionSelection, encodeSelection(snap.Selection)},
	}

	tocOffset := uint64(headerSize)
	out := make([]byte, headerSize+len(payloads)*tocEntSize)
	copy(out, MagicString)
	p := len(MagicString)
	binary.LittleEndian.PutUint16(out[p:], VersionV1)
	binary.LittleEndian.PutUint64(out[p+4:], tocOffset)
	binary.LittleEndian.PutUint32(out[p+12:], uint32(len(payloads)))

	toc := make([]Section, 0, len(payloads))
	offset := uint64(len(out))
	for _, pl := range payloads {
		toc = append(toc, Section{
			Kind:   pl.kind,
			Offset: offset,
			Length: uint32(len(pl.data)),
			CRC32:  crc32.ChecksumIEEE(pl.data),
		})
		out = append(out, pl.data...)
		offset += uint64(len(pl.data))
	}

	ptr := headerSize
	for _, s := range toc {
		out[ptr] = byte(s.Kind)
		binary.LittleEndian.PutUint64(out[ptr+1:], s.Offset)
		binary.LittleEndian.PutUint32(out[ptr+9:], s.Length)
		binary.LittleEndian.PutUint32(out[ptr+13:], s.CRC32)
		ptr += tocEntSize
	}
	return out, toc
}

func decodeContainer(blob []byte) (*Snapshot, error) {
	if len(blob) < headerSize || string(blob[:len(MagicString)]) != MagicString {
		return nil, ErrInvalidMagic
	}
	p := len(MagicString)
	if v := binary.LittleEndian.Uint16(blob[p:]); v != VersionV1 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
	}
	tocOffset := binary.LittleEndian.Uint64(blob[p+4:])
	tocCount := uint64(binary.LittleEndian.Uint32(blob[p+12:]))
	if tocOffset > uint64(len(blob)) || tocOffset+tocCount*tocEntSize > uint64(len(blob)) {
		return nil, fmt.Errorf("%w: table of contents out of range", ErrCorruptDocument)
	}

	toc := make([]Section, 0, tocCount)
	ptr := int(tocOffset)
	for range tocCount {
		toc = append(toc, Section{
			Kind:   SectionKind(blob[ptr]),
			Offset: binary.LittleEndian.Uint64(blob[ptr+1:]),
			Length: binary.LittleEndian.Uint32(blob[ptr+9:]),
			CRC32:  binary.LittleEndian.Uint32(blob[ptr+13:]),
		})
		ptr += tocEntSize
	}
	if err := validateSections(toc, len(blob)); err != nil {
		return nil, err
	}

	snap := &Snapshot{}
	var (
		text    string
		runs    []styled.Run
		hasText bool
	)
	for _, s := range toc {
		payload := blob[s.Offset : s.Offset+uint64(s.Length)]
		if crc32.ChecksumIEEE(payload) != s.CRC32 {
			return nil, fmt.Errorf("%w: %s section", ErrChecksumMismatch, s.Kind)
		}
		var err error
		switch s.Kind {
		case SectionMeta:
			snap.Meta, err = decodeMeta(payload)
		case SectionText:
			text, err = decodeText(payload)
			hasText = true
		case SectionRuns:
			runs, err = decodeRuns(payload)
		case SectionSelection:
			snap.Selection, err = decodeSelection(payload)
		default:
			// Unknown sections stay skippable through the table of contents.
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s section: %v", ErrCorruptDocument, s.Kind, err)
		}
	}
	if !hasText {
		return nil, fmt.Errorf("%w: missing text section", ErrCorruptDocument)
	}
	n := utf8.RuneCountInString(text)
	for _, r := range runs {
		if r.Start < 0 || r.End > n || r.Start >= r.End {
			return nil, fmt.Errorf("%w: run %d..%d outside text of length %d", ErrCorruptDocument, r.Start, r.End, n)
		}
	}
	snap.Text = styled.FromRuns(text, runs)
	return snap, nil
}

func validateSections(toc []Section, fileLen int) error {
	type rng struct{ start, end uint64 }
	ranges := make([]rng, 0, len(toc))
	for _, s := range toc {
		end := s.Offset + uint64(s.Length)
		if s.Offset > uint64(fileLen) || end > uint64(fileLen) {
			return fmt.Errorf("%w: %s section out of range", ErrCorruptDocument, s.Kind)
		}
		ranges = append(ranges, rng{s.Offset, end})
	}
	sort.Slice(ranges, func(i, j int) bool { return ranges[i].start < ranges[j].start })
	for i := 1; i < len(ranges); i++ {
		if ranges[i].start < ranges[i-1].end {
			return fmt.Errorf("%w: overlapping sections", ErrCorruptDocument)
		}
	}
	return nil
}

func encodeMeta(m Metadata) []byte {
	out := make([]byte, 0, 64)
	out = append(out, m.ID[:]...)
	out = appendString(out, m.Title)
	out = appendI64(out, m.Created.Unix())
	out = appendI64(out, m.Modified.Unix())
	return out
}

func decodeMeta(b []byte) (Metadata, error) {
	var m Metadata
	if len(b) < len(m.ID) {
		return m, errors.New("short id")
	}
	copy(m.ID[:], b)
	b = b[len(m.ID):]
	var ok bool
	if m.Title, b, ok = readString(b); !ok {
		return m, errors.New("malformed title")
	}
	if len(b) < 16 {
		return m, errors.New("malformed timestamps")
	}
	m.Created = time.Unix(int64(binary.LittleEndian.Uint64(b[:8])), 0).UTC()
	m.Modified = time.Unix(int64(binary.LittleEndian.Uint64(b[8:16])), 0).UTC()
	return m, nil
}

func encodeText(t styled.Text) []byte {
	return appendString(nil, t.String())
}

func decodeText(b []byte) (string, error) {
	s, _, ok := readString(b)
	if !ok {
		return "", errors.New("malformed text")
	}
	if !utf8.ValidString(s) {
		return "", errors.New("text is not valid UTF-8")
	}
	return s, nil
}

func encodeRuns(runs []styled.Run) []byte {
	out := appendU32(make([]byte, 0, 4+len(runs)*runFixedSz), uint32(len(runs)))
	for _, r := range runs {
		out = appendU32(out, uint32(r.Start))
		out = appendU32(out, uint32(r.End))
		out = append(out, byte(r.Attr.Font), byte(r.Attr.Color))
		flags := byte(0)
		if r.Attr.Bold {
			flags |= 1
		}
		if r.Attr.Italic {
			flags |= 2
		}
		out = append(out, flags)
		p := r.Attr.Paragraph
		for _, f := range []float64{p.FirstLineHeadIndent, p.HeadIndent, p.TabStop, p.SpacingBefore, p.Spacing, p.LineSpacing} {
			out = appendU64(out, math.Float64bits(f))
		}
		out = appendString(out, r.Attr.Link)
	}
	return out
}

func decodeRuns(b []byte) ([]styled.Run, error) {
	if len(b) < 4 {
		return nil, errors.New("malformed run count")
	}
	count := int(binary.LittleEndian.Uint32(b))
	b = b[4:]
	if count > len(b)/runFixedSz {
		return nil, errors.New("run count exceeds payload")
	}
	runs := make([]styled.Run, 0, count)
	for range count {
		if len(b) < runFixedSz {
			return nil, errors.New("truncated run")
		}
		r := styled.Run{
			Start: int(binary.LittleEndian.Uint32(b)),
			End:   int(binary.LittleEndian.Uint32(b[4:])),
		}
		r.Attr.Font = styled.FontRole(b[8])
		r.Attr.Color = styled.ColorRole(b[9])
		r.Attr.Bold = b[10]&1 != 0
		r.Attr.Italic = b[10]&2 != 0
		var f [6]float64
		for i := range f {
			f[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[11+i*8:]))
		}
		r.Attr.Paragraph = styled.ParagraphStyle{
			FirstLineHeadIndent: f[0],
			HeadIndent:          f[1],
			TabStop:             f[2],
			SpacingBefore:       f[3],
			Spacing:             f[4],
			LineSpacing:         f[5],
		}
		var ok bool
		if r.Attr.Link, b, ok = readString(b[runFixedSz:]); !ok {
			return nil, errors.New("malformed link")
		}
		if r.Attr.Font > styled.FontListPrefix || r.Attr.Color > styled.ColorListPrefix {
			return nil, fmt.Errorf("run %d..%d has unknown roles", r.Start, r.End)
		}
		runs = append(runs, r)
	}
	return runs, nil
}

func encodeSelection(r styled.Range) []byte {
	return appendU32(appendU32(nil, uint32(r.Location)), uint32(r.Length))
}

func decodeSelection(b []byte) (styled.Range, error) {
	if len(b) < 8 {
		return styled.Range{}, errors.New("malformed selection")
	}
	return styled.Range{
		Location: int(binary.LittleEndian.Uint32(b)),
		Length:   int(binary.LittleEndian.Uint32(b[4:])),
	}, nil
}

func appendString(dst []byte, s string) []byte {
	dst = appendU32(dst, uint32(len(s)))
	return append(dst, s...)
}

func readString(src []byte) (string, []byte, bool) {
	if len(src) < 4 {
		return "", nil, false
	}
	ln := int(binary.LittleEndian.Uint32(src[:4]))
	src = src[4:]
	if len(src) < ln {
		return "", nil, false
	}
	return string(src[:ln]), src[ln:], true
}

func appendU32(dst []byte, v uint32) []byte {
	return binary.LittleEndian.AppendUint32(dst, v)
}

func appendU64(dst []byte, v uint64) []byte {
	return binary.LittleEndian.AppendUint64(dst, v)
}

func appendI64(dst []byte, v int64) []byte {
	return appendU64(dst, uint64(v))
}

func isSealed(b []byte) bool {
	return len(b) >= len(sealMagic) && string(b[:len(sealMagic)]) == sealMagic
}

func inspectEnvelope(b []byte) (EnvelopeInfo, error) {
	info := EnvelopeInfo{}
	if !isSealed(b) {
		if len(b) < headerSize || string(b[:len(MagicString)]) != MagicString {
			return info, ErrInvalidMagic
		}
		info.Version = binary.LittleEndian.Uint16(b[len(MagicString):])
		return info, nil
	}
	if len(b) < sealHeaderSize {
		return info, fmt.Errorf("%w: short envelope", ErrCorruptDocument)
	}
	p := len(sealMagic)
	version := binary.LittleEndian.Uint16(b[p:])
	if version != sealVersionV1 {
		return info, fmt.Errorf("%w: envelope version %d", ErrUnsupportedVersion, version)
	}
	flags := binary.LittleEndian.Uint16(b[p+2:])
	info.Sealed = true
	info.Compressed = flags&sealFlagComp != 0
	info.Encrypted = flags&sealFlagEnc != 0
	info.Version = version
	return info, nil
}

func seal(payload []byte, compressed, encrypt bool, password string) ([]byte, error) {
	flags := uint16(0)
	if compressed {
		flags |= sealFlagComp
	}
	salt := make([]byte, sealSaltSize)
	nonce := make([]byte, sealNonceSize)
	if encrypt {
		flags |= sealFlagEnc
		if _, err := io.ReadFull(rand.Reader, salt); err != nil {
			return nil, err
		}
		if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
			return nil, err
		}
		gcm, err := newGCM(password, salt)
		if err != nil {
			return nil, err
		}
		payload = gcm.Seal(nil, nonce, payload, nil)
	}

	out := make([]byte, sealHeaderSize, sealHeaderSize+len(payload))
	p := copy(out, sealMagic)
	binary.LittleEndian.PutUint16(out[p:], sealVersionV1)
	binary.LittleEndian.PutUint16(out[p+2:], flags)
	copy(out[p+4:], salt)
	copy(out[p+4+sealSaltSize:], nonce)
	binary.LittleEndian.PutUint64(out[p+4+sealSaltSize+sealNonceSize:], uint64(len(payload)))
	return append(out, payload...), nil
}

func unseal(b []byte, opts LoadOptions) ([]byte, error) {
	info, err := inspectEnvelope(b)
	if err != nil {
		return nil, err
	}
	p := len(sealMagic) + 4
	salt := b[p : p+sealSaltSize]
	nonce := b[p+sealSaltSize : p+sealSaltSize+sealNonceSize]
	payloadLen := binary.LittleEndian.Uint64(b[p+sealSaltSize+sealNonceSize:])
	if uint64(len(b)-sealHeaderSize) != payloadLen {
		return nil, fmt.Errorf("%w: envelope length mismatch", ErrCorruptDocument)
	}
	payload := append([]byte(nil), b[sealHeaderSize:]...)

	if info.Encrypted {
		if strings.TrimSpace(opts.Password) == "" {
			return nil, ErrPasswordRequired
		}
		gcm, err := newGCM(opts.Password, salt)
		if err != nil {
			return nil, err
		}
		if payload, err = gcm.Open(nil, nonce, payload, nil); err != nil {
			return nil, ErrInvalidPassword
		}
	}
	if info.Compressed {
		if payload, err = decompressBytes(payload); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptDocument, err)
		}
	}
	return payload, nil
}

func newGCM(password string, salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(password), salt, kdfIterations, 32, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func compressBytes(in []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, zlib.BestSpeed)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(in); err != nil {
		_ = w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompressBytes(in []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(in))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
