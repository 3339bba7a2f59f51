package types

// BoxType is a four-character ISOBMFF box type.
type BoxType string

// Box types the decoder knows about.
const (
	BoxSignature  BoxType = "JXL "
	BoxFileType   BoxType = "ftyp"
	BoxLevel      BoxType = "jxll"
	BoxCodestream BoxType = "jxlc"
	BoxPartial    BoxType = "jxlp"
	BoxExif       BoxType = "Exif"
	BoxXMP        BoxType = "xml "
	BoxJUMBF      BoxType = "jumb"
	BoxBrotli     BoxType = "brob"
	BoxJPEGRecon  BoxType = "jbrd"
)

// IsMetadata reports whether the box carries sidecar metadata the decoder keeps.
func (b BoxType) IsMetadata() bool {
	return b == BoxExif || b == BoxXMP
}
