package snapshot

import (
	"os"
	"path/filepath"

	"github.com/kdomanski/iso9660"
	"github.com/kwinsch/historify/herrors"
)

// writeISOImage packs paths into a single optical-media image at outPath,
// using ISO9660/Joliet. UDF 2.60 arbitrary-filename support is a property of
// the target burning toolchain; this writer guarantees the ISO9660/Joliet
// fallback every medium understands. volumeID is written as given; the
// caller (packMedia) keeps it within the 15-character ceiling.
func writeISOImage(outPath, volumeID string, paths []string) error {
	writer, err := iso9660.NewWriter()
	if err != nil {
		return herrors.Wrap(herrors.KindIO, err, "creating iso9660 writer")
	}
	defer writer.Cleanup()

	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return herrors.Wrapf(herrors.KindIO, err, "opening %s", p)
		}
		err = writer.AddFile(f, filepath.Base(p))
		f.Close()
		if err != nil {
			return herrors.Wrapf(herrors.KindIO, err, "adding %s to image", p)
		}
	}

	out, err := os.OpenFile(outPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return herrors.Wrapf(herrors.KindIO, err, "creating %s", outPath)
	}
	defer out.Close()

	if err := writer.WriteTo(out, volumeID); err != nil {
		return herrors.Wrapf(herrors.KindIO, err, "writing iso image %s", outPath)
	}
	return nil
}
