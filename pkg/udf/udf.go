package udf

import (
	"io"

	"github.com/bgrewell/iso-edit-kit/pkg/consts"
	"github.com/bgrewell/iso-edit-kit/pkg/logging"
)

// Recognition is the outcome of scanning the extended area for a UDF Volume Recognition Sequence. UDF structures are
// only recognised; their content is left untouched.
type Recognition struct {
	// Present is set when a BEA01, NSR02/NSR03, TEA01 sequence was found in that order.
	Present bool
	// NSRVersion is 2 or 3 when an NSR descriptor was found, 0 otherwise.
	NSRVersion int
	// Identifiers lists the standard identifiers seen, in volume order.
	Identifiers []string
	// StartLBA is the first block scanned.
	StartLBA uint32
}

// DetectVRS reads up to consts.UDF_MAX_VRS_SECTORS blocks starting at startLBA and records the volume structure
// descriptors it recognises. Scanning ends at the first block that is not a volume structure descriptor or at a TEA01.
// A missing or truncated sequence is not an error.
func DetectVRS(r io.ReaderAt, startLBA uint32, logger *logging.Logger) (*Recognition, error) {
	logger = logging.OrDefault(logger)
	rec := &Recognition{StartLBA: startLBA}
	buf := make([]byte, consts.UDF_SECTOR_SIZE)

	sawBEA, sawNSR := false, false
	for i := uint32(0); i < consts.UDF_MAX_VRS_SECTORS; i++ {
		lba := startLBA + i
		n, _ := r.ReadAt(buf, int64(lba)*consts.UDF_SECTOR_SIZE)
		if n < 7 {
			break
		}
		id := string(buf[1:6])
		if !isStructureIdentifier(id) {
			break
		}
		rec.Identifiers = append(rec.Identifiers, id)
		logger.Trace("Found volume structure descriptor", "lba", lba, "identifier", id)

		switch id {
		case consts.UDF_STD_IDENTIFIER:
			sawBEA = true
		case consts.UDF_NSR02_IDENTIFIER, consts.UDF_NSR03_IDENTIFIER:
			if sawBEA {
				sawNSR = true
				rec.NSRVersion = 2
				if id == consts.UDF_NSR03_IDENTIFIER {
					rec.NSRVersion = 3
				}
			}
		case consts.UDF_TEA_IDENTIFIER:
			rec.Present = sawBEA && sawNSR
			logger.Debug("UDF recognition sequence scanned", "present", rec.Present, "nsr", rec.NSRVersion)
			return rec, nil
		}
	}
	logger.Debug("UDF recognition sequence scanned", "present", rec.Present, "identifiers", len(rec.Identifiers))
	return rec, nil
}

func isStructureIdentifier(id string) bool {
	switch id {
	case consts.UDF_STD_IDENTIFIER, consts.UDF_NSR02_IDENTIFIER, consts.UDF_NSR03_IDENTIFIER,
		consts.UDF_TEA_IDENTIFIER, consts.UDF_BOOT_IDENTIFIER, consts.ISO9660_STD_IDENTIFIER:
		return true
	}
	return false
}
