package descriptor

import (
	"fmt"
	"time"

	"github.com/bgrewell/iso-edit-kit/pkg/consts"
	"github.com/bgrewell/iso-edit-kit/pkg/iso9660/validation"
)

// Volume is the hierarchy-level information decoded from a primary or supplementary volume descriptor.
type Volume struct {
	Type          VolumeDescriptorType
	Joliet        bool
	SystemID      string
	VolumeID      string
	VolumeBlocks  uint32
	BlockSize     uint16
	PathTableSize uint32
	LPathTable    uint32
	MPathTable    uint32
	RootRecord    [consts.ISO9660_ROOT_RECORD_SIZE]byte
	Created       time.Time
	Modified      time.Time
}

// DecodeVolume decodes a primary or supplementary descriptor sector. Identifiers are read as UCS-2 when isJoliet is
// set. Both-byte order fields are taken from their little-endian half only.
func DecodeVolume(sector [consts.ISO9660_SECTOR_SIZE]byte, isJoliet bool) (*Volume, error) {
	var h VolumeDescriptorHeader
	var b VolumeDescriptorBody
	if err := unmarshalVolume(sector, &h, &b, isJoliet); err != nil {
		return nil, err
	}
	if h.VolumeDescriptorType != TYPE_PRIMARY_DESCRIPTOR && h.VolumeDescriptorType != TYPE_SUPPLEMENTARY_DESCRIPTOR {
		return nil, fmt.Errorf("descriptor type %s does not describe a volume", h.VolumeDescriptorType)
	}
	return volumeFromBody(h.VolumeDescriptorType, isJoliet, &b), nil
}

// Volume returns the decoded view of the primary descriptor.
func (pvd *PrimaryVolumeDescriptor) Volume() *Volume {
	return volumeFromBody(TYPE_PRIMARY_DESCRIPTOR, false, &pvd.VolumeDescriptorBody)
}

// Volume returns the decoded view of the supplementary descriptor.
func (svd *SupplementaryVolumeDescriptor) Volume() *Volume {
	return volumeFromBody(TYPE_SUPPLEMENTARY_DESCRIPTOR, svd.HasJoliet(), &svd.VolumeDescriptorBody)
}

func volumeFromBody(t VolumeDescriptorType, joliet bool, b *VolumeDescriptorBody) *Volume {
	return &Volume{
		Type:          t,
		Joliet:        joliet,
		SystemID:      b.SystemIdentifier,
		VolumeID:      b.VolumeIdentifier,
		VolumeBlocks:  b.VolumeSpaceSize,
		BlockSize:     b.LogicalBlockSize,
		PathTableSize: b.PathTableSize,
		LPathTable:    b.LocationOfTypeLPathTable,
		MPathTable:    b.LocationOfTypeMPathTable,
		RootRecord:    b.RootDirectoryRecord,
		Created:       b.VolumeCreationDateAndTime,
		Modified:      b.VolumeModificationDateAndTime,
	}
}

// Hierarchy carries the per-hierarchy values a volume descriptor points at.
type Hierarchy struct {
	PathTableSize uint32
	LPathTable    uint32
	MPathTable    uint32
	RootRecord    [consts.ISO9660_ROOT_RECORD_SIZE]byte
}

type AssembleParams struct {
	SystemID     string
	VolumeID     string
	VolumeBlocks uint32
	Primary      Hierarchy
	// Joliet adds a supplementary descriptor with the Joliet level 3 escape sequence.
	Joliet *Hierarchy
	// CatalogLBA adds an El Torito Boot Record pointing at the boot catalog.
	CatalogLBA *uint32
	Timestamp  time.Time
}

// DescriptorCount returns the number of sectors AssembleVolume produces, terminator included.
func DescriptorCount(joliet, boot bool) int {
	n := 2
	if joliet {
		n++
	}
	if boot {
		n++
	}
	return n
}

// AssembleVolume produces the volume descriptor set in write order: PVD, Boot Record, SVD, Terminator. The primary
// identifiers are reduced to a- and d-characters; the Joliet descriptor keeps them as given.
func AssembleVolume(p AssembleParams) ([][consts.ISO9660_SECTOR_SIZE]byte, error) {
	base := VolumeDescriptorBody{
		SystemIdentifier:              validation.SanitizeIdentifier(p.SystemID, false, consts.ISO9660_IDENTIFIER_SIZE),
		VolumeIdentifier:              validation.SanitizeIdentifier(p.VolumeID, true, consts.ISO9660_IDENTIFIER_SIZE),
		VolumeSpaceSize:               p.VolumeBlocks,
		VolumeSetSize:                 1,
		VolumeSequenceNumber:          1,
		LogicalBlockSize:              consts.ISO9660_SECTOR_SIZE,
		ApplicationIdentifier:         consts.DEFAULT_APPLICATION_ID,
		VolumeCreationDateAndTime:     p.Timestamp,
		VolumeModificationDateAndTime: p.Timestamp,
		FileStructureVersion:          1,
	}

	var descriptors []VolumeDescriptor

	pvdBody := base
	applyHierarchy(&pvdBody, p.Primary)
	descriptors = append(descriptors, NewPrimaryVolumeDescriptor(pvdBody))

	if p.CatalogLBA != nil {
		descriptors = append(descriptors, NewElToritoBootRecord(*p.CatalogLBA))
	}

	if p.Joliet != nil {
		svdBody := base
		svdBody.SystemIdentifier = p.SystemID
		svdBody.VolumeIdentifier = p.VolumeID
		applyHierarchy(&svdBody, *p.Joliet)
		descriptors = append(descriptors, NewJolietVolumeDescriptor(svdBody))
	}

	descriptors = append(descriptors, NewVolumeDescriptorSetTerminator())

	out := make([][consts.ISO9660_SECTOR_SIZE]byte, 0, len(descriptors))
	for _, d := range descriptors {
		sector, err := d.Marshal()
		if err != nil {
			return nil, err
		}
		out = append(out, sector)
	}
	return out, nil
}

func applyHierarchy(b *VolumeDescriptorBody, h Hierarchy) {
	b.PathTableSize = h.PathTableSize
	b.LocationOfTypeLPathTable = h.LPathTable
	b.LocationOfTypeMPathTable = h.MPathTable
	b.RootDirectoryRecord = h.RootRecord
}
