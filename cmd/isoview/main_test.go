package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bgrewell/iso-edit-kit/pkg/core"
	"github.com/bgrewell/iso-edit-kit/pkg/iso9660/boot"
	"github.com/bgrewell/iso-edit-kit/pkg/iso9660/descriptor"
	"github.com/bgrewell/iso-edit-kit/pkg/iso9660/parser"
)

func TestPrintInfo(t *testing.T) {
	info := &parser.Info{
		SystemID:     "LINUX",
		VolumeID:     "DATA",
		VolumeBlocks: 300,
		HasJoliet:    true,
		Hierarchy:    parser.HierarchyJoliet,
		Volumes: []*descriptor.Volume{
			{Type: descriptor.TYPE_PRIMARY_DESCRIPTOR, VolumeID: "DATA", VolumeBlocks: 300, PathTableSize: 10, LPathTable: 19, MPathTable: 20},
			{Type: descriptor.TYPE_SUPPLEMENTARY_DESCRIPTOR, Joliet: true, VolumeID: "data", VolumeBlocks: 300, PathTableSize: 10, LPathTable: 21, MPathTable: 22},
		},
		Partitions: []*descriptor.VolumePartitionDescriptor{
			{SystemIdentifier: "SYS", VolumePartitionIdentifier: "PART1", VolumePartitionLocation: 40, VolumePartitionSize: 8},
		},
	}
	boots := []core.BootInfo{{Platform: boot.BIOS, Emulation: boot.NoEmulation, Entry: boot.Entry{SectorCount: 4, ImageLBA: 33}}}

	var buf bytes.Buffer
	printInfo(&buf, info, boots)
	out := buf.String()
	assert.Contains(t, out, "Volume ID:   DATA\n")
	assert.Contains(t, out, `Volume [0]:  primary id="DATA" blocks=300 path-table=10@L19/M20`)
	assert.Contains(t, out, `Volume [1]:  joliet id="data" blocks=300 path-table=10@L21/M22`)
	assert.Contains(t, out, `Partition [0]: id="PART1" system="SYS" lba=40 blocks=8`)
	assert.Contains(t, out, "sectors=4 <LBA 33>")

	buf.Reset()
	printInfo(&buf, nil, nil)
	assert.Empty(t, buf.String())
}
