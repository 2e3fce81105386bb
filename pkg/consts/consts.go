package consts

const (
	// Number of system area sectors.
	ISO9660_SYSTEM_AREA_SECTORS = 16

	// Standard ISO9660 identifier.
	ISO9660_STD_IDENTIFIER = "CD001"

	// ISO9660 volume descriptor version (always 1).
	ISO9660_VOLUME_DESC_VERSION = 1

	// ISO9660 default sector size.
	ISO9660_SECTOR_SIZE = 2048

	// ISO9660 volume descriptor header size
	ISO9660_VOLUME_DESC_HEADER_SIZE = 7

	// ISO9660 application use area size
	ISO9660_APPLICATION_USE_SIZE = 512

	// Upper bound on the number of sectors scanned for the volume descriptor set terminator.
	ISO9660_MAX_VOLUME_DESCRIPTORS = 64

	// Offset of the escape sequences field inside a supplementary volume descriptor.
	ISO9660_ESCAPE_SEQUENCE_OFFSET = 88

	// Offset and length of the root directory record inside a primary or supplementary volume descriptor.
	ISO9660_ROOT_RECORD_OFFSET = 156
	ISO9660_ROOT_RECORD_SIZE   = 34

	// Fixed part of a directory record (everything before the file identifier).
	ISO9660_DIRECTORY_RECORD_FIXED_SIZE = 33

	// Largest possible directory record.
	ISO9660_DIRECTORY_RECORD_MAX_SIZE = 255

	// Fixed part of a path table record (everything before the directory identifier).
	ISO9660_PATH_TABLE_RECORD_FIXED_SIZE = 8

	// Maximum length of the system and volume identifiers.
	ISO9660_IDENTIFIER_SIZE = 32

	// Level 1 file name limits.
	ISO9660_MAX_BASE_LENGTH      = 8
	ISO9660_MAX_EXTENSION_LENGTH = 3

	// Version suffix appended to file identifiers in the primary hierarchy.
	ISO9660_FILE_VERSION_SUFFIX = ";1"

	// Directory depth at which the tree builder stops descending.
	ISO9660_MAX_DIRECTORY_DEPTH = 64

	// JOLIET level 1, 2, and 3 escape sequences.
	JOLIET_LEVEL_1_ESCAPE = "%/@"
	JOLIET_LEVEL_2_ESCAPE = "%/C"
	JOLIET_LEVEL_3_ESCAPE = "%/E"

	// Joliet identifiers are limited to 64 UCS-2 characters.
	JOLIET_MAX_NAME_LENGTH = 64

	// El Torito bootable cdrom system identifier.
	EL_TORITO_BOOT_SYSTEM_ID = "EL TORITO SPECIFICATION"

	// Offset of the boot catalog pointer inside the boot record volume descriptor.
	EL_TORITO_CATALOG_POINTER_OFFSET = 71

	// Identifier written into the validation entry of generated boot catalogs.
	EL_TORITO_VALIDATION_ID = "ISO-EDIT-KIT"

	// Size of a single boot catalog entry.
	EL_TORITO_ENTRY_SIZE = 32

	// Boot images are stored in 512-byte virtual sectors.
	EL_TORITO_VIRTUAL_SECTOR_SIZE = 512

	// Directory created at the volume root to hold configured boot images.
	BOOT_DIRECTORY_NAME = "BOOT"

	// Default identifiers for newly created images.
	DEFAULT_SYSTEM_ID      = "TK_ISO_EDITOR"
	DEFAULT_VOLUME_ID      = "NEW_ISO"
	DEFAULT_APPLICATION_ID = "ISO-EDIT-KIT"

	// Rock Ridge extension identification written to the ER entry.
	ROCK_RIDGE_ID         = "RRIP_1991A"
	ROCK_RIDGE_DESCRIPTOR = "THE ROCK RIDGE INTERCHANGE PROTOCOL PROVIDES SUPPORT FOR POSIX FILE SYSTEM SEMANTICS"

	// a-characters set which are specified in the International Reference Version at the following positions.
	//   | 2/0 - 2/2
	//   | 2/5 - 2/15
	//   | 3/0 - 3/15
	//   | 4/1 - 4/15
	//   | 5/0 - 5/10
	//   | 5/15
	A_CHARACTERS = " !\"%&'()*+,-./0123456789:;<=>?ABCDEFGHIJKLMNOPQRSTUVWXYZ_"

	// d-characters: 37 characters in the following positions of the International Reference Version
	// | 3/0 - 3/9
	// | 4/1 - 5/10
	// | 5/15
	D_CHARACTERS = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ_"

	// Separators allowed by ISO9660 0x2E and 0x3B.
	ISO9660_SEPARATOR_1 = "."
	ISO9660_SEPARATOR_2 = ";"

	// ISO9660 Filler 0x20 (space)
	ISO9660_FILLER = ' '

	// UDF Volume Recognition Sequence identifiers.
	UDF_STD_IDENTIFIER   = "BEA01"
	UDF_NSR02_IDENTIFIER = "NSR02"
	UDF_NSR03_IDENTIFIER = "NSR03"
	UDF_TEA_IDENTIFIER   = "TEA01"
	UDF_BOOT_IDENTIFIER  = "BOOT2"

	// UDF default sector size.
	UDF_SECTOR_SIZE = 2048

	// Number of sectors after the ISO terminator searched for a UDF recognition sequence.
	UDF_MAX_VRS_SECTORS = 16

	// CD-DA geometry used when converting CUE MSF offsets.
	CUE_FRAMES_PER_SECOND = 75
	CUE_BYTES_PER_FRAME   = 2352
)
