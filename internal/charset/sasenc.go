package charset

// sasEncodingNames maps the single-byte "encoding" code SAS stores in the
// file header to the textual label Resolve expects. The table covers the
// code pages SAS datasets commonly ship with; an unlisted code resolves to
// an empty label, which Resolve then treats as UTF-8.
var sasEncodingNames = map[byte]string{
	20: "utf-8",
	28: "us-ascii",
	29: "iso-8859-1",
	30: "iso-8859-2",
	31: "iso-8859-3",
	32: "iso-8859-4",
	33: "iso-8859-5",
	34: "iso-8859-6",
	35: "iso-8859-7",
	36: "iso-8859-8",
	37: "iso-8859-9",
	39: "iso-8859-11",
	40: "iso-8859-15",
	41: "cp437",
	42: "cp850",
	43: "cp852",
	44: "cp857",
	45: "cp858",
	46: "cp862",
	47: "cp864",
	48: "cp865",
	49: "cp866",
	50: "cp869",
	51: "windows-874",
	60: "windows-1250",
	61: "windows-1251",
	62: "windows-1252",
	63: "windows-1253",
	64: "windows-1254",
	65: "windows-1255",
	66: "windows-1256",
	67: "windows-1257",
	68: "windows-1258",
	119: "gbk",
	123: "euc-kr",
	125: "shift_jis",
	126: "euc-jp",
	140: "big5",
	141: "gb18030",
	163: "macroman",
}

// SASEncodingName resolves a SAS header "encoding" byte to the textual
// label Resolve accepts. The ok return is false for unrecognized codes.
func SASEncodingName(code byte) (string, bool) {
	name, ok := sasEncodingNames[code]
	return name, ok
}
