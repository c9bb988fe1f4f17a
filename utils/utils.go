package utils

import "fmt"

// FormatPayload renders a wire payload for the log: printable ASCII as-is,
// everything else escaped, with the byte count appended.
func FormatPayload(data []byte) string {
	if len(data) == 0 {
		return "empty payload"
	}

	printable := ""
	for _, b := range data {
		switch {
		case b >= 32 && b <= 126:
			printable += string(b)
		case b == '\n':
			printable += `\n`
		case b == '\r':
			printable += `\r`
		case b == '\t':
			printable += `\t`
		default:
			printable += fmt.Sprintf(`\x%02X`, b)
		}
	}

	return fmt.Sprintf("\"%s\" (%d bytes)", printable, len(data))
}
