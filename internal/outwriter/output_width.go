package outwriter

import (
	"os"

	"golang.org/x/term"
)

// GetMaxTablePathWidth calculates the maximum width for links in table output
// based on terminal width. A positive override replaces the detected width.
func GetMaxTablePathWidth(override int) int {
	termWidth := override

	if termWidth <= 0 {
		detectedWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil || detectedWidth <= 0 {
			termWidth = 80 // Conservative default for narrow terminals and CI
		} else {
			termWidth = detectedWidth
		}
	}

	// Six score columns plus the label, with borders and padding
	baseWidth := 6*10 + 12 + 10

	available := termWidth - baseWidth
	if available < 20 {
		return 20
	}
	if available > 90 {
		return 90
	}
	return available
}
