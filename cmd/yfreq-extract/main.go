// Writes the sample IDs of one population and sex from a 1000 Genomes panel.
package main

import (
	"github.com/jgbaldwinbrown/yfreq/pkg"
)

func main() {
	yfreq.FullExtractPanel()
}
