// Computes Y haplogroup frequency tables from yhaplo output and writes them
// as CSV files plus a text summary.
package main

import (
	"github.com/jgbaldwinbrown/yfreq/pkg"
	"github.com/jgbaldwinbrown/yfreq/pkg/store"
)

func main() {
	yfreq.FullAnalyze(store.SaveAnalysisPath)
}
