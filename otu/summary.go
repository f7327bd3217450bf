package otu

import (
	"fmt"
	"io"
)

const (
	colorWarn  = "\033[93m"
	colorReset = "\033[0m"
	rule       = "-------------------------------------------------------"
)

// WriteSummary prints the closing report of a successful run.
func WriteSummary(w io.Writer, res Result) error {
	_, err := fmt.Fprintf(w, "%s\nOTU Clustering Script has Finished Successfully\n%s\n", rule, rule)
	if err != nil {
		return err
	}
	if res.TmpDir != "" {
		if _, err = fmt.Fprintf(w, "Tmp Folder of files: %s\n", res.TmpDir); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(w, "Clustered OTUs: %s\nOTU Table: %s\n%s\n%sExample of next cmd:%s ufits filter -i %s -f %s -b <mock barcode>\n\n",
		res.OTUsPath, res.TablePath, rule, colorWarn, colorReset, res.TablePath, res.OTUsPath)
	return err
}
