// bio-otu clusters amplicon reads into OTUs and builds OTU-by-sample
// abundance tables. Clustering is delegated to USEARCH; VSEARCH, when
// installed, accelerates filtering, dereplication, chimera checking and read
// mapping.
package main

import (
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/file/s3file"
	"v.io/x/lib/cmdline"
)

func main() {
	file.RegisterImplementation("s3", func() file.Implementation {
		return s3file.NewImplementation(s3file.NewDefaultProvider(session.Options{}), s3file.Options{})
	})
	cmdline.HideGlobalFlagsExcept()
	cmdline.Main(
		&cmdline.Command{
			Name:     "bio-otu",
			Short:    "OTU clustering of amplicon reads",
			LookPath: false,
			Children: []*cmdline.Command{
				newCmdCluster(),
				newCmdTable(),
				newCmdProbe(),
			},
		})
}
