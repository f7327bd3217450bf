package runlog

import (
	"bytes"
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func TestLog(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "runlog")
	defer cleanup()
	path := filepath.Join(dir, "out.ufits-cluster.log")
	assert.NoError(t, ioutil.WriteFile(path, []byte("previous run\n"), 0644))

	var console bytes.Buffer
	l, err := Open(vcontext.Background(), path, &console)
	assert.NoError(t, err)
	l.now = func() time.Time { return time.Date(2016, 5, 4, 13, 2, 1, 0, time.UTC) }
	log.Debug.Printf("usearch9 -cluster_otus in.fa")
	log.Printf("Clustering OTUs (UPARSE)")
	log.Error.Printf("skipping chimera filtering")
	assert.NoError(t, l.Close())
	log.Printf("after close")

	data, err := ioutil.ReadFile(path)
	assert.NoError(t, err)
	expect.EQ(t, string(data), "[05/04/16 13:02:01]: usearch9 -cluster_otus in.fa\n"+
		"[05/04/16 13:02:01]: Clustering OTUs (UPARSE)\n"+
		"[05/04/16 13:02:01]: skipping chimera filtering\n")
	expect.False(t, strings.Contains(console.String(), "cluster_otus"))
	expect.HasSubstr(t, console.String(), "Clustering OTUs (UPARSE)")
	expect.HasSubstr(t, console.String(), "skipping chimera filtering")
	expect.False(t, strings.Contains(console.String(), "after close"))
}
